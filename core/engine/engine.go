// Package engine runs parsed pipelines as OS processes.
//
// Each stage of a pipeline becomes one child process. Adjacent stages are
// connected by a pipe and file redirections override the pipe for their
// direction. A single-stage pipeline naming a builtin runs in-process instead,
// with the engine's own standard streams temporarily redirected.
//
// Every descriptor the engine opens is closed before Run returns. A program
// that never exits blocks Run forever; there is no timeout.
package engine

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/josephlewis42/pipesh/core/pipeline"
	"github.com/pkg/errors"
)

// ProgramName prefixes messages the engine reports on standard error.
const ProgramName = "pipesh"

// DefaultMaxStages bounds the number of stages in one pipeline.
const DefaultMaxStages = 256

// ErrTooManyStages is returned for pipelines longer than the configured bound.
var ErrTooManyStages = errors.New("too many pipeline stages")

// Engine executes pipelines.
type Engine struct {
	builtins BuiltinResolver
	spawner  *Spawner

	stdin  *os.File
	stdout *os.File
	stderr *os.File

	log       *log.Logger
	maxStages int

	// pipe allocates the pipe between two stages.
	pipe func(label string) (r, w *Handle, err error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithStdio sets the standard streams stages inherit when they aren't piped
// or redirected. Nil arguments keep the process's own streams.
func WithStdio(stdin, stdout, stderr *os.File) Option {
	return func(e *Engine) {
		e.stdin = stdioFile(stdin, os.Stdin)
		e.stdout = stdioFile(stdout, os.Stdout)
		e.stderr = stdioFile(stderr, os.Stderr)
	}
}

// WithLogger sets the logger for internal errors.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.log = logger
		}
	}
}

// WithMaxStages bounds the length of a pipeline.
func WithMaxStages(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxStages = n
		}
	}
}

// New creates an engine. builtins may be nil, in which case every stage is
// run as an external program.
func New(builtins BuiltinResolver, opts ...Option) *Engine {
	e := &Engine{
		builtins:  builtins,
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		log:       log.New(io.Discard, "", 0),
		maxStages: DefaultMaxStages,
		pipe:      newPipe,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.spawner = &Spawner{
		Stdin:  e.stdin,
		Stdout: e.stdout,
		Stderr: e.stderr,
		Log:    e.log,
	}
	return e
}

// StageResult is the outcome of one stage.
type StageResult struct {
	Args    []string
	Status  int
	Builtin bool
	// Err is set when the stage couldn't be started or its redirection
	// couldn't be opened.
	Err error
}

// Result is the outcome of one pipeline.
type Result struct {
	// Status is the status of the last stage.
	Status   int
	Stages   []StageResult
	Started  time.Time
	Duration time.Duration
}

// Success reports whether the pipeline's status is zero.
func (r *Result) Success() bool {
	return r.Status == StatusSuccess
}

func (r *Result) add(sr StageResult) {
	r.Stages = append(r.Stages, sr)
	r.Status = sr.Status
}

// Execute runs the pipeline and returns its exit status.
func (e *Engine) Execute(p *pipeline.Pipeline) int {
	return e.Run(p).Status
}

// Run runs the pipeline and reports the status of every stage along with how
// long the whole pipeline took.
func (e *Engine) Run(p *pipeline.Pipeline) *Result {
	res := &Result{Started: time.Now()}
	defer func() {
		res.Duration = time.Since(res.Started)
	}()

	if err := e.validate(p); err != nil {
		report(e.stderr, err)
		res.Status = StatusUsage
		return res
	}

	if p.Len() == 1 {
		e.runSingle(&p.Stages[0], res)
		return res
	}

	for _, proc := range e.runPipeline(p) {
		res.add(StageResult{
			Args:   proc.Stage.Args,
			Status: proc.status,
			Err:    proc.Err(),
		})
	}
	return res
}

func (e *Engine) validate(p *pipeline.Pipeline) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Len() > e.maxStages {
		return errors.Wrapf(ErrTooManyStages, "%d > %d", p.Len(), e.maxStages)
	}
	return nil
}

// runSingle runs a lone stage, in-process if it names a builtin.
func (e *Engine) runSingle(st *pipeline.Stage, res *Result) {
	if b, ok := e.lookupBuiltin(st); ok {
		status, err := e.runBuiltin(b, st)
		res.add(StageResult{Args: st.Args, Status: status, Builtin: true, Err: err})
		return
	}

	status, err := e.spawner.Run(st, DefaultStream, DefaultStream)
	res.add(StageResult{Args: st.Args, Status: status, Err: err})
}
