// Package shell reads command lines, turns them into pipelines and hands them
// to the engine.
package shell

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/user"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"
	"github.com/josephlewis42/pipesh/core/config"
	"github.com/josephlewis42/pipesh/core/engine"
	"github.com/josephlewis42/pipesh/core/logger"
	"github.com/josephlewis42/pipesh/core/pipeline"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

const (
	EnvHome   = "HOME"
	EnvPWD    = "PWD"
	EnvOldPWD = "OLDPWD"
	EnvUser   = "USER"

	DefaultPrompt = `\u@\h:\w\$ `
)

var (
	ColorBoldGreen = color.New(color.FgGreen, color.Bold)
	ColorBoldRed   = color.New(color.FgRed, color.Bold)
)

// Options holds the collaborators of a Shell. Zero values fall back to the
// process's own streams and discard events.
type Options struct {
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// Events receives one entry per line run.
	Events *logger.Logger
	// Log receives internal errors.
	Log *log.Logger
}

// Shell is an interactive or scripted command loop.
type Shell struct {
	// Quit is set by the exit builtin.
	Quit bool
	// ExitCode is the status of the last line run.
	ExitCode int

	config   *config.Configuration
	engine   *engine.Engine
	events   *logger.SessionLogger
	log      *log.Logger
	readline *readline.Instance

	stdin  *os.File
	stdout *os.File
	stderr *os.File

	history  []string
	colorize bool
}

// NewShell creates a shell that runs commands as configured.
func NewShell(configuration *config.Configuration, opts Options) *Shell {
	if configuration == nil {
		configuration = config.Default()
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Events == nil {
		opts.Events = logger.NewNopLogger()
	}
	if opts.Log == nil {
		opts.Log = log.New(io.Discard, "", 0)
	}

	s := &Shell{
		config: configuration,
		events: opts.Events.NewSession(),
		log:    opts.Log,
		stdin:  opts.Stdin,
		stdout: opts.Stdout,
		stderr: opts.Stderr,
	}

	switch configuration.Color {
	case config.ColorAlways:
		s.colorize = true
	case config.ColorNever:
		s.colorize = false
	default:
		s.colorize = isTerminal(opts.Stderr)
	}

	s.engine = engine.New(
		s,
		engine.WithStdio(opts.Stdin, opts.Stdout, opts.Stderr),
		engine.WithLogger(opts.Log),
		engine.WithMaxStages(configuration.MaxStages),
	)

	s.history = s.loadHistory()

	return s
}

// SessionID identifies this shell's entries in the event log.
func (s *Shell) SessionID() string {
	return s.events.SessionID()
}

// Interactive reports whether commands are read from a terminal.
func (s *Shell) Interactive() bool {
	return isTerminal(s.stdin)
}

// LookupBuiltin implements engine.BuiltinResolver.
func (s *Shell) LookupBuiltin(name string) (engine.Builtin, bool) {
	builtin, ok := AllBuiltins[name]
	if !ok {
		return nil, false
	}

	return engine.BuiltinFunc(func(inv *engine.Invocation) int {
		return builtin.Main(s, inv)
	}), true
}

var _ engine.BuiltinResolver = (*Shell)(nil)

// Prompt expands the configured prompt.
func (s *Shell) Prompt() string {
	prompt := s.config.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}

	prompt = strings.ReplaceAll(prompt, `\u`, currentUser())
	prompt = strings.ReplaceAll(prompt, `\h`, shortHostname())

	pwd, _ := os.Getwd()
	home, _ := os.UserHomeDir()
	if home != "" && strings.HasPrefix(pwd, home) {
		pwd = "~" + strings.TrimPrefix(pwd, home)
	}
	prompt = strings.ReplaceAll(prompt, `\w`, pwd)

	if os.Geteuid() == 0 {
		prompt = strings.ReplaceAll(prompt, `\$`, "#")
	} else {
		prompt = strings.ReplaceAll(prompt, `\$`, "$")
	}

	if s.colorize {
		return ColorBoldGreen.Sprint(prompt)
	}
	return prompt
}

// Chdir changes the working directory of the shell and of every command it
// starts later.
func (s *Shell) Chdir(dir string) error {
	old, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		return err
	}

	wd, err := os.Getwd()
	if err != nil {
		wd = dir
	}
	os.Setenv(EnvOldPWD, old)
	os.Setenv(EnvPWD, wd)
	return nil
}

// Run reads and runs lines until input ends or the exit builtin is called.
//
// Commands inherit the shell's standard input, so nothing is read past the end
// of the current line before it runs.
func (s *Shell) Run() error {
	interactive := s.Interactive()
	s.recordSessionStart(interactive)

	if !interactive {
		return s.runUnbuffered()
	}
	return s.runReadline()
}

func (s *Shell) runUnbuffered() error {
	for !s.Quit {
		line, err := readLineUnbuffered(s.stdin)
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return errors.Wrap(err, "read")
		}
		s.RunCommand(line)
	}
	return nil
}

func (s *Shell) runReadline() error {
	gate := newLineGate(s.stdin)
	cfg := &readline.Config{
		Stdin:                  gate,
		Stdout:                 s.stdout,
		Stderr:                 s.stderr,
		HistoryFile:            s.config.HistoryPath(),
		HistoryLimit:           s.config.HistoryLimit,
		DisableAutoSaveHistory: true,

		FuncIsTerminal: func() bool {
			return true
		},
	}
	if err := cfg.Init(); err != nil {
		return errors.Wrap(err, "readline")
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return errors.Wrap(err, "readline")
	}
	defer rl.Close()
	s.readline = rl

	for !s.Quit {
		rl.SetPrompt(s.Prompt())
		gate.Arm()
		line, err := rl.Readline()

		switch {
		case err == io.EOF:
			return nil // Input closed, quit.

		case err == readline.ErrInterrupt:
			continue

		case err != nil:
			return errors.Wrap(err, "readline")

		default:
			s.RunCommand(line)
		}
	}

	return nil
}

// RunCommand parses and runs one line and returns its status.
func (s *Shell) RunCommand(line string) int {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return s.ExitCode
	}

	s.addHistory(line)

	p, err := Parse(line)
	if err != nil {
		s.printError(err)
		s.record(&logger.ParseError{Line: line, Error: err.Error()})
		s.ExitCode = engine.StatusUsage
		return s.ExitCode
	}
	if p.IsEmpty() {
		return s.ExitCode
	}

	res := s.engine.Run(p)
	s.ExitCode = res.Status
	s.record(pipelineEvent(line, res))

	return s.ExitCode
}

// RunScript runs a single command string, as passed with -c.
func (s *Shell) RunScript(script string) int {
	s.recordSessionStart(false)
	for _, line := range strings.Split(script, "\n") {
		s.RunCommand(line)
		if s.Quit {
			break
		}
	}
	return s.ExitCode
}

// History returns the lines entered so far.
func (s *Shell) History() []string {
	return s.history
}

// ClearHistory forgets every line entered so far.
func (s *Shell) ClearHistory() {
	s.history = nil
	if s.readline != nil {
		s.readline.Operation.ResetHistory()
	}
	if path := s.config.HistoryPath(); path != "" {
		if err := os.Truncate(path, 0); err != nil && !os.IsNotExist(err) {
			s.log.Printf("clear history: %v", err)
		}
	}
}

func (s *Shell) addHistory(line string) {
	s.history = append(s.history, line)
	if limit := s.config.HistoryLimit; limit > 0 && len(s.history) > limit {
		s.history = s.history[len(s.history)-limit:]
	}

	if s.readline != nil {
		if err := s.readline.SaveHistory(line); err != nil {
			s.log.Printf("save history: %v", err)
		}
	}
}

func (s *Shell) loadHistory() []string {
	path := s.config.HistoryPath()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Printf("load history: %v", err)
		}
		return nil
	}

	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	if limit := s.config.HistoryLimit; limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func (s *Shell) printError(err error) {
	msg := fmt.Sprintf("%s: %v", engine.ProgramName, err)
	if s.colorize {
		msg = ColorBoldRed.Sprint(msg)
	}
	fmt.Fprintln(s.stderr, msg)
}

func (s *Shell) record(event logger.Event) {
	if err := s.events.Record(event); err != nil {
		s.log.Printf("record %s: %v", event.Kind(), err)
	}
}

func (s *Shell) recordSessionStart(interactive bool) {
	s.record(&logger.SessionStart{
		User:        currentUser(),
		Interactive: interactive,
		ConfigDir:   s.config.Dir(),
	})
}

func pipelineEvent(line string, res *engine.Result) *logger.Pipeline {
	event := &logger.Pipeline{
		Line:     line,
		Status:   res.Status,
		Duration: res.Duration,
	}
	for _, st := range res.Stages {
		outcome := logger.StageOutcome{
			Command: st.Args,
			Status:  st.Status,
			Builtin: st.Builtin,
		}
		if st.Err != nil {
			outcome.Error = st.Err.Error()
		}
		event.Stages = append(event.Stages, outcome)
	}
	return event
}

// Execute runs an already parsed pipeline.
func (s *Shell) Execute(p *pipeline.Pipeline) int {
	s.ExitCode = s.engine.Execute(p)
	return s.ExitCode
}

func isTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

func currentUser() string {
	if name := os.Getenv(EnvUser); name != "" {
		return name
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "user"
}

func shortHostname() string {
	host, err := os.Hostname()
	if err != nil {
		return "localhost"
	}
	if i := strings.IndexByte(host, '.'); i > 0 {
		host = host[:i]
	}
	return host
}
