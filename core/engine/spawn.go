package engine

import (
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/exec"
	"syscall"

	"github.com/josephlewis42/pipesh/core/pipeline"
	"github.com/pkg/errors"
)

// Exit statuses produced by the engine itself rather than by a program.
const (
	StatusSuccess       = 0
	StatusFailure       = 1
	StatusUsage         = 2
	StatusNotExecutable = 126
	StatusNotFound      = 127

	// statusSignalBase is added to the signal number of a killed process.
	statusSignalBase = 128
)

// Spawner starts external programs for single stages.
type Spawner struct {
	// Stdin, Stdout and Stderr are the default streams for a stage with no
	// pipe or file wired to that direction.
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File

	// Log receives internal errors that aren't the fault of the stage.
	Log *log.Logger
}

// Process is a stage that was handed to the Spawner. A process that failed to
// start still has a status so callers can treat every stage alike.
type Process struct {
	Stage *pipeline.Stage

	cmd    *exec.Cmd
	status int
	err    error
	waited bool
}

// Started reports whether an OS process was created.
func (p *Process) Started() bool {
	return p.cmd != nil
}

// Pid returns the OS process ID, or -1 if the process never started.
func (p *Process) Pid() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return -1
	}
	return p.cmd.Process.Pid
}

// Err returns why the stage failed to start, if it did.
func (p *Process) Err() error {
	return p.err
}

// Wait blocks until this one process exits and returns its exit status. A
// non-nil error means the status couldn't be collected, not that the program
// failed.
func (p *Process) Wait() (int, error) {
	if p.cmd == nil || p.waited {
		return p.status, nil
	}
	p.waited = true

	status, err := exitStatus(p.cmd.Wait())
	p.status = status
	return status, err
}

func failedProcess(st *pipeline.Stage, status int, err error) *Process {
	return &Process{Stage: st, status: status, err: err}
}

// Start launches the stage with the given wired streams. Redirections are
// resolved here, handed to the child and then closed in this process.
// Failures are reported on Stderr and turned into a status; Start never
// returns nil.
func (s *Spawner) Start(st *pipeline.Stage, in, out Stream) *Process {
	in, out, err := resolveRedirects(st, in, out)
	if err != nil {
		s.report(err)
		return failedProcess(st, StatusFailure, err)
	}
	// The child gets its own copies when it starts.
	defer func() {
		if err := closeFiles(in, out); err != nil {
			s.Log.Printf("close redirection: %v", err)
		}
	}()

	cmd := exec.Command(st.Args[0], st.Args[1:]...)
	cmd.Args = st.Args
	cmd.Stdin = in.file(s.Stdin)
	cmd.Stdout = out.file(s.Stdout)
	cmd.Stderr = s.Stderr

	if err := cmd.Start(); err != nil {
		status, msg := startFailure(st.Name(), err)
		fmt.Fprintf(s.Stderr, "%s: %s\n", ProgramName, msg)
		return failedProcess(st, status, err)
	}

	return &Process{Stage: st, cmd: cmd}
}

// Run starts the stage and waits for it to finish.
func (s *Spawner) Run(st *pipeline.Stage, in, out Stream) (int, error) {
	proc := s.Start(st, in, out)
	status, err := proc.Wait()
	if err == nil {
		err = proc.Err()
	}
	return status, err
}

func (s *Spawner) report(err error) {
	report(s.Stderr, err)
}

func report(w io.Writer, err error) {
	fmt.Fprintf(w, "%s: %v\n", ProgramName, err)
}

// startFailure maps an error from starting a program to a shell status.
func startFailure(name string, err error) (int, string) {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return StatusNotFound, fmt.Sprintf("%s: command not found", name)
	case errors.Is(err, fs.ErrPermission):
		return StatusNotExecutable, fmt.Sprintf("%s: permission denied", name)
	default:
		return StatusNotExecutable, fmt.Sprintf("%s: %v", name, err)
	}
}

// exitStatus converts the result of waiting on a process into a shell status.
func exitStatus(err error) (int, error) {
	if err == nil {
		return StatusSuccess, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return statusSignalBase + int(ws.Signal()), nil
		}
		return exitErr.ExitCode(), nil
	}

	return StatusFailure, err
}
