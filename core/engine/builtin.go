package engine

import (
	"io"

	"github.com/josephlewis42/pipesh/core/pipeline"
)

// Invocation is what a builtin receives. The streams already reflect any file
// redirection on the stage.
type Invocation struct {
	Args   []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Builtin is a command implemented in-process.
type Builtin interface {
	Run(inv *Invocation) int
}

// BuiltinFunc adapts a function to the Builtin interface.
type BuiltinFunc func(inv *Invocation) int

// Run implements Builtin.
func (f BuiltinFunc) Run(inv *Invocation) int {
	return f(inv)
}

var _ Builtin = (BuiltinFunc)(nil)

// BuiltinResolver identifies builtins by command name.
type BuiltinResolver interface {
	LookupBuiltin(name string) (Builtin, bool)
}

// BuiltinMap is a fixed set of builtins keyed by name.
type BuiltinMap map[string]Builtin

// LookupBuiltin implements BuiltinResolver.
func (m BuiltinMap) LookupBuiltin(name string) (Builtin, bool) {
	b, ok := m[name]
	return b, ok
}

var _ BuiltinResolver = (BuiltinMap)(nil)

// lookupBuiltin returns the builtin for a stage if there is one.
func (e *Engine) lookupBuiltin(st *pipeline.Stage) (Builtin, bool) {
	if e.builtins == nil {
		return nil, false
	}
	return e.builtins.LookupBuiltin(st.Name())
}

// runBuiltin runs a builtin with the engine's own streams temporarily pointed
// at the stage's redirections. The streams are restored even if the builtin
// panics.
func (e *Engine) runBuiltin(b Builtin, st *pipeline.Stage) (int, error) {
	restore, err := e.redirectSelf(st)
	if err != nil {
		report(e.stderr, err)
		return StatusFailure, err
	}
	defer restore()

	return b.Run(&Invocation{
		Args:   st.Args,
		Stdin:  e.stdin,
		Stdout: e.stdout,
		Stderr: e.stderr,
	}), nil
}
