package shell

import (
	"strings"

	"github.com/anmitsu/go-shlex"
	"github.com/josephlewis42/pipesh/core/pipeline"
	"github.com/pkg/errors"
)

// Operators recognized between words. They must stand alone or be attached to
// the front of their target, as in "<in.txt" or ">>log".
const (
	OpPipe   = "|"
	OpInput  = "<"
	OpOutput = ">"
	OpAppend = ">>"
)

var (
	// ErrEmptyStage is returned when a pipe has no command on one side.
	ErrEmptyStage = pipeline.ErrEmptyStage

	// ErrMissingRedirectTarget is returned when a redirection operator isn't
	// followed by a file name.
	ErrMissingRedirectTarget = errors.New("missing redirection target")
)

// Parse splits a command line into a pipeline. A blank line produces an empty
// pipeline and no error.
//
// Quotes and backslashes are handled by the tokenizer, but once removed a
// quoted operator such as "|" can't be told apart from a real one. Variables
// aren't expanded.
func Parse(line string) (*pipeline.Pipeline, error) {
	tokens, err := shlex.Split(line, true)
	if err != nil {
		return nil, errors.Wrap(err, "syntax error")
	}

	p := &pipeline.Pipeline{}
	if len(tokens) == 0 {
		return p, nil
	}

	var current pipeline.Stage
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		if tok == OpPipe {
			if len(current.Args) == 0 {
				return nil, errors.Wrap(ErrEmptyStage, OpPipe)
			}
			p.Stages = append(p.Stages, current)
			current = pipeline.Stage{}
			continue
		}

		op, target, ok := splitRedirect(tok)
		if !ok {
			current.Args = append(current.Args, tok)
			continue
		}

		if target == "" {
			if i+1 >= len(tokens) || isOperator(tokens[i+1]) {
				return nil, errors.Wrap(ErrMissingRedirectTarget, op)
			}
			i++
			target = tokens[i]
		}

		switch op {
		case OpInput:
			current.InputFile = target
		case OpOutput:
			current.OutputFile = target
			current.AppendOutput = false
		case OpAppend:
			current.OutputFile = target
			current.AppendOutput = true
		}
	}

	if len(current.Args) == 0 {
		if len(p.Stages) > 0 {
			return nil, errors.Wrap(ErrEmptyStage, OpPipe)
		}
		// Redirections with no command.
		return nil, ErrEmptyStage
	}
	p.Stages = append(p.Stages, current)

	return p, nil
}

// splitRedirect splits a token into a redirection operator and an attached
// target, which is empty if the target is the next token.
func splitRedirect(tok string) (op, target string, ok bool) {
	for _, op := range []string{OpAppend, OpOutput, OpInput} {
		if strings.HasPrefix(tok, op) {
			return op, strings.TrimPrefix(tok, op), true
		}
	}
	return "", "", false
}

func isOperator(tok string) bool {
	if tok == OpPipe {
		return true
	}
	_, _, ok := splitRedirect(tok)
	return ok
}
