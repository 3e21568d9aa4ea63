package engine

import (
	"os"

	"github.com/josephlewis42/pipesh/core/pipeline"
	"github.com/pkg/errors"
)

// redirectSelf points the engine's own standard input and output at the
// stage's file redirections and returns a function that undoes it. Builtins
// run in-process, so this is the only place the engine rewires its own
// descriptors.
//
// The restore function must be called exactly once; it puts back every
// direction that was redirected and closes the saved duplicates.
func (e *Engine) redirectSelf(st *pipeline.Stage) (restore func(), err error) {
	if !st.HasRedirect() {
		return func() {}, nil
	}

	inFd, outFd := int(e.stdin.Fd()), int(e.stdout.Fd())

	savedIn, err := dupFd(inFd)
	if err != nil {
		return nil, errors.Wrap(err, "save stdin")
	}
	savedOut, err := dupFd(outFd)
	if err != nil {
		_ = closeFd(savedIn)
		return nil, errors.Wrap(err, "save stdout")
	}

	var inApplied, outApplied bool
	restore = func() {
		if inApplied {
			if err := dup2Fd(savedIn, inFd); err != nil {
				e.log.Printf("restore stdin: %v", err)
			}
		}
		if outApplied {
			if err := dup2Fd(savedOut, outFd); err != nil {
				e.log.Printf("restore stdout: %v", err)
			}
		}
		_ = closeFd(savedIn)
		_ = closeFd(savedOut)
	}

	in, out, err := resolveRedirects(st, DefaultStream, DefaultStream)
	if err != nil {
		restore()
		return nil, err
	}

	apply := func(s Stream, target int, applied *bool) error {
		if s.Kind != StreamFile {
			return nil
		}
		if err := dup2Fd(int(s.Handle.File().Fd()), target); err != nil {
			return errors.Wrapf(err, "redirect %s", s.Handle.Name())
		}
		*applied = true
		return nil
	}

	err = apply(in, inFd, &inApplied)
	if err == nil {
		err = apply(out, outFd, &outApplied)
	}

	// The standard descriptors now refer to the files, the originals are
	// redundant.
	if cerr := closeFiles(in, out); cerr != nil && err == nil {
		err = cerr
	}

	if err != nil {
		restore()
		return nil, err
	}
	return restore, nil
}

// stdioFile returns f, or def when f is nil.
func stdioFile(f, def *os.File) *os.File {
	if f == nil {
		return def
	}
	return f
}
