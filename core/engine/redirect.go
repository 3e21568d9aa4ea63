package engine

import (
	"os"

	"github.com/josephlewis42/pipesh/core/pipeline"
	"github.com/pkg/errors"
)

// OutputFileMode is the permission used when a redirection creates a file.
const OutputFileMode os.FileMode = 0644

// resolveRedirects decides the stage's standard input and output. A file
// redirection takes precedence over whatever stream was wired in; otherwise
// the wired stream (a pipe end or the default stream) is kept.
//
// Streams of kind StreamFile are owned by the caller, who must close them once
// they have been handed over. On error nothing is left open.
func resolveRedirects(st *pipeline.Stage, in, out Stream) (Stream, Stream, error) {
	if st.InputFile != "" {
		f, err := os.Open(st.InputFile)
		if err != nil {
			return in, out, errors.Wrap(err, st.Name())
		}
		in = Stream{Kind: StreamFile, Handle: newHandle(st.InputFile, f)}
	}

	if st.OutputFile != "" {
		flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if st.AppendOutput {
			flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
		f, err := os.OpenFile(st.OutputFile, flag, OutputFileMode)
		if err != nil {
			if in.Kind == StreamFile {
				in.Handle.Release()
			}
			return in, out, errors.Wrap(err, st.Name())
		}
		out = Stream{Kind: StreamFile, Handle: newHandle(st.OutputFile, f)}
	}

	return in, out, nil
}

// closeFiles closes the parent's copies of redirection files.
func closeFiles(streams ...Stream) error {
	var firstErr error
	for _, s := range streams {
		if s.Kind != StreamFile {
			continue
		}
		if err := s.Handle.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
