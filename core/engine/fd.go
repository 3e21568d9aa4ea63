package engine

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// StreamKind describes where a stage's standard stream comes from.
type StreamKind int

const (
	// StreamDefault uses the engine's own standard stream.
	StreamDefault StreamKind = iota
	// StreamFile uses a file opened for a redirection.
	StreamFile
	// StreamPipe uses one end of a pipe shared with a neighbouring stage.
	StreamPipe
)

func (k StreamKind) String() string {
	switch k {
	case StreamDefault:
		return "default"
	case StreamFile:
		return "file"
	case StreamPipe:
		return "pipe"
	default:
		return fmt.Sprintf("StreamKind(%d)", int(k))
	}
}

// Handle owns exactly one open descriptor. Close must be called exactly once;
// Release may be deferred on any path and only closes if Close hasn't run.
type Handle struct {
	name   string
	file   *os.File
	closed bool
}

func newHandle(name string, f *os.File) *Handle {
	return &Handle{name: name, file: f}
}

// File returns the underlying file. It panics if the handle is closed.
func (h *Handle) File() *os.File {
	if h.closed {
		panic(fmt.Sprintf("use of closed descriptor %q", h.name))
	}
	return h.file
}

// Name returns a human readable name for the descriptor.
func (h *Handle) Name() string {
	return h.name
}

// Closed reports whether the descriptor has been released.
func (h *Handle) Closed() bool {
	return h.closed
}

// Close releases the descriptor. Closing twice is a contract violation and
// panics.
func (h *Handle) Close() error {
	if h.closed {
		panic(fmt.Sprintf("descriptor %q closed twice", h.name))
	}
	h.closed = true
	return h.file.Close()
}

// Release closes the descriptor if it is still open.
func (h *Handle) Release() {
	if h == nil || h.closed {
		return
	}
	_ = h.Close()
}

// Stream is the resolved source or sink of one standard stream of a stage.
type Stream struct {
	Kind   StreamKind
	Handle *Handle
}

// DefaultStream is a stream that falls through to the engine's own stream.
var DefaultStream = Stream{Kind: StreamDefault}

// pipeStream wraps a pipe end.
func pipeStream(h *Handle) Stream {
	return Stream{Kind: StreamPipe, Handle: h}
}

// file returns the stream's file, or fallback for StreamDefault.
func (s Stream) file(fallback *os.File) *os.File {
	if s.Kind == StreamDefault || s.Handle == nil {
		return fallback
	}
	return s.Handle.File()
}

// closeIfPipe closes the parent's copy of a pipe end.
func (s Stream) closeIfPipe() error {
	if s.Kind != StreamPipe {
		return nil
	}
	return s.Handle.Close()
}

// newPipe allocates a pipe and returns its read and write ends.
func newPipe(label string) (r, w *Handle, err error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, nil, errors.Wrap(err, "pipe")
	}
	return newHandle(label+" (read)", pr), newHandle(label+" (write)", pw), nil
}

// handleSet tracks descriptors opened during one execution so that every one
// of them is released before the execution returns.
type handleSet []*Handle

func (hs *handleSet) add(handles ...*Handle) {
	*hs = append(*hs, handles...)
}

// releaseAll releases every handle that is still open and reports how many
// had been left open.
func (hs handleSet) releaseAll() int {
	leaked := 0
	for _, h := range hs {
		if !h.Closed() {
			leaked++
			h.Release()
		}
	}
	return leaked
}
