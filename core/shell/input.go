package shell

import (
	"bytes"
	"io"
	"sync"
)

// readLineUnbuffered reads up to and including the next newline one byte at a
// time. Everything after the newline is left unread for the programs the line
// starts, which inherit the same descriptor.
func readLineUnbuffered(r io.Reader) (string, error) {
	var line []byte
	b := make([]byte, 1)
	for {
		n, err := r.Read(b)
		if n == 1 {
			if b[0] == '\n' {
				return string(line), nil
			}
			line = append(line, b[0])
		}
		if err != nil {
			if err == io.EOF && len(line) > 0 {
				return string(line), nil
			}
			return "", err
		}
	}
}

// lineGate passes reads through to a terminal only while armed. It disarms
// itself after a read that returns a line ending, so the line editor's reader
// goroutine blocks here instead of on the terminal while a command runs.
type lineGate struct {
	r io.Reader

	mu     sync.Mutex
	cond   *sync.Cond
	armed  bool
	closed bool
}

func newLineGate(r io.Reader) *lineGate {
	g := &lineGate{r: r}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Arm lets the next read through.
func (g *lineGate) Arm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = true
	g.cond.Broadcast()
}

// Armed reports whether a read would reach the terminal.
func (g *lineGate) Armed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.armed
}

func (g *lineGate) Read(p []byte) (int, error) {
	g.mu.Lock()
	for !g.armed && !g.closed {
		g.cond.Wait()
	}
	closed := g.closed
	g.mu.Unlock()
	if closed {
		return 0, io.EOF
	}

	n, err := g.r.Read(p)
	if err != nil || bytes.ContainsAny(p[:n], "\r\n") {
		g.mu.Lock()
		g.armed = false
		g.mu.Unlock()
	}
	return n, err
}

// Close releases blocked readers. The terminal itself isn't closed.
func (g *lineGate) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.cond.Broadcast()
	return nil
}
