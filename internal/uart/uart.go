// Package uart is the text output channel: a serial console on the board,
// stdout everywhere else.
package uart

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pkg/term"
)

// Port writes strings and single characters to an underlying writer.
type Port struct {
	mu sync.Mutex
	w  io.Writer
	c  io.Closer
}

// New wraps w. Close is a no-op unless w is also an io.Closer.
func New(w io.Writer) *Port {
	p := &Port{w: w}
	if c, ok := w.(io.Closer); ok {
		p.c = c
	}
	return p
}

// Open opens the serial device at baud, raw 8N1. An empty device writes
// to stdout.
func Open(device string, baud int) (*Port, error) {
	if device == "" {
		return &Port{w: os.Stdout}, nil
	}
	t, err := term.Open(device, term.Speed(baud), term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("uart: open %s: %w", device, err)
	}
	// term.Speed ignores rates the line discipline does not know.
	if got, err := t.GetSpeed(); err != nil || got != baud {
		_ = t.Close()
		return nil, fmt.Errorf("uart: %s: unsupported baud rate %d", device, baud)
	}
	return New(t), nil
}

func (p *Port) WriteString(s string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := io.WriteString(p.w, s); err != nil {
		return fmt.Errorf("uart: write: %w", err)
	}
	return nil
}

func (p *Port) WriteChar(b byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.w.Write([]byte{b}); err != nil {
		return fmt.Errorf("uart: write: %w", err)
	}
	return nil
}

func (p *Port) Close() error {
	if p.c == nil {
		return nil
	}
	return p.c.Close()
}
