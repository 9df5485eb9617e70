package sink

import (
	"bytes"
	"sync"
)

// Buffer is an in-memory Sink. It records flushes and close so tests and
// callers can verify the lifecycle.
type Buffer struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	flushes int
	closed  bool
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer { return &Buffer{} }

// Factory returns a Factory that always hands out b.
func (b *Buffer) Factory() Factory {
	return func() (Sink, error) { return b, nil }
}

// Memory returns a Factory that hands out a new Buffer on every call.
func Memory() Factory {
	return func() (Sink, error) { return NewBuffer(), nil }
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, ErrClosed
	}
	return b.buf.Write(p)
}

func (b *Buffer) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushes++
	return nil
}

func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Bytes returns a copy of the written bytes.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}

func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

// Closed reports whether Close has been called.
func (b *Buffer) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Flushes reports how many times Flush has been called.
func (b *Buffer) Flushes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushes
}
