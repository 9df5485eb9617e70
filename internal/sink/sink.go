// Package sink provides the byte destinations rendered output is written to.
//
// A Factory is called once per parse to obtain a fresh Sink. The caller owns
// the Sink until it has been flushed and closed. Wrappers (Checksum, Encode)
// decorate a Factory and expose the wrapped Sink through Unwrap so callers
// can reach an inner sink with As.
package sink

import (
	"errors"
	"io"
)

// ErrClosed is returned for writes to a closed sink.
var ErrClosed = errors.New("sink: closed")

// Sink is a writable, closable byte destination.
type Sink interface {
	io.Writer
	io.Closer
}

// Flusher is implemented by sinks that buffer internally.
type Flusher interface {
	Flush() error
}

// Factory returns a new Sink. It is called exactly once per parse.
type Factory func() (Sink, error)

// Flush calls s.Flush when s implements Flusher.
func Flush(s Sink) error {
	if f, ok := s.(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// As walks the Unwrap chain starting at s and returns the first sink of
// type T.
func As[T any](s Sink) (T, bool) {
	for s != nil {
		if t, ok := s.(T); ok {
			return t, true
		}
		u, ok := s.(interface{ Unwrap() Sink })
		if !ok {
			break
		}
		s = u.Unwrap()
	}
	var zero T
	return zero, false
}

// Writer returns a Factory whose sinks write to w without closing it. Flush
// forwards to w when w has a Flush() error method.
func Writer(w io.Writer) Factory {
	return func() (Sink, error) {
		return &writerSink{w: w}, nil
	}
}

type writerSink struct {
	w      io.Writer
	closed bool
}

func (s *writerSink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	return s.w.Write(p)
}

func (s *writerSink) Flush() error {
	if f, ok := s.w.(Flusher); ok {
		return f.Flush()
	}
	return nil
}

func (s *writerSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.Flush()
}
