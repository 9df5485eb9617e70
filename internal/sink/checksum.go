package sink

import (
	"fmt"

	"github.com/zeebo/xxh3"
)

// Hashed is a Sink that keeps a running xxh3-64 digest of everything written
// through it.
type Hashed struct {
	inner Sink
	h     *xxh3.Hasher
	n     int64
}

// Checksum wraps every sink produced by f with a Hashed sink.
func Checksum(f Factory) Factory {
	return func() (Sink, error) {
		inner, err := f()
		if err != nil {
			return nil, err
		}
		return &Hashed{inner: inner, h: xxh3.New()}, nil
	}
}

func (s *Hashed) Write(p []byte) (int, error) {
	n, err := s.inner.Write(p)
	if n > 0 {
		_, _ = s.h.Write(p[:n])
		s.n += int64(n)
	}
	return n, err
}

func (s *Hashed) Flush() error { return Flush(s.inner) }

func (s *Hashed) Close() error { return s.inner.Close() }

// Unwrap returns the wrapped sink.
func (s *Hashed) Unwrap() Sink { return s.inner }

// Sum64 returns the digest of the bytes written so far.
func (s *Hashed) Sum64() uint64 { return s.h.Sum64() }

// Hex returns Sum64 as 16 lower-case hex digits.
func (s *Hashed) Hex() string { return fmt.Sprintf("%016x", s.h.Sum64()) }

// Size returns the number of bytes accepted by the wrapped sink.
func (s *Hashed) Size() int64 { return s.n }
