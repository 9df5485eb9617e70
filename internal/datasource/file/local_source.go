// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Stdin is the path that selects standard input instead of a file.
const Stdin = "-"

// Local is a filesystem data source that opens files from the local disk.
type Local struct {
	path  string
	stdin io.Reader
}

// NewLocal returns a Local data source bound to path. The value is safe for
// concurrent use; every Open returns an independent handle.
func NewLocal(path string) *Local { return &Local{path: path, stdin: os.Stdin} }

// Path returns the configured path.
func (l *Local) Path() string { return l.path }

// Open opens the configured path for reading.
//
// A context that is already done fails immediately without touching the
// filesystem. Filesystem errors are wrapped with the path and keep
// errors.Is(err, os.ErrNotExist) working. The path Stdin reads standard
// input; closing that handle leaves standard input open.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if l.path == Stdin {
		return io.NopCloser(l.stdin), nil
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}
