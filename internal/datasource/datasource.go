// Package datasource defines the byte streams record sources decode from.
package datasource

import (
	"context"
	"io"
	"strings"
)

// Source opens a fresh byte stream. The caller closes it.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// IsURL reports whether location should be fetched over HTTP rather than
// read from the local filesystem.
func IsURL(location string) bool {
	l := strings.ToLower(strings.TrimSpace(location))
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
