// Package source loads record batches for exports.
//
// Concrete sources register a Builder for their kind in an init function;
// importing csvexport/internal/source/all enables every built-in kind:
//
//   - "sql"   (csvexport/internal/source/sqldb)
//   - "jsonl" (csvexport/internal/source/jsonl)
package source

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"csvexport/internal/config"
	"csvexport/internal/record"
)

// Source loads one batch of records.
//
// Load returns nil Rows when the source produced no records and no schema
// could be derived (an empty JSON Lines file, for example). Callers treat
// nil and zero-length Rows alike.
type Source interface {
	Load(ctx context.Context) (*record.Rows, error)
}

// Builder constructs a Source from its configuration.
type Builder func(cfg config.Source) (Source, error)

var (
	mu       sync.RWMutex
	builders = map[string]Builder{}
)

// Register registers (or replaces) the Builder for kind.
func Register(kind string, b Builder) {
	mu.Lock()
	defer mu.Unlock()
	builders[kind] = b
}

// Kinds lists registered kinds in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(builders))
	for k := range builders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Open builds the Source for cfg.Kind.
func Open(cfg config.Source) (Source, error) {
	mu.RLock()
	b, ok := builders[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no source registered for source.kind=%q (have %v)", cfg.Kind, Kinds())
	}
	return b(cfg)
}

// Func adapts a function to Source.
type Func func(ctx context.Context) (*record.Rows, error)

// Load calls f(ctx).
func (f Func) Load(ctx context.Context) (*record.Rows, error) { return f(ctx) }
