// Package sqldb loads records from SQL databases through database/sql.
//
// Each supported driver lives in its own file and registers itself in an
// init function. The package registers the "sql" source kind.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"csvexport/internal/config"
	"csvexport/internal/record"
	"csvexport/internal/source"
)

// Driver describes one database/sql driver.
type Driver struct {
	// SQLName is the name passed to sql.Open.
	SQLName string
	// CheckDSN validates a data source name without connecting. Nil accepts
	// anything non-empty.
	CheckDSN func(dsn string) error
	// Quote quotes one identifier part for SELECT * FROM <table>.
	Quote func(ident string) string
}

var (
	mu      sync.RWMutex
	drivers = map[string]Driver{}
)

// RegisterDriver registers (or replaces) the driver for name.
func RegisterDriver(name string, d Driver) {
	mu.Lock()
	defer mu.Unlock()
	drivers[name] = d
}

// Drivers lists registered driver names in sorted order.
func Drivers() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(drivers))
	for k := range drivers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func lookupDriver(name string) (Driver, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := drivers[name]
	return d, ok
}

func init() {
	source.Register("sql", func(cfg config.Source) (source.Source, error) {
		return New(cfg)
	})
}

// Source runs one query and collects every row.
type Source struct {
	name        string
	driver      Driver
	dsn         string
	query       string
	args        []any
	pingTimeout time.Duration
	maxRows     int
}

// New validates cfg and returns a Source. It does not connect.
//
// Recognized options: "table" (used when query is empty), "args" (query
// parameters), "ping_timeout_seconds" (default 5) and "max_rows" (0 means
// unlimited).
func New(cfg config.Source) (*Source, error) {
	d, ok := lookupDriver(cfg.Driver)
	if !ok {
		return nil, fmt.Errorf("sqldb: unknown driver %q (have %v)", cfg.Driver, Drivers())
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("sqldb: dsn must not be empty")
	}
	if d.CheckDSN != nil {
		if err := d.CheckDSN(cfg.DSN); err != nil {
			return nil, fmt.Errorf("sqldb: invalid %s dsn: %w", cfg.Driver, err)
		}
	}

	query := strings.TrimSpace(cfg.Query)
	if query == "" {
		table := cfg.Options.String("table", "")
		if table == "" {
			return nil, errors.New("sqldb: query or options.table is required")
		}
		query = "SELECT * FROM " + qualified(d, table)
	}

	timeout := cfg.Options.Int("ping_timeout_seconds", 5)
	if timeout <= 0 {
		timeout = 5
	}
	return &Source{
		name:        cfg.Driver,
		driver:      d,
		dsn:         cfg.DSN,
		query:       query,
		args:        cfg.Options.Slice("args"),
		pingTimeout: time.Duration(timeout) * time.Second,
		maxRows:     cfg.Options.Int("max_rows", 0),
	}, nil
}

// Query returns the statement Load executes.
func (s *Source) Query() string { return s.query }

// Load opens the database, runs the query and collects the result set.
func (s *Source) Load(ctx context.Context) (*record.Rows, error) {
	db, err := sql.Open(s.driver.SQLName, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.name, err)
	}
	defer db.Close()

	pctx, cancel := context.WithTimeout(ctx, s.pingTimeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		return nil, fmt.Errorf("ping %s: %w", s.name, err)
	}

	start := time.Now()
	rows, err := db.QueryContext(ctx, s.query, s.args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.name, err)
	}
	defer rows.Close()

	out, err := collect(rows, s.maxRows)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.name, err)
	}
	log.Printf("sql: driver=%s rows=%d elapsed=%s", s.name, out.Len(), time.Since(start))
	return out, nil
}

func collect(rows *sql.Rows, maxRows int) (*record.Rows, error) {
	cts, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}
	fields := make([]record.Field, len(cts))
	for i, ct := range cts {
		fields[i] = fieldOf(ct.Name(), ct.DatabaseTypeName(), ct.ScanType())
		if nullable, ok := ct.Nullable(); ok {
			fields[i].Nullable = nullable
		}
	}
	schema, err := record.NewSchema(fields)
	if err != nil {
		return nil, err
	}

	out := schema.NewRows(64)
	vals := make([]any, len(cts))
	dest := make([]any, len(cts))
	for i := range vals {
		dest[i] = &vals[i]
	}
	for rows.Next() {
		if maxRows > 0 && out.Len() >= maxRows {
			break
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", out.Len()+1, err)
		}
		if err := out.Append(vals...); err != nil {
			return nil, fmt.Errorf("row %d: %w", out.Len()+1, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// qualified quotes each dot-separated part of a table name.
func qualified(d Driver, table string) string {
	if d.Quote == nil {
		return table
	}
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = d.Quote(strings.TrimSpace(p))
	}
	return strings.Join(parts, ".")
}

// quoteDouble quotes with ANSI double quotes.
func quoteDouble(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
