// Package export runs the exports of a job: load records from each source,
// render them through a parser and write one output per export.
package export

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"csvexport/internal/config"
	"csvexport/internal/metrics"
	"csvexport/internal/parser"
	"csvexport/internal/sink"
	"csvexport/internal/source"
)

// Result describes one finished (or failed) export.
type Result struct {
	Name    string
	Rows    int
	Columns int
	Bytes   int64
	// Checksum is the hex xxh3 digest of the written bytes, when requested.
	Checksum string
	// Skipped is set when the source produced no records; no output is
	// opened in that case.
	Skipped bool
	Elapsed time.Duration
	Err     error
}

// Summary collects the results of a job in config order.
type Summary struct {
	Job     string
	Results []Result
	Elapsed time.Duration
}

// Rows returns the total number of rendered rows.
func (s Summary) Rows() int {
	n := 0
	for _, r := range s.Results {
		n += r.Rows
	}
	return n
}

// Failed returns the results that carry an error.
func (s Summary) Failed() []Result {
	var out []Result
	for _, r := range s.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// Option configures Run.
type Option func(*runner)

// WithLogger routes per-export parse lines to l. Without it only the
// export summary lines are logged, through the standard logger.
func WithLogger(l *log.Logger) Option {
	return func(r *runner) { r.parseLog = l }
}

type runner struct {
	job      string
	parseLog *log.Logger
}

// Run executes every export of cfg. At most cfg.Runtime.Concurrency exports
// run at once (one when unset). The first failure cancels exports that are
// still running; the returned error is that first failure, and the Summary
// holds a Result for every export either way.
func Run(ctx context.Context, cfg config.Config, opts ...Option) (Summary, error) {
	r := &runner{job: cfg.Job, parseLog: log.New(io.Discard, "", 0)}
	for _, o := range opts {
		o(r)
	}

	limit := cfg.Runtime.Concurrency
	if limit <= 0 {
		limit = 1
	}

	start := time.Now()
	sum := Summary{Job: cfg.Job, Results: make([]Result, len(cfg.Exports))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, e := range cfg.Exports {
		g.Go(func() error {
			res := r.export(gctx, e)
			sum.Results[i] = res
			if res.Err != nil {
				return fmt.Errorf("export %q: %w", e.Name, res.Err)
			}
			return nil
		})
	}
	err := g.Wait()
	sum.Elapsed = time.Since(start)

	log.Printf("summary: job=%s exports=%d failed=%d rows=%d elapsed=%s",
		sum.Job, len(sum.Results), len(sum.Failed()), sum.Rows(), sum.Elapsed.Truncate(time.Millisecond))
	metrics.RecordStep(cfg.Job, "run", err, sum.Elapsed)
	return sum, err
}

// export runs one export end to end.
func (r *runner) export(ctx context.Context, e config.Export) (res Result) {
	res.Name = e.Name
	start := time.Now()
	defer func() {
		res.Elapsed = time.Since(start)
		switch {
		case res.Err != nil:
			log.Printf("export: name=%s failed after %s: %v", e.Name, res.Elapsed, res.Err)
		case res.Skipped:
			log.Printf("export: name=%s skipped: source produced no records", e.Name)
		default:
			log.Printf("export: name=%s rows=%d columns=%d bytes=%d checksum=%s elapsed=%s",
				e.Name, res.Rows, res.Columns, res.Bytes, res.Checksum, res.Elapsed)
		}
	}()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	src, err := source.Open(e.Source)
	if err != nil {
		res.Err = err
		return res
	}
	loadStart := time.Now()
	rows, err := src.Load(ctx)
	metrics.RecordStep(r.job, "load", err, time.Since(loadStart))
	if err != nil {
		res.Err = fmt.Errorf("load: %w", err)
		return res
	}
	if rows == nil || rows.Len() == 0 {
		res.Skipped = true
		return res
	}
	metrics.RecordRows(r.job, "loaded", int64(rows.Len()))

	factory, err := sink.Open(e.Output)
	if err != nil {
		res.Err = fmt.Errorf("output: %w", err)
		return res
	}

	p := parser.New(factory,
		parser.WithDelimiter(e.Output.Delimiter),
		parser.WithJob(r.job),
		parser.WithLogger(r.parseLog),
	)
	out, err := p.Run(rows.Records())
	res.Rows = out.Stats.Rows
	res.Columns = out.Stats.Columns
	res.Bytes = out.Stats.Bytes
	if err != nil {
		res.Err = fmt.Errorf("parse: %w", err)
		return res
	}
	if h, ok := sink.As[*sink.Hashed](out.Sink); ok {
		res.Checksum = h.Hex()
	}
	return res
}
