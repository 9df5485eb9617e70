// Package parser renders batches of records as delimited text.
//
// A Parser introspects the first record of a batch, obtains exactly one Sink
// from its Factory, writes the header and one line per record and always
// flushes and closes the Sink before returning. See package render for the
// wire layout.
package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"reflect"
	"time"

	"csvexport/internal/introspect"
	"csvexport/internal/metrics"
	"csvexport/internal/render"
	"csvexport/internal/sink"
)

// Parser renders a batch of records and returns the Sink it wrote to.
type Parser interface {
	Parse(records any) (sink.Sink, error)
}

// Result is what a single Run produced.
type Result struct {
	// Sink is the flushed and closed sink. It is nil when Run failed.
	Sink  sink.Sink
	Stats render.Stats
	// Elapsed covers introspection, rendering and the close sequence.
	Elapsed time.Duration
}

// Delimited is the Parser implementation for a single delimiter.
// It keeps no state between calls and may be shared by goroutines as long as
// its Factory hands out a fresh Sink per call.
type Delimited struct {
	factory  sink.Factory
	renderer render.Renderer
	job      string
	logger   *log.Logger
}

// Option configures a Delimited parser.
type Option func(*Delimited)

// WithDelimiter sets the delimiter; empty means render.Comma.
func WithDelimiter(d string) Option {
	return func(p *Delimited) { p.renderer = render.New(d) }
}

// WithJob sets the job label used in metrics and log lines.
func WithJob(name string) Option {
	return func(p *Delimited) { p.job = name }
}

// WithLogger sets the logger for per-call summary lines. A nil logger
// keeps the default, which discards output.
func WithLogger(l *log.Logger) Option {
	return func(p *Delimited) {
		if l != nil {
			p.logger = l
		}
	}
}

// New returns a comma-delimited parser writing to sinks from factory.
func New(factory sink.Factory, opts ...Option) *Delimited {
	p := &Delimited{
		factory:  factory,
		renderer: render.CSV(),
		job:      "csvexport",
		logger:   log.New(io.Discard, "", 0),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// NewCSVParser returns a parser using render.Comma.
func NewCSVParser(factory sink.Factory) *Delimited {
	return New(factory, WithDelimiter(render.Comma))
}

// NewDelimitedParser returns a parser using render.Semicolon.
func NewDelimitedParser(factory sink.Factory) *Delimited {
	return New(factory, WithDelimiter(render.Semicolon))
}

// Delimiter reports the delimiter p renders with.
func (p *Delimited) Delimiter() string { return p.renderer.Delimiter }

// Parse implements Parser.
func (p *Delimited) Parse(records any) (sink.Sink, error) {
	res, err := p.Run(records)
	if err != nil {
		return nil, err
	}
	return res.Sink, nil
}

// Run is Parse with the render statistics attached.
//
// records must be a non-empty slice or array (or a pointer to one). Nil and
// empty batches fail with ErrInvalidArgument before the Factory is called.
// Once a Sink has been obtained it is flushed and closed on every path.
func (p *Delimited) Run(records any) (res Result, err error) {
	start := time.Now()
	defer func() {
		res.Elapsed = time.Since(start)
		metrics.RecordStep(p.job, "parse", err, res.Elapsed)
		if err != nil {
			p.logger.Printf("parse: job=%s failed after %s: %v", p.job, res.Elapsed, err)
			return
		}
		metrics.RecordRows(p.job, "written", int64(res.Stats.Rows))
		metrics.RecordBytes(p.job, res.Stats.Bytes)
		p.logger.Printf("parse: job=%s columns=%d rows=%d bytes=%d elapsed=%s",
			p.job, res.Stats.Columns, res.Stats.Rows, res.Stats.Bytes, res.Elapsed)
	}()

	batch, err := validate(records)
	if err != nil {
		return Result{}, err
	}

	cols, err := introspect.Columns(batch.Index(0).Interface())
	if err != nil {
		return Result{}, fmt.Errorf("record 0: %w", err)
	}

	s, err := p.open()
	if err != nil {
		return Result{}, err
	}

	bw := bufio.NewWriter(s)
	st, rerr := p.renderer.Render(bw, cols, batch)
	if err := errors.Join(rerr, finish(s, bw)); err != nil {
		return Result{Stats: st}, err
	}
	return Result{Sink: s, Stats: st}, nil
}

func (p *Delimited) open() (sink.Sink, error) {
	if p.factory == nil {
		return nil, fmt.Errorf("%w: no sink factory configured", ErrSinkIO)
	}
	s, err := p.factory()
	if err != nil {
		return nil, fmt.Errorf("%w: open sink: %w", ErrSinkIO, err)
	}
	if s == nil {
		return nil, fmt.Errorf("%w: sink factory returned nil", ErrSinkIO)
	}
	return s, nil
}

// finish runs the close sequence: drain the buffer, flush the sink, close it.
// Close is attempted even when an earlier step fails.
func finish(s sink.Sink, bw *bufio.Writer) error {
	var errs []error
	if err := bw.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("%w: flush buffer: %w", ErrSinkIO, err))
	}
	if err := sink.Flush(s); err != nil {
		errs = append(errs, fmt.Errorf("%w: flush sink: %w", ErrSinkIO, err))
	}
	if err := s.Close(); err != nil {
		errs = append(errs, fmt.Errorf("%w: close sink: %w", ErrSinkIO, err))
	}
	return errors.Join(errs...)
}

// validate returns records as a non-empty slice or array value.
func validate(records any) (reflect.Value, error) {
	rv := reflect.ValueOf(records)
	if !rv.IsValid() {
		return reflect.Value{}, fmt.Errorf("%w: record slice cannot be nil", ErrInvalidArgument)
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: record slice cannot be nil", ErrInvalidArgument)
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: record slice cannot be nil", ErrInvalidArgument)
		}
	case reflect.Array:
	default:
		return reflect.Value{}, fmt.Errorf("%w: records must be a slice or array, got %s", ErrInvalidArgument, rv.Type())
	}
	if rv.Len() == 0 {
		return reflect.Value{}, fmt.Errorf("%w: record slice cannot be empty", ErrInvalidArgument)
	}
	return rv, nil
}

// Export parses a typed batch with p.
func Export[T any](p Parser, records []T) (sink.Sink, error) {
	return p.Parse(records)
}

