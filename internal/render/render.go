// Package render writes introspected columns as delimited text.
//
// Output layout for delimiter D:
//
//	name1 D name2 D ... nameN D
//	\n value1 D ... valueN D      (once per record)
//
// The header is not followed by its own newline; every data row is preceded
// by one instead, so the stream never ends with a newline. Every value,
// including the last of a row, is followed by D. Nothing is quoted or
// escaped.
package render

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"csvexport/internal/introspect"
)

const (
	// Comma is the delimiter of the CSV variant.
	Comma = ","
	// Semicolon is the delimiter of the plain delimited variant.
	Semicolon = ";"
	// NewLine precedes every data row.
	NewLine = "\n"
)

// ErrSinkIO is returned when writing to the output fails.
var ErrSinkIO = errors.New("sink i/o failure")

// Renderer renders rows with one fixed delimiter.
type Renderer struct {
	Delimiter string
}

// New returns a Renderer using delim; an empty delim means Comma.
func New(delim string) Renderer {
	if delim == "" {
		delim = Comma
	}
	return Renderer{Delimiter: delim}
}

// CSV returns the comma-delimited renderer.
func CSV() Renderer { return Renderer{Delimiter: Comma} }

// Delimited returns the semicolon-delimited renderer.
func Delimited() Renderer { return Renderer{Delimiter: Semicolon} }

// Stats summarises one Render call.
type Stats struct {
	Columns int
	Rows    int
	Bytes   int64
}

// Render writes the header and one line per element of records (a slice or
// array value) to w. cols must have been computed from the first element.
// With no columns nothing is written at all.
//
// Every element must share the first element's dynamic type; a nil element
// or a differing type fails with introspect.ErrExtraction. Write errors are
// wrapped with ErrSinkIO. Rendering stops at the first error and leaves
// whatever was already written in w.
func (r Renderer) Render(w io.Writer, cols []introspect.Column, records reflect.Value) (st Stats, err error) {
	st.Columns = len(cols)
	if len(cols) == 0 {
		return st, nil
	}

	cw := &countingWriter{w: w}
	defer func() { st.Bytes = cw.n }()

	for _, c := range cols {
		if err := r.cell(cw, c.Name); err != nil {
			return st, err
		}
	}

	var want reflect.Type
	for i := 0; i < records.Len(); i++ {
		rec := element(records.Index(i))
		if !rec.IsValid() || (rec.Kind() == reflect.Pointer && rec.IsNil()) {
			return st, fmt.Errorf("%w: record %d is nil", introspect.ErrExtraction, i)
		}
		if want == nil {
			want = rec.Type()
		} else if rec.Type() != want {
			return st, fmt.Errorf("%w: record %d has type %s, want %s", introspect.ErrExtraction, i, rec.Type(), want)
		}

		if _, err := io.WriteString(cw, NewLine); err != nil {
			return st, fmt.Errorf("%w: %w", ErrSinkIO, err)
		}
		for _, c := range cols {
			v, err := c.Extract(rec)
			if err != nil {
				return st, fmt.Errorf("record %d: %w", i, err)
			}
			if err := r.cell(cw, v); err != nil {
				return st, err
			}
		}
		st.Rows++
	}
	return st, nil
}

func (r Renderer) cell(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("%w: %w", ErrSinkIO, err)
	}
	if _, err := io.WriteString(w, r.Delimiter); err != nil {
		return fmt.Errorf("%w: %w", ErrSinkIO, err)
	}
	return nil
}

// element unwraps interface-typed slice elements ([]any) to the dynamic value.
func element(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
