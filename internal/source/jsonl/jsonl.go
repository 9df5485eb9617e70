// Package jsonl loads records from JSON Lines streams.
//
// Every top-level value must be a JSON object. Columns appear in order of
// first appearance across the whole stream. Each column's kind is inferred
// from all of its values:
//
//   - only booleans: Boolean
//   - only integral numbers: Integer
//   - numbers with a fraction or exponent: Float
//   - anything else, or a mix: Text
//
// Every column is nullable; missing keys and JSON null render as null.
// Nested objects and arrays are kept as their compact JSON text.
//
// The path is a local file, "-" for standard input, or an http(s) URL.
package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"csvexport/internal/config"
	"csvexport/internal/datasource"
	"csvexport/internal/datasource/file"
	"csvexport/internal/datasource/httpds"
	"csvexport/internal/introspect"
	"csvexport/internal/record"
	"csvexport/internal/source"
)

func init() {
	source.Register("jsonl", func(cfg config.Source) (source.Source, error) {
		return New(cfg)
	})
}

// Source decodes one JSON Lines stream.
type Source struct {
	path    string
	in      datasource.Source
	maxRows int
}

// New returns a Source reading cfg.Path.
//
// Recognized options: "max_rows" (0 means unlimited) and, for URLs,
// "timeout_seconds" (default 30), "max_retries" (default 3) and
// "insecure_skip_verify".
func New(cfg config.Source) (*Source, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("jsonl: path must not be empty")
	}
	var in datasource.Source
	if datasource.IsURL(path) {
		client := httpds.NewClient(httpds.Config{
			Timeout:            time.Duration(cfg.Options.Int("timeout_seconds", 30)) * time.Second,
			MaxRetries:         cfg.Options.Int("max_retries", 3),
			InsecureSkipVerify: cfg.Options.Bool("insecure_skip_verify", false),
		})
		in = httpds.NewSource(client, path)
	} else {
		in = file.NewLocal(path)
	}
	return FromStream(path, in, cfg.Options.Int("max_rows", 0)), nil
}

// FromStream returns a Source decoding in. name labels errors and logs.
func FromStream(name string, in datasource.Source, maxRows int) *Source {
	return &Source{path: name, in: in, maxRows: maxRows}
}

// Load reads the whole stream and returns its records, or nil Rows when the
// stream holds no objects.
func (s *Source) Load(ctx context.Context) (*record.Rows, error) {
	start := time.Now()
	rc, err := s.in.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("jsonl: open %s: %w", s.path, err)
	}
	defer rc.Close()

	objs, cols, err := decodeAll(ctx, bufio.NewReader(rc), s.maxRows)
	if err != nil {
		return nil, fmt.Errorf("jsonl: %s: %w", s.path, err)
	}
	if len(objs) == 0 {
		log.Printf("jsonl: path=%s rows=0", s.path)
		return nil, nil
	}

	fields := make([]record.Field, len(cols.names))
	for i, name := range cols.names {
		fields[i] = record.Field{Name: name, Kind: cols.kinds[i].kind(), Nullable: true}
	}
	schema, err := record.NewSchema(fields)
	if err != nil {
		return nil, fmt.Errorf("jsonl: %s: %w", s.path, err)
	}

	rows := schema.NewRows(len(objs))
	vals := make([]any, len(fields))
	for n, obj := range objs {
		for i, name := range cols.names {
			vals[i] = obj[name]
		}
		if err := rows.Append(vals...); err != nil {
			return nil, fmt.Errorf("jsonl: %s: record %d: %w", s.path, n+1, err)
		}
	}
	log.Printf("jsonl: path=%s rows=%d columns=%d elapsed=%s", s.path, rows.Len(), len(fields), time.Since(start))
	return rows, nil
}

// columns tracks first-appearance order and the inferred kind per name.
type columns struct {
	names []string
	index map[string]int
	kinds []inferred
}

func (c *columns) observe(name string, v any) {
	i, ok := c.index[name]
	if !ok {
		i = len(c.names)
		c.index[name] = i
		c.names = append(c.names, name)
		c.kinds = append(c.kinds, unseen)
	}
	c.kinds[i] = c.kinds[i].widen(v)
}

type inferred int

const (
	unseen inferred = iota
	boolean
	integer
	float
	text
)

func (k inferred) widen(v any) inferred {
	var next inferred
	switch x := v.(type) {
	case nil:
		return k
	case bool:
		next = boolean
	case json.Number:
		next = float
		if _, err := x.Int64(); err == nil {
			next = integer
		}
	default:
		next = text
	}
	switch {
	case k == unseen || k == next:
		return next
	case (k == integer && next == float) || (k == float && next == integer):
		return float
	}
	return text
}

func (k inferred) kind() introspect.Kind {
	switch k {
	case boolean:
		return introspect.Boolean
	case integer:
		return introspect.Integer
	case float:
		return introspect.Float
	}
	return introspect.Text
}

func decodeAll(ctx context.Context, r io.Reader, maxRows int) ([]map[string]any, *columns, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	cols := &columns{index: map[string]int{}}
	var objs []map[string]any
	for n := 1; maxRows <= 0 || len(objs) < maxRows; n++ {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		obj, err := readObject(dec, cols)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("record %d: %w", n, err)
		}
		objs = append(objs, obj)
	}
	return objs, cols, ctx.Err()
}

// readObject decodes the next top-level object, feeding every key to cols.
// It returns io.EOF when the stream is exhausted.
func readObject(dec *json.Decoder, cols *columns) (map[string]any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected a JSON object, got %v", tok)
	}

	obj := map[string]any{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, unexpected(err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected an object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("key %q: %w", key, unexpected(err))
		}
		v, err := scalar(raw)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		obj[key] = v
		cols.observe(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, unexpected(err)
	}
	return obj, nil
}

// scalar turns one raw JSON value into nil, bool, json.Number or string.
func scalar(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("empty value")
	}
	switch raw[0] {
	case 'n':
		return nil, nil
	case 't', 'f':
		var b bool
		err := json.Unmarshal(raw, &b)
		return b, err
	case '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, err
		}
		return buf.String(), nil
	}
	return json.Number(raw), nil
}

// unexpected reports a stream that ends inside an object.
func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
