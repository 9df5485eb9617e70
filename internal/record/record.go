// Package record builds Go struct types at runtime for rows whose shape is
// only known when data arrives (query results, JSON objects), so they can be
// rendered by the same reflective introspection as compile-time types.
//
// Every column becomes an exported field named by Identifier, tagged
// csv:"<original name>" so the header keeps the source's column text.
// Nullable columns are pointer fields and render as null when absent.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"csvexport/internal/introspect"
)

// ErrConvert is returned when a value cannot be stored in its column.
var ErrConvert = errors.New("record: cannot convert value")

// Field describes one column.
type Field struct {
	Name     string
	Kind     introspect.Kind
	Nullable bool
}

// Schema is a runtime struct type with one field per column.
type Schema struct {
	fields []Field
	typ    reflect.Type
}

var goTypes = map[introspect.Kind]reflect.Type{
	introspect.Boolean:   reflect.TypeOf(false),
	introspect.Integer:   reflect.TypeOf(int64(0)),
	introspect.Float:     reflect.TypeOf(float64(0)),
	introspect.Character: reflect.TypeOf(introspect.Char(0)),
	introspect.Text:      reflect.TypeOf(""),
}

// NewSchema builds the struct type for fields. Column names that are empty
// or "-" are replaced by colN (1-based position).
func NewSchema(fields []Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, errors.New("record: schema needs at least one field")
	}

	cp := make([]Field, len(fields))
	names := make([]string, len(fields))
	for i, f := range fields {
		if _, ok := goTypes[f.Kind]; !ok {
			return nil, fmt.Errorf("record: field %q: unsupported kind %s", f.Name, f.Kind)
		}
		if n := strings.TrimSpace(f.Name); n == "" || n == "-" {
			f.Name = "col" + strconv.Itoa(i+1)
		}
		cp[i] = f
		names[i] = f.Name
	}

	ids := uniqueIdentifiers(names)
	sfs := make([]reflect.StructField, len(cp))
	for i, f := range cp {
		t := goTypes[f.Kind]
		if f.Nullable {
			t = reflect.PointerTo(t)
		}
		sfs[i] = reflect.StructField{
			Name: ids[i],
			Type: t,
			Tag:  reflect.StructTag(`csv:` + strconv.Quote(f.Name)),
		}
	}
	return &Schema{fields: cp, typ: reflect.StructOf(sfs)}, nil
}

// Fields returns a copy of the schema's columns.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Type returns the generated struct type.
func (s *Schema) Type() reflect.Type { return s.typ }

// NewRows returns an empty row set with room for capacity rows.
func (s *Schema) NewRows(capacity int) *Rows {
	if capacity < 0 {
		capacity = 0
	}
	return &Rows{
		schema: s,
		slice:  reflect.MakeSlice(reflect.SliceOf(s.typ), 0, capacity),
	}
}

// Rows accumulates values of a Schema's struct type.
type Rows struct {
	schema *Schema
	slice  reflect.Value
}

// Len returns the number of rows appended so far.
func (r *Rows) Len() int { return r.slice.Len() }

// Records returns the rows as a []T of the schema's struct type.
func (r *Rows) Records() any { return r.slice.Interface() }

// Append converts values (one per field, in schema order) and adds a row.
// On error the row set is left unchanged.
func (r *Rows) Append(values ...any) error {
	if len(values) != len(r.schema.fields) {
		return fmt.Errorf("record: got %d values, schema has %d fields", len(values), len(r.schema.fields))
	}
	row := reflect.New(r.schema.typ).Elem()
	for i, f := range r.schema.fields {
		if err := set(row.Field(i), f, values[i]); err != nil {
			return fmt.Errorf("column %q: %w", f.Name, err)
		}
	}
	r.slice = reflect.Append(r.slice, row)
	return nil
}

func set(dst reflect.Value, f Field, v any) error {
	v = deref(v)
	if v == nil {
		if !f.Nullable {
			return fmt.Errorf("%w: null in non-nullable %s column", ErrConvert, f.Kind)
		}
		return nil
	}
	if f.Nullable {
		p := reflect.New(dst.Type().Elem())
		dst.Set(p)
		dst = p.Elem()
	}

	switch f.Kind {
	case introspect.Boolean:
		b, err := toBool(v)
		if err != nil {
			return err
		}
		dst.SetBool(b)
	case introspect.Integer:
		n, err := toInt(v)
		if err != nil {
			return err
		}
		dst.SetInt(n)
	case introspect.Float:
		x, err := toFloat(v)
		if err != nil {
			return err
		}
		dst.SetFloat(x)
	case introspect.Character:
		c, err := toChar(v)
		if err != nil {
			return err
		}
		dst.SetInt(int64(c))
	default:
		dst.SetString(toText(v))
	}
	return nil
}

// deref unwraps pointers to the pointed-to value; nil pointers become nil.
func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

func mismatch(v any, kind introspect.Kind) error {
	return fmt.Errorf("%w: %T %v as %s", ErrConvert, v, v, kind)
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, mismatch(v, introspect.Boolean)
		}
		return b, nil
	case []byte:
		return toBool(string(x))
	}
	if n, err := toInt(v); err == nil && (n == 0 || n == 1) {
		return n == 1, nil
	}
	return false, mismatch(v, introspect.Boolean)
}

func toInt(v any) (int64, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, mismatch(v, introspect.Integer)
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, mismatch(v, introspect.Integer)
		}
		return n, nil
	case []byte:
		return toInt(string(x))
	}

	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		return rv.Int(), nil
	case rv.CanUint():
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, mismatch(v, introspect.Integer)
		}
		return int64(u), nil
	case rv.CanFloat():
		f := rv.Float()
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, mismatch(v, introspect.Integer)
		}
		return int64(f), nil
	}
	return 0, mismatch(v, introspect.Integer)
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, mismatch(v, introspect.Float)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, mismatch(v, introspect.Float)
		}
		return f, nil
	case []byte:
		return toFloat(string(x))
	}

	rv := reflect.ValueOf(v)
	switch {
	case rv.CanFloat():
		return rv.Float(), nil
	case rv.CanInt():
		return float64(rv.Int()), nil
	case rv.CanUint():
		return float64(rv.Uint()), nil
	}
	return 0, mismatch(v, introspect.Float)
}

func toChar(v any) (rune, error) {
	switch x := v.(type) {
	case introspect.Char:
		return rune(x), nil
	case rune:
		return x, nil
	case string:
		if utf8.RuneCountInString(x) == 1 {
			r, _ := utf8.DecodeRuneInString(x)
			return r, nil
		}
	case []byte:
		return toChar(string(x))
	}
	return 0, mismatch(v, introspect.Character)
}

func toText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case json.Number:
		return x.String()
	}
	return introspect.Of(v).String()
}
