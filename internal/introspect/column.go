// Package introspect discovers the columns of a record type.
//
// A column comes from one of two places:
//
//   - a stored attribute: an exported struct field whose type is
//     primitive-like (see Classify), in declaration order. Fields promoted
//     from embedded structs take the position of the embedded field and
//     follow Go's visibility rules; a nil embedded pointer renders them as
//     null;
//   - a derived accessor: an exported zero-argument method named Get<Name>
//     that returns a primitive-like value (optionally followed by an error),
//     in method-set order. The method set is that of the sample's dynamic
//     type: a T sample (and so a []T batch) only sees value-receiver
//     methods, while a *T sample also sees pointer-receiver ones.
//
// Stored attributes always come before accessors. Nested structs, arrays,
// slices and other composite values are skipped, never traversed. Types that
// implement Describer bypass reflection and supply their own column table.
package introspect

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Source tells where a column's value comes from.
type Source int

const (
	StoredAttribute Source = iota
	DerivedAccessor
)

func (s Source) String() string {
	if s == DerivedAccessor {
		return "accessor"
	}
	return "field"
}

// GetterPrefix is the method name prefix that marks a derived accessor.
const GetterPrefix = "Get"

// Null is the text rendered for absent values.
const Null = "null"

var (
	// ErrInvalidArgument is returned for nil samples.
	ErrInvalidArgument = errors.New("illegal argument")
	// ErrExtraction is returned when a column value cannot be read.
	ErrExtraction = errors.New("extraction failure")
)

// Column is one rendered column: a header name plus a way to read the value
// from a record of the introspected type.
type Column struct {
	Name     string
	Source   Source
	Kind     Kind
	Nullable bool

	extract func(record reflect.Value) (string, error)
}

// Extract returns the text form of the column value for record, or Null when
// the value is absent. record must have the type the column was built from.
func (c Column) Extract(record reflect.Value) (string, error) {
	if c.extract == nil {
		return "", fmt.Errorf("%w: column %q has no extractor", ErrExtraction, c.Name)
	}
	s, err := c.extract(record)
	if err != nil {
		return "", fmt.Errorf("%w: column %q: %w", ErrExtraction, c.Name, err)
	}
	return s, nil
}

// Columns introspects sample and returns its ordered column list. The only
// error is a nil sample (nil interface or nil pointer).
func Columns(sample any) ([]Column, error) {
	rv := reflect.ValueOf(sample)
	if !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
		return nil, fmt.Errorf("%w: record cannot be nil", ErrInvalidArgument)
	}
	if d, ok := sample.(Describer); ok {
		return describedColumns(d.CSVColumns()), nil
	}
	return ColumnsOf(rv.Type()), nil
}

// ColumnsOf returns the reflective column list for t: stored attributes
// first, then derived accessors.
func ColumnsOf(t reflect.Type) []Column {
	cols := storedColumns(t)
	return append(cols, accessorColumns(t)...)
}

func storedColumns(t reflect.Type) []Column {
	st := t
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return nil
	}

	var cols []Column
	for _, f := range reflect.VisibleFields(st) {
		if !f.IsExported() || embedsStruct(f) {
			continue
		}
		skip, viaPointer := embedPath(st, f.Index)
		if skip {
			continue
		}
		tag, tagged := f.Tag.Lookup("csv")
		if tag == "-" {
			continue
		}
		kind, nullable, ok := Classify(f.Type)
		if !ok {
			continue
		}
		name := lowerFirst(f.Name)
		if tagged && tag != "" {
			name = tag
		}
		cols = append(cols, Column{
			Name:     name,
			Source:   StoredAttribute,
			Kind:     kind,
			Nullable: nullable || viaPointer,
			extract:  fieldExtractor(f.Index, kind, nullable),
		})
	}
	return cols
}

// embedsStruct reports an anonymous struct or *struct field. Its promoted
// fields are listed on their own by reflect.VisibleFields.
func embedsStruct(f reflect.StructField) bool {
	if !f.Anonymous {
		return false
	}
	t := f.Type
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

// embedPath inspects the embedded fields a promoted field is reached
// through: skip is set when one of them is tagged csv:"-", viaPointer when
// one of them is a pointer that may be nil.
func embedPath(st reflect.Type, index []int) (skip, viaPointer bool) {
	for k := 1; k < len(index); k++ {
		ef := st.FieldByIndex(index[:k])
		if ef.Tag.Get("csv") == "-" {
			return true, false
		}
		if ef.Type.Kind() == reflect.Pointer {
			viaPointer = true
		}
	}
	return false, viaPointer
}

func fieldExtractor(index []int, kind Kind, nullable bool) func(reflect.Value) (string, error) {
	return func(rec reflect.Value) (string, error) {
		if rec.Kind() == reflect.Pointer {
			if rec.IsNil() {
				return "", errors.New("record is a nil pointer")
			}
			rec = rec.Elem()
		}
		v, err := rec.FieldByIndexErr(index)
		if err != nil {
			// promoted through a nil embedded pointer
			return Null, nil
		}
		if nullable {
			if v.IsNil() {
				return Null, nil
			}
			v = v.Elem()
		}
		return format(kind, v), nil
	}
}

func accessorColumns(t reflect.Type) []Column {
	var cols []Column
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		kind, nullable, withErr, ok := getter(m)
		if !ok {
			continue
		}
		cols = append(cols, Column{
			Name:     HeaderName(m.Name),
			Source:   DerivedAccessor,
			Kind:     kind,
			Nullable: nullable,
			extract:  methodExtractor(m.Index, kind, nullable, withErr),
		})
	}
	return cols
}

// getter applies the accessor predicate. m.Type carries the receiver as its
// first input, so a zero-argument method has exactly one input.
func getter(m reflect.Method) (kind Kind, nullable, withErr, ok bool) {
	if !m.IsExported() || len(m.Name) <= len(GetterPrefix) || !strings.HasPrefix(m.Name, GetterPrefix) {
		return 0, false, false, false
	}
	mt := m.Type
	if mt.NumIn() != 1 || mt.IsVariadic() {
		return 0, false, false, false
	}
	switch mt.NumOut() {
	case 1:
	case 2:
		if mt.Out(1) != errorType {
			return 0, false, false, false
		}
		withErr = true
	default:
		return 0, false, false, false
	}
	kind, nullable, ok = Classify(mt.Out(0))
	return kind, nullable, withErr, ok
}

func methodExtractor(index int, kind Kind, nullable, withErr bool) func(reflect.Value) (string, error) {
	return func(rec reflect.Value) (string, error) {
		if rec.Kind() == reflect.Pointer && rec.IsNil() {
			return "", errors.New("record is a nil pointer")
		}
		out, err := call(rec.Method(index))
		if err != nil {
			return "", err
		}
		if withErr && !out[1].IsNil() {
			return "", out[1].Interface().(error)
		}
		v := out[0]
		if nullable {
			if v.IsNil() {
				return Null, nil
			}
			v = v.Elem()
		}
		return format(kind, v), nil
	}
}

func call(fn reflect.Value) (out []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("accessor panicked: %v", r)
		}
	}()
	return fn.Call(nil), nil
}

// HeaderName turns an accessor name into its header text by stripping
// GetterPrefix and lower-casing the first remaining rune:
// GetIntegerProperty -> integerProperty. Names without the prefix are only
// decapitalized.
func HeaderName(accessor string) string {
	return lowerFirst(strings.TrimPrefix(accessor, GetterPrefix))
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 || r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}
