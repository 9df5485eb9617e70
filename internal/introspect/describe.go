package introspect

import (
	"errors"
	"fmt"
	"reflect"
)

// Value is an optional scalar: either present with its text form, or absent.
type Value struct {
	text    string
	present bool
}

// Absent returns the absent Value, rendered as Null.
func Absent() Value { return Value{} }

// TextValue returns a present Value holding s verbatim.
func TextValue(s string) Value { return Value{text: s, present: true} }

// Of wraps v. Nil interfaces and nil pointers are absent; primitive-like
// values use the same formatting as reflected columns; anything else falls
// back to fmt.Sprint.
func Of(v any) Value {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
		return Absent()
	}
	kind, nullable, ok := Classify(rv.Type())
	if !ok {
		return TextValue(fmt.Sprint(v))
	}
	if nullable {
		rv = rv.Elem()
	}
	return TextValue(format(kind, rv))
}

// Present reports whether the value is set.
func (v Value) Present() bool { return v.present }

// String returns the text form, or Null when absent.
func (v Value) String() string {
	if !v.present {
		return Null
	}
	return v.text
}

// Spec is one entry of an explicit column table.
type Spec struct {
	Name    string
	Source  Source
	Kind    Kind
	Extract func(record any) (Value, error)
}

// Describer is implemented by record types that register their columns
// explicitly instead of being scanned. The returned table is used as is:
// same order, same names.
type Describer interface {
	CSVColumns() []Spec
}

func describedColumns(specs []Spec) []Column {
	cols := make([]Column, 0, len(specs))
	for _, s := range specs {
		cols = append(cols, Column{
			Name:     s.Name,
			Source:   s.Source,
			Kind:     s.Kind,
			Nullable: true,
			extract: func(rec reflect.Value) (string, error) {
				if s.Extract == nil {
					return "", errors.New("no extract function registered")
				}
				v, err := s.Extract(rec.Interface())
				if err != nil {
					return "", err
				}
				return v.String(), nil
			},
		})
	}
	return cols
}
