package introspect

import (
	"math"
	"reflect"
	"strconv"
)

// Kind is the primitive-like classification of a column value. Anything that
// does not map to one of these kinds never becomes a column.
type Kind int

const (
	Boolean Kind = iota
	Integer
	Float
	Character
	Text
)

func (k Kind) String() string {
	switch k {
	case Boolean:
		return "boolean"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Character:
		return "character"
	case Text:
		return "text"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Char is a single character. rune is an alias of int32, so a plain rune
// field cannot be told apart from an int32 one by reflection; declare the
// field (or accessor result) as Char to have it rendered as a character.
type Char rune

var (
	charType  = reflect.TypeOf(Char(0))
	errorType = reflect.TypeOf((*error)(nil)).Elem()
)

// scalarKinds is the fixed set of reflect kinds treated as primitive-like.
// It is never written after package initialisation.
var scalarKinds = map[reflect.Kind]Kind{
	reflect.Bool:    Boolean,
	reflect.Int:     Integer,
	reflect.Int8:    Integer,
	reflect.Int16:   Integer,
	reflect.Int32:   Integer,
	reflect.Int64:   Integer,
	reflect.Uint:    Integer,
	reflect.Uint8:   Integer,
	reflect.Uint16:  Integer,
	reflect.Uint32:  Integer,
	reflect.Uint64:  Integer,
	reflect.Float32: Float,
	reflect.Float64: Float,
	reflect.String:  Text,
}

// Classify reports whether t is primitive-like. A single pointer level is the
// nullable form of the pointed-to scalar: *int classifies as a nullable
// Integer. Arrays, slices, maps, structs, interfaces, funcs, channels and
// complex numbers are never primitive-like.
func Classify(t reflect.Type) (kind Kind, nullable, ok bool) {
	if t == nil {
		return 0, false, false
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
		nullable = true
	}
	if t == charType {
		return Character, nullable, true
	}
	kind, ok = scalarKinds[t.Kind()]
	if !ok {
		return 0, false, false
	}
	return kind, nullable, true
}

// format renders a non-pointer scalar value in its canonical text form.
func format(kind Kind, v reflect.Value) string {
	switch kind {
	case Boolean:
		return strconv.FormatBool(v.Bool())
	case Integer:
		if v.CanInt() {
			return strconv.FormatInt(v.Int(), 10)
		}
		return strconv.FormatUint(v.Uint(), 10)
	case Float:
		return formatFloat(v.Float(), v.Type().Bits())
	case Character:
		return string(rune(v.Int()))
	default:
		return v.String()
	}
}

// formatFloat uses the shortest digits that round-trip at the given bit size,
// in plain notation for 1e-6 <= |f| < 1e21 and exponent notation otherwise.
func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}

	fmtByte := byte('f')
	if abs := math.Abs(f); abs != 0 {
		if bits == 64 && (abs < 1e-6 || abs >= 1e21) ||
			bits == 32 && (float32(abs) < 1e-6 || float32(abs) >= 1e21) {
			fmtByte = 'e'
		}
	}
	s := strconv.FormatFloat(f, fmtByte, -1, bits)
	if fmtByte == 'e' {
		// 1e-07 -> 1e-7
		n := len(s)
		if n >= 4 && s[n-4] == 'e' && s[n-3] == '-' && s[n-2] == '0' {
			s = s[:n-2] + s[n-1:]
		}
	}
	return s
}
