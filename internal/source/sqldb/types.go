package sqldb

import (
	"database/sql"
	"reflect"
	"strings"

	"csvexport/internal/introspect"
	"csvexport/internal/record"
)

// databaseKinds maps normalized DatabaseTypeName values across drivers.
// Exact numerics (DECIMAL, NUMERIC, MONEY) stay Text so no digits are lost.
var databaseKinds = map[string]introspect.Kind{
	"BOOL":    introspect.Boolean,
	"BOOLEAN": introspect.Boolean,
	"BIT":     introspect.Boolean,

	"INT":       introspect.Integer,
	"INT2":      introspect.Integer,
	"INT4":      introspect.Integer,
	"INT8":      introspect.Integer,
	"INTEGER":   introspect.Integer,
	"TINYINT":   introspect.Integer,
	"SMALLINT":  introspect.Integer,
	"MEDIUMINT": introspect.Integer,
	"BIGINT":    introspect.Integer,
	"SERIAL":    introspect.Integer,
	"BIGSERIAL": introspect.Integer,
	"YEAR":      introspect.Integer,

	"REAL":             introspect.Float,
	"FLOAT":            introspect.Float,
	"FLOAT4":           introspect.Float,
	"FLOAT8":           introspect.Float,
	"DOUBLE":           introspect.Float,
	"DOUBLE PRECISION": introspect.Float,

	"DECIMAL":    introspect.Text,
	"NUMERIC":    introspect.Text,
	"MONEY":      introspect.Text,
	"SMALLMONEY": introspect.Text,
}

var (
	nullInt64   = reflect.TypeOf(sql.NullInt64{})
	nullInt32   = reflect.TypeOf(sql.NullInt32{})
	nullInt16   = reflect.TypeOf(sql.NullInt16{})
	nullFloat64 = reflect.TypeOf(sql.NullFloat64{})
	nullBool    = reflect.TypeOf(sql.NullBool{})
)

// fieldOf derives a nullable field for a result column. The declared
// database type wins; the driver's scan type is the fallback.
func fieldOf(name, dbType string, scan reflect.Type) record.Field {
	return record.Field{Name: name, Kind: kindOf(dbType, scan), Nullable: true}
}

func kindOf(dbType string, scan reflect.Type) introspect.Kind {
	if k, ok := databaseKinds[normalizeType(dbType)]; ok {
		return k
	}
	if scan == nil {
		return introspect.Text
	}
	switch scan {
	case nullInt64, nullInt32, nullInt16:
		return introspect.Integer
	case nullFloat64:
		return introspect.Float
	case nullBool:
		return introspect.Boolean
	}
	k, _, ok := introspect.Classify(scan)
	if !ok || k == introspect.Character {
		return introspect.Text
	}
	return k
}

// normalizeType upper-cases and strips size, precision and UNSIGNED:
// "int(11) unsigned" -> "INT".
func normalizeType(t string) string {
	t = strings.ToUpper(strings.TrimSpace(t))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	t = strings.TrimPrefix(t, "UNSIGNED ")
	t = strings.TrimSuffix(t, " UNSIGNED")
	return strings.TrimSpace(t)
}
