// Package all wires every built-in record source into the source registry.
//
// It exists purely for side effects: a blank import runs the init functions
// of each concrete source package, which register their builders:
//
//   - "sql"   (csvexport/internal/source/sqldb, drivers postgres, mssql, mysql, sqlite)
//   - "jsonl" (csvexport/internal/source/jsonl)
//
// Typical usage, in cmd/csvexport/main.go:
//
//	import _ "csvexport/internal/source/all"
package all

import (
	_ "csvexport/internal/source/jsonl"
	_ "csvexport/internal/source/sqldb"
)
