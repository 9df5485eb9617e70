package sqldb

import (
	"strings"

	_ "github.com/microsoft/go-mssqldb" // registers "sqlserver"
	"github.com/microsoft/go-mssqldb/msdsn"
)

func init() {
	RegisterDriver("mssql", Driver{
		SQLName: "sqlserver",
		CheckDSN: func(dsn string) error {
			_, err := msdsn.Parse(dsn)
			return err
		},
		Quote: func(ident string) string {
			return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
		},
	})
}
