package sqldb

import (
	"strings"

	"github.com/go-sql-driver/mysql"
)

func init() {
	RegisterDriver("mysql", Driver{
		SQLName: "mysql",
		CheckDSN: func(dsn string) error {
			_, err := mysql.ParseDSN(dsn)
			return err
		},
		Quote: func(ident string) string {
			return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
		},
	})
}
