package sqldb

import (
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
)

func init() {
	RegisterDriver("postgres", Driver{
		SQLName: "pgx",
		CheckDSN: func(dsn string) error {
			_, err := pgconn.ParseConfig(dsn)
			return err
		},
		Quote: quoteDouble,
	})
}
