package sqldb

import (
	_ "modernc.org/sqlite" // registers "sqlite"
)

func init() {
	RegisterDriver("sqlite", Driver{
		SQLName: "sqlite",
		Quote:   quoteDouble,
	})
}
