package sqlstore

import (
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// sqliteDriver is go-sqlite3 with a Unicode-aware lower() registered as
// ulower. SQLite's built-in LOWER only folds ASCII.
const sqliteDriver = "sqlite3_unicode"

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("ulower", strings.ToLower, true)
		},
	})
	sqlx.BindDriver(sqliteDriver, sqlx.QUESTION)
}

// driverName maps a configured driver onto the one actually opened
func driverName(driver string) string {
	if driver == "sqlite3" {
		return sqliteDriver
	}
	return driver
}

// lowerFunc names the SQL function that lower-cases text like strings.ToLower
func lowerFunc(db *sqlx.DB) string {
	if db.DriverName() == sqliteDriver {
		return "ulower"
	}
	return "LOWER"
}
