package sqlstore

import (
	"context"
	"log"

	"failureforward/internal/errors"
	"failureforward/internal/migration"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Open connects to the database, checks it is reachable and applies
// migrations. driver is "postgres" or "sqlite3".
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, driverName(driver), dsn)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}

	if db.DriverName() == sqliteDriver {
		// a single connection keeps :memory: databases shared and
		// serializes writers
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.DatabaseError("failed to ping database", err)
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "database migration failed")
	}
	log.Printf("[Database] connected (%s), schema version %s", driver, migrator.Version())

	return db, nil
}
