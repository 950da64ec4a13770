package migration

import (
	"context"

	"failureforward/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations. Every step is
// idempotent so Run is safe on each boot.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createSamplesTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create samples table", err)
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.DatabaseError("failed to create indexes", err)
	}

	return nil
}

func timestampType(db *sqlx.DB) string {
	if db.DriverName() == "postgres" {
		return "TIMESTAMP WITH TIME ZONE"
	}
	return "TIMESTAMP"
}

func (r *MigrationRunner) createSamplesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS samples (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL DEFAULT '',
			sample_id TEXT NOT NULL DEFAULT '',
			expressed TEXT NOT NULL DEFAULT '',
			kd TEXT NOT NULL DEFAULT '',
			sequence TEXT NOT NULL DEFAULT '',
			soluble TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL DEFAULT '',
			scientist TEXT NOT NULL DEFAULT '',
			comments TEXT NOT NULL DEFAULT '',
			protocol TEXT NOT NULL DEFAULT '',
			source_file TEXT NOT NULL DEFAULT '',
			created_at `+timestampType(db)+` NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_samples_dedup ON samples (project_id, sample_id)`,
		`CREATE INDEX IF NOT EXISTS idx_samples_created_at ON samples (created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_samples_scientist ON samples (scientist)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
