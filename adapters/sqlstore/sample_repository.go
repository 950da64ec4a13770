package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"failureforward/domain/core"
	"failureforward/domain/sample"
	"failureforward/internal/search"
	"failureforward/ports"

	"github.com/jmoiron/sqlx"
)

const sampleColumns = `id, project_id, sample_id, expressed, kd, sequence, soluble,
	date, scientist, comments, protocol, source_file, created_at`

// sampleRepository implements ports.SampleRepository over sqlx. The same
// queries run on PostgreSQL and SQLite; bind variables are rebound per driver.
type sampleRepository struct {
	db    *sqlx.DB
	lower string
}

// NewSampleRepository creates a new sample repository
func NewSampleRepository(db *sqlx.DB) ports.SampleRepository {
	return &sampleRepository{db: db, lower: lowerFunc(db)}
}

// Insert stores all samples in one transaction
func (r *sampleRepository) Insert(ctx context.Context, samples []*sample.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO samples (` + sampleColumns + `) VALUES (
		:id, :project_id, :sample_id, :expressed, :kd, :sequence, :soluble,
		:date, :scientist, :comments, :protocol, :source_file, :created_at
	)`

	now := time.Now().UTC()
	for _, s := range samples {
		if s.ID.IsEmpty() {
			s.ID = core.NewID()
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, query, s); err != nil {
			return fmt.Errorf("failed to insert sample %s: %w", s.SampleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit samples: %w", err)
	}
	return nil
}

// Get retrieves a sample by its ID
func (r *sampleRepository) Get(ctx context.Context, id core.ID) (*sample.Sample, error) {
	query := r.db.Rebind(`SELECT ` + sampleColumns + ` FROM samples WHERE id = ?`)

	var s sample.Sample
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", core.ErrSampleNotFound, id)
		}
		return nil, fmt.Errorf("failed to get sample: %w", err)
	}
	return &s, nil
}

// Delete removes a sample
func (r *sampleRepository) Delete(ctx context.Context, id core.ID) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM samples WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete sample: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", core.ErrSampleNotFound, id)
	}
	return nil
}

// List returns every sample, newest first
func (r *sampleRepository) List(ctx context.Context) ([]*sample.Sample, error) {
	return r.Search(ctx, search.Criteria{})
}

// Search runs the criteria as a WHERE clause. Matching mirrors
// search.Criteria.Matches: case-insensitive substring per term and filter.
func (r *sampleRepository) Search(ctx context.Context, criteria search.Criteria) ([]*sample.Sample, error) {
	var (
		where []string
		args  []interface{}
	)

	for f, v := range criteria.Filters() {
		where = append(where, r.likeClause(f.Column()))
		args = append(args, likePattern(v))
	}
	for _, term := range criteria.Terms() {
		ors := make([]string, len(sample.Schema))
		for i, f := range sample.Schema {
			ors[i] = r.likeClause(f.Column())
			args = append(args, likePattern(term))
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}

	query := `SELECT ` + sampleColumns + ` FROM samples`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if criteria.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, criteria.Limit)
	}

	samples := []*sample.Sample{}
	if err := r.db.SelectContext(ctx, &samples, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to search samples: %w", err)
	}
	return samples, nil
}

// Count returns the number of stored samples
func (r *sampleRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM samples`); err != nil {
		return 0, fmt.Errorf("failed to count samples: %w", err)
	}
	return n, nil
}

// ExistingKeys loads every complete (project_id, sample_id) pair
func (r *sampleRepository) ExistingKeys(ctx context.Context) (map[sample.DedupKey]bool, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT DISTINCT TRIM(project_id), TRIM(sample_id) FROM samples
		WHERE TRIM(project_id) <> '' AND TRIM(sample_id) <> ''`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dedup keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[sample.DedupKey]bool)
	for rows.Next() {
		var k sample.DedupKey
		if err := rows.Scan(&k.ProjectID, &k.SampleID); err != nil {
			return nil, fmt.Errorf("failed to scan dedup key: %w", err)
		}
		keys[k] = true
	}
	return keys, rows.Err()
}

func (r *sampleRepository) likeClause(column string) string {
	return r.lower + "(" + column + `) LIKE ? ESCAPE '\'`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(v string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(v)) + "%"
}
