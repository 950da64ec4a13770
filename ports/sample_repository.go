package ports

import (
	"context"

	"failureforward/domain/core"
	"failureforward/domain/sample"
	"failureforward/internal/search"
)

// SampleRepository defines the interface for sample storage operations
type SampleRepository interface {
	// Insert stores all samples or none of them
	Insert(ctx context.Context, samples []*sample.Sample) error
	Get(ctx context.Context, id core.ID) (*sample.Sample, error)
	Delete(ctx context.Context, id core.ID) error

	// List returns every sample, newest first
	List(ctx context.Context) ([]*sample.Sample, error)
	Search(ctx context.Context, criteria search.Criteria) ([]*sample.Sample, error)
	Count(ctx context.Context) (int, error)

	// ExistingKeys returns the valid dedup keys already stored
	ExistingKeys(ctx context.Context) (map[sample.DedupKey]bool, error)
}
