// Package memory holds an in-process sample repository, used when no
// database is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"failureforward/domain/core"
	"failureforward/domain/sample"
	"failureforward/internal/search"
	"failureforward/ports"
)

type sampleRepository struct {
	mu      sync.RWMutex
	samples map[core.ID]*sample.Sample
}

// NewSampleRepository creates an empty repository
func NewSampleRepository() ports.SampleRepository {
	return &sampleRepository{samples: make(map[core.ID]*sample.Sample)}
}

func (r *sampleRepository) Insert(ctx context.Context, samples []*sample.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	seen := make(map[core.ID]bool, len(samples))
	for _, s := range samples {
		if s.ID.IsEmpty() {
			s.ID = core.NewID()
		}
		if _, exists := r.samples[s.ID]; exists || seen[s.ID] {
			return fmt.Errorf("failed to insert sample %s: duplicate id %s", s.SampleID, s.ID)
		}
		seen[s.ID] = true
	}
	for _, s := range samples {
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		cp := *s
		r.samples[s.ID] = &cp
	}
	return nil
}

func (r *sampleRepository) Get(ctx context.Context, id core.ID) (*sample.Sample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.samples[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrSampleNotFound, id)
	}
	cp := *s
	return &cp, nil
}

func (r *sampleRepository) Delete(ctx context.Context, id core.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.samples[id]; !ok {
		return fmt.Errorf("%w: %s", core.ErrSampleNotFound, id)
	}
	delete(r.samples, id)
	return nil
}

func (r *sampleRepository) List(ctx context.Context) ([]*sample.Sample, error) {
	return r.Search(ctx, search.Criteria{})
}

func (r *sampleRepository) Search(ctx context.Context, criteria search.Criteria) ([]*sample.Sample, error) {
	return search.Filter(r.sorted(), criteria), nil
}

func (r *sampleRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.samples), nil
}

func (r *sampleRepository) ExistingKeys(ctx context.Context) (map[sample.DedupKey]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make(map[sample.DedupKey]bool)
	for _, s := range r.samples {
		if k := s.DedupKey(); k.Valid() {
			keys[k] = true
		}
	}
	return keys, nil
}

// sorted returns copies of every sample, newest first
func (r *sampleRepository) sorted() []*sample.Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*sample.Sample, 0, len(r.samples))
	for _, s := range r.samples {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
