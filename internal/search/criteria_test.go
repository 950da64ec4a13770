package search

import (
	"testing"

	"failureforward/domain/sample"

	"github.com/stretchr/testify/assert"
)

func fixtures() []*sample.Sample {
	return []*sample.Sample{
		{SampleID: "0001", ProjectID: "P-7", Scientist: "Fran Lee", Date: "2025-12-05", Comments: "aggregated at 37C"},
		{SampleID: "0002", ProjectID: "P-7", Scientist: "Sam", Date: "2025-12-06", Protocol: "IMAC"},
		{SampleID: "1001", ProjectID: "Q-1", Scientist: "fran lee", Date: "2026-01-10", Sequence: "MKTAYIAK"},
	}
}

func ids(samples []*sample.Sample) []string {
	out := make([]string, len(samples))
	for i, s := range samples {
		out[i] = s.SampleID
	}
	return out
}

func TestCriteriaIsEmpty(t *testing.T) {
	assert.True(t, Criteria{}.IsEmpty())
	assert.True(t, Criteria{Query: "   ", Limit: 5}.IsEmpty())
	assert.False(t, Criteria{Date: "2025"}.IsEmpty())
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{"free text matches any field", Criteria{Query: "imac"}, []string{"0002"}},
		{"all terms must match", Criteria{Query: "fran 37c"}, []string{"0001"}},
		{"terms may match different fields", Criteria{Query: "q-1 mktay"}, []string{"1001"}},
		{"scientist filter is case-insensitive", Criteria{Scientist: "FRAN"}, []string{"0001", "1001"}},
		{"sample id substring", Criteria{SampleID: "000"}, []string{"0001", "0002"}},
		{"date prefix", Criteria{Date: "2025-12"}, []string{"0001", "0002"}},
		{"filters combine", Criteria{Scientist: "fran", Date: "2026"}, []string{"1001"}},
		{"limit", Criteria{Query: "p-7", Limit: 1}, []string{"0001"}},
		{"no match", Criteria{Query: "nothing"}, []string{}},
		{"empty criteria matches all", Criteria{}, []string{"0001", "0002", "1001"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(fixtures(), tt.criteria)))
		})
	}
}
