// Package search filters stored samples by free text and per-field filters.
package search

import (
	"strings"

	"failureforward/domain/sample"
)

// Criteria describes one search. Zero-value fields do not constrain results.
type Criteria struct {
	// Query is split on whitespace; every term must appear in some field.
	Query     string `json:"query" form:"q"`
	Scientist string `json:"scientist" form:"scientist"`
	SampleID  string `json:"sample_id" form:"sample_id"`
	Date      string `json:"date" form:"date"`
	Limit     int    `json:"limit" form:"limit"`
}

// IsEmpty reports whether no filter is set
func (c Criteria) IsEmpty() bool {
	return strings.TrimSpace(c.Query) == "" &&
		strings.TrimSpace(c.Scientist) == "" &&
		strings.TrimSpace(c.SampleID) == "" &&
		strings.TrimSpace(c.Date) == ""
}

// Terms returns the lower-cased query terms
func (c Criteria) Terms() []string {
	return strings.Fields(strings.ToLower(c.Query))
}

// Filters returns the per-field filters that are set, lower-cased
func (c Criteria) Filters() map[sample.Field]string {
	out := make(map[sample.Field]string, 3)
	add := func(f sample.Field, v string) {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out[f] = v
		}
	}
	add(sample.FieldScientist, c.Scientist)
	add(sample.FieldSampleID, c.SampleID)
	add(sample.FieldDate, c.Date)
	return out
}

// Matches reports whether s satisfies every term and filter
func (c Criteria) Matches(s *sample.Sample) bool {
	for f, v := range c.Filters() {
		if !strings.Contains(strings.ToLower(s.Get(f)), v) {
			return false
		}
	}
	for _, term := range c.Terms() {
		if !anyFieldContains(s, term) {
			return false
		}
	}
	return true
}

func anyFieldContains(s *sample.Sample, term string) bool {
	for _, f := range sample.Schema {
		if strings.Contains(strings.ToLower(s.Get(f)), term) {
			return true
		}
	}
	return false
}

// Filter applies c to samples, preserving order and honoring Limit
func Filter(samples []*sample.Sample, c Criteria) []*sample.Sample {
	out := []*sample.Sample{}
	for _, s := range samples {
		if !c.Matches(s) {
			continue
		}
		out = append(out, s)
		if c.Limit > 0 && len(out) == c.Limit {
			break
		}
	}
	return out
}
