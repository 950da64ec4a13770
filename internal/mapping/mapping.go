package mapping

import (
	"fmt"
	"strings"

	"failureforward/domain/core"
	"failureforward/domain/sample"
)

// Mapping assigns each uploaded header a schema field or sample.Ignore
type Mapping map[string]sample.Field

// FromSuggestions builds the default mapping a user is shown
func FromSuggestions(suggestions []Suggestion) Mapping {
	m := make(Mapping, len(suggestions))
	for _, s := range suggestions {
		m[s.Header] = s.Field
	}
	return m
}

// Overlay returns m with the explicit entries laid over it. A suggested
// column whose field an explicit entry claims for another column is
// ignored, so one choice never competes with a guess.
func (m Mapping) Overlay(explicit Mapping) Mapping {
	claimed := make(map[sample.Field]bool, len(explicit))
	for _, f := range explicit {
		if f != sample.Ignore {
			claimed[f] = true
		}
	}

	out := make(Mapping, len(m)+len(explicit))
	for header, f := range m {
		if claimed[f] {
			f = sample.Ignore
		}
		out[header] = f
	}
	for header, f := range explicit {
		out[header] = f
	}
	return out
}

// Parse builds a mapping from header to field label pairs, as submitted by
// a form or a CLI flag.
func Parse(pairs map[string]string) (Mapping, error) {
	m := make(Mapping, len(pairs))
	for header, label := range pairs {
		f, ok := sample.ParseField(label)
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q for column %q", core.ErrInvalidMapping, label, header)
		}
		m[header] = f
	}
	return m, nil
}

// Validate checks that every mapped header exists in the upload and every
// target is a schema field or Ignore. Unmapped headers are ignored.
func (m Mapping) Validate(headers []string) error {
	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}
	for header, f := range m {
		if !known[header] {
			return fmt.Errorf("%w: column %q is not in the upload", core.ErrInvalidMapping, header)
		}
		if f != sample.Ignore && !f.Valid() {
			return fmt.Errorf("%w: unknown field %q for column %q", core.ErrInvalidMapping, f, header)
		}
	}
	return nil
}

// Apply converts one row into a sample. When several headers map to the
// same field, the right-most non-empty value wins.
func (m Mapping) Apply(headers []string, row []string) *sample.Sample {
	s := &sample.Sample{}
	for i, h := range headers {
		f, ok := m[h]
		if !ok || f == sample.Ignore || i >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[i]); v != "" {
			s.Set(f, v)
		}
	}
	return s
}
