package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseField(t *testing.T) {
	tests := []struct {
		input    string
		expected Field
		ok       bool
	}{
		{"Project ID", FieldProjectID, true},
		{"project id", FieldProjectID, true},
		{"sample_id", FieldSampleID, true},
		{" KD ", FieldKD, true},
		{"(ignore)", Ignore, true},
		{"ignore", Ignore, true},
		{"strain", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			f, ok := ParseField(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, f)
		})
	}
}

func TestSampleGetSet(t *testing.T) {
	var s Sample
	for _, f := range Schema {
		s.Set(f, "v-"+f.Column())
	}
	for _, f := range Schema {
		assert.Equal(t, "v-"+f.Column(), s.Get(f))
	}

	s.Set(Ignore, "dropped")
	assert.Equal(t, "", s.Get(Ignore))
	assert.Len(t, s.Values(), len(Schema))
	assert.False(t, s.IsBlank())
	assert.True(t, (&Sample{Comments: "  "}).IsBlank())
}

func TestDedupKey(t *testing.T) {
	s := Sample{ProjectID: " P1 ", SampleID: "S-01"}
	key := s.DedupKey()
	assert.Equal(t, DedupKey{ProjectID: "P1", SampleID: "S-01"}, key)
	assert.True(t, key.Valid())

	assert.False(t, (&Sample{ProjectID: "P1"}).DedupKey().Valid())
	assert.False(t, (&Sample{SampleID: "S-01"}).DedupKey().Valid())
}
