package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDate(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		raw  string
		want string
	}{
		{"", "2026-10-18"},
		{"2025-12-05", "2025-12-05"},
		{"2025-12-05T10:30:00Z", "2025-12-05"},
		{"12/05/2025", "2025-12-05"},
		{"12/5/25", "2025-12-05"},
		{"2025/12/05", "2025-12-05"},
		{"05-Dec-2025", "2025-12-05"},
		{"Dec 5, 2025", "2025-12-05"},
		{"45996", "2025-12-05"},
		{"42", "42"},
		{"last week", "last week"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDate(tt.raw, now), tt.raw)
	}
}

func TestNormalizeYesNo(t *testing.T) {
	tests := map[string]string{
		"Y":     "Yes",
		" yes ": "Yes",
		"TRUE":  "Yes",
		"1":     "Yes",
		"n":     "No",
		"False": "No",
		"-":     "No",
		"weak":  "weak",
		"":      "",
	}
	for raw, want := range tests {
		assert.Equal(t, want, NormalizeYesNo(raw), raw)
	}
}
