package sample

import (
	"strings"
	"time"

	"failureforward/domain/core"
)

// Field is one column of the fixed target schema
type Field string

// Target schema, in display order
const (
	FieldProjectID Field = "Project ID"
	FieldSampleID  Field = "Sample ID"
	FieldExpressed Field = "Expressed"
	FieldKD        Field = "KD"
	FieldSequence  Field = "Sequence"
	FieldSoluble   Field = "Soluble"
	FieldDate      Field = "Date"
	FieldScientist Field = "Scientist"
	FieldComments  Field = "Comments"
	FieldProtocol  Field = "Protocol"
)

// Ignore is the mapping target for uploaded columns that should be dropped
const Ignore Field = "(ignore)"

// Schema lists every target field in display order
var Schema = []Field{
	FieldProjectID,
	FieldSampleID,
	FieldExpressed,
	FieldKD,
	FieldSequence,
	FieldSoluble,
	FieldDate,
	FieldScientist,
	FieldComments,
	FieldProtocol,
}

var columnNames = map[Field]string{
	FieldProjectID: "project_id",
	FieldSampleID:  "sample_id",
	FieldExpressed: "expressed",
	FieldKD:        "kd",
	FieldSequence:  "sequence",
	FieldSoluble:   "soluble",
	FieldDate:      "date",
	FieldScientist: "scientist",
	FieldComments:  "comments",
	FieldProtocol:  "protocol",
}

// String returns the display label
func (f Field) String() string {
	return string(f)
}

// Column returns the storage column name, or "" for unknown fields
func (f Field) Column() string {
	return columnNames[f]
}

// Valid reports whether f belongs to the schema
func (f Field) Valid() bool {
	_, ok := columnNames[f]
	return ok
}

// ParseField resolves a label or storage column name, case-insensitively
func ParseField(s string) (Field, bool) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, string(Ignore)) || strings.EqualFold(s, "ignore") {
		return Ignore, true
	}
	for _, f := range Schema {
		if strings.EqualFold(s, string(f)) || strings.EqualFold(s, f.Column()) {
			return f, true
		}
	}
	return "", false
}

// Sample is one stored experiment record
type Sample struct {
	ID         core.ID   `json:"id" db:"id"`
	ProjectID  string    `json:"project_id" db:"project_id"`
	SampleID   string    `json:"sample_id" db:"sample_id"`
	Expressed  string    `json:"expressed" db:"expressed"`
	KD         string    `json:"kd" db:"kd"`
	Sequence   string    `json:"sequence" db:"sequence"`
	Soluble    string    `json:"soluble" db:"soluble"`
	Date       string    `json:"date" db:"date"`
	Scientist  string    `json:"scientist" db:"scientist"`
	Comments   string    `json:"comments" db:"comments"`
	Protocol   string    `json:"protocol" db:"protocol"`
	SourceFile string    `json:"source_file" db:"source_file"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

func (s *Sample) ref(f Field) *string {
	switch f {
	case FieldProjectID:
		return &s.ProjectID
	case FieldSampleID:
		return &s.SampleID
	case FieldExpressed:
		return &s.Expressed
	case FieldKD:
		return &s.KD
	case FieldSequence:
		return &s.Sequence
	case FieldSoluble:
		return &s.Soluble
	case FieldDate:
		return &s.Date
	case FieldScientist:
		return &s.Scientist
	case FieldComments:
		return &s.Comments
	case FieldProtocol:
		return &s.Protocol
	}
	return nil
}

// Get returns the value of a schema field
func (s *Sample) Get(f Field) string {
	if p := s.ref(f); p != nil {
		return *p
	}
	return ""
}

// Set assigns a schema field; unknown fields are ignored
func (s *Sample) Set(f Field, value string) {
	if p := s.ref(f); p != nil {
		*p = value
	}
}

// Values returns the schema fields in display order
func (s *Sample) Values() []string {
	out := make([]string, len(Schema))
	for i, f := range Schema {
		out[i] = s.Get(f)
	}
	return out
}

// IsBlank reports whether every schema field is empty
func (s *Sample) IsBlank() bool {
	for _, f := range Schema {
		if strings.TrimSpace(s.Get(f)) != "" {
			return false
		}
	}
	return true
}

// DedupKey identifies a sample for duplicate detection
type DedupKey struct {
	ProjectID string
	SampleID  string
}

// Valid reports whether both parts of the key are present. Samples with an
// incomplete key are never treated as duplicates.
func (k DedupKey) Valid() bool {
	return k.ProjectID != "" && k.SampleID != ""
}

// DedupKey returns the trimmed (Project ID, Sample ID) pair
func (s *Sample) DedupKey() DedupKey {
	return DedupKey{
		ProjectID: strings.TrimSpace(s.ProjectID),
		SampleID:  strings.TrimSpace(s.SampleID),
	}
}

// Duplicate flags an uploaded row whose key already exists
type Duplicate struct {
	Row       int    `json:"row"`
	ProjectID string `json:"project_id"`
	SampleID  string `json:"sample_id"`
	// InUpload is set when the row repeats an earlier row of the same file
	InUpload bool `json:"in_upload"`
}

// KDSummary describes the numeric KD values of a sample set
type KDSummary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Stats summarizes the stored dataset
type Stats struct {
	Total            int       `json:"total"`
	UniqueSamples    int       `json:"unique_samples"`
	UniqueProjects   int       `json:"unique_projects"`
	UniqueScientists int       `json:"unique_scientists"`
	Expressed        int       `json:"expressed"`
	Soluble          int       `json:"soluble"`
	KD               KDSummary `json:"kd"`
}
