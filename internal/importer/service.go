// Package importer turns uploaded spreadsheets into stored samples: it
// previews an upload with suggested column mappings, flags duplicates and
// performs the import.
package importer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"failureforward/adapters/excel"
	"failureforward/domain/core"
	"failureforward/domain/sample"
	"failureforward/internal"
	"failureforward/internal/errors"
	"failureforward/internal/mapping"
	"failureforward/ports"
)

// PreviewRows is how many leading rows a preview carries
const PreviewRows = 10

// Preview is what a user reviews before importing
type Preview struct {
	UploadID    core.ID              `json:"upload_id"`
	Filename    string               `json:"filename"`
	RowCount    int                  `json:"row_count"`
	Headers     []string             `json:"headers"`
	SampleRows  [][]string           `json:"sample_rows"`
	Suggestions []mapping.Suggestion `json:"suggestions"`
	Duplicates  []sample.Duplicate   `json:"duplicates"`
}

// Options controls one import
type Options struct {
	// Mapping overrides the suggested field of the columns it names
	Mapping mapping.Mapping `json:"mapping"`
	// ExtraScientist overrides the Scientist of every row
	ExtraScientist string `json:"extra_scientist"`
	// ExtraProjectID overrides the Project ID of every row
	ExtraProjectID string `json:"extra_project_id"`
	SkipDuplicates bool   `json:"skip_duplicates"`
	SourceFile     string `json:"source_file"`
}

// SummaryRow describes one imported sample
type SummaryRow struct {
	Row       int    `json:"row"`
	SampleID  string `json:"sample_id"`
	ProjectID string `json:"project_id"`
	Scientist string `json:"scientist"`
	Date      string `json:"date"`
}

// ImportResult reports what an import did
type ImportResult struct {
	Imported          int          `json:"imported"`
	SkippedDuplicates int          `json:"skipped_duplicates"`
	Warnings          []string     `json:"warnings"`
	Summary           []SummaryRow `json:"summary"`
}

// Service coordinates staging, preview and import
type Service struct {
	repo    ports.SampleRepository
	uploads ports.UploadStore
	matcher *mapping.Matcher
	logger  *internal.Logger
	now     func() time.Time
}

// NewService wires the importer. uploads may be nil when only in-memory
// tables are imported (CLI).
func NewService(repo ports.SampleRepository, uploads ports.UploadStore, matcher *mapping.Matcher, logger *internal.Logger) *Service {
	if matcher == nil {
		matcher = mapping.NewMatcher(0)
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Service{
		repo:    repo,
		uploads: uploads,
		matcher: matcher,
		logger:  logger.With("Importer"),
		now:     time.Now,
	}
}

// Stage stores an upload, parses it and returns its preview. Files that
// cannot be parsed are not kept.
func (s *Service) Stage(ctx context.Context, r io.Reader, filename string) (*Preview, error) {
	if s.uploads == nil {
		return nil, errors.InternalError("upload staging is not configured")
	}
	staged, err := s.uploads.Stage(ctx, r, filename)
	if err != nil {
		return nil, err
	}

	table, _, err := s.LoadUpload(ctx, staged.ID)
	if err != nil {
		if rmErr := s.uploads.Remove(ctx, staged.ID); rmErr != nil {
			s.logger.Warn("failed to remove unreadable upload %s: %v", staged.ID, rmErr)
		}
		return nil, err
	}

	preview, err := s.Preview(ctx, table, staged.Filename)
	if err != nil {
		return nil, err
	}
	preview.UploadID = staged.ID
	return preview, nil
}

// LoadUpload re-reads a staged upload
func (s *Service) LoadUpload(ctx context.Context, id core.ID) (*excel.Table, *ports.StagedUpload, error) {
	if s.uploads == nil {
		return nil, nil, errors.InternalError("upload staging is not configured")
	}
	staged, rc, err := s.uploads.Open(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()

	table, err := excel.ReadUpload(rc, staged.Filename)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to read %s", staged.Filename)
	}
	return table, staged, nil
}

// Preview suggests a mapping for table and flags duplicates under it
func (s *Service) Preview(ctx context.Context, table *excel.Table, filename string) (*Preview, error) {
	suggestions := s.matcher.Suggest(table.Headers)
	duplicates, err := s.FindDuplicates(ctx, table, Options{Mapping: mapping.FromSuggestions(suggestions)})
	if err != nil {
		return nil, err
	}

	s.logger.Info("previewed %s: %d rows, %d columns, %d duplicates", filename, len(table.Rows), len(table.Headers), len(duplicates))
	return &Preview{
		Filename:    filename,
		RowCount:    len(table.Rows),
		Headers:     table.Headers,
		SampleRows:  table.Head(PreviewRows),
		Suggestions: suggestions,
		Duplicates:  duplicates,
	}, nil
}

// FindDuplicates lists rows whose (Project ID, Sample ID) is already
// stored or repeats an earlier row of the same upload. Extras in opts are
// applied first, since they can change the key.
func (s *Service) FindDuplicates(ctx context.Context, table *excel.Table, opts Options) ([]sample.Duplicate, error) {
	m, err := s.resolveMapping(table, opts.Mapping)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.ExistingKeys(ctx)
	if err != nil {
		return nil, errors.DatabaseError("failed to load existing samples", err)
	}

	duplicates := []sample.Duplicate{}
	seen := make(map[sample.DedupKey]bool)
	for i, row := range table.Rows {
		smp := s.buildSample(table.Headers, row, m, opts)
		if smp.IsBlank() {
			continue
		}
		key := smp.DedupKey()
		if !key.Valid() {
			continue
		}
		switch {
		case existing[key]:
			duplicates = append(duplicates, sample.Duplicate{Row: table.RowNumber(i), ProjectID: key.ProjectID, SampleID: key.SampleID})
		case seen[key]:
			duplicates = append(duplicates, sample.Duplicate{Row: table.RowNumber(i), ProjectID: key.ProjectID, SampleID: key.SampleID, InUpload: true})
		}
		seen[key] = true
	}
	return duplicates, nil
}

// ImportUpload imports a staged upload and discards the staged file
func (s *Service) ImportUpload(ctx context.Context, id core.ID, opts Options) (*ImportResult, error) {
	table, staged, err := s.LoadUpload(ctx, id)
	if err != nil {
		return nil, err
	}
	if opts.SourceFile == "" {
		opts.SourceFile = staged.Filename
	}

	result, err := s.Import(ctx, table, opts)
	if err != nil {
		return nil, err
	}

	if err := s.uploads.Remove(ctx, id); err != nil {
		s.logger.Warn("failed to remove imported upload %s: %v", id, err)
	}
	return result, nil
}

// Import maps every row and stores the result in one transaction. Blank
// rows are skipped with a warning; duplicates are skipped only when
// opts.SkipDuplicates is set.
func (s *Service) Import(ctx context.Context, table *excel.Table, opts Options) (*ImportResult, error) {
	m, err := s.resolveMapping(table, opts.Mapping)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.ExistingKeys(ctx)
	if err != nil {
		return nil, errors.DatabaseError("failed to load existing samples", err)
	}

	result := &ImportResult{Warnings: []string{}, Summary: []SummaryRow{}}
	now := s.now()
	seen := make(map[sample.DedupKey]bool)
	var batch []*sample.Sample

	for i, row := range table.Rows {
		rowNum := table.RowNumber(i)
		smp := s.buildSample(table.Headers, row, m, opts)
		if smp.IsBlank() {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Row %d skipped: %v", rowNum, core.ErrEmptyRow))
			continue
		}

		key := smp.DedupKey()
		if opts.SkipDuplicates && key.Valid() && (existing[key] || seen[key]) {
			result.SkippedDuplicates++
			s.logger.Debug("row %d skipped as duplicate of %s/%s", rowNum, key.ProjectID, key.SampleID)
			continue
		}
		if key.Valid() {
			seen[key] = true
		}

		smp.Date = NormalizeDate(smp.Date, now)
		smp.Expressed = NormalizeYesNo(smp.Expressed)
		smp.Soluble = NormalizeYesNo(smp.Soluble)
		smp.SourceFile = opts.SourceFile
		smp.ID = core.NewID()
		smp.CreatedAt = now.UTC()

		batch = append(batch, smp)
		result.Summary = append(result.Summary, SummaryRow{
			Row:       rowNum,
			SampleID:  smp.SampleID,
			ProjectID: smp.ProjectID,
			Scientist: smp.Scientist,
			Date:      smp.Date,
		})
	}

	if err := s.repo.Insert(ctx, batch); err != nil {
		return nil, errors.DatabaseError("failed to store samples", err)
	}
	result.Imported = len(batch)

	s.logger.Info("imported %d samples from %q (%d duplicates skipped, %d warnings)",
		result.Imported, opts.SourceFile, result.SkippedDuplicates, len(result.Warnings))
	return result, nil
}

// resolveMapping lays the caller's choices over the suggested mapping, so
// columns the caller did not mention keep their suggested field.
func (s *Service) resolveMapping(table *excel.Table, m mapping.Mapping) (mapping.Mapping, error) {
	suggested := mapping.FromSuggestions(s.matcher.Suggest(table.Headers))
	if m == nil {
		return suggested, nil
	}
	if err := m.Validate(table.Headers); err != nil {
		return nil, errors.Wrap(err, "column mapping rejected")
	}
	return suggested.Overlay(m), nil
}

// buildSample maps one row and applies the per-import extras
func (s *Service) buildSample(headers, row []string, m mapping.Mapping, opts Options) *sample.Sample {
	smp := m.Apply(headers, row)
	if smp.IsBlank() {
		return smp
	}

	if v := strings.TrimSpace(opts.ExtraScientist); v != "" {
		smp.Scientist = v
	}
	if v := strings.TrimSpace(opts.ExtraProjectID); v != "" {
		if old := smp.ProjectID; old != "" && old != v {
			note := "Original Project ID: " + old
			if smp.Comments != "" {
				note += " | " + smp.Comments
			}
			smp.Comments = note
		}
		smp.ProjectID = v
	}
	return smp
}
