package importer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"failureforward/adapters/excel"
	"failureforward/adapters/memory"
	"failureforward/domain/core"
	"failureforward/domain/sample"
	apperrors "failureforward/internal/errors"
	"failureforward/internal/mapping"
	"failureforward/internal/uploads"
	"failureforward/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, ports.SampleRepository) {
	t.Helper()
	repo := memory.NewSampleRepository()
	store := uploads.NewLocalFileStorage(&uploads.StorageConfig{BasePath: t.TempDir(), MaxBytes: 1 << 20})
	svc := NewService(repo, store, mapping.NewMatcher(0), nil)
	svc.now = func() time.Time { return fixedNow }
	return svc, repo
}

const batchCSV = `Project ID,Sample ID,Expressed?,Soluble?,Date,Researcher,Notes
P-7,0001,y,n,12/05/2025,Fran,aggregated
P-7,0002,yes,yes,,Sam,
,,,,,,
P-7,0001,n,n,2025-12-07,Fran,repeat
`

func readCSV(t *testing.T, body string) *excel.Table {
	t.Helper()
	table, err := excel.ReadUpload(strings.NewReader(body), "batch.csv")
	require.NoError(t, err)
	return table
}

func TestImportMapsAndNormalizesRows(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	table := readCSV(t, batchCSV)
	// the blank CSV row is dropped by the reader, so add one back
	table.Rows = append(table.Rows, make([]string, len(table.Headers)))
	table.RowNumbers = append(table.RowNumbers, 5)

	result, err := svc.Import(ctx, table, Options{SourceFile: "batch.csv"})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Imported)
	assert.Zero(t, result.SkippedDuplicates)
	assert.Equal(t, []string{"Row 5 skipped: row has no mapped values"}, result.Warnings)
	require.Len(t, result.Summary, 3)
	assert.Equal(t, SummaryRow{Row: 1, SampleID: "0001", ProjectID: "P-7", Scientist: "Fran", Date: "2025-12-05"}, result.Summary[0])
	assert.Equal(t, "2026-10-18", result.Summary[1].Date, "empty date becomes today")

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	byComment := map[string]*sample.Sample{}
	for _, s := range all {
		byComment[s.Comments] = s
	}
	first := byComment["aggregated"]
	require.NotNil(t, first)
	assert.Equal(t, "Yes", first.Expressed)
	assert.Equal(t, "No", first.Soluble)
	assert.Equal(t, "batch.csv", first.SourceFile)
	assert.True(t, first.CreatedAt.Equal(fixedNow))
}

func TestImportSkipsDuplicatesWhenAsked(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, []*sample.Sample{{ProjectID: "P-7", SampleID: "0002"}}))

	table := readCSV(t, batchCSV)
	dups, err := svc.FindDuplicates(ctx, table, Options{})
	require.NoError(t, err)
	assert.Equal(t, []sample.Duplicate{
		{Row: 2, ProjectID: "P-7", SampleID: "0002"},
		{Row: 4, ProjectID: "P-7", SampleID: "0001", InUpload: true},
	}, dups)

	result, err := svc.Import(ctx, table, Options{SkipDuplicates: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 2, result.SkippedDuplicates)

	n, _ := repo.Count(ctx)
	assert.Equal(t, 2, n)
}

func TestImportKeepsDuplicatesByDefault(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	result, err := svc.Import(ctx, readCSV(t, batchCSV), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Imported)

	n, _ := repo.Count(ctx)
	assert.Equal(t, 3, n)
}

func TestImportIncompleteKeysAreNeverDuplicates(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	table := readCSV(t, "Sample ID,Notes\nS1,a\nS1,b\n")

	result, err := svc.Import(ctx, table, Options{SkipDuplicates: true})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
}

func TestImportExtras(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	table := readCSV(t, "Project ID,Sample ID,Scientist,Comments\nOLD,S1,Fran,cloudy\nNEW,S2,Sam,\n,S3,,\n")

	result, err := svc.Import(ctx, table, Options{ExtraScientist: "Alex", ExtraProjectID: "NEW"})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Imported)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	comments := map[string]string{}
	for _, s := range all {
		assert.Equal(t, "Alex", s.Scientist)
		assert.Equal(t, "NEW", s.ProjectID)
		comments[s.SampleID] = s.Comments
	}
	assert.Equal(t, "Original Project ID: OLD | cloudy", comments["S1"])
	assert.Equal(t, "", comments["S2"])
	assert.Equal(t, "", comments["S3"])
}

func TestImportExtraProjectChangesDuplicateKey(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, []*sample.Sample{{ProjectID: "NEW", SampleID: "S1"}}))

	table := readCSV(t, "Project ID,Sample ID\nOLD,S1\n")
	dups, err := svc.FindDuplicates(ctx, table, Options{ExtraProjectID: "NEW"})
	require.NoError(t, err)
	assert.Len(t, dups, 1)

	result, err := svc.Import(ctx, table, Options{ExtraProjectID: "NEW", SkipDuplicates: true})
	require.NoError(t, err)
	assert.Zero(t, result.Imported)
	assert.Equal(t, 1, result.SkippedDuplicates)
}

func TestImportRejectsBadMapping(t *testing.T) {
	svc, _ := newService(t)
	table := readCSV(t, "a,b\n1,2\n")

	_, err := svc.Import(context.Background(), table, Options{Mapping: mapping.Mapping{"zzz": sample.FieldKD}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidMapping))
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetCode(err))
}

func TestImportWithExplicitMapping(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	table := readCSV(t, "col1,col2\nS9,hello\n")

	result, err := svc.Import(ctx, table, Options{Mapping: mapping.Mapping{"col1": sample.FieldSampleID, "col2": sample.Ignore}})
	require.NoError(t, err)
	require.Equal(t, 1, result.Imported)

	all, _ := repo.List(ctx)
	assert.Equal(t, "S9", all[0].SampleID)
	assert.Empty(t, all[0].Comments)
}

func TestImportPartialMappingKeepsSuggestions(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	table := readCSV(t, "Project ID,Sample ID,Researcher,Scientist\nP-1,S-1,Fran,Sam\n")

	result, err := svc.Import(ctx, table, Options{Mapping: mapping.Mapping{"Researcher": sample.FieldScientist}})
	require.NoError(t, err)
	require.Equal(t, 1, result.Imported)

	all, _ := repo.List(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, "P-1", all[0].ProjectID)
	assert.Equal(t, "S-1", all[0].SampleID)
	assert.Equal(t, "Fran", all[0].Scientist, "the explicit column wins over the suggested one")
}

func TestSummaryAndWarningsUseFileRowNumbers(t *testing.T) {
	svc, _ := newService(t)
	table := readCSV(t, "Sample ID,Notes\nS1,a\n,\n,\nS2,b\n")

	result, err := svc.Import(context.Background(), table, Options{})
	require.NoError(t, err)
	require.Len(t, result.Summary, 2)
	assert.Equal(t, 1, result.Summary[0].Row)
	assert.Equal(t, 4, result.Summary[1].Row)
}

func TestStagePreviewAndImportUpload(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, []*sample.Sample{{ProjectID: "P-7", SampleID: "0001"}}))

	preview, err := svc.Stage(ctx, strings.NewReader(batchCSV), "batch.csv")
	require.NoError(t, err)

	assert.False(t, preview.UploadID.IsEmpty())
	assert.Equal(t, "batch.csv", preview.Filename)
	assert.Equal(t, 3, preview.RowCount)
	assert.Len(t, preview.SampleRows, 3)
	require.Len(t, preview.Suggestions, 7)
	assert.Equal(t, sample.FieldScientist, preview.Suggestions[5].Field)
	assert.Equal(t, sample.FieldComments, preview.Suggestions[6].Field)
	assert.Equal(t, []sample.Duplicate{
		{Row: 1, ProjectID: "P-7", SampleID: "0001"},
		{Row: 4, ProjectID: "P-7", SampleID: "0001"},
	}, preview.Duplicates)

	result, err := svc.ImportUpload(ctx, preview.UploadID, Options{SkipDuplicates: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 2, result.SkippedDuplicates)

	all, _ := repo.List(ctx)
	for _, s := range all {
		if s.SampleID == "0002" {
			assert.Equal(t, "batch.csv", s.SourceFile)
		}
	}

	_, err = svc.ImportUpload(ctx, preview.UploadID, Options{})
	assert.True(t, errors.Is(err, core.ErrUploadNotFound), "staged file is removed after import")
}

func TestStageRejectsUnreadableFile(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Stage(context.Background(), strings.NewReader(""), "empty.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrEmptyFile))
}
