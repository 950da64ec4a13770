package excel

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"failureforward/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadUploadCSV(t *testing.T) {
	input := "\xEF\xBB\xBFProject ID, sample ,Notes\nP1,S-01,first\n,,\nP1,S-02\n"

	table, err := ReadUpload(strings.NewReader(input), "batch.CSV")
	require.NoError(t, err)

	assert.Equal(t, []string{"Project ID", "sample", "Notes"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"P1", "S-01", "first"}, table.Rows[0])
	assert.Equal(t, []string{"P1", "S-02", ""}, table.Rows[1], "short rows are padded")
	assert.Equal(t, map[string]string{"Project ID": "P1", "sample": "S-02", "Notes": ""}, table.Row(1))
	assert.Equal(t, []int{1, 3}, table.RowNumbers, "numbers count the dropped blank row")
	assert.Equal(t, 3, table.RowNumber(1))
}

func TestReadUploadHeaderOnly(t *testing.T) {
	table, err := ReadUpload(strings.NewReader("a,b\n"), "empty.csv")
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
	assert.Empty(t, table.Head(10))
}

func TestReadUploadErrors(t *testing.T) {
	_, err := ReadUpload(strings.NewReader(""), "nothing.csv")
	assert.True(t, errors.Is(err, core.ErrEmptyFile))

	_, err = ReadUpload(strings.NewReader("x"), "notes.txt")
	assert.True(t, errors.Is(err, core.ErrUnsupportedFile))

	_, err = ReadUpload(strings.NewReader("x"), "legacy.xls")
	assert.True(t, errors.Is(err, core.ErrUnsupportedFile))

	_, err = ReadUpload(strings.NewReader("not a zip"), "broken.xlsx")
	assert.True(t, errors.Is(err, core.ErrUnsupportedFile))
}

func TestUniqueHeaders(t *testing.T) {
	got := uniqueHeaders([]string{"Date", " ", "date", "DATE", "KD"})
	assert.Equal(t, []string{"Date", "Column 2", "date (2)", "DATE (3)", "KD"}, got)

	tests := []struct {
		raw  []string
		want []string
	}{
		{[]string{"A", "A", "A (2)"}, []string{"A", "A (3)", "A (2)"}},
		{[]string{"", "Column 1"}, []string{"Column 1 (2)", "Column 1"}},
		{[]string{"Column 2", ""}, []string{"Column 2", "Column 2 (2)"}},
		{[]string{"x", "X", "x (2)", ""}, []string{"x", "X (3)", "x (2)", "Column 4"}},
	}
	for _, tt := range tests {
		got := uniqueHeaders(tt.raw)
		assert.Equal(t, tt.want, got, "%q", tt.raw)

		seen := map[string]bool{}
		for _, h := range got {
			assert.False(t, seen[strings.ToLower(h)], "duplicate header %q in %q", h, got)
			seen[strings.ToLower(h)] = true
		}
	}
}

func TestRowNumberWithoutNumbers(t *testing.T) {
	table := &Table{Headers: []string{"a"}, Rows: [][]string{{"1"}, {"2"}}}
	assert.Equal(t, 2, table.RowNumber(1))
}

func TestWriteThenReadXLSX(t *testing.T) {
	var buf bytes.Buffer
	headers := []string{"Sample ID", "Scientist"}
	rows := [][]string{{"S-01", "Fran"}, {"S-02", ""}}

	require.NoError(t, WriteXLSX(&buf, headers, rows))

	table, err := ReadUpload(bytes.NewReader(buf.Bytes()), "export.xlsx")
	require.NoError(t, err)
	assert.Equal(t, headers, table.Headers)
	assert.Equal(t, rows, table.Rows)
}

func TestFileType(t *testing.T) {
	ft, err := FileType("a.XLSX")
	require.NoError(t, err)
	assert.Equal(t, FileTypeXLSX, ft)

	_, err = FileType("a")
	assert.Error(t, err)
}
