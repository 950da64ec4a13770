// Package export writes the stored dataset as CSV or Excel.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"failureforward/adapters/excel"
	"failureforward/domain/sample"
)

// Formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// BaseName is the download file name without extension
const BaseName = "failure_forward"

// ContentTypes maps each format to its MIME type
var ContentTypes = map[string]string{
	FormatCSV:  "text/csv",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// Filename returns the download name for format
func Filename(format string) string {
	return BaseName + "." + format
}

// Headers returns the schema labels plus the creation timestamp
func Headers() []string {
	out := make([]string, 0, len(sample.Schema)+1)
	for _, f := range sample.Schema {
		out = append(out, f.String())
	}
	return append(out, "Created At")
}

// Rows flattens samples in Headers order
func Rows(samples []*sample.Sample) [][]string {
	rows := make([][]string, len(samples))
	for i, s := range samples {
		rows[i] = append(s.Values(), s.CreatedAt.UTC().Format(time.RFC3339))
	}
	return rows
}

// Write encodes samples in the given format
func Write(w io.Writer, format string, samples []*sample.Sample) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, samples)
	case FormatXLSX:
		return WriteXLSX(w, samples)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// WriteCSV writes a header row and one row per sample
func WriteCSV(w io.Writer, samples []*sample.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := cw.WriteAll(Rows(samples)); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}

// WriteXLSX writes a single-sheet workbook
func WriteXLSX(w io.Writer, samples []*sample.Sample) error {
	return excel.WriteXLSX(w, Headers(), Rows(samples))
}
