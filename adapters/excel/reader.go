package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"failureforward/domain/core"

	"github.com/xuri/excelize/v2"
)

// Supported upload formats
const (
	FileTypeCSV  = "csv"
	FileTypeXLSX = "xlsx"
	FileTypeXLS  = "xls"
)

// AllowedExtensions lists the file extensions accepted for upload
var AllowedExtensions = []string{".xlsx", ".xls", ".csv"}

// FileType derives the format from a file name
func FileType(filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FileTypeCSV, nil
	case ".xlsx":
		return FileTypeXLSX, nil
	case ".xls":
		return FileTypeXLS, nil
	default:
		return "", fmt.Errorf("%w: %q (expected .xlsx, .xls or .csv)", core.ErrUnsupportedFile, filename)
	}
}

// ReadUpload parses an uploaded Excel or CSV file. The format is chosen
// from the file name.
func ReadUpload(r io.Reader, filename string) (*Table, error) {
	fileType, err := FileType(filename)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var rows [][]string
	switch fileType {
	case FileTypeCSV:
		rows, err = readCSVRows(r)
	case FileTypeXLSX:
		rows, err = readExcelRows(r)
	case FileTypeXLS:
		return nil, fmt.Errorf("%w: legacy .xls workbooks cannot be read, save %q as .xlsx or .csv", core.ErrUnsupportedFile, filename)
	}
	if err != nil {
		return nil, err
	}
	log.Printf("[DataReader] %s read in %.2fms (%d raw rows)", filename, float64(time.Since(start).Nanoseconds())/1e6, len(rows))

	return processRows(rows)
}

// readExcelRows reads the first worksheet of a workbook
func readExcelRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open Excel file: %v", core.ErrUnsupportedFile, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readCSVRows reads comma separated rows, tolerating ragged rows and a BOM
func readCSVRows(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse CSV file: %v", core.ErrUnsupportedFile, err)
	}
	return rows, nil
}

// processRows turns raw rows into a Table. Headers are trimmed and made
// unique, short rows are padded and blank rows dropped. Each kept row
// remembers its position among the data rows of the file.
func processRows(rows [][]string) (*Table, error) {
	for len(rows) > 0 && isBlank(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, core.ErrEmptyFile
	}

	headers := uniqueHeaders(rows[0])
	table := &Table{
		Headers:    headers,
		Rows:       make([][]string, 0, len(rows)-1),
		RowNumbers: make([]int, 0, len(rows)-1),
	}

	for i, raw := range rows[1:] {
		if isBlank(raw) {
			continue
		}
		row := make([]string, len(headers))
		for j := range headers {
			if j < len(raw) {
				row[j] = strings.TrimSpace(raw[j])
			}
		}
		table.Rows = append(table.Rows, row)
		table.RowNumbers = append(table.RowNumbers, i+1)
	}

	log.Printf("[DataReader] processed %d columns, %d rows", len(table.Headers), len(table.Rows))
	return table, nil
}

// uniqueHeaders trims headers, names blank ones "Column N" and suffixes
// repeats with " (N)". Names are compared case-insensitively and a header
// present in the file keeps its name over a generated one.
func uniqueHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	var pending []int

	for i, h := range raw {
		h = strings.TrimSpace(h)
		key := strings.ToLower(h)
		if h == "" || used[key] {
			pending = append(pending, i)
			continue
		}
		used[key] = true
		headers[i] = h
	}

	for _, i := range pending {
		base := strings.TrimSpace(raw[i])
		if base == "" {
			base = fmt.Sprintf("Column %d", i+1)
		}
		name := base
		for n := 2; used[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s (%d)", base, n)
		}
		used[strings.ToLower(name)] = true
		headers[i] = name
	}
	return headers
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
