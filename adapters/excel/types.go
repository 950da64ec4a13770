package excel

// Table is a parsed spreadsheet: one header row plus data rows. Every row
// has exactly len(Headers) cells.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	// RowNumbers holds the 1-based data row of each entry in Rows,
	// counting the blank rows the reader dropped.
	RowNumbers []int `json:"row_numbers,omitempty"`
}

// RowNumber returns the data row number of Rows[i] in the source file
func (t *Table) RowNumber(i int) int {
	if i < len(t.RowNumbers) {
		return t.RowNumbers[i]
	}
	return i + 1
}

// Row returns the data row at index i as a header-keyed map
func (t *Table) Row(i int) map[string]string {
	out := make(map[string]string, len(t.Headers))
	for j, h := range t.Headers {
		out[h] = t.Rows[i][j]
	}
	return out
}

// Head returns up to n leading rows
func (t *Table) Head(n int) [][]string {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}
