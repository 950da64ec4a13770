package importer

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// DateLayout is the stored date format
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
	"2006/01/02",
	"2006/1/2",
	"02-Jan-2006",
	"2-Jan-2006",
	"02-Jan-06",
	"Jan 2 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
	"02.01.2006",
}

// Excel serial dates between 1950 and 2150; other numbers stay verbatim
const (
	minExcelSerial = 18264
	maxExcelSerial = 91311
)

// NormalizeDate converts a recorded date to YYYY-MM-DD. Empty input yields
// today's date; input no layout accepts is returned unchanged.
func NormalizeDate(raw string, now time.Time) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.Format(DateLayout)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(DateLayout)
		}
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial >= minExcelSerial && serial <= maxExcelSerial {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.Format(DateLayout)
		}
	}
	return raw
}

var (
	yesValues = map[string]bool{"y": true, "yes": true, "true": true, "1": true, "+": true, "x": true}
	noValues  = map[string]bool{"n": true, "no": true, "false": true, "0": true, "-": true}
)

// NormalizeYesNo maps common spellings of a boolean outcome to Yes or No.
// Anything else, including partial results like "weak", is kept.
func NormalizeYesNo(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case yesValues[v]:
		return "Yes"
	case noValues[v]:
		return "No"
	default:
		return strings.TrimSpace(raw)
	}
}
