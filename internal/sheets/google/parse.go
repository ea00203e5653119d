package google

import (
	"errors"
	"fmt"
	"strings"

	"ensemble/internal/core"

	gsheet "google.golang.org/api/sheets/v4"
)

// Layout locates the fields of an attendance record inside a row returned
// for the configured range. Indices are relative to the first column of
// that range.
type Layout struct {
	NameIndex     int
	CategoryIndex int
}

// NewLayout validates the column letters once so decoding never has to.
// firstCol is the first column of the attendance range ("A" for "A2:H").
func NewLayout(firstCol, nameCol, categoryCol string) (Layout, error) {
	first, err := columnIndex(firstCol)
	if err != nil {
		return Layout{}, fmt.Errorf("range start: %w", err)
	}
	name, err := columnIndex(nameCol)
	if err != nil {
		return Layout{}, fmt.Errorf("name column: %w", err)
	}
	cat, err := columnIndex(categoryCol)
	if err != nil {
		return Layout{}, fmt.Errorf("category column: %w", err)
	}
	if name < first || cat < first {
		return Layout{}, fmt.Errorf("columns %s/%s fall before range start %s", nameCol, categoryCol, firstCol)
	}
	if name == cat {
		return Layout{}, fmt.Errorf("name and category column are both %s", nameCol)
	}
	return Layout{NameIndex: name - first, CategoryIndex: cat - first}, nil
}

// columnIndex converts an A1 column ("A", "E", "AB") to a zero-based index.
func columnIndex(col string) (int, error) {
	col = strings.ToUpper(strings.TrimSpace(col))
	if col == "" {
		return 0, errors.New("empty column")
	}
	idx := 0
	for _, r := range col {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("invalid column %q", col)
		}
		idx = idx*26 + int(r-'A'+1)
	}
	return idx - 1, nil
}

// rangeStartColumn returns the column letters that open an A1 range like "A2:H".
func rangeStartColumn(rng string) string {
	start := strings.ToUpper(strings.TrimSpace(strings.SplitN(rng, ":", 2)[0]))
	end := strings.IndexFunc(start, func(r rune) bool { return r < 'A' || r > 'Z' })
	if end == -1 {
		return start
	}
	return start[:end]
}

// decodeRows turns a values matrix into typed rows. Short rows yield empty
// fields, which the tally treats as no match.
func decodeRows(values [][]interface{}, l Layout) []core.Row {
	out := make([]core.Row, 0, len(values))
	for _, raw := range values {
		cols := toStrings(raw)
		out = append(out, core.Row{
			Name:  safeGet(cols, l.NameIndex),
			Label: safeGet(cols, l.CategoryIndex),
		})
	}
	return out
}

// decodePieceNames reads the first column, skipping the header row, empty
// cells and duplicates while preserving order.
func decodePieceNames(values [][]interface{}) []string {
	if len(values) <= 1 {
		return nil
	}
	seen := map[string]struct{}{}
	var out []string
	for _, row := range values[1:] {
		if len(row) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(row[0]))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// a1Range builds "'<sheet>'!<rng>", quoting the sheet title.
func a1Range(sheet, rng string) string {
	quoted := "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	if rng == "" {
		return quoted
	}
	return quoted + "!" + rng
}

// findSheet looks up a tab by title.
func findSheet(ss *gsheet.Spreadsheet, title string) (int64, bool) {
	if ss == nil {
		return 0, false
	}
	for _, s := range ss.Sheets {
		if s == nil || s.Properties == nil {
			continue
		}
		if s.Properties.Title == title {
			return s.Properties.SheetId, true
		}
	}
	return 0, false
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
