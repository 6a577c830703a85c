package spreadsheet

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"attendance/internal/apperr"
)

// Row maps a column name to its cell value.
type Row map[string]any

// Table is the first sheet of a workbook with a header row.
type Table struct {
	Columns []string
	Rows    [][]any
}

// ColumnValues returns every column with its ordered cell values.
func (t *Table) ColumnValues() map[string][]any {
	out := make(map[string][]any, len(t.Columns))
	for i, col := range t.Columns {
		values := make([]any, len(t.Rows))
		for r, row := range t.Rows {
			values[r] = row[i]
		}
		out[col] = values
	}
	return out
}

// Project selects columns from every row. Unknown columns fail the whole
// projection.
func (t *Table) Project(columns []string) ([]Row, error) {
	index := make(map[string]int, len(t.Columns))
	for i, col := range t.Columns {
		index[col] = i
	}
	var missing []string
	for _, col := range columns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.Processing(fmt.Errorf("columns not found in spreadsheet: %s", strings.Join(missing, ", ")))
	}

	rows := make([]Row, len(t.Rows))
	for r, cells := range t.Rows {
		row := make(Row, len(columns))
		for _, col := range columns {
			row[col] = cells[index[col]]
		}
		rows[r] = row
	}
	return rows, nil
}

type cellKind uint8

const (
	kindEmpty cellKind = iota
	kindText
	kindNumber
	kindBool
	// kindUntyped holds display text from a reader that cannot tell types
	// apart.
	kindUntyped
)

// cell is one value as read from a workbook, before column typing.
type cell struct {
	kind  cellKind
	value string
}

func (c cell) text() string {
	if c.kind == kindEmpty {
		return ""
	}
	return c.value
}

// newTable turns read cells into a typed table. records[0] is the header.
func newTable(records [][]cell) *Table {
	if len(records) == 0 {
		return &Table{Columns: []string{}, Rows: [][]any{}}
	}
	header := records[0]
	width := len(header)
	for _, rec := range records[1:] {
		if len(rec) > width {
			width = len(rec)
		}
	}

	names := make([]string, len(header))
	for i, c := range header {
		names[i] = c.text()
	}
	t := &Table{Columns: headerNames(names, width)}

	var body [][]cell
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		padded := make([]cell, width)
		copy(padded, rec)
		body = append(body, padded)
	}

	t.Rows = make([][]any, len(body))
	for r := range body {
		t.Rows[r] = make([]any, width)
	}
	for c := 0; c < width; c++ {
		integral := numbersIntegral(body, c)
		for r := range body {
			t.Rows[r][c] = convert(body[r][c], integral)
		}
	}
	return t
}

// headerNames names empty headers "Unnamed: i" and suffixes duplicates
// with ".1", ".2".
func headerNames(header []string, width int) []string {
	names := make([]string, width)
	used := make(map[string]bool, width)
	for i := 0; i < width; i++ {
		base := ""
		if i < len(header) {
			base = strings.TrimSpace(header[i])
		}
		if base == "" {
			base = "Unnamed: " + strconv.Itoa(i)
		}
		name := base
		for n := 1; used[name]; n++ {
			name = base + "." + strconv.Itoa(n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func blank(rec []cell) bool {
	for _, c := range rec {
		if strings.TrimSpace(c.text()) != "" {
			return false
		}
	}
	return true
}

// number returns the numeric value of c. Untyped text only counts when it
// is the canonical spelling of its value, so "00123" stays text.
func number(c cell) (float64, bool) {
	switch c.kind {
	case kindNumber:
		return parseFloat(strings.TrimSpace(c.value))
	case kindUntyped:
		f, ok := parseFloat(c.value)
		if !ok || strconv.FormatFloat(f, 'f', -1, 64) != c.value {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// numbersIntegral reports whether every number in column c is a whole
// value that fits an int64 exactly.
func numbersIntegral(body [][]cell, c int) bool {
	for _, rec := range body {
		f, ok := number(rec[c])
		if !ok {
			continue
		}
		if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return false
		}
	}
	return true
}

// convert types one cell. Numbers are int64 when the column's numbers are
// all whole and float64 otherwise; text passes through unchanged.
func convert(c cell, integral bool) any {
	if strings.TrimSpace(c.text()) == "" {
		return nil
	}
	if f, ok := number(c); ok {
		if integral {
			return int64(f)
		}
		return f
	}
	if c.kind == kindBool {
		b, ok := parseBool(c.value)
		if ok {
			return b
		}
	}
	return c.value
}

// parseFloat rejects NaN and infinities, which JSON cannot carry.
func parseFloat(v string) (float64, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseBool(v string) (bool, bool) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "1", "TRUE":
		return true, true
	case "0", "FALSE":
		return false, true
	}
	return false, false
}
