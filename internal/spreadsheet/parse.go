package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var (
	zipMagic = []byte{'P', 'K', 0x03, 0x04}
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// BIFF8 allows at most 256 columns per sheet.
const xlsMaxCols = 256

// Parse decodes an .xlsx or legacy .xls workbook. The format is detected
// from the content, not the file name.
func Parse(data []byte) (*Table, error) {
	var (
		records [][]cell
		err     error
	)
	switch {
	case bytes.HasPrefix(data, zipMagic):
		records, err = readXLSX(data)
	case bytes.HasPrefix(data, oleMagic):
		records, err = readXLS(data)
	case len(data) == 0:
		err = errors.New("uploaded file is empty")
	default:
		err = errors.New("unsupported file format: expected .xlsx or .xls")
	}
	if err != nil {
		return nil, err
	}
	return newTable(records), nil
}

// readXLSX reads raw cell values so number formats never leak into the
// data. Cell types come from the workbook itself.
func readXLSX(data []byte) ([][]cell, error) {
	raw := excelize.Options{RawCellValue: true}
	file, err := excelize.OpenReader(bytes.NewReader(data), raw)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no worksheet found")
	}
	sheet := sheets[0]
	rows, err := file.GetRows(sheet, raw)
	if err != nil {
		return nil, err
	}

	r := xlsxReader{file: file, sheet: sheet, dateStyles: make(map[int]bool)}
	if props, err := file.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		r.date1904 = *props.Date1904
	}

	records := make([][]cell, len(rows))
	for i, row := range rows {
		cells := make([]cell, len(row))
		for c, value := range row {
			if strings.TrimSpace(value) == "" {
				continue
			}
			if cells[c], err = r.cell(c+1, i+1, value); err != nil {
				return nil, err
			}
		}
		records[i] = cells
	}
	return records, nil
}

type xlsxReader struct {
	file       *excelize.File
	sheet      string
	date1904   bool
	dateStyles map[int]bool
}

func (r *xlsxReader) cell(col, row int, value string) (cell, error) {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return cell{}, err
	}
	typ, err := r.file.GetCellType(r.sheet, name)
	if err != nil {
		return cell{}, err
	}

	switch typ {
	case excelize.CellTypeBool:
		return cell{kind: kindBool, value: value}, nil
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return cell{kind: kindText, value: value}, nil
		}
		isDate, err := r.dateFormatted(name)
		if err != nil {
			return cell{}, err
		}
		if isDate {
			if t, err := excelize.ExcelDateToTime(f, r.date1904); err == nil {
				return cell{kind: kindText, value: formatDate(t)}, nil
			}
		}
		return cell{kind: kindNumber, value: value}, nil
	default:
		return cell{kind: kindText, value: value}, nil
	}
}

func (r *xlsxReader) dateFormatted(name string) (bool, error) {
	idx, err := r.file.GetCellStyle(r.sheet, name)
	if err != nil {
		return false, err
	}
	if isDate, ok := r.dateStyles[idx]; ok {
		return isDate, nil
	}
	isDate := false
	if style, err := r.file.GetStyle(idx); err == nil {
		isDate = isDateStyle(style)
	}
	r.dateStyles[idx] = isDate
	return isDate, nil
}

func isDateStyle(style *excelize.Style) bool {
	switch id := style.NumFmt; {
	case id >= 14 && id <= 22, id >= 27 && id <= 36, id >= 45 && id <= 47, id >= 50 && id <= 58:
		return true
	}
	return style.CustomNumFmt != nil && isDateCode(*style.CustomNumFmt)
}

// isDateCode reports whether a custom number format prints date or time
// parts. Quoted literals, bracketed sections and escaped characters are
// ignored.
func isDateCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket, escaped := false, false, false
	for _, ch := range code {
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '"':
			inQuote = !inQuote
		case inQuote:
		case ch == '[':
			inBracket = true
		case ch == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(ch)
		}
	}
	return strings.ContainsAny(strings.ToLower(b.String()), "ymdhs")
}

func formatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02T15:04:05")
}

// readXLS only sees display strings, so every non-empty cell is untyped and
// typed later from its text.
func readXLS(data []byte) ([][]cell, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if workbook == nil || workbook.NumSheets() == 0 {
		return nil, fmt.Errorf("no worksheet found")
	}
	sheet := workbook.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("no worksheet found")
	}

	records := make([][]cell, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			records = append(records, nil)
			continue
		}
		width := row.LastCol()
		if width <= 0 || width > xlsMaxCols {
			width = xlsMaxCols
		}
		cells := make([]cell, width)
		last := 0
		for c := range cells {
			value := row.Col(c)
			if strings.TrimSpace(value) == "" {
				continue
			}
			cells[c] = cell{kind: kindUntyped, value: value}
			last = c + 1
		}
		records = append(records, cells[:last])
	}
	return records, nil
}

// xlsRow returns nil for rows the sheet has no record of. The library
// dereferences the missing row instead of returning nil.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}
