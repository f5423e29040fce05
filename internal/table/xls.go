package table

import (
	"fmt"
	"strings"
	"unicode/utf8"

	xls "github.com/shakinm/xlsReader/xls"
	"golang.org/x/text/encoding/charmap"
)

type xlsReader struct{}

func (xlsReader) Extensions() []string { return []string{".xls"} }
func (xlsReader) Kind() string         { return "Excel" }

// Read loads a legacy BIFF workbook. Strings stored in a code page are
// decoded as Windows-1252. The reader indexes records without bounds
// checks, so a truncated workbook panics; that is reported as an error.
func (xlsReader) Read(path string, opt Options) (rows [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("malformed xls workbook: %v", r)
		}
	}()
	wb, err := xls.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if wb.GetNumberSheets() == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	idx := 0
	if opt.Sheet != "" {
		idx = -1
		var names []string
		for i := 0; i < wb.GetNumberSheets(); i++ {
			s, err := wb.GetSheet(i)
			if err != nil {
				continue
			}
			names = append(names, s.GetName())
			if s.GetName() == opt.Sheet {
				idx = i
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("sheet %q not found (have %s)", opt.Sheet, strings.Join(names, ", "))
		}
	}
	sheet, err := wb.GetSheet(idx)
	if err != nil {
		return nil, fmt.Errorf("read sheet %d: %w", idx, err)
	}

	width := 0
	for r := 0; r <= sheet.GetNumberRows(); r++ {
		row, err := sheet.GetRow(r)
		if err != nil {
			continue
		}
		cols := row.GetCols()
		rec := make([]string, len(cols))
		for c, cell := range cols {
			rec[c] = toUTF8(cell.GetString())
		}
		rows = append(rows, rec)
		if len(rec) > width {
			width = len(rec)
		}
	}
	rows = dropBlankRows(rows, opt.MaxRows)
	for i, r := range rows {
		if len(r) < width {
			p := make([]string, width)
			copy(p, r)
			rows[i] = p
		}
	}
	return rows, nil
}

func toUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	decoded, err := charmap.Windows1252.NewDecoder().String(s)
	if err != nil {
		return strings.ToValidUTF8(s, "\uFFFD")
	}
	return decoded
}
