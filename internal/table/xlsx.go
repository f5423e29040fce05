package table

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

type xlsxReader struct{}

func (xlsxReader) Extensions() []string { return []string{".xlsx"} }
func (xlsxReader) Kind() string         { return "Excel" }

// Read returns the raw (unformatted) cell values of the selected sheet.
func (xlsxReader) Read(path string, opt Options) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := sheets[0]
	if opt.Sheet != "" {
		if idx, err := f.GetSheetIndex(opt.Sheet); err != nil || idx < 0 {
			return nil, fmt.Errorf("sheet %q not found (have %s)", opt.Sheet, strings.Join(sheets, ", "))
		}
		sheet = opt.Sheet
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return dropBlankRows(rows, opt.MaxRows), nil
}

// dropBlankRows removes rows with no non-space cell, keeping at most
// limit data rows after the header when limit > 0.
func dropBlankRows(rows [][]string, limit int) [][]string {
	out := rows[:0]
	for _, r := range rows {
		blank := true
		for _, c := range r {
			if strings.TrimSpace(c) != "" {
				blank = false
				break
			}
		}
		if blank {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) > limit {
			break
		}
	}
	return out
}
