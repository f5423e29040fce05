package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

type csvReader struct{}

func (csvReader) Extensions() []string { return []string{".csv"} }
func (csvReader) Kind() string         { return "CSV" }

func (csvReader) Read(path string, opt Options) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	// Excel-exported CSVs often start with a UTF-8 BOM.
	if head, err := br.Peek(3); err == nil && bytes.Equal(head, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}
	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.Comma = ','
	if opt.Decimal == ',' {
		// comma decimals imply semicolon-separated exports
		r.Comma = ';'
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		rows = append(rows, rec)
		if opt.MaxRows > 0 && len(rows) > opt.MaxRows {
			break
		}
	}
	return rows, nil
}
