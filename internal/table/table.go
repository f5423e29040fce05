// Package table holds the in-memory dataset a request works on and the
// loaders that build it from CSV and Excel files.
package table

import (
	"errors"
	"fmt"
	"strings"
)

// Column dtypes, named the way pandas reports them.
const (
	Int64   = "int64"
	Float64 = "float64"
	Bool    = "bool"
	Object  = "object"
)

// Column is a named, typed, read-only sequence of cells. Cells are nil
// (missing), int64, float64, bool or string.
type Column struct {
	name   string
	dtype  string
	values []any
}

func (c *Column) Name() string  { return c.name }
func (c *Column) DType() string { return c.dtype }
func (c *Column) Len() int      { return len(c.values) }

// Value returns the i-th cell.
func (c *Column) Value(i int) any { return c.values[i] }

// Values returns a copy of the cells.
func (c *Column) Values() []any {
	out := make([]any, len(c.values))
	copy(out, c.values)
	return out
}

// Table is an ordered set of uniquely named columns of equal length.
// It has no mutators; every consumer sees the data exactly as loaded.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// FromRecords builds a Table from a header row followed by data rows.
// Short rows are padded with missing cells, long rows grow the header
// with "Unnamed: N" columns. Column types are inferred per column.
func FromRecords(records [][]string, opt Options) (*Table, error) {
	if len(records) == 0 {
		return nil, errors.New("no columns to parse from file")
	}
	width := 0
	for _, r := range records {
		if len(r) > width {
			width = len(r)
		}
	}
	if width == 0 {
		return nil, errors.New("no columns to parse from file")
	}
	header := make([]string, width)
	copy(header, records[0])
	names := uniqueNames(header)
	data := records[1:]
	if opt.MaxRows > 0 && len(data) > opt.MaxRows {
		data = data[:opt.MaxRows]
	}

	t := &Table{index: make(map[string]int, width), rows: len(data)}
	for j, name := range names {
		raw := make([]string, len(data))
		for i, r := range data {
			if j < len(r) {
				raw[i] = r[j]
			}
		}
		dtype, values := inferColumn(raw, opt)
		t.index[name] = len(t.cols)
		t.cols = append(t.cols, &Column{name: name, dtype: dtype, values: values})
	}
	return t, nil
}

// FromColumns builds a Table from already typed columns, mostly for tests.
// All columns must have the same length and unique names.
func FromColumns(names []string, columns [][]any) (*Table, error) {
	if len(names) != len(columns) {
		return nil, fmt.Errorf("got %d names for %d columns", len(names), len(columns))
	}
	t := &Table{index: make(map[string]int, len(names))}
	for j, name := range names {
		if _, dup := t.index[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		if j == 0 {
			t.rows = len(columns[j])
		} else if len(columns[j]) != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", name, len(columns[j]), t.rows)
		}
		dtype, values := normalizeColumn(columns[j])
		t.index[name] = j
		t.cols = append(t.cols, &Column{name: name, dtype: dtype, values: values})
	}
	return t, nil
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.name
	}
	return out
}

func (t *Table) NumRows() int { return t.rows }
func (t *Table) NumCols() int { return len(t.cols) }

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// ColumnAt returns the i-th column.
func (t *Table) ColumnAt(i int) *Column { return t.cols[i] }

// uniqueNames fills blank headers and de-duplicates repeats as name, name.1, name.2.
func uniqueNames(header []string) []string {
	out := make([]string, len(header))
	taken := make(map[string]bool, len(header))
	next := make(map[string]int)
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if taken[name] {
			base, k := name, next[name]
			for {
				k++
				if cand := fmt.Sprintf("%s.%d", base, k); !taken[cand] {
					name = cand
					break
				}
			}
			next[base] = k
		}
		taken[name] = true
		out[i] = name
	}
	return out
}
