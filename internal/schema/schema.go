// Package schema derives the compact table description handed to the
// translators: column names, and per column its dtype and distinct count.
package schema

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/datask-cli/internal/table"
)

// ColumnDetail is the per-column part of a Description.
type ColumnDetail struct {
	Name   string
	DType  string
	Unique int
}

// Description is built fresh for every request and never cached.
type Description struct {
	Columns []string
	Details []ColumnDetail
}

// Describe inspects t without modifying it. A table with no columns
// yields an empty Description.
func Describe(t *table.Table) Description {
	var d Description
	if t == nil {
		return d
	}
	for i := 0; i < t.NumCols(); i++ {
		c := t.ColumnAt(i)
		d.Columns = append(d.Columns, c.Name())
		d.Details = append(d.Details, ColumnDetail{Name: c.Name(), DType: c.DType(), Unique: nunique(c)})
	}
	return d
}

// ColumnList renders the names as a Python-style list: ['Person', 'Dept'].
func (d Description) ColumnList() string {
	parts := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		parts[i] = quote(c)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Summary renders the dtype and distinct-count table used by the
// visualization prompt.
func (d Description) Summary() string {
	if len(d.Details) == 0 {
		return "Empty DataFrame\nColumns: []"
	}
	nameW, typeW := 0, len("Data types")
	for _, c := range d.Details {
		nameW = max(nameW, len(c.Name))
		typeW = max(typeW, len(c.DType))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-*s  %-*s  %s\n", nameW, "", typeW, "Data types", "Unique values")
	for _, c := range d.Details {
		fmt.Fprintf(&b, "%-*s  %-*s  %d\n", nameW, c.Name, typeW, c.DType, c.Unique)
	}
	return strings.TrimRight(b.String(), "\n")
}

func nunique(c *table.Column) int {
	seen := make(map[any]struct{}, c.Len())
	for i := 0; i < c.Len(); i++ {
		v := c.Value(i)
		if v == nil {
			continue
		}
		seen[v] = struct{}{}
	}
	return len(seen)
}

func quote(s string) string {
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
