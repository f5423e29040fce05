package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Rows beyond this are elided the way pandas truncates long output.
const (
	maxDisplayRows = 60
	edgeRows       = 5
)

// Format renders v the way Python's str() would.
func Format(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case *Series:
		return formatSeries(x)
	case *Frame:
		return formatFrame(x)
	}
	return repr(v)
}

func repr(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case bool:
		if x {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatFloat(x)
	case string:
		return quote(x)
	case *List:
		return formatList(x)
	case *Series, *Frame:
		return Format(v)
	case *GroupBy:
		return fmt.Sprintf("<pandas.core.groupby.generic.%s object>", TypeName(x))
	case *StrAccessor:
		return "<pandas.core.strings.accessor.StringMethods object>"
	case *Builtin:
		return fmt.Sprintf("<built-in function %s>", x.Name)
	case *boundMethod:
		return fmt.Sprintf("<bound method %s of %s>", x.name, TypeName(x.recv))
	case *Namespace:
		return fmt.Sprintf("<module '%s'>", x.Name)
	case Func:
		return "<function>"
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func quote(s string) string {
	q := byte('\'')
	if strings.Contains(s, "'") && !strings.Contains(s, "\"") {
		q = '"'
	}
	var b strings.Builder
	b.WriteByte(q)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if r == rune(q) {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte(q)
	return b.String()
}

func formatList(l *List) string {
	parts := make([]string, len(l.Items))
	for i, it := range l.Items {
		parts[i] = repr(it)
	}
	switch {
	case l.Array:
		return "[" + strings.Join(parts, " ") + "]"
	case l.Tuple:
		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// cell renders a value inside a Series or DataFrame.
func cell(v any, dtype string) string {
	switch x := v.(type) {
	case nil:
		if dtype == "object" {
			return "None"
		}
		return "NaN"
	case float64:
		if math.IsNaN(x) {
			return "NaN"
		}
		return formatFloat(x)
	case string:
		return x
	}
	return repr(v)
}

func label(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return repr(v)
}

// visibleRows returns the row positions to print and whether output was
// truncated.
func visibleRows(n int) ([]int, bool) {
	if n <= maxDisplayRows {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out, false
	}
	out := make([]int, 0, 2*edgeRows)
	for i := 0; i < edgeRows; i++ {
		out = append(out, i)
	}
	for i := n - edgeRows; i < n; i++ {
		out = append(out, i)
	}
	return out, true
}

func width(s string) int { return utf8.RuneCountInString(s) }

func fill(s string, w int) string { return strings.Repeat(" ", max(0, w-width(s))) }

func padRight(s string, w int) string { return s + fill(s, w) }

func padLeft(s string, w int) string { return fill(s, w) + s }

func formatSeries(s *Series) string {
	footer := "dtype: " + s.DType
	if s.Name != "" {
		footer = "Name: " + s.Name + ", " + footer
	}
	if s.Len() == 0 {
		return "Series([], " + footer + ")"
	}
	rows, truncated := visibleRows(s.Len())
	if truncated {
		footer = fmt.Sprintf("Length: %d, %s", s.Len(), footer)
		if s.Name != "" {
			footer = fmt.Sprintf("Name: %s, Length: %d, dtype: %s", s.Name, s.Len(), s.DType)
		}
	}
	labels := make([]string, len(rows))
	vals := make([]string, len(rows))
	lw, vw := width(s.IndexName), 0
	for k, r := range rows {
		labels[k] = label(s.Index[r])
		vals[k] = cell(s.Values[r], s.DType)
		lw = max(lw, width(labels[k]))
		vw = max(vw, width(vals[k]))
	}
	var b strings.Builder
	if s.IndexName != "" {
		b.WriteString(s.IndexName + "\n")
	}
	for k := range rows {
		if truncated && k == edgeRows {
			b.WriteString(padRight("..", lw) + "    " + padLeft("...", vw) + "\n")
		}
		b.WriteString(padRight(labels[k], lw) + "    " + padLeft(vals[k], vw) + "\n")
	}
	b.WriteString(footer)
	return b.String()
}

func formatFrame(f *Frame) string {
	if f.Len() == 0 || len(f.Cols) == 0 {
		cols := make([]string, len(f.Cols))
		copy(cols, f.Cols)
		idx := make([]string, len(f.Index))
		for i, v := range f.Index {
			idx[i] = label(v)
		}
		return fmt.Sprintf("Empty DataFrame\nColumns: [%s]\nIndex: [%s]", strings.Join(cols, ", "), strings.Join(idx, ", "))
	}
	rows, truncated := visibleRows(f.Len())
	labels := make([]string, len(rows))
	lw := width(f.IndexName)
	for k, r := range rows {
		labels[k] = label(f.Index[r])
		lw = max(lw, width(labels[k]))
	}
	cells := make([][]string, len(f.Cols))
	widths := make([]int, len(f.Cols))
	for j, name := range f.Cols {
		widths[j] = width(name)
		cells[j] = make([]string, len(rows))
		for k, r := range rows {
			cells[j][k] = cell(f.Data[j][r], f.DTypes[j])
			widths[j] = max(widths[j], width(cells[j][k]))
		}
	}
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", lw))
	for j, name := range f.Cols {
		b.WriteString("  " + padLeft(name, widths[j]))
	}
	b.WriteString("\n")
	if f.IndexName != "" {
		b.WriteString(padRight(f.IndexName, lw) + "\n")
	}
	for k := range rows {
		if truncated && k == edgeRows {
			b.WriteString(padRight("..", lw))
			for j := range f.Cols {
				b.WriteString("  " + padLeft("...", widths[j]))
			}
			b.WriteString("\n")
		}
		b.WriteString(padRight(labels[k], lw))
		for j := range f.Cols {
			b.WriteString("  " + padLeft(cells[j][k], widths[j]))
		}
		if k < len(rows)-1 || truncated {
			b.WriteString("\n")
		}
	}
	if truncated {
		fmt.Fprintf(&b, "\n[%d rows x %d columns]", f.Len(), len(f.Cols))
	}
	return b.String()
}
