package expr

import (
	"math"

	"github.com/KaramelBytes/datask-cli/internal/table"
)

// Values flowing through the evaluator are nil, bool, int64, float64,
// string, or one of the pointer types below.

// List is a Python list or tuple, or a NumPy-style array when Array is set.
// Arrays broadcast comparisons and arithmetic element-wise.
type List struct {
	Items []any
	Tuple bool
	Array bool
}

// Series is a labelled one-dimensional column of values.
type Series struct {
	Name      string
	IndexName string
	Index     []any
	Values    []any
	DType     string
}

// Len returns the number of elements.
func (s *Series) Len() int { return len(s.Values) }

// Frame is a labelled two-dimensional table. Data is column-major.
type Frame struct {
	Cols      []string
	DTypes    []string
	Data      [][]any
	Index     []any
	IndexName string
}

// NewFrame copies t into a Frame labelled 0..n-1.
func NewFrame(t *table.Table) *Frame {
	f := &Frame{Index: make([]any, t.NumRows())}
	for i := range f.Index {
		f.Index[i] = int64(i)
	}
	for i := 0; i < t.NumCols(); i++ {
		c := t.ColumnAt(i)
		f.Cols = append(f.Cols, c.Name())
		f.DTypes = append(f.DTypes, c.DType())
		f.Data = append(f.Data, c.Values())
	}
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Index) }

// Columns returns the column names.
func (f *Frame) Columns() []string { return append([]string(nil), f.Cols...) }

func (f *Frame) colIndex(name string) int {
	for i, c := range f.Cols {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a column as a Series sharing the frame's index.
func (f *Frame) Column(name string) (*Series, bool) {
	i := f.colIndex(name)
	if i < 0 {
		return nil, false
	}
	return &Series{Name: name, IndexName: f.IndexName, Index: f.Index, Values: f.Data[i], DType: f.DTypes[i]}, true
}

// takeRows builds a new frame from the given row positions.
func (f *Frame) takeRows(rows []int) *Frame {
	out := &Frame{Cols: f.Cols, DTypes: f.DTypes, IndexName: f.IndexName, Index: make([]any, len(rows)), Data: make([][]any, len(f.Cols))}
	for k, r := range rows {
		out.Index[k] = f.Index[r]
	}
	for j, col := range f.Data {
		vals := make([]any, len(rows))
		for k, r := range rows {
			vals[k] = col[r]
		}
		out.Data[j] = vals
	}
	return out
}

// takeRows builds a new series from the given positions.
func (s *Series) takeRows(rows []int) *Series {
	out := &Series{Name: s.Name, IndexName: s.IndexName, DType: s.DType, Index: make([]any, len(rows)), Values: make([]any, len(rows))}
	for k, r := range rows {
		out.Index[k] = s.Index[r]
		out.Values[k] = s.Values[r]
	}
	return out
}

// GroupBy is the lazy result of DataFrame.groupby.
type GroupBy struct {
	frame    *Frame
	keys     []string
	selected []string
	single   bool
}

// StrAccessor is the Series.str namespace.
type StrAccessor struct {
	s *Series
}

// Func is a host function exposed to expressions.
type Func func(args []any, kwargs map[string]any) (any, error)

// Builtin is a named host function such as len.
type Builtin struct {
	Name string
	Fn   Func
}

// Namespace groups host functions under one name, such as plt.
type Namespace struct {
	Name  string
	Funcs map[string]Func
}

type boundMethod struct {
	recv any
	name string
	fn   method
}

// dtypeOf reports the pandas dtype a slice of values would carry.
func dtypeOf(values []any) string {
	ints, floats, bools, other, missing := 0, 0, 0, 0, 0
	for _, v := range values {
		switch v.(type) {
		case nil:
			missing++
		case int64:
			ints++
		case float64:
			floats++
		case bool:
			bools++
		default:
			other++
		}
	}
	switch {
	case other > 0 || (bools > 0 && ints+floats+missing > 0):
		return table.Object
	case bools > 0:
		return table.Bool
	case floats > 0 || (ints > 0 && missing > 0):
		return table.Float64
	case ints > 0:
		return table.Int64
	case missing > 0:
		return table.Float64
	}
	return table.Object
}

func newSeries(name string, index, values []any) *Series {
	return &Series{Name: name, Index: index, Values: values, DType: dtypeOf(values)}
}

func rangeIndex(n int) []any {
	idx := make([]any, n)
	for i := range idx {
		idx[i] = int64(i)
	}
	return idx
}

// TypeName returns the Python-facing type name of v.
func TypeName(v any) string {
	switch x := v.(type) {
	case nil:
		return "NoneType"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "str"
	case *List:
		switch {
		case x.Array:
			return "ndarray"
		case x.Tuple:
			return "tuple"
		}
		return "list"
	case *Series:
		return "Series"
	case *Frame:
		return "DataFrame"
	case *GroupBy:
		if x.single {
			return "SeriesGroupBy"
		}
		return "DataFrameGroupBy"
	case *StrAccessor:
		return "StringMethods"
	case *Builtin:
		return "builtin_function_or_method"
	case *boundMethod:
		return "method"
	case *Namespace:
		return "module"
	case Func:
		return "function"
	}
	return "object"
}

// ToFloat converts numeric and boolean scalars to float64.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func isNumber(v any) bool {
	switch v.(type) {
	case int64, float64, bool:
		return true
	}
	return false
}

func isMissing(v any) bool {
	if v == nil {
		return true
	}
	f, ok := v.(float64)
	return ok && math.IsNaN(f)
}

// Items returns the elements of an iterable value.
func Items(v any) ([]any, bool) {
	switch x := v.(type) {
	case *List:
		return x.Items, true
	case *Series:
		return x.Values, true
	case *Frame:
		out := make([]any, len(x.Cols))
		for i, c := range x.Cols {
			out[i] = c
		}
		return out, true
	case string:
		out := []any{}
		for _, r := range x {
			out = append(out, string(r))
		}
		return out, true
	}
	return nil, false
}
