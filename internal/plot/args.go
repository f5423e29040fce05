package plot

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/datask-cli/internal/expr"
)

// call is the argument view of one plt or sns invocation.
type call struct {
	name string
	pos  []any
	kw   map[string]any
}

// arg returns positional i or keyword key, whichever is present.
func (c call) arg(i int, key string) (any, bool) {
	if key != "" {
		if v, ok := c.kw[key]; ok {
			return v, true
		}
	}
	if i >= 0 && i < len(c.pos) {
		return c.pos[i], true
	}
	return nil, false
}

func (c call) str(key string) string {
	if s, ok := c.kw[key].(string); ok {
		return s
	}
	return ""
}

func (c call) intArg(key string, def int) (int, error) {
	v, ok := c.kw[key]
	if !ok || v == nil {
		return def, nil
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("TypeError: %s() argument '%s' must be int, not %s", c.name, key, expr.TypeName(v))
	}
	return int(n), nil
}

func (c call) errorf(format string, args ...any) error {
	return fmt.Errorf("%s(): "+format, append([]any{c.name}, args...)...)
}

// vector is one resolved data argument.
type vector struct {
	name   string
	index  []any
	values []any
}

// resolve turns a plotting argument into values. A string names a column of
// data; Series, lists and arrays are used directly.
func (c call) resolve(v any, data *expr.Frame) (vector, error) {
	switch x := v.(type) {
	case string:
		if data == nil {
			return vector{}, c.errorf("ValueError: column name '%s' given without data", x)
		}
		s, ok := data.Column(x)
		if !ok {
			return vector{}, c.errorf("KeyError: '%s'", x)
		}
		return vector{name: x, index: s.Index, values: s.Values}, nil
	case *expr.Series:
		return vector{name: x.Name, index: x.Index, values: x.Values}, nil
	case *expr.List:
		idx := make([]any, len(x.Items))
		for i := range idx {
			idx[i] = int64(i)
		}
		return vector{index: idx, values: x.Items}, nil
	case *expr.Frame:
		return vector{}, c.errorf("ValueError: expected one-dimensional data, got DataFrame")
	}
	return vector{}, c.errorf("TypeError: cannot plot %s", expr.TypeName(v))
}

// dataFrame returns the data argument, given as data= or as a leading
// positional DataFrame.
func (c call) dataFrame() (*expr.Frame, error) {
	v, ok := c.kw["data"]
	if !ok && len(c.pos) > 0 {
		if f, isFrame := c.pos[0].(*expr.Frame); isFrame {
			return f, nil
		}
	}
	if !ok || v == nil {
		return nil, nil
	}
	f, ok := v.(*expr.Frame)
	if !ok {
		return nil, c.errorf("TypeError: data must be a DataFrame, not %s", expr.TypeName(v))
	}
	return f, nil
}

// numbers converts values to floats. Missing values are skipped when
// skipMissing is set and otherwise become NaN.
func (c call) numbers(vals []any, skipMissing bool) ([]float64, error) {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if v == nil {
			if !skipMissing {
				out = append(out, math.NaN())
			}
			continue
		}
		f, ok := expr.ToFloat(v)
		if !ok {
			return nil, c.errorf("TypeError: non-numeric value %s", expr.Format(v))
		}
		if math.IsNaN(f) && skipMissing {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func labels(vals []any) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		if v == nil {
			out[i] = "NaN"
			continue
		}
		out[i] = expr.Format(v)
	}
	return out
}

func isNumeric(dtype string) bool {
	switch dtype {
	case "int64", "float64":
		return true
	}
	return false
}
