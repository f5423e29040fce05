package expr

import (
	"math"
	"sort"
	"strings"
)

// present drops missing values.
func present(vals []any) []any {
	out := make([]any, 0, len(vals))
	for _, v := range vals {
		if !isMissing(v) {
			out = append(out, v)
		}
	}
	return out
}

func floats(op string, vals []any) ([]float64, error) {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		f, ok := ToFloat(v)
		if !ok {
			return nil, errorf("TypeError: Could not convert %s to numeric for %s", Format(v), op)
		}
		out = append(out, f)
	}
	return out, nil
}

// reduce computes a pandas-style reduction over vals, skipping missing
// values. dtype selects the empty-sum result.
func reduce(op string, vals []any, dtype string) (any, error) {
	vs := present(vals)
	switch op {
	case "count":
		return int64(len(vs)), nil
	case "size":
		return int64(len(vals)), nil
	case "nunique":
		return int64(len(distinct(vs))), nil
	case "sum":
		return sum(vs, dtype)
	case "min", "max":
		if len(vs) == 0 {
			return math.NaN(), nil
		}
		best := vs[0]
		for _, v := range vs[1:] {
			c, err := order(v, best, "<")
			if err != nil {
				return nil, err
			}
			if (op == "min" && c < 0) || (op == "max" && c > 0) {
				best = v
			}
		}
		if b, ok := best.(bool); ok && dtype != "bool" {
			return boolInt(b), nil
		}
		return best, nil
	case "mean", "median", "std", "var":
		fs, err := floats(op, vs)
		if err != nil {
			return nil, err
		}
		switch op {
		case "mean":
			return mean(fs), nil
		case "median":
			return median(fs), nil
		case "var":
			return variance(fs, 1), nil
		}
		return math.Sqrt(variance(fs, 1)), nil
	}
	return nil, errorf("unsupported aggregation '%s'", op)
}

func sum(vs []any, dtype string) (any, error) {
	if len(vs) == 0 {
		if dtype == "float64" {
			return 0.0, nil
		}
		return int64(0), nil
	}
	if _, ok := vs[0].(string); ok {
		var b strings.Builder
		for _, v := range vs {
			s, ok := v.(string)
			if !ok {
				return nil, errorf("TypeError: can only concatenate str (not \"%s\") to str", TypeName(v))
			}
			b.WriteString(s)
		}
		return b.String(), nil
	}
	var acc any = int64(0)
	for _, v := range vs {
		if !isNumber(v) {
			return nil, errorf("TypeError: unsupported operand type(s) for +: '%s' and '%s'", TypeName(acc), TypeName(v))
		}
		next, err := binaryScalar("+", acc, v, false)
		if err != nil {
			return nil, err
		}
		acc = next
	}
	return acc, nil
}

func mean(fs []float64) float64 {
	if len(fs) == 0 {
		return math.NaN()
	}
	total := 0.0
	for _, f := range fs {
		total += f
	}
	return total / float64(len(fs))
}

func median(fs []float64) float64 {
	if len(fs) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), fs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

func variance(fs []float64, ddof int) float64 {
	if len(fs)-ddof <= 0 {
		return math.NaN()
	}
	m := mean(fs)
	ss := 0.0
	for _, f := range fs {
		ss += (f - m) * (f - m)
	}
	return ss / float64(len(fs)-ddof)
}

// hashKey maps a scalar to a comparable key; numbers compare by value.
func hashKey(v any) any {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case bool:
		return x
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		return x
	case *List:
		var b strings.Builder
		for _, it := range x.Items {
			b.WriteString(TypeName(it))
			b.WriteByte(':')
			b.WriteString(Format(it))
			b.WriteByte('\x00')
		}
		return b.String()
	}
	return v
}

// distinct returns values in first-seen order.
func distinct(vs []any) []any {
	seen := map[any]bool{}
	var out []any
	for _, v := range vs {
		k := hashKey(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}

// less orders values for sorting: numbers, then strings, then the rest by
// type name. Missing values never reach it.
func less(a, b any) bool {
	if c, err := order(a, b, "<"); err == nil {
		return c < 0
	}
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra < rb
	}
	if la, ok := a.(*List); ok {
		if lb, ok := b.(*List); ok {
			for i := 0; i < len(la.Items) && i < len(lb.Items); i++ {
				if less(la.Items[i], lb.Items[i]) {
					return true
				}
				if less(lb.Items[i], la.Items[i]) {
					return false
				}
			}
			return len(la.Items) < len(lb.Items)
		}
	}
	return Format(a) < Format(b)
}

func rank(v any) int {
	switch v.(type) {
	case int64, float64, bool:
		return 0
	case string:
		return 1
	}
	return 2
}

// sortPositions returns a stable ordering of positions with missing values
// last regardless of direction.
func sortPositions(n int, key func(i int) any, ascending bool) []int {
	pos := make([]int, n)
	for i := range pos {
		pos[i] = i
	}
	sort.SliceStable(pos, func(x, y int) bool {
		a, b := key(pos[x]), key(pos[y])
		am, bm := isMissing(a), isMissing(b)
		if am || bm {
			return !am && bm
		}
		if ascending {
			return less(a, b)
		}
		return less(b, a)
	})
	return pos
}
