package expr

import (
	"fmt"
	"strings"
)

func index(x, key any) (any, error) {
	switch v := x.(type) {
	case *Frame:
		return frameIndex(v, key)
	case *Series:
		return seriesIndex(v, key)
	case *List:
		if mask, ok := boolMask(key, len(v.Items)); ok && v.Array {
			var out []any
			for i, keep := range mask {
				if keep {
					out = append(out, v.Items[i])
				}
			}
			return &List{Items: out, Array: true}, nil
		}
		i, err := position(key, len(v.Items), TypeName(v))
		if err != nil {
			return nil, err
		}
		return v.Items[i], nil
	case string:
		runes := []rune(v)
		i, err := position(key, len(runes), "string")
		if err != nil {
			return nil, err
		}
		return string(runes[i]), nil
	case *GroupBy:
		return groupSelect(v, key)
	}
	return nil, errorf("TypeError: '%s' object is not subscriptable", TypeName(x))
}

// position resolves a Python-style integer index against length n.
func position(key any, n int, kind string) (int, error) {
	var i int64
	switch k := key.(type) {
	case int64:
		i = k
	case bool:
		i = boolInt(k)
	default:
		return 0, errorf("TypeError: %s indices must be integers, not %s", kind, TypeName(key))
	}
	if i < 0 {
		i += int64(n)
	}
	if i < 0 || i >= int64(n) {
		return 0, errorf("IndexError: %s index out of range", kind)
	}
	return int(i), nil
}

// boolMask reports whether key is a boolean vector of length n.
func boolMask(key any, n int) ([]bool, bool) {
	var items []any
	switch k := key.(type) {
	case *Series:
		items = k.Values
	case *List:
		items = k.Items
	default:
		return nil, false
	}
	if len(items) != n || n == 0 {
		return nil, false
	}
	out := make([]bool, n)
	for i, v := range items {
		b, ok := v.(bool)
		if !ok {
			return nil, false
		}
		out[i] = b
	}
	return out, true
}

func frameIndex(f *Frame, key any) (any, error) {
	switch k := key.(type) {
	case string:
		s, ok := f.Column(k)
		if !ok {
			return nil, errorf("KeyError: '%s'", k)
		}
		return s, nil
	case *Series:
		if maskLike(k.Values) {
			return filterFrame(f, k)
		}
	}
	if mask, ok := boolMask(key, f.Len()); ok {
		var rows []int
		for i, keep := range mask {
			if keep {
				rows = append(rows, i)
			}
		}
		return f.takeRows(rows), nil
	}
	if l, ok := key.(*List); ok {
		return selectColumns(f, l.Items)
	}
	if s, ok := key.(*Series); ok {
		return selectColumns(f, s.Values)
	}
	return nil, errorf("KeyError: %s", Format(key))
}

// maskLike reports whether vs holds booleans, possibly with gaps.
func maskLike(vs []any) bool {
	seen := false
	for _, v := range vs {
		switch v.(type) {
		case bool:
			seen = true
		case nil:
		default:
			return false
		}
	}
	return seen
}

func allBool(vs []any) bool {
	for _, v := range vs {
		if _, ok := v.(bool); !ok {
			return false
		}
	}
	return true
}

// filterFrame keeps rows whose label maps to True in mask.
func filterFrame(f *Frame, mask *Series) (*Frame, error) {
	if !allBool(mask.Values) {
		return nil, errorf("ValueError: Cannot mask with non-boolean array containing NA / NaN values")
	}
	if mask.Len() == f.Len() && sameLabels(mask.Index, f.Index) {
		var rows []int
		for i, v := range mask.Values {
			if v.(bool) {
				rows = append(rows, i)
			}
		}
		return f.takeRows(rows), nil
	}
	keep := map[any]bool{}
	for i, v := range mask.Values {
		keep[mask.Index[i]] = v.(bool)
	}
	var rows []int
	for i, label := range f.Index {
		b, ok := keep[label]
		if !ok {
			return nil, errorf("IndexingError: Unalignable boolean Series provided as indexer")
		}
		if b {
			rows = append(rows, i)
		}
	}
	return f.takeRows(rows), nil
}

func sameLabels(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func selectColumns(f *Frame, names []any) (*Frame, error) {
	out := &Frame{Index: f.Index}
	var missing []string
	for _, n := range names {
		name, ok := n.(string)
		if !ok {
			return nil, errorf("KeyError: %s", Format(n))
		}
		i := f.colIndex(name)
		if i < 0 {
			missing = append(missing, fmt.Sprintf("'%s'", name))
			continue
		}
		out.Cols = append(out.Cols, name)
		out.DTypes = append(out.DTypes, f.DTypes[i])
		out.Data = append(out.Data, f.Data[i])
	}
	if len(missing) > 0 {
		return nil, errorf("KeyError: \"None of [%s] are in the [columns]\"", strings.Join(missing, ", "))
	}
	return out, nil
}

func seriesIndex(s *Series, key any) (any, error) {
	if m, ok := key.(*Series); ok && maskLike(m.Values) {
		if !allBool(m.Values) {
			return nil, errorf("ValueError: Cannot mask with non-boolean array containing NA / NaN values")
		}
		if m.Len() == s.Len() {
			var rows []int
			for i, v := range m.Values {
				if v.(bool) {
					rows = append(rows, i)
				}
			}
			return s.takeRows(rows), nil
		}
	}
	if mask, ok := boolMask(key, s.Len()); ok {
		var rows []int
		for i, keep := range mask {
			if keep {
				rows = append(rows, i)
			}
		}
		return s.takeRows(rows), nil
	}
	for i, label := range s.Index {
		if equal(label, key, false) && sameKind(label, key) {
			return s.Values[i], nil
		}
	}
	// Integer keys fall back to position when the index is not integer.
	if k, ok := key.(int64); ok && !intIndex(s.Index) {
		i, err := position(k, s.Len(), "Series")
		if err != nil {
			return nil, err
		}
		return s.Values[i], nil
	}
	return nil, errorf("KeyError: %s", Format(key))
}

func sameKind(a, b any) bool {
	_, as := a.(string)
	_, bs := b.(string)
	return as == bs
}

func intIndex(idx []any) bool {
	for _, v := range idx {
		if _, ok := v.(int64); !ok {
			return false
		}
	}
	return len(idx) > 0
}

func sliceValue(x any, sl slice) (any, error) {
	switch v := x.(type) {
	case *Frame:
		return v.takeRows(sl.positions(v.Len())), nil
	case *Series:
		return v.takeRows(sl.positions(v.Len())), nil
	case *List:
		pos := sl.positions(len(v.Items))
		out := make([]any, len(pos))
		for k, p := range pos {
			out[k] = v.Items[p]
		}
		return &List{Items: out, Tuple: v.Tuple, Array: v.Array}, nil
	case string:
		runes := []rune(v)
		pos := sl.positions(len(runes))
		out := make([]rune, len(pos))
		for k, p := range pos {
			out[k] = runes[p]
		}
		return string(out), nil
	}
	return nil, errorf("TypeError: '%s' object is not subscriptable", TypeName(x))
}

func groupSelect(g *GroupBy, key any) (any, error) {
	switch k := key.(type) {
	case string:
		if g.frame.colIndex(k) < 0 {
			return nil, errorf("KeyError: 'Column not found: %s'", k)
		}
		return &GroupBy{frame: g.frame, keys: g.keys, selected: []string{k}, single: true}, nil
	case *List:
		var cols []string
		for _, it := range k.Items {
			name, ok := it.(string)
			if !ok || g.frame.colIndex(name) < 0 {
				return nil, errorf("KeyError: 'Columns not found: %s'", Format(it))
			}
			cols = append(cols, name)
		}
		return &GroupBy{frame: g.frame, keys: g.keys, selected: cols}, nil
	}
	return nil, errorf("KeyError: %s", Format(key))
}
