package expr

import (
	"math"
	"sort"
)

func init() {
	for _, op := range []string{"count", "sum", "mean", "median", "min", "max", "std", "var", "nunique"} {
		op := op
		seriesMethods[op] = func(recv any, a callArgs) (any, error) {
			if err := a.check(0, "skipna", "numeric_only", "ddof", "dropna"); err != nil {
				return nil, err
			}
			s := recv.(*Series)
			if op == "std" || op == "var" {
				ddof, err := a.intArg(-1, "ddof", 1)
				if err != nil {
					return nil, err
				}
				fs, err := floats(op, present(s.Values))
				if err != nil {
					return nil, err
				}
				v := variance(fs, int(ddof))
				if op == "std" {
					return math.Sqrt(v), nil
				}
				return v, nil
			}
			return reduce(op, s.Values, s.DType)
		}
	}
	seriesMethods["unique"] = seriesUnique
	seriesMethods["value_counts"] = seriesValueCounts
	seriesMethods["idxmax"] = seriesArg(true)
	seriesMethods["idxmin"] = seriesArg(false)
	seriesMethods["sort_values"] = seriesSortValues
	seriesMethods["head"] = seriesHeadTail(true)
	seriesMethods["tail"] = seriesHeadTail(false)
	seriesMethods["tolist"] = seriesToList
	seriesMethods["to_list"] = seriesToList
	seriesMethods["isin"] = seriesIsin
	seriesMethods["isna"] = seriesMissing(true)
	seriesMethods["isnull"] = seriesMissing(true)
	seriesMethods["notna"] = seriesMissing(false)
	seriesMethods["notnull"] = seriesMissing(false)
	seriesMethods["round"] = seriesRound
	seriesMethods["abs"] = seriesAbs
	seriesMethods["nlargest"] = seriesN(false)
	seriesMethods["nsmallest"] = seriesN(true)
	seriesMethods["any"] = seriesAnyAll(true)
	seriesMethods["all"] = seriesAnyAll(false)
	seriesMethods["between"] = seriesBetween
	seriesMethods["mode"] = seriesMode
	seriesMethods["dropna"] = seriesDropna
}

func seriesUnique(recv any, a callArgs) (any, error) {
	if err := a.check(0); err != nil {
		return nil, err
	}
	s := recv.(*Series)
	return &List{Items: distinct(s.Values), Array: true}, nil
}

func seriesValueCounts(recv any, a callArgs) (any, error) {
	if err := a.check(0, "normalize", "ascending", "sort", "dropna"); err != nil {
		return nil, err
	}
	normalize, err := a.boolArg(-1, "normalize", false)
	if err != nil {
		return nil, err
	}
	ascending, err := a.boolArg(-1, "ascending", false)
	if err != nil {
		return nil, err
	}
	doSort, err := a.boolArg(-1, "sort", true)
	if err != nil {
		return nil, err
	}
	s := recv.(*Series)
	vs := present(s.Values)
	keys := distinct(vs)
	counts := map[any]int64{}
	for _, v := range vs {
		counts[hashKey(v)]++
	}
	if doSort {
		sort.SliceStable(keys, func(i, j int) bool {
			ci, cj := counts[hashKey(keys[i])], counts[hashKey(keys[j])]
			if ascending {
				return ci < cj
			}
			return ci > cj
		})
	}
	out := &Series{Name: "count", IndexName: s.Name, Index: keys, Values: make([]any, len(keys)), DType: "int64"}
	for i, k := range keys {
		c := counts[hashKey(k)]
		if normalize {
			out.Values[i] = float64(c) / float64(len(vs))
		} else {
			out.Values[i] = c
		}
	}
	if normalize {
		out.Name, out.DType = "proportion", "float64"
	}
	return out, nil
}

func seriesArg(largest bool) method {
	return func(recv any, a callArgs) (any, error) {
		if err := a.check(0, "skipna"); err != nil {
			return nil, err
		}
		s := recv.(*Series)
		best := -1
		for i, v := range s.Values {
			if isMissing(v) {
				continue
			}
			if best < 0 {
				best = i
				continue
			}
			c, err := order(v, s.Values[best], "<")
			if err != nil {
				return nil, err
			}
			if (largest && c > 0) || (!largest && c < 0) {
				best = i
			}
		}
		if best < 0 {
			return nil, errorf("ValueError: attempt to get %s of an empty sequence", a.name)
		}
		return s.Index[best], nil
	}
}

func seriesSortValues(recv any, a callArgs) (any, error) {
	if err := a.check(0, "ascending"); err != nil {
		return nil, err
	}
	asc, err := a.boolArg(-1, "ascending", true)
	if err != nil {
		return nil, err
	}
	s := recv.(*Series)
	return s.takeRows(sortPositions(s.Len(), func(i int) any { return s.Values[i] }, asc)), nil
}

// headTail resolves head/tail(n) positions, with negative n counting from
// the other end as pandas does.
func headTail(total int, n int64, head bool) []int {
	k := int(n)
	if k < 0 {
		k = total + k
		if k < 0 {
			k = 0
		}
	}
	if k > total {
		k = total
	}
	out := make([]int, k)
	start := 0
	if !head {
		start = total - k
	}
	for i := range out {
		out[i] = start + i
	}
	return out
}

func seriesHeadTail(head bool) method {
	return func(recv any, a callArgs) (any, error) {
		if err := a.check(1, "n"); err != nil {
			return nil, err
		}
		n, err := a.intArg(0, "n", 5)
		if err != nil {
			return nil, err
		}
		s := recv.(*Series)
		return s.takeRows(headTail(s.Len(), n, head)), nil
	}
}

func seriesToList(recv any, a callArgs) (any, error) {
	if err := a.check(0); err != nil {
		return nil, err
	}
	return &List{Items: append([]any(nil), recv.(*Series).Values...)}, nil
}

func seriesIsin(recv any, a callArgs) (any, error) {
	if err := a.check(1, "values"); err != nil {
		return nil, err
	}
	v, ok := a.get(0, "values")
	if !ok {
		return nil, errorf("TypeError: isin() missing required argument 'values'")
	}
	items, ok := Items(v)
	if !ok || isString(v) {
		return nil, errorf("TypeError: only list-like objects are allowed to be passed to isin(), you passed a `%s`", TypeName(v))
	}
	set := map[any]bool{}
	for _, it := range items {
		set[hashKey(it)] = true
	}
	s := recv.(*Series)
	out := make([]any, s.Len())
	for i, x := range s.Values {
		out[i] = !isMissing(x) && set[hashKey(x)]
	}
	return &Series{Name: s.Name, IndexName: s.IndexName, Index: s.Index, Values: out, DType: "bool"}, nil
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func seriesMissing(want bool) method {
	return func(recv any, a callArgs) (any, error) {
		if err := a.check(0); err != nil {
			return nil, err
		}
		s := recv.(*Series)
		out := make([]any, s.Len())
		for i, v := range s.Values {
			out[i] = isMissing(v) == want
		}
		return &Series{Name: s.Name, IndexName: s.IndexName, Index: s.Index, Values: out, DType: "bool"}, nil
	}
}

func roundHalfEven(f float64, decimals int64) float64 {
	p := math.Pow(10, float64(decimals))
	return math.RoundToEven(f*p) / p
}

func seriesRound(recv any, a callArgs) (any, error) {
	if err := a.check(1, "decimals"); err != nil {
		return nil, err
	}
	d, err := a.intArg(0, "decimals", 0)
	if err != nil {
		return nil, err
	}
	s := recv.(*Series)
	out := make([]any, s.Len())
	for i, v := range s.Values {
		switch x := v.(type) {
		case float64:
			out[i] = roundHalfEven(x, d)
		case int64, bool, nil:
			out[i] = x
		default:
			return nil, errorf("TypeError: type %s doesn't define __round__ method", TypeName(v))
		}
	}
	return &Series{Name: s.Name, IndexName: s.IndexName, Index: s.Index, Values: out, DType: s.DType}, nil
}

func seriesAbs(recv any, a callArgs) (any, error) {
	if err := a.check(0); err != nil {
		return nil, err
	}
	s := recv.(*Series)
	out := make([]any, s.Len())
	for i, v := range s.Values {
		switch x := v.(type) {
		case int64:
			if x < 0 {
				x = -x
			}
			out[i] = x
		case float64:
			out[i] = math.Abs(x)
		case nil:
		default:
			return nil, errorf("TypeError: bad operand type for abs(): '%s'", TypeName(v))
		}
	}
	return &Series{Name: s.Name, IndexName: s.IndexName, Index: s.Index, Values: out, DType: s.DType}, nil
}

func seriesN(smallest bool) method {
	return func(recv any, a callArgs) (any, error) {
		if err := a.check(1, "n", "keep"); err != nil {
			return nil, err
		}
		n, err := a.intArg(0, "n", 5)
		if err != nil {
			return nil, err
		}
		s := recv.(*Series)
		for _, v := range s.Values {
			if !isMissing(v) && !isNumber(v) {
				return nil, errorf("TypeError: Cannot use method '%s' with dtype %s", a.name, s.DType)
			}
		}
		pos := sortPositions(s.Len(), func(i int) any { return s.Values[i] }, smallest)
		var keep []int
		for _, p := range pos {
			if int64(len(keep)) >= n {
				break
			}
			if !isMissing(s.Values[p]) {
				keep = append(keep, p)
			}
		}
		return s.takeRows(keep), nil
	}
}

func seriesAnyAll(isAny bool) method {
	return func(recv any, a callArgs) (any, error) {
		if err := a.check(0, "skipna"); err != nil {
			return nil, err
		}
		for _, v := range present(recv.(*Series).Values) {
			t, err := truthy(v)
			if err != nil {
				return nil, err
			}
			if t == isAny {
				return isAny, nil
			}
		}
		return !isAny, nil
	}
}

func seriesBetween(recv any, a callArgs) (any, error) {
	if err := a.check(3, "left", "right", "inclusive"); err != nil {
		return nil, err
	}
	left, ok1 := a.get(0, "left")
	right, ok2 := a.get(1, "right")
	if !ok1 || !ok2 {
		return nil, errorf("TypeError: between() missing required arguments 'left' and 'right'")
	}
	inclusive := "both"
	if v, ok := a.get(2, "inclusive"); ok {
		s, isStr := v.(string)
		if !isStr {
			return nil, errorf("ValueError: Inclusive has to be either string of 'both', 'left', 'right', or 'neither'.")
		}
		inclusive = s
	}
	lo, hi := ">=", "<="
	switch inclusive {
	case "both":
	case "left":
		hi = "<"
	case "right":
		lo = ">"
	case "neither":
		lo, hi = ">", "<"
	default:
		return nil, errorf("ValueError: Inclusive has to be either string of 'both', 'left', 'right', or 'neither'.")
	}
	s := recv.(*Series)
	out := make([]any, s.Len())
	for i, v := range s.Values {
		if isMissing(v) {
			out[i] = false
			continue
		}
		l, err := compareScalar(lo, v, left, true)
		if err != nil {
			return nil, err
		}
		r, err := compareScalar(hi, v, right, true)
		if err != nil {
			return nil, err
		}
		out[i] = l.(bool) && r.(bool)
	}
	return &Series{Name: s.Name, IndexName: s.IndexName, Index: s.Index, Values: out, DType: "bool"}, nil
}

func seriesMode(recv any, a callArgs) (any, error) {
	if err := a.check(0, "dropna"); err != nil {
		return nil, err
	}
	s := recv.(*Series)
	vs := present(s.Values)
	counts := map[any]int{}
	best := 0
	for _, v := range vs {
		k := hashKey(v)
		counts[k]++
		if counts[k] > best {
			best = counts[k]
		}
	}
	var modes []any
	for _, v := range distinct(vs) {
		if counts[hashKey(v)] == best {
			modes = append(modes, v)
		}
	}
	sort.SliceStable(modes, func(i, j int) bool { return less(modes[i], modes[j]) })
	out := newSeries(s.Name, rangeIndex(len(modes)), modes)
	if len(modes) == 0 {
		out.DType = s.DType
	}
	return out, nil
}

func seriesDropna(recv any, a callArgs) (any, error) {
	if err := a.check(0); err != nil {
		return nil, err
	}
	s := recv.(*Series)
	var keep []int
	for i, v := range s.Values {
		if !isMissing(v) {
			keep = append(keep, i)
		}
	}
	return s.takeRows(keep), nil
}
