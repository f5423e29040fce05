package expr

import (
	"sort"
)

func init() {
	frameMethods["head"] = frameHeadTail(true)
	frameMethods["tail"] = frameHeadTail(false)
	frameMethods["sort_values"] = frameSortValues
	frameMethods["nlargest"] = frameN(false)
	frameMethods["nsmallest"] = frameN(true)
	frameMethods["groupby"] = frameGroupBy
	frameMethods["dropna"] = frameDropna
	for _, name := range []string{"isna", "isnull"} {
		frameMethods[name] = frameMissing(true)
	}
	for _, name := range []string{"notna", "notnull"} {
		frameMethods[name] = frameMissing(false)
	}
	for _, op := range []string{"count", "nunique", "sum", "mean", "median", "min", "max", "std"} {
		frameMethods[op] = frameReduce(op)
	}
	for _, op := range []string{"sum", "mean", "count", "max", "min", "median", "size", "nunique", "std"} {
		groupMethods[op] = groupReduce(op)
	}
	groupMethods["agg"] = groupAgg
}

func frameHeadTail(head bool) method {
	return func(recv any, a callArgs) (any, error) {
		if err := a.check(1, "n"); err != nil {
			return nil, err
		}
		n, err := a.intArg(0, "n", 5)
		if err != nil {
			return nil, err
		}
		f := recv.(*Frame)
		return f.takeRows(headTail(f.Len(), n, head)), nil
	}
}

// sortFrame orders rows by the given columns, stable and missing-last.
func sortFrame(f *Frame, by []string, asc []bool) (*Frame, error) {
	cols := make([]int, len(by))
	for i, name := range by {
		cols[i] = f.colIndex(name)
		if cols[i] < 0 {
			return nil, errorf("KeyError: '%s'", name)
		}
	}
	pos := make([]int, f.Len())
	for i := range pos {
		pos[i] = i
	}
	sort.SliceStable(pos, func(x, y int) bool {
		for k, c := range cols {
			a, b := f.Data[c][pos[x]], f.Data[c][pos[y]]
			am, bm := isMissing(a), isMissing(b)
			switch {
			case am && bm:
				continue
			case am || bm:
				return bm
			}
			if less(a, b) {
				return asc[k]
			}
			if less(b, a) {
				return !asc[k]
			}
		}
		return false
	})
	return f.takeRows(pos), nil
}

func ascendingFlags(a callArgs, n int) ([]bool, error) {
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	v, ok := a.get(1, "ascending")
	if !ok {
		return out, nil
	}
	switch x := v.(type) {
	case bool:
		for i := range out {
			out[i] = x
		}
		return out, nil
	case *List:
		if len(x.Items) != n {
			return nil, errorf("ValueError: Length of ascending (%d) != length of by (%d)", len(x.Items), n)
		}
		for i, it := range x.Items {
			b, ok := it.(bool)
			if !ok {
				return nil, errorf("ValueError: ascending must be bool or list of bools")
			}
			out[i] = b
		}
		return out, nil
	}
	return nil, errorf("ValueError: ascending must be bool or list of bools")
}

func frameSortValues(recv any, a callArgs) (any, error) {
	if err := a.check(2, "by", "ascending"); err != nil {
		return nil, err
	}
	by, err := a.strList(0, "by")
	if err != nil {
		return nil, err
	}
	asc, err := ascendingFlags(a, len(by))
	if err != nil {
		return nil, err
	}
	return sortFrame(recv.(*Frame), by, asc)
}

func frameN(smallest bool) method {
	return func(recv any, a callArgs) (any, error) {
		if err := a.check(2, "n", "columns", "keep"); err != nil {
			return nil, err
		}
		n, err := a.intArg(0, "n", 5)
		if err != nil {
			return nil, err
		}
		by, err := a.strList(1, "columns")
		if err != nil {
			return nil, err
		}
		f := recv.(*Frame)
		asc := make([]bool, len(by))
		for i, name := range by {
			asc[i] = smallest
			c := f.colIndex(name)
			if c < 0 {
				return nil, errorf("KeyError: '%s'", name)
			}
			if !numericDType(f.DTypes[c]) {
				return nil, errorf("TypeError: Column '%s' has dtype %s, cannot use method '%s' with this dtype", name, f.DTypes[c], a.name)
			}
		}
		sorted, err := sortFrame(f, by, asc)
		if err != nil {
			return nil, err
		}
		return sorted.takeRows(headTail(sorted.Len(), n, true)), nil
	}
}

func numericDType(d string) bool {
	return d == "int64" || d == "float64" || d == "bool"
}

func frameMissing(want bool) method {
	return func(recv any, a callArgs) (any, error) {
		if err := a.check(0); err != nil {
			return nil, err
		}
		f := recv.(*Frame)
		out := &Frame{Cols: f.Cols, Index: f.Index, IndexName: f.IndexName}
		for _, col := range f.Data {
			vals := make([]any, len(col))
			for i, v := range col {
				vals[i] = isMissing(v) == want
			}
			out.Data = append(out.Data, vals)
			out.DTypes = append(out.DTypes, "bool")
		}
		return out, nil
	}
}

func frameDropna(recv any, a callArgs) (any, error) {
	if err := a.check(0, "subset", "how"); err != nil {
		return nil, err
	}
	f := recv.(*Frame)
	cols := make([]int, 0, len(f.Cols))
	if _, ok := a.kw["subset"]; ok {
		names, err := a.strList(-1, "subset")
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			c := f.colIndex(n)
			if c < 0 {
				return nil, errorf("KeyError: ['%s']", n)
			}
			cols = append(cols, c)
		}
	} else {
		for i := range f.Cols {
			cols = append(cols, i)
		}
	}
	how := "any"
	if v, ok := a.kw["how"]; ok {
		s, _ := v.(string)
		if s != "any" && s != "all" {
			return nil, errorf("ValueError: invalid how option: %s", Format(v))
		}
		how = s
	}
	var keep []int
	for r := 0; r < f.Len(); r++ {
		missing := 0
		for _, c := range cols {
			if isMissing(f.Data[c][r]) {
				missing++
			}
		}
		if (how == "any" && missing == 0) || (how == "all" && missing < len(cols)) {
			keep = append(keep, r)
		}
	}
	return f.takeRows(keep), nil
}

// frameReduce aggregates each column into a Series indexed by column name.
// sum, mean, median, min, max and std consider numeric columns only.
func frameReduce(op string) method {
	return func(recv any, a callArgs) (any, error) {
		if err := a.check(0, "numeric_only", "skipna", "dropna"); err != nil {
			return nil, err
		}
		f := recv.(*Frame)
		numericOnly := op != "count" && op != "nunique"
		var idx, vals []any
		for i, name := range f.Cols {
			if numericOnly && !numericDType(f.DTypes[i]) {
				continue
			}
			v, err := reduce(op, f.Data[i], f.DTypes[i])
			if err != nil {
				return nil, err
			}
			idx = append(idx, name)
			vals = append(vals, v)
		}
		s := newSeries("", idx, vals)
		if idx == nil {
			s.Index, s.Values = []any{}, []any{}
		}
		return s, nil
	}
}

func frameGroupBy(recv any, a callArgs) (any, error) {
	if err := a.check(1, "by", "as_index", "sort", "dropna"); err != nil {
		return nil, err
	}
	f := recv.(*Frame)
	keys, err := a.strList(0, "by")
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, errorf("ValueError: No group keys passed!")
	}
	for _, k := range keys {
		if f.colIndex(k) < 0 {
			return nil, errorf("KeyError: '%s'", k)
		}
	}
	return &GroupBy{frame: f, keys: keys}, nil
}

type group struct {
	label any
	rows  []int
}

// groups partitions rows by key values, sorted by key and skipping rows
// with a missing key.
func (g *GroupBy) groups() []group {
	f := g.frame
	cols := make([]int, len(g.keys))
	for i, k := range g.keys {
		cols[i] = f.colIndex(k)
	}
	byKey := map[any]int{}
	var out []group
rows:
	for r := 0; r < f.Len(); r++ {
		parts := make([]any, len(cols))
		for i, c := range cols {
			v := f.Data[c][r]
			if isMissing(v) {
				continue rows
			}
			parts[i] = v
		}
		var label any = parts[0]
		if len(parts) > 1 {
			label = &List{Items: parts, Tuple: true}
		}
		k := hashKey(label)
		if i, ok := byKey[k]; ok {
			out[i].rows = append(out[i].rows, r)
			continue
		}
		byKey[k] = len(out)
		out = append(out, group{label: label, rows: []int{r}})
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i].label, out[j].label) })
	return out
}

func (g *GroupBy) indexName() string {
	if len(g.keys) == 1 {
		return g.keys[0]
	}
	return ""
}

// valueColumns lists the aggregated columns: the selection, or every
// non-key column.
func (g *GroupBy) valueColumns() []string {
	if len(g.selected) > 0 {
		return g.selected
	}
	var out []string
	for _, c := range g.frame.Cols {
		isKey := false
		for _, k := range g.keys {
			if k == c {
				isKey = true
				break
			}
		}
		if !isKey {
			out = append(out, c)
		}
	}
	return out
}

func (g *GroupBy) aggregate(op string) (any, error) {
	groups := g.groups()
	labels := make([]any, len(groups))
	for i, gr := range groups {
		labels[i] = gr.label
	}
	if op == "size" {
		vals := make([]any, len(groups))
		for i, gr := range groups {
			vals[i] = int64(len(gr.rows))
		}
		s := &Series{Index: labels, IndexName: g.indexName(), Values: vals, DType: "int64"}
		if g.single {
			s.Name = g.selected[0]
		}
		return s, nil
	}
	numericOnly := op == "sum" || op == "mean" || op == "median" || op == "std"
	out := &Frame{Index: labels, IndexName: g.indexName()}
	for _, name := range g.valueColumns() {
		c := g.frame.colIndex(name)
		dtype := g.frame.DTypes[c]
		if numericOnly && !numericDType(dtype) {
			if g.single {
				return nil, errorf("TypeError: agg function failed [how->%s,dtype->%s]", op, dtype)
			}
			continue
		}
		vals := make([]any, len(groups))
		for i, gr := range groups {
			cells := make([]any, len(gr.rows))
			for k, r := range gr.rows {
				cells[k] = g.frame.Data[c][r]
			}
			v, err := reduce(op, cells, dtype)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		out.Cols = append(out.Cols, name)
		out.DTypes = append(out.DTypes, dtypeOf(vals))
		out.Data = append(out.Data, vals)
	}
	if g.single {
		s, _ := out.Column(g.selected[0])
		return s, nil
	}
	return out, nil
}

func groupReduce(op string) method {
	return func(recv any, a callArgs) (any, error) {
		if err := a.check(0, "numeric_only", "dropna"); err != nil {
			return nil, err
		}
		return recv.(*GroupBy).aggregate(op)
	}
}

func groupAgg(recv any, a callArgs) (any, error) {
	if err := a.check(1, "func"); err != nil {
		return nil, err
	}
	name, err := a.strArg(0, "func")
	if err != nil {
		return nil, err
	}
	if _, ok := groupMethods[name]; !ok || name == "agg" {
		return nil, errorf("AttributeError: aggregation '%s' is not permitted", name)
	}
	return recv.(*GroupBy).aggregate(name)
}
