package expr

import (
	"sort"
	"strings"
)

type method func(recv any, a callArgs) (any, error)

type callArgs struct {
	name string
	pos  []any
	kw   map[string]any
}

// check rejects surplus positional arguments and unknown keywords.
func (a callArgs) check(maxPos int, keys ...string) error {
	if len(a.pos) > maxPos {
		return errorf("TypeError: %s() takes at most %d positional arguments (%d given)", a.name, maxPos, len(a.pos))
	}
	for k := range a.kw {
		found := false
		for _, allowed := range keys {
			if k == allowed {
				found = true
				break
			}
		}
		if !found {
			return errorf("TypeError: %s() got an unexpected keyword argument '%s'", a.name, k)
		}
	}
	return nil
}

// get returns the i-th positional argument or the keyword key.
func (a callArgs) get(i int, key string) (any, bool) {
	if i >= 0 && i < len(a.pos) {
		return a.pos[i], true
	}
	if key != "" {
		v, ok := a.kw[key]
		return v, ok
	}
	return nil, false
}

func (a callArgs) intArg(i int, key string, def int64) (int64, error) {
	v, ok := a.get(i, key)
	if !ok || v == nil {
		return def, nil
	}
	switch x := v.(type) {
	case int64:
		return x, nil
	case bool:
		return boolInt(x), nil
	}
	return 0, errorf("TypeError: %s() argument '%s' must be int, not %s", a.name, key, TypeName(v))
}

func (a callArgs) boolArg(i int, key string, def bool) (bool, error) {
	v, ok := a.get(i, key)
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, errorf("TypeError: %s() argument '%s' must be bool, not %s", a.name, key, TypeName(v))
	}
	return b, nil
}

func (a callArgs) strArg(i int, key string) (string, error) {
	v, ok := a.get(i, key)
	if !ok {
		return "", errorf("TypeError: %s() missing required argument '%s'", a.name, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", errorf("TypeError: %s() argument '%s' must be str, not %s", a.name, key, TypeName(v))
	}
	return s, nil
}

// strList accepts a single string or a list of strings.
func (a callArgs) strList(i int, key string) ([]string, error) {
	v, ok := a.get(i, key)
	if !ok {
		return nil, errorf("TypeError: %s() missing required argument '%s'", a.name, key)
	}
	if s, ok := v.(string); ok {
		return []string{s}, nil
	}
	items, ok := Items(v)
	if !ok {
		return nil, errorf("TypeError: %s() argument '%s' must be str or list, not %s", a.name, key, TypeName(v))
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, errorf("KeyError: %s", Format(it))
		}
		out = append(out, s)
	}
	return out, nil
}

var (
	frameMethods  = map[string]method{}
	seriesMethods = map[string]method{}
	groupMethods  = map[string]method{}
	strMethods    = map[string]method{}
	stringMethods = map[string]method{}
	listMethods   = map[string]method{}
)

// Allowed reports the sorted attribute names permitted on a receiver type,
// keyed by TypeName. It is used for error hints and documentation.
func Allowed(typeName string) []string {
	var names []string
	add := func(m map[string]method) {
		for k := range m {
			names = append(names, k)
		}
	}
	switch typeName {
	case "DataFrame":
		add(frameMethods)
		names = append(names, frameProps...)
	case "Series":
		add(seriesMethods)
		names = append(names, seriesProps...)
	case "DataFrameGroupBy", "SeriesGroupBy":
		add(groupMethods)
	case "StringMethods":
		add(strMethods)
	case "str":
		add(stringMethods)
	case "list", "tuple", "ndarray":
		add(listMethods)
	}
	sort.Strings(names)
	return names
}

var (
	frameProps  = []string{"columns", "shape", "empty", "size", "dtypes", "index"}
	seriesProps = []string{"name", "size", "values", "index", "dtype", "empty", "shape", "str"}
)

func notPermitted(x any, name string) error {
	return errorf("AttributeError: attribute '%s' is not permitted on %s", name, TypeName(x))
}

func bind(recv any, name string, table map[string]method) (any, error) {
	if fn, ok := table[name]; ok {
		return &boundMethod{recv: recv, name: name, fn: fn}, nil
	}
	return nil, notPermitted(recv, name)
}

func getAttr(x any, name string) (any, error) {
	if strings.HasPrefix(name, "_") {
		return nil, notPermitted(x, name)
	}
	switch v := x.(type) {
	case *Frame:
		if p, ok := frameProp(v, name); ok {
			return p, nil
		}
		if _, ok := frameMethods[name]; ok {
			return bind(v, name, frameMethods)
		}
		if s, ok := v.Column(name); ok {
			return s, nil
		}
		return nil, notPermitted(v, name)
	case *Series:
		if p, ok := seriesProp(v, name); ok {
			return p, nil
		}
		return bind(v, name, seriesMethods)
	case *GroupBy:
		if _, ok := groupMethods[name]; ok {
			return bind(v, name, groupMethods)
		}
		if !v.single && v.frame.colIndex(name) >= 0 {
			return groupSelect(v, name)
		}
		return nil, notPermitted(v, name)
	case *StrAccessor:
		return bind(v, name, strMethods)
	case string:
		return bind(v, name, stringMethods)
	case *List:
		return bind(v, name, listMethods)
	case *Namespace:
		if fn, ok := v.Funcs[name]; ok {
			return fn, nil
		}
		return nil, errorf("AttributeError: attribute '%s' is not permitted on %s", name, v.Name)
	}
	return nil, notPermitted(x, name)
}

func frameProp(f *Frame, name string) (any, bool) {
	switch name {
	case "columns":
		cols := make([]any, len(f.Cols))
		for i, c := range f.Cols {
			cols[i] = c
		}
		return &List{Items: cols, Array: true}, true
	case "shape":
		return &List{Items: []any{int64(f.Len()), int64(len(f.Cols))}, Tuple: true}, true
	case "empty":
		return f.Len() == 0 || len(f.Cols) == 0, true
	case "size":
		return int64(f.Len() * len(f.Cols)), true
	case "dtypes":
		idx := make([]any, len(f.Cols))
		vals := make([]any, len(f.Cols))
		for i, c := range f.Cols {
			idx[i] = c
			vals[i] = f.DTypes[i]
		}
		return &Series{Index: idx, Values: vals, DType: "object"}, true
	case "index":
		return &List{Items: append([]any(nil), f.Index...), Array: true}, true
	}
	return nil, false
}

func seriesProp(s *Series, name string) (any, bool) {
	switch name {
	case "name":
		if s.Name == "" {
			return nil, true
		}
		return s.Name, true
	case "size":
		return int64(s.Len()), true
	case "values":
		return &List{Items: append([]any(nil), s.Values...), Array: true}, true
	case "index":
		return &List{Items: append([]any(nil), s.Index...), Array: true}, true
	case "dtype":
		return s.DType, true
	case "empty":
		return s.Len() == 0, true
	case "shape":
		return &List{Items: []any{int64(s.Len())}, Tuple: true}, true
	case "str":
		return &StrAccessor{s: s}, true
	}
	return nil, false
}
