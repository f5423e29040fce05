package expr

import (
	"math"
	"strings"
)

const maxStringRepeat = 1 << 16

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func truthy(v any) (bool, error) {
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case float64:
		return x != 0 && !math.IsNaN(x), nil
	case string:
		return x != "", nil
	case *List:
		if x.Array && len(x.Items) > 1 {
			return false, errorf("ValueError: The truth value of an array with more than one element is ambiguous. Use a.any() or a.all()")
		}
		if x.Array && len(x.Items) == 1 {
			return truthy(x.Items[0])
		}
		return len(x.Items) > 0, nil
	case *Series:
		return false, errorf("ValueError: The truth value of a Series is ambiguous. Use a.empty, a.bool(), a.item(), a.any() or a.all().")
	case *Frame:
		return false, errorf("ValueError: The truth value of a DataFrame is ambiguous. Use a.empty, a.bool(), a.item(), a.any() or a.all().")
	}
	return true, nil
}

// elementwise applies f across a Series or array operand, broadcasting
// scalars. ok is false when neither side is vectorised.
func elementwise(l, r any, f func(a, b any) (any, error)) (any, bool, error) {
	ls, lIsSeries := l.(*Series)
	rs, rIsSeries := r.(*Series)
	la, lIsArray := l.(*List)
	ra, rIsArray := r.(*List)
	lIsArray = lIsArray && la.Array
	rIsArray = rIsArray && ra.Array

	switch {
	case lIsSeries || rIsSeries:
		var base *Series
		var lv, rv func(i int) any
		n := 0
		switch {
		case lIsSeries && rIsSeries:
			if ls.Len() != rs.Len() {
				return nil, true, errorf("ValueError: Can only compare identically-labeled Series objects")
			}
			base, n = ls, ls.Len()
			lv = func(i int) any { return ls.Values[i] }
			rv = func(i int) any { return rs.Values[i] }
		case lIsSeries:
			base, n = ls, ls.Len()
			lv = func(i int) any { return ls.Values[i] }
			if rIsArray {
				if len(ra.Items) != n {
					return nil, true, errorf("ValueError: Lengths must match to compare")
				}
				rv = func(i int) any { return ra.Items[i] }
			} else {
				rv = func(int) any { return r }
			}
		default:
			base, n = rs, rs.Len()
			rv = func(i int) any { return rs.Values[i] }
			if lIsArray {
				if len(la.Items) != n {
					return nil, true, errorf("ValueError: Lengths must match to compare")
				}
				lv = func(i int) any { return la.Items[i] }
			} else {
				lv = func(int) any { return l }
			}
		}
		out := make([]any, n)
		for i := 0; i < n; i++ {
			v, err := f(lv(i), rv(i))
			if err != nil {
				return nil, true, err
			}
			out[i] = v
		}
		name := base.Name
		if lIsSeries && rIsSeries && ls.Name != rs.Name {
			name = ""
		}
		res := newSeries(name, base.Index, out)
		res.IndexName = base.IndexName
		return res, true, nil
	case lIsArray || rIsArray:
		n := 0
		get := func(v any, isArr bool, arr *List) func(int) any {
			if isArr {
				return func(i int) any { return arr.Items[i] }
			}
			return func(int) any { return v }
		}
		if lIsArray {
			n = len(la.Items)
		} else {
			n = len(ra.Items)
		}
		if lIsArray && rIsArray && len(la.Items) != len(ra.Items) {
			return nil, true, errorf("ValueError: operands could not be broadcast together with shapes (%d,) (%d,)", len(la.Items), len(ra.Items))
		}
		lv, rv := get(l, lIsArray, la), get(r, rIsArray, ra)
		out := make([]any, n)
		for i := 0; i < n; i++ {
			v, err := f(lv(i), rv(i))
			if err != nil {
				return nil, true, err
			}
			out[i] = v
		}
		return &List{Items: out, Array: true}, true, nil
	}
	return nil, false, nil
}

func unary(op string, x any) (any, error) {
	if op == "not" {
		t, err := truthy(x)
		if err != nil {
			return nil, err
		}
		return !t, nil
	}
	if res, ok, err := elementwise(x, nil, func(a, _ any) (any, error) { return unaryScalar(op, a, true) }); ok {
		return res, err
	}
	return unaryScalar(op, x, false)
}

func unaryScalar(op string, x any, vector bool) (any, error) {
	if x == nil && vector {
		return nil, nil
	}
	switch op {
	case "-":
		switch v := x.(type) {
		case int64:
			if v == math.MinInt64 && !vector {
				return -float64(v), nil
			}
			return -v, nil
		case float64:
			return -v, nil
		case bool:
			return -boolInt(v), nil
		}
	case "+":
		switch v := x.(type) {
		case int64, float64:
			return v, nil
		case bool:
			return boolInt(v), nil
		}
	case "~":
		switch v := x.(type) {
		case bool:
			if vector {
				return !v, nil
			}
			return ^boolInt(v), nil
		case int64:
			return ^v, nil
		}
	}
	return nil, errorf("TypeError: bad operand type for unary %s: '%s'", op, TypeName(x))
}

func binary(op string, l, r any) (any, error) {
	if res, ok, err := elementwise(l, r, func(a, b any) (any, error) { return binaryScalar(op, a, b, true) }); ok {
		return res, err
	}
	return binaryScalar(op, l, r, false)
}

func binaryScalar(op string, l, r any, vector bool) (any, error) {
	if vector && (isMissing(l) || isMissing(r)) {
		switch op {
		case "&", "|", "^":
			// missing behaves as False in boolean masks
			if l == nil {
				l = false
			}
			if r == nil {
				r = false
			}
		default:
			return nil, nil
		}
	}
	switch op {
	case "&", "|", "^":
		return bitwise(op, l, r)
	case "+":
		if ls, ok := l.(string); ok {
			if rs, ok := r.(string); ok {
				return ls + rs, nil
			}
		}
		if ll, ok := l.(*List); ok && !ll.Array {
			if rl, ok := r.(*List); ok && !rl.Array && rl.Tuple == ll.Tuple {
				items := append(append([]any{}, ll.Items...), rl.Items...)
				return &List{Items: items, Tuple: ll.Tuple}, nil
			}
		}
	case "*":
		if s, n, ok := stringRepeat(l, r); ok {
			if n*int64(len(s)) > maxStringRepeat {
				return nil, errorf("MemoryError: repeated string too large")
			}
			if n < 0 {
				n = 0
			}
			return strings.Repeat(s, int(n)), nil
		}
	}
	if !isNumber(l) || !isNumber(r) {
		return nil, errorf("TypeError: unsupported operand type(s) for %s: '%s' and '%s'", op, TypeName(l), TypeName(r))
	}
	li, lInt := asInt(l)
	ri, rInt := asInt(r)
	if lInt && rInt {
		return intArith(op, li, ri, vector)
	}
	lf, _ := ToFloat(l)
	rf, _ := ToFloat(r)
	return floatArith(op, lf, rf, vector)
}

func stringRepeat(l, r any) (string, int64, bool) {
	if s, ok := l.(string); ok {
		if n, ok := r.(int64); ok {
			return s, n, true
		}
	}
	if s, ok := r.(string); ok {
		if n, ok := l.(int64); ok {
			return s, n, true
		}
	}
	return "", 0, false
}

func asInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case bool:
		return boolInt(x), true
	}
	return 0, false
}

// intArith wraps on overflow for Series, like numpy. Scalars fall back to
// float instead, since a wrapped Python int would be a wrong answer.
func intArith(op string, a, b int64, vector bool) (any, error) {
	switch op {
	case "+":
		r := a + b
		if !vector && (a >= 0) == (b >= 0) && (r >= 0) != (a >= 0) {
			return floatArith(op, float64(a), float64(b), vector)
		}
		return r, nil
	case "-":
		r := a - b
		if !vector && (a >= 0) != (b >= 0) && (r >= 0) != (a >= 0) {
			return floatArith(op, float64(a), float64(b), vector)
		}
		return r, nil
	case "*":
		r := a * b
		if !vector && a != 0 && (r/a != b || (a == -1 && b == math.MinInt64)) {
			return floatArith(op, float64(a), float64(b), vector)
		}
		return r, nil
	case "/":
		return floatArith(op, float64(a), float64(b), vector)
	case "//", "%":
		if b == 0 {
			if vector {
				return floatArith(op, float64(a), float64(b), vector)
			}
			return nil, errorf("ZeroDivisionError: integer division or modulo by zero")
		}
		q, m := a/b, a%b
		if m != 0 && (m < 0) != (b < 0) {
			q--
			m += b
		}
		if op == "//" {
			return q, nil
		}
		return m, nil
	case "**":
		if b < 0 {
			return math.Pow(float64(a), float64(b)), nil
		}
		result := int64(1)
		base := a
		for e := b; e > 0; e >>= 1 {
			if e&1 == 1 {
				next := result * base
				if base != 0 && next/base != result {
					return math.Pow(float64(a), float64(b)), nil
				}
				result = next
			}
			if e > 1 {
				sq := base * base
				if base != 0 && sq/base != base {
					return math.Pow(float64(a), float64(b)), nil
				}
				base = sq
			}
		}
		return result, nil
	}
	return nil, errorf("unsupported operator %s", op)
}

func floatArith(op string, a, b float64, vector bool) (any, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/", "//", "%":
		if b == 0 {
			if !vector {
				return nil, errorf("ZeroDivisionError: float division by zero")
			}
			if op == "%" || a == 0 || math.IsNaN(a) {
				return nil, nil
			}
			return math.Inf(int(math.Copysign(1, a) * math.Copysign(1, b))), nil
		}
		switch op {
		case "/":
			return a / b, nil
		case "//":
			return math.Floor(a / b), nil
		}
		m := math.Mod(a, b)
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return m, nil
	case "**":
		return math.Pow(a, b), nil
	}
	return nil, errorf("unsupported operator %s", op)
}

func bitwise(op string, l, r any) (any, error) {
	lb, lBool := l.(bool)
	rb, rBool := r.(bool)
	if lBool && rBool {
		switch op {
		case "&":
			return lb && rb, nil
		case "|":
			return lb || rb, nil
		}
		return lb != rb, nil
	}
	li, lok := asInt(l)
	ri, rok := asInt(r)
	if !lok || !rok {
		return nil, errorf("TypeError: unsupported operand type(s) for %s: '%s' and '%s'", op, TypeName(l), TypeName(r))
	}
	switch op {
	case "&":
		return li & ri, nil
	case "|":
		return li | ri, nil
	}
	return li ^ ri, nil
}

func compare(op string, l, r any) (any, error) {
	switch op {
	case "in", "not in":
		found, err := contains(r, l)
		if err != nil {
			return nil, err
		}
		return found == (op == "in"), nil
	case "is":
		return identical(l, r), nil
	case "is not":
		return !identical(l, r), nil
	}
	if res, ok, err := elementwise(l, r, func(a, b any) (any, error) { return compareScalar(op, a, b, true) }); ok {
		return res, err
	}
	return compareScalar(op, l, r, false)
}

func identical(l, r any) bool {
	switch l.(type) {
	case nil, bool:
		return l == r
	}
	return false
}

func compareScalar(op string, l, r any, vector bool) (any, error) {
	if op == "==" || op == "!=" {
		eq := equal(l, r, vector)
		return eq == (op == "=="), nil
	}
	if vector && (isMissing(l) || isMissing(r)) {
		return false, nil
	}
	c, err := order(l, r, op)
	if err != nil {
		return nil, err
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	}
	return c >= 0, nil
}

// equal compares scalars; missing never equals anything inside a vector.
func equal(l, r any, vector bool) bool {
	if isMissing(l) || isMissing(r) {
		return !vector && l == nil && r == nil
	}
	if isNumber(l) && isNumber(r) {
		lf, _ := ToFloat(l)
		rf, _ := ToFloat(r)
		return lf == rf
	}
	if ll, ok := l.(*List); ok {
		rl, ok := r.(*List)
		if !ok || len(ll.Items) != len(rl.Items) {
			return false
		}
		for i := range ll.Items {
			if !equal(ll.Items[i], rl.Items[i], false) {
				return false
			}
		}
		return true
	}
	return l == r
}

// order returns -1, 0 or 1 for comparable scalars.
func order(l, r any, op string) (int, error) {
	if isNumber(l) && isNumber(r) {
		lf, _ := ToFloat(l)
		rf, _ := ToFloat(r)
		switch {
		case lf < rf:
			return -1, nil
		case lf > rf:
			return 1, nil
		}
		return 0, nil
	}
	if ls, ok := l.(string); ok {
		if rs, ok := r.(string); ok {
			return strings.Compare(ls, rs), nil
		}
	}
	return 0, errorf("TypeError: '%s' not supported between instances of '%s' and '%s'", op, TypeName(l), TypeName(r))
}

func contains(container, item any) (bool, error) {
	switch c := container.(type) {
	case string:
		s, ok := item.(string)
		if !ok {
			return false, errorf("TypeError: 'in <string>' requires string as left operand, not %s", TypeName(item))
		}
		return strings.Contains(c, s), nil
	case *Frame:
		s, ok := item.(string)
		return ok && c.colIndex(s) >= 0, nil
	}
	items, ok := Items(container)
	if !ok {
		return false, errorf("TypeError: argument of type '%s' is not iterable", TypeName(container))
	}
	for _, v := range items {
		if equal(v, item, false) {
			return true, nil
		}
	}
	return false, nil
}
