package expr

import "unicode/utf8"

// MaxRange caps the length of range() results.
const MaxRange = 10000

var builtins = map[string]Func{
	"len":   builtinLen,
	"max":   builtinExtreme("max"),
	"min":   builtinExtreme("min"),
	"range": builtinRange,
}

func builtinLen(args []any, kwargs map[string]any) (any, error) {
	if len(args) != 1 || len(kwargs) > 0 {
		return nil, errorf("TypeError: len() takes exactly one argument (%d given)", len(args))
	}
	switch v := args[0].(type) {
	case string:
		return int64(utf8.RuneCountInString(v)), nil
	case *List:
		return int64(len(v.Items)), nil
	case *Series:
		return int64(v.Len()), nil
	case *Frame:
		return int64(v.Len()), nil
	case *GroupBy:
		return int64(len(v.groups())), nil
	}
	return nil, errorf("TypeError: object of type '%s' has no len()", TypeName(args[0]))
}

func builtinExtreme(op string) Func {
	return func(args []any, kwargs map[string]any) (any, error) {
		var def any
		hasDef := false
		for k, v := range kwargs {
			if k != "default" {
				return nil, errorf("TypeError: '%s' is an invalid keyword argument for %s()", k, op)
			}
			def, hasDef = v, true
		}
		var items []any
		switch len(args) {
		case 0:
			return nil, errorf("TypeError: %s expected at least 1 argument, got 0", op)
		case 1:
			it, ok := Items(args[0])
			if !ok {
				return nil, errorf("TypeError: '%s' object is not iterable", TypeName(args[0]))
			}
			items = it
		default:
			if hasDef {
				return nil, errorf("TypeError: Cannot specify a default for %s() with multiple positional arguments", op)
			}
			items = args
		}
		if len(items) == 0 {
			if hasDef {
				return def, nil
			}
			return nil, errorf("ValueError: %s() arg is an empty sequence", op)
		}
		best := items[0]
		for _, v := range items[1:] {
			c, err := order(v, best, ">")
			if err != nil {
				return nil, err
			}
			if (op == "max" && c > 0) || (op == "min" && c < 0) {
				best = v
			}
		}
		return best, nil
	}
}

func builtinRange(args []any, kwargs map[string]any) (any, error) {
	if len(kwargs) > 0 {
		return nil, errorf("TypeError: range() takes no keyword arguments")
	}
	ints := make([]int64, len(args))
	for i, a := range args {
		n, ok := asInt(a)
		if !ok {
			return nil, errorf("TypeError: '%s' object cannot be interpreted as an integer", TypeName(a))
		}
		ints[i] = n
	}
	start, stop, step := int64(0), int64(0), int64(1)
	switch len(ints) {
	case 1:
		stop = ints[0]
	case 2:
		start, stop = ints[0], ints[1]
	case 3:
		start, stop, step = ints[0], ints[1], ints[2]
	default:
		return nil, errorf("TypeError: range expected at most 3 arguments, got %d", len(ints))
	}
	if step == 0 {
		return nil, errorf("ValueError: range() arg 3 must not be zero")
	}
	var n int64
	if step > 0 && stop > start {
		n = (stop - start + step - 1) / step
	} else if step < 0 && stop < start {
		n = (start - stop - step - 1) / -step
	}
	if n > MaxRange {
		return nil, errorf("ValueError: range() of %d elements exceeds the limit of %d", n, MaxRange)
	}
	items := make([]any, n)
	for i := range items {
		items[i] = start + int64(i)*step
	}
	return &List{Items: items}, nil
}
