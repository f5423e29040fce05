package expr

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxPatternLen = 512

func init() {
	strMethods["contains"] = strContains
	strMethods["startswith"] = strPredicate(strings.HasPrefix)
	strMethods["endswith"] = strPredicate(strings.HasSuffix)
	strMethods["lower"] = strMap(strings.ToLower)
	strMethods["upper"] = strMap(strings.ToUpper)
	strMethods["strip"] = strMap(strings.TrimSpace)
	strMethods["title"] = strMap(title)
	strMethods["len"] = strLen

	for name, fn := range map[string]func(string) string{
		"lower":      strings.ToLower,
		"upper":      strings.ToUpper,
		"strip":      strings.TrimSpace,
		"lstrip":     func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) },
		"rstrip":     func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) },
		"title":      title,
		"capitalize": capitalize,
	} {
		fn := fn
		stringMethods[name] = func(recv any, a callArgs) (any, error) {
			if err := a.check(0); err != nil {
				return nil, err
			}
			return fn(recv.(string)), nil
		}
	}
	stringMethods["startswith"] = stringPredicate(strings.HasPrefix)
	stringMethods["endswith"] = stringPredicate(strings.HasSuffix)
	stringMethods["split"] = stringSplit

	listMethods["tolist"] = listToList
	listMethods["count"] = listCount
	for _, op := range []string{"max", "min", "sum", "mean"} {
		listMethods[op] = arrayReduce(op)
	}
}

func title(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		prevLetter = false
		b.WriteRune(r)
	}
	return b.String()
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// mapStrings applies f to each string cell; missing cells stay missing.
func mapStrings(acc *StrAccessor, f func(string) any) (*Series, error) {
	s := acc.s
	out := make([]any, s.Len())
	for i, v := range s.Values {
		if isMissing(v) {
			continue
		}
		str, ok := v.(string)
		if !ok {
			if s.DType != "object" {
				return nil, errorf("AttributeError: Can only use .str accessor with string values!")
			}
			continue
		}
		out[i] = f(str)
	}
	res := newSeries(s.Name, s.Index, out)
	res.IndexName = s.IndexName
	return res, nil
}

func strMap(fn func(string) string) method {
	return func(recv any, a callArgs) (any, error) {
		if err := a.check(0); err != nil {
			return nil, err
		}
		return mapStrings(recv.(*StrAccessor), func(s string) any { return fn(s) })
	}
}

func strLen(recv any, a callArgs) (any, error) {
	if err := a.check(0); err != nil {
		return nil, err
	}
	return mapStrings(recv.(*StrAccessor), func(s string) any { return int64(utf8.RuneCountInString(s)) })
}

func strPredicate(fn func(s, prefix string) bool) method {
	return func(recv any, a callArgs) (any, error) {
		if err := a.check(2, "pat", "na"); err != nil {
			return nil, err
		}
		pat, err := a.strArg(0, "pat")
		if err != nil {
			return nil, err
		}
		res, err := mapStrings(recv.(*StrAccessor), func(s string) any { return fn(s, pat) })
		if err != nil {
			return nil, err
		}
		return fillNA(res, a, 1)
	}
}

// fillNA substitutes the na= argument for missing predicate results.
func fillNA(s *Series, a callArgs, pos int) (*Series, error) {
	na, ok := a.get(pos, "na")
	if !ok {
		return s, nil
	}
	for i, v := range s.Values {
		if v == nil {
			s.Values[i] = na
		}
	}
	s.DType = dtypeOf(s.Values)
	return s, nil
}

func strContains(recv any, a callArgs) (any, error) {
	if err := a.check(4, "pat", "case", "flags", "na", "regex"); err != nil {
		return nil, err
	}
	pat, err := a.strArg(0, "pat")
	if err != nil {
		return nil, err
	}
	caseSensitive, err := a.boolArg(1, "case", true)
	if err != nil {
		return nil, err
	}
	useRegex, err := a.boolArg(4, "regex", true)
	if err != nil {
		return nil, err
	}
	var match func(string) bool
	if useRegex {
		if len(pat) > maxPatternLen {
			return nil, errorf("ValueError: pattern longer than %d characters", maxPatternLen)
		}
		expr := pat
		if !caseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, errorf("re.error: %v", err)
		}
		match = re.MatchString
	} else if caseSensitive {
		match = func(s string) bool { return strings.Contains(s, pat) }
	} else {
		lp := strings.ToLower(pat)
		match = func(s string) bool { return strings.Contains(strings.ToLower(s), lp) }
	}
	res, err := mapStrings(recv.(*StrAccessor), func(s string) any { return match(s) })
	if err != nil {
		return nil, err
	}
	return fillNA(res, a, 3)
}

func stringPredicate(fn func(s, prefix string) bool) method {
	return func(recv any, a callArgs) (any, error) {
		if err := a.check(1); err != nil {
			return nil, err
		}
		arg, ok := a.get(0, "")
		if !ok {
			return nil, errorf("TypeError: %s() takes at least 1 argument (0 given)", a.name)
		}
		s := recv.(string)
		switch p := arg.(type) {
		case string:
			return fn(s, p), nil
		case *List:
			if p.Tuple {
				for _, it := range p.Items {
					if ps, ok := it.(string); ok && fn(s, ps) {
						return true, nil
					}
				}
				return false, nil
			}
		}
		return nil, errorf("TypeError: %s first arg must be str or a tuple of str, not %s", a.name, TypeName(arg))
	}
}

func stringSplit(recv any, a callArgs) (any, error) {
	if err := a.check(2, "sep", "maxsplit"); err != nil {
		return nil, err
	}
	s := recv.(string)
	limit, err := a.intArg(1, "maxsplit", -1)
	if err != nil {
		return nil, err
	}
	var parts []string
	sep, ok := a.get(0, "sep")
	switch {
	case !ok || sep == nil:
		parts = strings.Fields(s)
		if limit >= 0 && int(limit) < len(parts) {
			// Fields does not honour a limit; rejoin the tail the way Python keeps it.
			fields := strings.FieldsFunc(s, unicode.IsSpace)
			head := fields[:limit]
			rest := strings.TrimLeftFunc(s, unicode.IsSpace)
			for _, h := range head {
				rest = strings.TrimLeftFunc(strings.TrimPrefix(rest, h), unicode.IsSpace)
			}
			parts = append(append([]string{}, head...), rest)
		}
	default:
		str, isStr := sep.(string)
		if !isStr {
			return nil, errorf("TypeError: must be str or None, not %s", TypeName(sep))
		}
		if str == "" {
			return nil, errorf("ValueError: empty separator")
		}
		n := -1
		if limit >= 0 {
			n = int(limit) + 1
		}
		parts = strings.SplitN(s, str, n)
	}
	items := make([]any, len(parts))
	for i, p := range parts {
		items[i] = p
	}
	return &List{Items: items}, nil
}

func listToList(recv any, a callArgs) (any, error) {
	if err := a.check(0); err != nil {
		return nil, err
	}
	l := recv.(*List)
	if !l.Array {
		return nil, notPermitted(l, "tolist")
	}
	return &List{Items: append([]any(nil), l.Items...)}, nil
}

func listCount(recv any, a callArgs) (any, error) {
	if err := a.check(1); err != nil {
		return nil, err
	}
	l := recv.(*List)
	if l.Array {
		return nil, notPermitted(l, "count")
	}
	v, _ := a.get(0, "")
	n := int64(0)
	for _, it := range l.Items {
		if equal(it, v, false) {
			n++
		}
	}
	return n, nil
}

func arrayReduce(op string) method {
	return func(recv any, a callArgs) (any, error) {
		if err := a.check(0); err != nil {
			return nil, err
		}
		l := recv.(*List)
		if !l.Array {
			return nil, notPermitted(l, op)
		}
		if (op == "max" || op == "min") && len(l.Items) == 0 {
			return nil, errorf("ValueError: zero-size array to reduction operation %s which has no identity", op)
		}
		return reduce(op, l.Items, dtypeOf(l.Items))
	}
}
