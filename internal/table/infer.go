package table

import (
	"math"
	"strconv"
	"strings"
)

// Options controls how raw cells become typed values.
type Options struct {
	// MaxRows limits data rows kept; 0 means unlimited.
	MaxRows int
	// Sheet selects a workbook sheet by name; empty means the first sheet.
	Sheet string
	// Decimal is the decimal separator for numeric cells. 0 means '.'.
	Decimal rune
	// Thousands is an optional grouping separator stripped from numeric cells.
	Thousands rune
}

// DefaultOptions returns reasonable defaults for uploaded datasets.
func DefaultOptions() Options {
	return Options{MaxRows: 100000, Decimal: '.'}
}

// missing markers recognised as NaN, a subset of pandas' default na_values.
var naValues = map[string]bool{
	"": true, "NA": true, "N/A": true, "n/a": true, "NaN": true, "nan": true,
	"NULL": true, "null": true, "None": true, "#N/A": true, "<NA>": true,
}

// inferColumn picks the narrowest dtype all non-missing cells fit:
// int64, then float64, then bool, else object. Integer columns with
// missing cells widen to float64.
func inferColumn(raw []string, opt Options) (string, []any) {
	values := make([]any, len(raw))
	hasMissing, allInt, allNum, allBool := false, true, true, true
	present := 0
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if naValues[s] {
			hasMissing = true
			continue
		}
		present++
		if allInt {
			if _, ok := parseInt(s, opt); !ok {
				allInt = false
			}
		}
		if allNum {
			if _, ok := parseNumeric(s, opt); !ok {
				allNum = false
			}
		}
		if allBool {
			if _, ok := parseBool(s); !ok {
				allBool = false
			}
		}
	}
	if present == 0 {
		// pandas reads an all-empty column as float64 NaN.
		if len(raw) > 0 {
			return Float64, values
		}
		return Object, values
	}
	dtype := Object
	switch {
	case allInt && !hasMissing:
		dtype = Int64
	case allNum:
		dtype = Float64
	case allBool && !hasMissing:
		dtype = Bool
	}
	for i, s := range raw {
		s = strings.TrimSpace(s)
		if naValues[s] {
			continue
		}
		switch dtype {
		case Int64:
			values[i], _ = parseInt(s, opt)
		case Float64:
			values[i], _ = parseNumeric(s, opt)
		case Bool:
			values[i], _ = parseBool(s)
		default:
			values[i] = raw[i]
		}
	}
	return dtype, values
}

// normalizeColumn derives a dtype for Go values and coerces mixed
// int/float columns to float64.
func normalizeColumn(in []any) (string, []any) {
	values := make([]any, len(in))
	copy(values, in)
	ints, floats, bools, strs, missing := 0, 0, 0, 0, 0
	for i, v := range values {
		switch x := v.(type) {
		case nil:
			missing++
		case int:
			values[i] = int64(x)
			ints++
		case int64:
			ints++
		case float64:
			if math.IsNaN(x) {
				values[i] = nil
				missing++
				continue
			}
			floats++
		case bool:
			bools++
		case string:
			strs++
		default:
			strs++
		}
	}
	switch {
	case strs > 0 || (bools > 0 && ints+floats > 0):
		return Object, values
	case bools > 0 && missing == 0:
		return Bool, values
	case bools > 0:
		return Object, values
	case ints > 0 && floats == 0 && missing == 0:
		return Int64, values
	case ints+floats > 0 || missing > 0:
		for i, v := range values {
			if n, ok := v.(int64); ok {
				values[i] = float64(n)
			}
		}
		return Float64, values
	}
	return Object, values
}

func parseInt(s string, opt Options) (int64, bool) {
	raw := stripThousands(s, opt)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseNumeric accepts plain decimals and scientific notation using the
// configured separators.
func parseNumeric(s string, opt Options) (float64, bool) {
	raw := stripThousands(s, opt)
	if dec := opt.Decimal; dec != 0 && dec != '.' {
		if strings.Contains(raw, ".") {
			return 0, false
		}
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	lower := strings.ToLower(raw)
	// inf/nan spellings stay text; pandas only maps its na_values.
	if strings.Contains(lower, "inf") || strings.Contains(lower, "nan") || strings.HasPrefix(lower, "0x") {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func stripThousands(s string, opt Options) string {
	raw := strings.ReplaceAll(strings.TrimSpace(s), "\u00a0", "")
	if opt.Thousands != 0 && opt.Thousands != opt.Decimal {
		raw = strings.ReplaceAll(raw, string(opt.Thousands), "")
	}
	return raw
}

func parseBool(s string) (bool, bool) {
	switch s {
	case "True", "TRUE", "true":
		return true, true
	case "False", "FALSE", "false":
		return false, true
	}
	return false, false
}
