package plot

import (
	"math"

	"github.com/KaramelBytes/datask-cli/internal/expr"
)

// maxPairColumns caps how many numeric columns pairplot crosses.
const maxPairColumns = 5

// seaborn returns the sns namespace drawing into f.
func (f *Figure) seaborn() *expr.Namespace {
	return f.namespace("sns", map[string]func(call) error{
		"pairplot":    f.pairplot,
		"countplot":   f.countplot,
		"barplot":     f.barplot,
		"histplot":    f.histplot,
		"scatterplot": f.scatterplot,
		"lineplot":    f.lineplot,
		"set":         func(call) error { return nil },
		"set_theme":   func(call) error { return nil },
	})
}

// pairplot draws a histogram for each of the first numeric columns and a
// scatter chart for each pair of them.
func (f *Figure) pairplot(c call) error {
	v, ok := c.arg(0, "data")
	if !ok {
		return c.errorf("TypeError: missing required argument 'data'")
	}
	data, isFrame := v.(*expr.Frame)
	if !isFrame {
		return c.errorf("TypeError: 'data' must be a DataFrame, not %s", expr.TypeName(v))
	}
	var cols []string
	for i, name := range data.Cols {
		if isNumeric(data.DTypes[i]) {
			cols = append(cols, name)
		}
		if len(cols) == maxPairColumns {
			break
		}
	}
	if len(cols) == 0 {
		return c.errorf("ValueError: no numeric columns to plot")
	}
	for i, a := range cols {
		av, _ := c.resolve(a, data)
		if err := f.histogram(c, av, defaultBins); err != nil {
			return err
		}
		for _, b := range cols[i+1:] {
			if err := f.points(c, a, b, data); err != nil {
				return err
			}
		}
	}
	return nil
}

// axis resolves the x= or y= argument, preferring x.
func (c call) axis(data *expr.Frame) (vector, bool, error) {
	if v, ok := c.kw["x"]; ok && v != nil {
		vec, err := c.resolve(v, data)
		return vec, false, err
	}
	if v, ok := c.kw["y"]; ok && v != nil {
		vec, err := c.resolve(v, data)
		return vec, true, err
	}
	if len(c.pos) > 0 {
		if _, isFrame := c.pos[0].(*expr.Frame); !isFrame {
			vec, err := c.resolve(c.pos[0], data)
			return vec, false, err
		}
	}
	return vector{}, false, c.errorf("TypeError: one of 'x' or 'y' is required")
}

// categories lists distinct labels in order of first appearance, skipping
// missing values, and maps each label to its row positions.
func categories(vals []any) ([]string, map[string][]int) {
	var order []string
	rows := map[string][]int{}
	for i, l := range labels(vals) {
		if f, isFloat := vals[i].(float64); vals[i] == nil || (isFloat && math.IsNaN(f)) {
			continue
		}
		if _, seen := rows[l]; !seen {
			order = append(order, l)
		}
		rows[l] = append(rows[l], i)
	}
	return order, rows
}

func (f *Figure) countplot(c call) error {
	data, err := c.dataFrame()
	if err != nil {
		return err
	}
	v, horizontal, err := c.axis(data)
	if err != nil {
		return err
	}
	order, rows := categories(v.values)
	counts := make([]float64, len(order))
	for i, l := range order {
		counts[i] = float64(len(rows[l]))
	}
	kind := KindBar
	if horizontal {
		kind = KindBarH
	}
	f.add(&Chart{Kind: kind, Categories: order, XLabel: v.name, YLabel: "count", Series: []Series{{Name: "count", Values: counts}}})
	return nil
}

// barplot draws the mean of y for each category of x.
func (f *Figure) barplot(c call) error {
	data, err := c.dataFrame()
	if err != nil {
		return err
	}
	order, means, xv, yv, err := c.grouped(data)
	if err != nil {
		return err
	}
	f.add(&Chart{Kind: KindBar, Categories: order, XLabel: xv.name, YLabel: yv.name, Series: []Series{{Name: yv.name, Values: means}}})
	return nil
}

func (c call) grouped(data *expr.Frame) ([]string, []float64, vector, vector, error) {
	xArg, ok := c.arg(-1, "x")
	yArg, yok := c.arg(-1, "y")
	if !ok || !yok {
		return nil, nil, vector{}, vector{}, c.errorf("TypeError: both 'x' and 'y' are required")
	}
	xv, err := c.resolve(xArg, data)
	if err != nil {
		return nil, nil, xv, vector{}, err
	}
	yv, err := c.resolve(yArg, data)
	if err != nil {
		return nil, nil, xv, yv, err
	}
	if len(xv.values) != len(yv.values) {
		return nil, nil, xv, yv, c.errorf("ValueError: x and y must be the same size")
	}
	ys, err := c.numbers(yv.values, false)
	if err != nil {
		return nil, nil, xv, yv, err
	}
	order, rows := categories(xv.values)
	means := make([]float64, len(order))
	for i, l := range order {
		sum, n := 0.0, 0
		for _, r := range rows[l] {
			if !math.IsNaN(ys[r]) {
				sum += ys[r]
				n++
			}
		}
		if n > 0 {
			means[i] = sum / float64(n)
		}
	}
	return order, means, xv, yv, nil
}

func (f *Figure) histplot(c call) error {
	data, err := c.dataFrame()
	if err != nil {
		return err
	}
	v, _, err := c.axis(data)
	if err != nil {
		return err
	}
	bins, err := c.intArg("bins", defaultBins)
	if err != nil {
		return err
	}
	return f.histogram(c, v, bins)
}

func (f *Figure) scatterplot(c call) error {
	data, err := c.dataFrame()
	if err != nil {
		return err
	}
	xArg, ok := c.arg(-1, "x")
	yArg, yok := c.arg(-1, "y")
	if !ok || !yok {
		return c.errorf("TypeError: both 'x' and 'y' are required")
	}
	return f.points(c, xArg, yArg, data)
}

// lineplot averages y over repeated x values, keeping first-seen x order.
func (f *Figure) lineplot(c call) error {
	data, err := c.dataFrame()
	if err != nil {
		return err
	}
	order, means, xv, yv, err := c.grouped(data)
	if err != nil {
		return err
	}
	f.add(&Chart{Kind: KindLine, Categories: order, XLabel: xv.name, YLabel: yv.name, Series: []Series{{Name: yv.name, Values: means}}})
	return nil
}
