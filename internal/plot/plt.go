package plot

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/datask-cli/internal/expr"
)

const defaultBins = 10

func (f *Figure) namespace(name string, fns map[string]func(call) error) *expr.Namespace {
	ns := &expr.Namespace{Name: name, Funcs: make(map[string]expr.Func, len(fns))}
	for fname, fn := range fns {
		ns.Funcs[fname] = func(args []any, kwargs map[string]any) (any, error) {
			return nil, fn(call{name: name + "." + fname, pos: args, kw: kwargs})
		}
	}
	return ns
}

// pyplot returns the plt namespace drawing into f.
func (f *Figure) pyplot() *expr.Namespace {
	noop := func(call) error { return nil }
	return f.namespace("plt", map[string]func(call) error{
		"pie":     f.pie,
		"bar":     func(c call) error { return f.bar(c, KindBar, "height") },
		"barh":    func(c call) error { return f.bar(c, KindBarH, "width") },
		"plot":    f.line,
		"scatter": f.scatter,
		"hist":    f.hist,
		"title":   func(c call) error { return f.decorate(c, func(ch *Chart, s string) { ch.Title = s }) },
		"xlabel":  func(c call) error { return f.decorate(c, func(ch *Chart, s string) { ch.XLabel = s }) },
		"ylabel":  func(c call) error { return f.decorate(c, func(ch *Chart, s string) { ch.YLabel = s }) },
		"suptitle": func(c call) error {
			s, err := c.text()
			f.Title = s
			return err
		},
		"legend": func(call) error {
			f.current().Legend = true
			return nil
		},
		"grid": func(c call) error {
			on := true
			if v, ok := c.arg(0, "visible"); ok {
				if b, isBool := v.(bool); isBool {
					on = b
				}
			}
			f.current().Grid = on
			return nil
		},
		"clf": func(call) error {
			f.Charts = nil
			f.pending = Chart{}
			return nil
		},
		"figure":       noop,
		"xticks":       noop,
		"yticks":       noop,
		"tight_layout": noop,
		"show":         noop,
		"savefig":      noop,
		"close":        noop,
	})
}

func (c call) text() (string, error) {
	v, ok := c.arg(0, "label")
	if !ok {
		return "", c.errorf("TypeError: missing required argument 'label'")
	}
	s, ok := v.(string)
	if !ok {
		return expr.Format(v), nil
	}
	return s, nil
}

func (f *Figure) decorate(c call, set func(*Chart, string)) error {
	s, err := c.text()
	if err != nil {
		return err
	}
	set(f.current(), s)
	return nil
}

func (f *Figure) pie(c call) error {
	x, ok := c.arg(0, "x")
	if !ok {
		return c.errorf("TypeError: missing required argument 'x'")
	}
	v, err := c.resolve(x, nil)
	if err != nil {
		return err
	}
	vals, err := c.numbers(v.values, false)
	if err != nil {
		return err
	}
	for _, n := range vals {
		if n < 0 || math.IsNaN(n) {
			return c.errorf("ValueError: wedge sizes must be non-negative numbers")
		}
	}
	cats := labels(v.index)
	if l, ok := c.kw["labels"]; ok && l != nil {
		lv, err := c.resolve(l, nil)
		if err != nil {
			return err
		}
		if len(lv.values) != len(vals) {
			return c.errorf("ValueError: 'labels' must be of length 'x'")
		}
		cats = labels(lv.values)
	}
	f.add(&Chart{Kind: KindPie, Categories: cats, Series: []Series{{Name: v.name, Values: vals}}})
	return nil
}

func (f *Figure) bar(c call, kind Kind, valueKey string) error {
	xArg, ok := c.arg(0, "x")
	if kind == KindBarH {
		xArg, ok = c.arg(0, "y")
	}
	hArg, hok := c.arg(1, valueKey)
	if !ok || !hok {
		return c.errorf("TypeError: missing required positional arguments")
	}
	xv, err := c.resolve(xArg, nil)
	if err != nil {
		return err
	}
	hv, err := c.resolve(hArg, nil)
	if err != nil {
		return err
	}
	vals, err := c.numbers(hv.values, false)
	if err != nil {
		return err
	}
	if len(vals) != len(xv.values) {
		return c.errorf("ValueError: shape mismatch: %d categories and %d values", len(xv.values), len(vals))
	}
	name := c.str("label")
	if name == "" {
		name = hv.name
	}
	ch := &Chart{Kind: kind, Categories: labels(xv.values), Series: []Series{{Name: name, Values: vals}}}
	ch.XLabel, ch.YLabel = xv.name, hv.name
	f.add(ch)
	return nil
}

func (f *Figure) line(c call) error {
	var xv, yv vector
	var err error
	switch {
	case len(c.pos) >= 2 && !isFormat(c.pos[1]):
		if xv, err = c.resolve(c.pos[0], nil); err != nil {
			return err
		}
		if yv, err = c.resolve(c.pos[1], nil); err != nil {
			return err
		}
	case len(c.pos) >= 1:
		if yv, err = c.resolve(c.pos[0], nil); err != nil {
			return err
		}
		xv = vector{values: yv.index}
	default:
		return c.errorf("TypeError: missing data to plot")
	}
	ys, err := c.numbers(yv.values, false)
	if err != nil {
		return err
	}
	if len(ys) != len(xv.values) {
		return c.errorf("ValueError: x and y must have same first dimension, but have shapes (%d,) and (%d,)", len(xv.values), len(ys))
	}
	name := c.str("label")
	if name == "" {
		name = yv.name
	}
	f.add(&Chart{Kind: KindLine, Categories: labels(xv.values), XLabel: xv.name, YLabel: yv.name, Series: []Series{{Name: name, Values: ys}}})
	return nil
}

// isFormat reports whether v is a matplotlib format string such as "o-".
func isFormat(v any) bool {
	_, ok := v.(string)
	return ok
}

func (f *Figure) scatter(c call) error {
	xArg, ok := c.arg(0, "x")
	yArg, yok := c.arg(1, "y")
	if !ok || !yok {
		return c.errorf("TypeError: missing required arguments 'x' and 'y'")
	}
	data, err := c.dataFrame()
	if err != nil {
		return err
	}
	return f.points(c, xArg, yArg, data)
}

func (f *Figure) points(c call, xArg, yArg any, data *expr.Frame) error {
	xv, err := c.resolve(xArg, data)
	if err != nil {
		return err
	}
	yv, err := c.resolve(yArg, data)
	if err != nil {
		return err
	}
	pts, err := c.pairs(xv, yv)
	if err != nil {
		return err
	}
	name := c.str("label")
	if name == "" {
		name = yv.name
	}
	f.add(&Chart{Kind: KindScatter, XLabel: xv.name, YLabel: yv.name, Series: []Series{{Name: name, Points: pts}}})
	return nil
}

// pairs zips two numeric vectors, dropping pairs with a missing side.
func (c call) pairs(xv, yv vector) ([][2]float64, error) {
	if len(xv.values) != len(yv.values) {
		return nil, c.errorf("ValueError: x and y must be the same size")
	}
	xs, err := c.numbers(xv.values, false)
	if err != nil {
		return nil, err
	}
	ys, err := c.numbers(yv.values, false)
	if err != nil {
		return nil, err
	}
	out := make([][2]float64, 0, len(xs))
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		out = append(out, [2]float64{xs[i], ys[i]})
	}
	return out, nil
}

func (f *Figure) hist(c call) error {
	xArg, ok := c.arg(0, "x")
	if !ok {
		return c.errorf("TypeError: missing required argument 'x'")
	}
	v, err := c.resolve(xArg, nil)
	if err != nil {
		return err
	}
	bins, err := c.intArg("bins", defaultBins)
	if err != nil {
		return err
	}
	return f.histogram(c, v, bins)
}

func (f *Figure) histogram(c call, v vector, bins int) error {
	if bins < 1 {
		return c.errorf("ValueError: bins must be positive, got %d", bins)
	}
	vals, err := c.numbers(v.values, true)
	if err != nil {
		return err
	}
	cats, counts := binCounts(vals, bins)
	f.add(&Chart{Kind: KindHist, Categories: cats, XLabel: v.name, YLabel: "Count", Series: []Series{{Name: v.name, Values: counts}}})
	return nil
}

// binCounts splits [min, max] into equal-width bins; the last bin is closed.
func binCounts(vals []float64, bins int) ([]string, []float64) {
	if len(vals) == 0 {
		return []string{}, []float64{}
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(bins)
	counts := make([]float64, bins)
	for _, v := range vals {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		counts[i]++
	}
	cats := make([]string, bins)
	for i := range cats {
		cats[i] = fmt.Sprintf("[%.4g, %.4g)", lo+float64(i)*width, lo+float64(i+1)*width)
	}
	cats[bins-1] = fmt.Sprintf("[%.4g, %.4g]", lo+float64(bins-1)*width, hi)
	return cats, counts
}
