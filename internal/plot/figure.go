// Package plot runs generated plotting statements against a table and
// records the result in a request-owned Figure.
package plot

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Kind is the chart type a plotting call produced.
type Kind string

const (
	KindBar     Kind = "bar"
	KindBarH    Kind = "barh"
	KindLine    Kind = "line"
	KindScatter Kind = "scatter"
	KindPie     Kind = "pie"
	KindHist    Kind = "hist"
)

// Series is one named data series. Category charts use Values aligned to
// Chart.Categories; scatter charts use Points.
type Series struct {
	Name   string
	Values []float64
	Points [][2]float64
}

// Chart is one drawing produced by a plt or sns call.
type Chart struct {
	Kind       Kind
	Title      string
	XLabel     string
	YLabel     string
	Categories []string
	Series     []Series
	Legend     bool
	Grid       bool
}

// Figure collects the charts of one request. It is never shared between
// requests.
type Figure struct {
	Title  string
	Charts []*Chart
	// labels set before the first chart apply to it
	pending Chart
}

// Empty reports whether nothing was drawn.
func (f *Figure) Empty() bool { return f == nil || len(f.Charts) == 0 }

func (f *Figure) add(c *Chart) *Chart {
	if f.pending.Title != "" {
		c.Title = f.pending.Title
	}
	if f.pending.XLabel != "" {
		c.XLabel = f.pending.XLabel
	}
	if f.pending.YLabel != "" {
		c.YLabel = f.pending.YLabel
	}
	c.Legend = c.Legend || f.pending.Legend
	c.Grid = c.Grid || f.pending.Grid
	f.pending = Chart{}
	f.Charts = append(f.Charts, c)
	return c
}

// current returns the chart later decorations apply to.
func (f *Figure) current() *Chart {
	if len(f.Charts) == 0 {
		return &f.pending
	}
	return f.Charts[len(f.Charts)-1]
}

// Summary lists the charts in a short human-readable form.
func (f *Figure) Summary() string {
	if f.Empty() {
		return "empty figure"
	}
	var b strings.Builder
	for i, c := range f.Charts {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, c.Kind)
		if c.Title != "" {
			fmt.Fprintf(&b, " %q", c.Title)
		}
		names := make([]string, 0, len(c.Series))
		points := 0
		for _, s := range c.Series {
			names = append(names, s.Name)
			points += len(s.Values) + len(s.Points)
		}
		fmt.Fprintf(&b, " series=[%s] points=%d", strings.Join(names, ", "), points)
	}
	return b.String()
}

// Render writes the figure as a standalone HTML page of ECharts charts.
func (f *Figure) Render(w io.Writer) error {
	page := components.NewPage()
	page.PageTitle = "datask"
	if f != nil {
		if f.Title != "" {
			page.PageTitle = f.Title
		}
		for _, c := range f.Charts {
			page.AddCharts(c.echart())
		}
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render figure: %w", err)
	}
	return nil
}

func (c *Chart) globalOptions() []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: c.Title}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(c.Legend || len(c.Series) > 1)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

func (c *Chart) echart() components.Charter {
	switch c.Kind {
	case KindPie:
		pie := charts.NewPie()
		pie.SetGlobalOptions(c.globalOptions()...)
		for _, s := range c.Series {
			items := make([]opts.PieData, len(s.Values))
			for i, v := range s.Values {
				items[i] = opts.PieData{Name: c.Categories[i], Value: v}
			}
			pie.AddSeries(s.Name, items)
		}
		return pie
	case KindScatter:
		sc := charts.NewScatter()
		sc.SetGlobalOptions(append(c.globalOptions(),
			charts.WithXAxisOpts(opts.XAxis{Name: c.XLabel, Type: "value"}),
			charts.WithYAxisOpts(opts.YAxis{Name: c.YLabel, Type: "value"}),
		)...)
		for _, s := range c.Series {
			items := make([]opts.ScatterData, len(s.Points))
			for i, p := range s.Points {
				items[i] = opts.ScatterData{Value: []float64{p[0], p[1]}}
			}
			sc.AddSeries(s.Name, items)
		}
		return sc
	case KindLine:
		line := charts.NewLine()
		line.SetGlobalOptions(append(c.globalOptions(),
			charts.WithXAxisOpts(opts.XAxis{Name: c.XLabel}),
			charts.WithYAxisOpts(opts.YAxis{Name: c.YLabel}),
		)...)
		line.SetXAxis(c.Categories)
		for _, s := range c.Series {
			items := make([]opts.LineData, len(s.Values))
			for i, v := range s.Values {
				items[i] = opts.LineData{Value: v}
			}
			line.AddSeries(s.Name, items)
		}
		return line
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(append(c.globalOptions(),
		charts.WithXAxisOpts(opts.XAxis{Name: c.XLabel}),
		charts.WithYAxisOpts(opts.YAxis{Name: c.YLabel}),
	)...)
	bar.SetXAxis(c.Categories)
	for _, s := range c.Series {
		items := make([]opts.BarData, len(s.Values))
		for i, v := range s.Values {
			items[i] = opts.BarData{Value: v}
		}
		bar.AddSeries(s.Name, items)
	}
	if c.Kind == KindBarH {
		bar.XYReversal()
	}
	return bar
}
