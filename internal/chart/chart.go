// Package chart lays out pie and donut charts as SVG path data.
//
// Angles follow the usual SVG chart convention: 0 is twelve o'clock and
// angles grow clockwise. Paths are centered on the origin; templates
// translate them by (Width/2, Height/2).
package chart

import (
	"math"
	"strconv"
	"strings"

	"budget/internal/core"
)

// Palette is cycled through when a Datum has no color.
var Palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// Datum is one value to plot.
type Datum struct {
	Label string
	Value float64
	Color string
}

// Options control the layout.
type Options struct {
	Width  float64
	Height float64
	// InnerRatio is the hole radius as a fraction of the outer radius.
	// Zero draws a pie.
	InnerRatio float64
	// Percent formats legend values as percentages instead of money.
	Percent bool
}

// Slice is a laid out datum.
type Slice struct {
	Datum
	StartAngle float64
	EndAngle   float64
	Path       string
}

// LegendItem is one row of the chart legend.
type LegendItem struct {
	Label string
	Color string
	Text  string
}

// Chart is a laid out pie or donut chart.
type Chart struct {
	Width   float64
	Height  float64
	Slices  []Slice
	Legend  []LegendItem
	Total   float64
	IsEmpty bool
}

// Donut lays out data with a hole of opts.InnerRatio.
func Donut(data []Datum, opts Options) Chart {
	outer := math.Min(opts.Width, opts.Height) / 2
	return layout(data, opts, outer*clamp(opts.InnerRatio, 0, 1), outer)
}

// Pie lays out data with no hole and an outer radius of half the height.
func Pie(data []Datum, opts Options) Chart {
	return layout(data, opts, 0, opts.Height/2)
}

func layout(data []Datum, opts Options, inner, outer float64) Chart {
	c := Chart{Width: opts.Width, Height: opts.Height}
	for _, d := range data {
		if d.Value > 0 {
			c.Total += d.Value
		}
	}
	c.IsEmpty = c.Total == 0

	angle := 0.0
	for i, d := range data {
		if d.Color == "" {
			d.Color = Palette[i%len(Palette)]
		}
		c.Legend = append(c.Legend, Legend(d, opts.Percent))
		if d.Value <= 0 || c.IsEmpty {
			continue
		}
		sweep := d.Value / c.Total * 2 * math.Pi
		s := Slice{Datum: d, StartAngle: angle, EndAngle: angle + sweep}
		s.Path = Arc(inner, outer, s.StartAngle, s.EndAngle)
		c.Slices = append(c.Slices, s)
		angle += sweep
	}
	return c
}

// Legend formats a datum for the legend. Money values are in currency units.
func Legend(d Datum, percent bool) LegendItem {
	var text string
	if percent {
		text = core.FormatPercent(d.Value).Text
	} else {
		text = core.FormatAmount(core.Money{Cents: int64(math.Round(d.Value * 100))}, true).Text
	}
	return LegendItem{Label: d.Label, Color: d.Color, Text: text}
}

// Arc returns the SVG path of an annular sector between the two radii.
// A zero inner radius yields a pie wedge.
func Arc(inner, outer, start, end float64) string {
	if end < start {
		start, end = end, start
	}
	sweep := end - start
	if outer <= 0 || sweep <= 0 {
		return ""
	}

	var p pathBuilder
	if sweep >= 2*math.Pi-1e-9 {
		// A single arc cannot describe a full circle, so split it in two.
		mid := start + math.Pi
		p.moveTo(point(outer, start))
		p.arc(outer, false, true, point(outer, mid))
		p.arc(outer, false, true, point(outer, start))
		if inner > 0 {
			p.moveTo(point(inner, start))
			p.arc(inner, false, false, point(inner, mid))
			p.arc(inner, false, false, point(inner, start))
		}
		p.close()
		return p.String()
	}

	large := sweep > math.Pi
	p.moveTo(point(outer, start))
	p.arc(outer, large, true, point(outer, end))
	if inner > 0 {
		p.lineTo(point(inner, end))
		p.arc(inner, large, false, point(inner, start))
	} else {
		p.lineTo(xy{})
	}
	p.close()
	return p.String()
}

type xy struct{ x, y float64 }

func point(r, angle float64) xy {
	return xy{r * math.Sin(angle), -r * math.Cos(angle)}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

type pathBuilder struct {
	b strings.Builder
}

func (p *pathBuilder) moveTo(to xy) {
	p.b.WriteString("M")
	p.pair(to)
}

func (p *pathBuilder) lineTo(to xy) {
	p.b.WriteString("L")
	p.pair(to)
}

func (p *pathBuilder) arc(r float64, large, clockwise bool, to xy) {
	p.b.WriteString("A")
	p.num(r)
	p.b.WriteString(",")
	p.num(r)
	p.b.WriteString(",0,")
	p.flag(large)
	p.b.WriteString(",")
	p.flag(clockwise)
	p.b.WriteString(",")
	p.pair(to)
}

func (p *pathBuilder) close() { p.b.WriteString("Z") }

func (p *pathBuilder) String() string { return p.b.String() }

func (p *pathBuilder) pair(v xy) {
	p.num(v.x)
	p.b.WriteString(",")
	p.num(v.y)
}

func (p *pathBuilder) flag(v bool) {
	if v {
		p.b.WriteString("1")
	} else {
		p.b.WriteString("0")
	}
}

func (p *pathBuilder) num(v float64) {
	v = math.Round(v*1000) / 1000
	if v == 0 {
		v = 0 // -0 prints as "-0"
	}
	p.b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
}
