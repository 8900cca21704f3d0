package cryptogauge

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"math"
	"strings"
)

type cssProperty struct {
	Name  string
	Value string
}

// cssStyle is an inline style that keeps declaration order.
type cssStyle []cssProperty

func (s *cssStyle) set(name, value string) {
	for i := range *s {
		if (*s)[i].Name == name {
			(*s)[i].Value = value
			return
		}
	}

	*s = append(*s, cssProperty{Name: name, Value: value})
}

func (s cssStyle) get(name string) string {
	for i := range s {
		if s[i].Name == name {
			return s[i].Value
		}
	}

	return ""
}

func (s cssStyle) CSS() template.CSS {
	var b strings.Builder

	for i := range s {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(s[i].Name)
		b.WriteString(": ")
		b.WriteString(s[i].Value)
		b.WriteString(";")
	}

	return template.CSS(b.String())
}

type drawnPath struct {
	Class       string
	D           string
	Stroke      string
	StrokeWidth float64
	Style       cssStyle
}

type drawnText struct {
	Class  string
	Text   string
	X      float64
	Y      float64
	Size   float64
	Color  string
	Weight string
	Style  cssStyle
}

type drawnLayer struct {
	Class string
	Style cssStyle
	Paths []*drawnPath
	Texts []*drawnText
}

// drawnChart is the markup produced by a chartDrawer. It is patched after
// drawing and then mounted into the chart element.
type drawnChart struct {
	Width  float64
	Height float64
	Style  cssStyle
	Layers []*drawnLayer
}

// paths returns every path in the order it was drawn.
func (c *drawnChart) paths() []*drawnPath {
	var paths []*drawnPath
	for _, layer := range c.Layers {
		paths = append(paths, layer.Paths...)
	}

	return paths
}

func (c *drawnChart) textByClass(class string) *drawnText {
	for _, layer := range c.Layers {
		for _, text := range layer.Texts {
			if text.Class == class {
				return text
			}
		}
	}

	return nil
}

type chartDrawer interface {
	draw(ctx context.Context, fig *figure) (*drawnChart, error)
}

var errUnsupportedTrace = errors.New("unsupported trace type")

const (
	indicatorWidth     = 200.0
	indicatorHeight    = 120.0
	indicatorRadius    = 90.0
	indicatorRingWidth = 36.0
	donutSize          = 200.0
	donutRadius        = 95.0
)

type svgChartDrawer struct{}

func (svgChartDrawer) draw(ctx context.Context, fig *figure) (*drawnChart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if fig == nil || len(fig.Data) == 0 {
		return nil, errors.New("figure has no traces")
	}

	trace := &fig.Data[0]

	switch trace.Type {
	case "indicator":
		return drawIndicator(trace, &fig.Layout)
	case "pie":
		return drawDonut(trace, &fig.Layout)
	}

	return nil, fmt.Errorf("%w: %s", errUnsupportedTrace, trace.Type)
}

func newDrawnChart(width, height float64, margin figureMargin) *drawnChart {
	return &drawnChart{
		Width:  width + margin.L + margin.R,
		Height: height + margin.T + margin.B,
		Layers: []*drawnLayer{
			{Class: "main-svg"},
			{Class: "main-svg infolayer"},
		},
	}
}

// axisFraction maps value onto [0, 1] along the axis range, values outside
// the range stick to the ends like the bar of a gauge does.
func axisFraction(value float64, axisRange [2]float64) float64 {
	span := axisRange[1] - axisRange[0]
	if span <= 0 {
		return 0
	}

	return math.Max(0, math.Min(1, (value-axisRange[0])/span))
}

// halfRingArc draws along the upper half circle where 0 is the left end and 1 the right end.
func halfRingArc(cx, cy, r, from, to float64) string {
	a0 := math.Pi * (1 - from)
	a1 := math.Pi * (1 - to)

	return fmt.Sprintf(
		"M%.2f,%.2f A%.2f,%.2f 0 0 1 %.2f,%.2f",
		cx+r*math.Cos(a0), cy-r*math.Sin(a0),
		r, r,
		cx+r*math.Cos(a1), cy-r*math.Sin(a1),
	)
}

func drawIndicator(trace *figureTrace, layout *figureLayout) (*drawnChart, error) {
	if trace.Value == nil || trace.Gauge == nil || trace.Number == nil {
		return nil, errors.New("indicator trace requires value, gauge and number")
	}

	value := *trace.Value
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, fmt.Errorf("indicator value is not finite: %v", value)
	}

	chart := newDrawnChart(indicatorWidth, indicatorHeight, layout.Margin)
	main, info := chart.Layers[0], chart.Layers[1]

	cx := layout.Margin.L + indicatorWidth/2
	cy := layout.Margin.T + indicatorRadius + 10
	r := indicatorRadius - indicatorRingWidth/2
	axisRange := trace.Gauge.Axis.Range

	main.Paths = append(main.Paths, &drawnPath{
		Class:       "bg-arc",
		D:           halfRingArc(cx, cy, r, 0, 1),
		Stroke:      "transparent",
		StrokeWidth: indicatorRingWidth,
	})

	for _, step := range trace.Gauge.Steps {
		main.Paths = append(main.Paths, &drawnPath{
			Class:       "step-arc",
			D:           halfRingArc(cx, cy, r, axisFraction(step.Range[0], axisRange), axisFraction(step.Range[1], axisRange)),
			Stroke:      ternary(step.Color != "", string(step.Color), "none"),
			StrokeWidth: indicatorRingWidth,
		})
	}

	main.Paths = append(main.Paths, &drawnPath{
		Class:       "value-arc",
		D:           halfRingArc(cx, cy, r, 0, axisFraction(value, axisRange)),
		Stroke:      ternary(trace.Gauge.Bar.Color != "", string(trace.Gauge.Bar.Color), "none"),
		StrokeWidth: indicatorRingWidth * trace.Gauge.Bar.Thickness,
	})

	info.Texts = append(info.Texts, &drawnText{
		Class:  "number",
		Text:   formatGaugeValue(value),
		X:      cx,
		Y:      cy,
		Size:   trace.Number.Font.Size,
		Color:  string(trace.Number.Font.Color),
		Weight: trace.Number.Font.FontWeight,
	})

	return chart, nil
}

// ringPoint uses clock angles: degrees clockwise from 12 o'clock.
func ringPoint(cx, cy, r, degrees float64) (float64, float64) {
	radians := degrees * math.Pi / 180
	return cx + r*math.Sin(radians), cy - r*math.Cos(radians)
}

func ringArc(cx, cy, r, from, span float64) string {
	if span >= 360 {
		// A single arc cannot start and end on the same point
		return ringArc(cx, cy, r, from, 180) + " " + strings.Replace(ringArc(cx, cy, r, from+180, 180), "M", "L", 1)
	}

	x0, y0 := ringPoint(cx, cy, r, from)
	x1, y1 := ringPoint(cx, cy, r, from+span)

	return fmt.Sprintf(
		"M%.2f,%.2f A%.2f,%.2f 0 %d 1 %.2f,%.2f",
		x0, y0,
		r, r,
		ternary(span > 180, 1, 0),
		x1, y1,
	)
}

func drawDonut(trace *figureTrace, layout *figureLayout) (*drawnChart, error) {
	var total float64
	for _, value := range trace.Values {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, fmt.Errorf("pie value is not finite: %v", value)
		}
		if value > 0 {
			total += value
		}
	}

	if total == 0 {
		return nil, errors.New("pie trace has no positive values")
	}

	chart := newDrawnChart(donutSize, donutSize, layout.Margin)
	main, info := chart.Layers[0], chart.Layers[1]

	cx := layout.Margin.L + donutSize/2
	cy := layout.Margin.T + donutSize/2
	width := donutRadius * (1 - trace.Hole)
	r := donutRadius - width/2

	var colors []colorField
	if trace.Marker != nil {
		colors = trace.Marker.Colors
	}

	angle := trace.Rotation
	for i, value := range trace.Values {
		// Non positive slices take no room, same as in a pie chart
		if value <= 0 {
			continue
		}

		span := value / total * 360
		color := "none"
		if i < len(colors) && colors[i] != "" {
			color = string(colors[i])
		}

		main.Paths = append(main.Paths, &drawnPath{
			Class:       fmt.Sprintf("slice slice-%d", i),
			D:           ringArc(cx, cy, r, angle, span),
			Stroke:      color,
			StrokeWidth: width,
		})

		angle += span
	}

	for _, annotation := range layout.Annotations {
		info.Texts = append(info.Texts, &drawnText{
			Class: "annotation",
			Text:  annotation.Text,
			X:     layout.Margin.L + annotation.X*donutSize,
			Y:     layout.Margin.T + (1-annotation.Y)*donutSize,
			Size:  annotation.Font.Size,
			Color: string(annotation.Font.Color),
		})
	}

	return chart, nil
}
