package cryptogauge

import (
	"io"
	"math"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const snapshotSize = 256

// renderDonutSnapshot draws the ring form of the gauge as a PNG regardless of
// the widget's variant, for places where inline SVG can't be used.
func renderDonutSnapshot(w io.Writer, metric *gaugeMetric, style *gaugeStyle) error {
	// slices can't be negative here, unlike in the figure
	segments := donutSegments(math.Max(0, math.Min(1, metric.Last)))

	filled, ok := snapshotColor(style.BarColor)
	if !ok {
		filled, _ = snapshotColor(donutDefaultBarColor)
	}

	donut := chart.DonutChart{
		Title:  formatGaugeValue(metric.Last),
		Width:  snapshotSize,
		Height: snapshotSize,
		Background: chart.Style{
			FillColor: drawing.ColorTransparent,
		},
		Values: []chart.Value{
			{
				Value: segments[0],
				Style: chart.Style{FillColor: drawing.ColorTransparent, StrokeColor: drawing.ColorTransparent},
			},
			{
				Value: segments[1],
				Label: formatGaugeValue(metric.Last),
				Style: chart.Style{FillColor: filled, StrokeColor: filled},
			},
			{
				Value: segments[2],
				Style: chart.Style{FillColor: drawing.ColorFromHex("d9d9d9"), StrokeColor: drawing.ColorFromHex("d9d9d9")},
			},
		},
	}

	return donut.Render(chart.PNG, w)
}

// snapshotColor reads #rgb and #rrggbb colors, anything else is left to the
// caller.
func snapshotColor(color colorField) (drawing.Color, bool) {
	hex, found := strings.CutPrefix(string(color), "#")
	if !found {
		return drawing.Color{}, false
	}

	for _, r := range hex {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return drawing.Color{}, false
		}
	}

	switch len(hex) {
	case 3:
		return drawing.ColorFromHex(string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})), true
	case 6:
		return drawing.ColorFromHex(hex), true
	}

	return drawing.Color{}, false
}
