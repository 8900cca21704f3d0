package cryptogauge

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drawTestGauge(t *testing.T, variant gaugeVariant, preset string, metric *gaugeMetric, big bool) *drawnChart {
	t.Helper()

	style := mustResolveGaugeStyle(t, variant, preset)
	chart, err := svgChartDrawer{}.draw(context.Background(), buildGaugeFigure(metric, &style, big))
	require.NoError(t, err)

	return chart
}

func pathClasses(chart *drawnChart) []string {
	var classes []string
	for _, path := range chart.paths() {
		classes = append(classes, path.Class)
	}

	return classes
}

func TestDrawIndicator(t *testing.T) {
	chart := drawTestGauge(t, gaugeVariantDefault, "plain", &gaugeMetric{Last: 0.42, Percentile0: -0.5, Percentile100: 1.5}, false)

	require.Len(t, chart.Layers, 2)
	assert.Equal(t, "main-svg", chart.Layers[0].Class)
	assert.Equal(t, "main-svg infolayer", chart.Layers[1].Class)
	assert.Equal(t, []string{"bg-arc", "value-arc"}, pathClasses(chart))

	valueArc := chart.paths()[1]
	assert.Equal(t, "#fff", valueArc.Stroke)
	assert.InDelta(t, 36*0.3, valueArc.StrokeWidth, 1e-9)

	number := chart.textByClass("number")
	require.NotNil(t, number)
	assert.Equal(t, "0.4200", number.Text)
	assert.Equal(t, "bold", number.Weight)
	assert.Equal(t, "#9A59B5", number.Color)
}

func TestDrawIndicatorValueArcIsDrawnLast(t *testing.T) {
	chart := drawTestGauge(t, gaugeVariantGradientSmallBar, "gradient-bar", &gaugeMetric{Last: 0.7, Percentile0: 0, Percentile100: 1}, false)

	assert.Equal(t, []string{"bg-arc", "step-arc", "step-arc", "step-arc", "step-arc", "step-arc", "value-arc"}, pathClasses(chart))

	paths := chart.paths()
	assert.Equal(t, "#E74C3C", paths[1].Stroke)
	assert.Equal(t, "none", paths[len(paths)-1].Stroke)
}

func TestDrawBigIndicatorLeavesRoomForMargins(t *testing.T) {
	chart := drawTestGauge(t, gaugeVariantDefault, "plain", &gaugeMetric{Last: 0.5, Percentile0: 0, Percentile100: 1}, true)

	assert.Equal(t, 260.0, chart.Width)
	assert.Equal(t, 150.0, chart.Height)
}

func TestDrawDonut(t *testing.T) {
	chart := drawTestGauge(t, gaugeVariantGradientSmallBar, "donut", &gaugeMetric{Last: 0.42, Percentile0: -0.5, Percentile100: 1.5}, false)

	assert.Equal(t, []string{"slice slice-0", "slice slice-1", "slice slice-2"}, pathClasses(chart))

	paths := chart.paths()
	assert.Equal(t, "transparent", paths[0].Stroke)
	assert.Equal(t, "#fff", paths[1].Stroke)
	assert.Equal(t, "rgba(255, 255, 255, 0.2)", paths[2].Stroke)

	annotation := chart.textByClass("annotation")
	require.NotNil(t, annotation)
	assert.Equal(t, "0.4200", annotation.Text)
	assert.Equal(t, 100.0, annotation.X)
	assert.Equal(t, 100.0, annotation.Y)
}

func TestDrawDonutSkipsEmptySlices(t *testing.T) {
	chart := drawTestGauge(t, gaugeVariantGradientSmallBar, "donut", &gaugeMetric{Last: 1, Percentile0: 0, Percentile100: 1}, false)
	assert.Equal(t, []string{"slice slice-0", "slice slice-1"}, pathClasses(chart))

	// values above the range push the remainder below zero
	chart = drawTestGauge(t, gaugeVariantGradientSmallBar, "donut", &gaugeMetric{Last: 1.3, Percentile0: 0, Percentile100: 1}, false)
	assert.Equal(t, []string{"slice slice-0", "slice slice-1"}, pathClasses(chart))
}

func TestDrawRejectsInvalidFigures(t *testing.T) {
	drawer := svgChartDrawer{}

	_, err := drawer.draw(context.Background(), &figure{Data: []figureTrace{{Type: "scatter"}}})
	assert.ErrorIs(t, err, errUnsupportedTrace)

	_, err = drawer.draw(context.Background(), &figure{})
	assert.Error(t, err)

	nan := math.NaN()
	_, err = drawer.draw(context.Background(), &figure{Data: []figureTrace{{
		Type:   "indicator",
		Value:  &nan,
		Number: &figureNumber{},
		Gauge:  &figureGauge{},
	}}})
	assert.Error(t, err)

	_, err = drawer.draw(context.Background(), &figure{Data: []figureTrace{{Type: "pie", Values: []float64{0, -1}}}})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	style := mustResolveGaugeStyle(t, gaugeVariantDefault, "")
	_, err = drawer.draw(ctx, buildGaugeFigure(&gaugeMetric{Last: 0.5}, &style, false))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAxisFraction(t *testing.T) {
	tests := []struct {
		value     float64
		axisRange [2]float64
		expected  float64
	}{
		{0.5, [2]float64{0, 1}, 0.5},
		{0.42, [2]float64{-0.5, 1.5}, 0.46},
		{2, [2]float64{0, 1}, 1},
		{-1, [2]float64{0, 1}, 0},
		{0.5, [2]float64{1, 1}, 0},
		{0.5, [2]float64{1, 0}, 0},
	}

	for _, test := range tests {
		assert.InDelta(t, test.expected, axisFraction(test.value, test.axisRange), 1e-9, "value %v range %v", test.value, test.axisRange)
	}
}

func TestCSSStyleKeepsDeclarationOrder(t *testing.T) {
	var style cssStyle
	style.set("position", "absolute")
	style.set("overflow", "visible")
	style.set("position", "relative")

	assert.Equal(t, "relative", style.get("position"))
	assert.Equal(t, "", style.get("display"))
	assert.Equal(t, "position: relative; overflow: visible;", string(style.CSS()))
}
