package cryptogauge

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

func TestSnapshotColor(t *testing.T) {
	tests := []struct {
		input    colorField
		expected drawing.Color
		ok       bool
	}{
		{"#fff", drawing.Color{R: 255, G: 255, B: 255, A: 255}, true},
		{"#FFF", drawing.Color{R: 255, G: 255, B: 255, A: 255}, true},
		{"#1a2", drawing.Color{R: 0x11, G: 0xaa, B: 0x22, A: 255}, true},
		{"#9a59b5", drawing.Color{R: 0x9a, G: 0x59, B: 0xb5, A: 255}, true},
		{"#ffff", drawing.Color{}, false},
		{"#ggg", drawing.Color{}, false},
		{"fff", drawing.Color{}, false},
		{"rgba(255, 255, 255, 0.2)", drawing.Color{}, false},
	}

	for _, test := range tests {
		color, ok := snapshotColor(test.input)
		assert.Equal(t, test.ok, ok, test.input)
		assert.Equal(t, test.expected, color, test.input)
	}
}

func TestDonutDefaultBarColorIsReadable(t *testing.T) {
	_, ok := snapshotColor(donutDefaultBarColor)
	assert.True(t, ok)
}

func TestRenderDonutSnapshot(t *testing.T) {
	style := mustResolveGaugeStyle(t, gaugeVariantGradientSmallBar, "donut")

	var buffer bytes.Buffer
	require.NoError(t, renderDonutSnapshot(&buffer, &gaugeMetric{Last: 0.42, Percentile100: 1}, &style))

	image, err := png.Decode(&buffer)
	require.NoError(t, err)
	assert.Equal(t, snapshotSize, image.Bounds().Dx())
}
