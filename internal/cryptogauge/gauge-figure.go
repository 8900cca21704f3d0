package cryptogauge

import "strconv"

// Figures follow the shape of a Plotly figure so that they can be handed to a
// client side charting library as is, see the widget's figure endpoint.

type figure struct {
	Data   []figureTrace `json:"data"`
	Layout figureLayout  `json:"layout"`
}

type figureFont struct {
	Family     string     `json:"family,omitempty"`
	Size       float64    `json:"size,omitempty"`
	Color      colorField `json:"color,omitempty"`
	FontWeight string     `json:"fontWeight,omitempty"`
}

type figureTrace struct {
	Type string `json:"type"`

	// indicator
	Mode   string        `json:"mode,omitempty"`
	Value  *float64      `json:"value,omitempty"`
	Number *figureNumber `json:"number,omitempty"`
	Gauge  *figureGauge  `json:"gauge,omitempty"`

	// pie
	Values    []float64     `json:"values,omitempty"`
	Hole      float64       `json:"hole,omitempty"`
	Rotation  float64       `json:"rotation,omitempty"`
	Direction string        `json:"direction,omitempty"`
	Sort      *bool         `json:"sort,omitempty"`
	TextInfo  string        `json:"textinfo,omitempty"`
	HoverInfo string        `json:"hoverinfo,omitempty"`
	Marker    *figureMarker `json:"marker,omitempty"`
}

type figureNumber struct {
	Font        figureFont `json:"font"`
	ValueFormat string     `json:"valueformat"`
}

type figureGauge struct {
	Axis        figureAxis   `json:"axis"`
	Bar         figureBar    `json:"bar"`
	BorderWidth float64      `json:"borderwidth"`
	Steps       []figureStep `json:"steps"`
}

type figureAxis struct {
	Range   [2]float64 `json:"range"`
	Visible bool       `json:"visible"`
}

type figureBar struct {
	Color     colorField `json:"color,omitempty"`
	Thickness float64    `json:"thickness"`
}

type figureStep struct {
	Range [2]float64 `json:"range"`
	Color colorField `json:"color"`
}

type figureMarker struct {
	Colors []colorField `json:"colors"`
}

type figureMargin struct {
	T float64 `json:"t"`
	R float64 `json:"r"`
	L float64 `json:"l"`
	B float64 `json:"b"`
}

type figureAnnotation struct {
	Text      string     `json:"text"`
	ShowArrow bool       `json:"showarrow"`
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	XAnchor   string     `json:"xanchor"`
	YAnchor   string     `json:"yanchor"`
	Font      figureFont `json:"font"`
}

type figureLayout struct {
	PaperBGColor colorField         `json:"paper_bgcolor"`
	PlotBGColor  colorField         `json:"plot_bgcolor"`
	Font         figureFont         `json:"font"`
	Margin       figureMargin       `json:"margin"`
	ShowLegend   bool               `json:"showlegend"`
	Annotations  []figureAnnotation `json:"annotations,omitempty"`
}

const (
	donutBaseUnits = 30.0
	donutSpanUnits = 70.0
	donutHole      = 0.9
	bigChartMargin = 30.0
)

const donutDefaultBarColor colorField = "#fff"

// donutRotation centres the base segment at the bottom of the ring.
var donutRotation = 180 - donutBaseUnits/(donutBaseUnits+donutSpanUnits)*360/2

func donutSegments(value float64) [3]float64 {
	return [3]float64{
		donutBaseUnits,
		value * donutSpanUnits,
		(1 - value) * donutSpanUnits,
	}
}

const gaugeValueFormat = ".4f"

func formatGaugeValue(value float64) string {
	return strconv.FormatFloat(value, 'f', 4, 64)
}

func newFigureLayout(big bool) figureLayout {
	layout := figureLayout{
		PaperBGColor: "transparent",
		PlotBGColor:  "transparent",
		Font:         figureFont{Family: "Arial"},
	}

	if big {
		layout.Margin.T = bigChartMargin
		layout.Margin.R = bigChartMargin
		layout.Margin.L = bigChartMargin
	}

	return layout
}

func buildGaugeFigure(metric *gaugeMetric, style *gaugeStyle, big bool) *figure {
	if style.Kind == gaugeChartDonut {
		return buildDonutFigure(metric, style, big)
	}

	return buildIndicatorFigure(metric, style, big)
}

func buildIndicatorFigure(metric *gaugeMetric, style *gaugeStyle, big bool) *figure {
	value := metric.Last

	steps := make([]figureStep, 0, len(style.Steps))
	for _, step := range style.Steps {
		steps = append(steps, figureStep{
			Range: [2]float64{step.From, step.To},
			Color: step.Color,
		})
	}

	return &figure{
		Data: []figureTrace{{
			Type:  "indicator",
			Mode:  "gauge+number",
			Value: &value,
			Number: &figureNumber{
				Font: figureFont{
					Size:       style.NumberSize,
					Color:      style.NumberColor,
					FontWeight: "bold",
				},
				ValueFormat: gaugeValueFormat,
			},
			Gauge: &figureGauge{
				Axis: figureAxis{
					Range:   [2]float64{metric.Percentile0, metric.Percentile100},
					Visible: false,
				},
				Bar: figureBar{
					Color:     style.BarColor,
					Thickness: style.BarThickness,
				},
				Steps: steps,
			},
		}},
		Layout: newFigureLayout(big),
	}
}

func buildDonutFigure(metric *gaugeMetric, style *gaugeStyle, big bool) *figure {
	segments := donutSegments(metric.Last)
	sorted := false

	layout := newFigureLayout(big)
	layout.Annotations = []figureAnnotation{{
		Text:    formatGaugeValue(metric.Last),
		X:       0.5,
		Y:       0.5,
		XAnchor: "center",
		YAnchor: "middle",
		Font: figureFont{
			Size:  style.NumberSize,
			Color: style.NumberColor,
		},
	}}

	return &figure{
		Data: []figureTrace{{
			Type:      "pie",
			Values:    segments[:],
			Hole:      donutHole,
			Rotation:  donutRotation,
			Direction: "clockwise",
			Sort:      &sorted,
			TextInfo:  "none",
			HoverInfo: "skip",
			Marker: &figureMarker{
				Colors: []colorField{
					"transparent",
					ternary(style.BarColor != "", style.BarColor, donutDefaultBarColor),
					"rgba(255, 255, 255, 0.2)",
				},
			},
		}},
		Layout: layout,
	}
}
