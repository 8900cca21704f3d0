package cryptogauge

import (
	"fmt"
	"slices"
)

type gaugeVariant string

const (
	gaugeVariantDefault          gaugeVariant = "default"
	gaugeVariantGradientSmallBar gaugeVariant = "gradient-small-bar"
)

type gaugeChartKind int

const (
	gaugeChartIndicator gaugeChartKind = iota
	gaugeChartDonut
)

type gaugeStep struct {
	From  float64
	To    float64
	Color colorField
}

type gaugeStyle struct {
	Preset       string
	Kind         gaugeChartKind
	BarThickness float64
	BarColor     colorField
	Steps        []gaugeStep
	NumberColor  colorField
	NumberSize   float64
	NumberOffset string
}

const defaultNumberOffset = "translate(0, 28px)"

var gradientBarSteps = []gaugeStep{
	{From: 0.0, To: 0.2, Color: "#E74C3C"},
	{From: 0.2, To: 0.4, Color: "#E67E22"},
	{From: 0.4, To: 0.6, Color: "#F1C40F"},
	{From: 0.6, To: 0.8, Color: "#2ECC71"},
	{From: 0.8, To: 1.0, Color: "#27AE60"},
}

var gaugePresets = map[string]gaugeStyle{
	"plain": {
		Kind:         gaugeChartIndicator,
		BarThickness: 0.3,
		BarColor:     "#fff",
		NumberColor:  "#9A59B5",
		NumberSize:   20,
		NumberOffset: defaultNumberOffset,
	},
	"thin": {
		Kind:         gaugeChartIndicator,
		BarThickness: 0.15,
		BarColor:     "#fff",
		NumberColor:  "#9A59B5",
		NumberSize:   20,
		NumberOffset: defaultNumberOffset,
	},
	"gradient-bar": {
		Kind:         gaugeChartIndicator,
		BarThickness: 0.1,
		Steps:        gradientBarSteps,
		NumberColor:  "#fff",
		NumberSize:   20,
		NumberOffset: defaultNumberOffset,
	},
	"donut": {
		Kind:        gaugeChartDonut,
		NumberColor: "#fff",
		NumberSize:  20,
	},
}

// The first preset of each variant is its default.
var variantPresets = map[gaugeVariant][]string{
	gaugeVariantDefault:          {"plain", "thin"},
	gaugeVariantGradientSmallBar: {"donut", "gradient-bar"},
}

type gaugeStyleOverrides struct {
	BarColor     *colorField `yaml:"bar-color"`
	BarThickness *float64    `yaml:"bar-thickness"`
	NumberColor  *colorField `yaml:"number-color"`
	NumberSize   *float64    `yaml:"number-size"`
	NumberOffset *string     `yaml:"number-offset"`
}

func resolveGaugeStyle(variant gaugeVariant, preset string, overrides *gaugeStyleOverrides) (gaugeStyle, error) {
	allowed, ok := variantPresets[variant]
	if !ok {
		return gaugeStyle{}, fmt.Errorf("unknown variant %q, must be one of %q or %q",
			variant, gaugeVariantDefault, gaugeVariantGradientSmallBar)
	}

	if preset == "" {
		preset = allowed[0]
	}

	if !slices.Contains(allowed, preset) {
		return gaugeStyle{}, fmt.Errorf("preset %q cannot be used with variant %q, available presets: %v", preset, variant, allowed)
	}

	style := gaugePresets[preset]
	style.Preset = preset
	style.Steps = slices.Clone(style.Steps)

	if overrides == nil {
		return style, nil
	}

	if overrides.BarColor != nil {
		style.BarColor = *overrides.BarColor
	}

	if overrides.BarThickness != nil {
		if *overrides.BarThickness <= 0 || *overrides.BarThickness > 1 {
			return gaugeStyle{}, fmt.Errorf("bar-thickness must be between 0 and 1, got %g", *overrides.BarThickness)
		}
		style.BarThickness = *overrides.BarThickness
	}

	if overrides.NumberColor != nil {
		style.NumberColor = *overrides.NumberColor
	}

	if overrides.NumberSize != nil {
		if *overrides.NumberSize <= 0 {
			return gaugeStyle{}, fmt.Errorf("number-size must be positive, got %g", *overrides.NumberSize)
		}
		style.NumberSize = *overrides.NumberSize
	}

	if overrides.NumberOffset != nil {
		style.NumberOffset = *overrides.NumberOffset
	}

	return style, nil
}
