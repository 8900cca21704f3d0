package cryptogauge

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var hslColorFieldPattern = regexp.MustCompile(`^(?:hsla?\()?([\d\.]+)(?: |,)+([\d\.]+)%?(?: |,)+([\d\.]+)%?\)?$`)
var hexColorFieldPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

const (
	hslHueMax        = 360
	hslSaturationMax = 100
	hslLightnessMax  = 100
)

var namedColors = map[string]string{
	"white":       "#fff",
	"black":       "#000",
	"purple":      "#9A59B5",
	"transparent": "transparent",
}

// colorField holds a CSS color. The empty value means no color.
type colorField string

func (c colorField) String() string {
	return string(c)
}

func parseColorField(value string) (colorField, error) {
	value = strings.TrimSpace(value)

	if value == "" || value == "none" {
		return "", nil
	}

	if named, ok := namedColors[strings.ToLower(value)]; ok {
		return colorField(named), nil
	}

	if hexColorFieldPattern.MatchString(value) {
		return colorField(value), nil
	}

	matches := hslColorFieldPattern.FindStringSubmatch(value)
	if len(matches) != 4 {
		return "", fmt.Errorf("invalid color format: %s", value)
	}

	hue, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return "", err
	}

	if hue > hslHueMax {
		return "", fmt.Errorf("HSL hue must be between 0 and %d", hslHueMax)
	}

	saturation, err := strconv.ParseFloat(matches[2], 64)
	if err != nil {
		return "", err
	}

	if saturation > hslSaturationMax {
		return "", fmt.Errorf("HSL saturation must be between 0 and %d", hslSaturationMax)
	}

	lightness, err := strconv.ParseFloat(matches[3], 64)
	if err != nil {
		return "", err
	}

	if lightness > hslLightnessMax {
		return "", fmt.Errorf("HSL lightness must be between 0 and %d", hslLightnessMax)
	}

	return colorField(hslToHex(hue, saturation, lightness)), nil
}

func (c *colorField) UnmarshalYAML(node *yaml.Node) error {
	var value string

	if err := node.Decode(&value); err != nil {
		return err
	}

	parsed, err := parseColorField(value)
	if err != nil {
		return err
	}

	*c = parsed

	return nil
}

var durationFieldPattern = regexp.MustCompile(`^(\d+)(ms|s|m|h|d)$`)

type durationField time.Duration

func (d *durationField) UnmarshalYAML(node *yaml.Node) error {
	var value string

	if err := node.Decode(&value); err != nil {
		return err
	}

	matches := durationFieldPattern.FindStringSubmatch(value)

	if len(matches) != 3 {
		return fmt.Errorf("invalid duration format: %s", value)
	}

	duration, err := strconv.Atoi(matches[1])
	if err != nil {
		return err
	}

	switch matches[2] {
	case "ms":
		*d = durationField(time.Duration(duration) * time.Millisecond)
	case "s":
		*d = durationField(time.Duration(duration) * time.Second)
	case "m":
		*d = durationField(time.Duration(duration) * time.Minute)
	case "h":
		*d = durationField(time.Duration(duration) * time.Hour)
	case "d":
		*d = durationField(time.Duration(duration) * 24 * time.Hour)
	}

	return nil
}
