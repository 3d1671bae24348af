package domain

import (
	"fmt"
	"math"
)

// HSL is a hue/saturation/lightness color; hue in degrees, the others in percent.
type HSL struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	L float64 `json:"l"`
}

// String renders the color as a CSS hsl() value.
func (c HSL) String() string {
	return fmt.Sprintf("hsl(%g, %g%%, %g%%)", c.H, c.S, c.L)
}

const (
	colorSaturation = 75
	colorLightness  = 45
)

// EncodeColor maps an occupancy rate to a marker color: 0% is green (hue 120),
// 100% is red (hue 0), linear in between. Rates are clamped to [0,100] and NaN
// is treated as 0.
func EncodeColor(rate float64) HSL {
	if math.IsNaN(rate) {
		rate = 0
	}
	rate = math.Max(0, math.Min(100, rate))
	return HSL{
		H: 120 - rate*1.2,
		S: colorSaturation,
		L: colorLightness,
	}
}
