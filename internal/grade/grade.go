// Package grade describes a color grade: one or two 3D LUTs, the blend
// opacity between them, and a white-balance offset.
package grade

import (
	"math"

	"github.com/five82/lutgrade/internal/util"
)

const (
	// DefaultOpacity is the blend opacity of a new Config.
	DefaultOpacity = 1.0

	// MinWhiteBalance and MaxWhiteBalance bound the white-balance slider.
	MinWhiteBalance = -10.0
	MaxWhiteBalance = 10.0

	// NeutralTemperature is the Kelvin value of a zero white balance.
	NeutralTemperature = 5500

	// KelvinPerStep maps one white-balance step to Kelvin.
	KelvinPerStep = 280

	warmSpan = 3100.0
	coolSpan = 2500.0

	redCoefficient  = 0.3
	blueCoefficient = 0.4
)

// Config is a color grade. Fields are unexported so that opacity and white
// balance are always clamped on assignment; builder methods return copies,
// which makes a Config safe to snapshot into a job.
type Config struct {
	primaryLUT   string
	secondaryLUT string
	opacity      float64
	whiteBalance float64
}

// New returns a neutral grade with full opacity.
func New() Config {
	return Config{opacity: DefaultOpacity}
}

// WithPrimaryLUT returns a copy with the primary LUT set.
func (c Config) WithPrimaryLUT(path string) Config {
	c.primaryLUT = path
	return c
}

// WithSecondaryLUT returns a copy with the secondary LUT set.
func (c Config) WithSecondaryLUT(path string) Config {
	c.secondaryLUT = path
	return c
}

// WithOpacity returns a copy with the blend opacity clamped to [0,1].
func (c Config) WithOpacity(opacity float64) Config {
	c.opacity = util.Clamp01(opacity)
	return c
}

// WithWhiteBalance returns a copy with the white balance clamped to [-10,10].
func (c Config) WithWhiteBalance(value float64) Config {
	c.whiteBalance = util.ClampFloat(value, MinWhiteBalance, MaxWhiteBalance)
	return c
}

// PrimaryLUT returns the primary LUT path, or "".
func (c Config) PrimaryLUT() string { return c.primaryLUT }

// SecondaryLUT returns the secondary LUT path. It is "" whenever no primary
// LUT is set, since a secondary look only exists on top of a primary.
func (c Config) SecondaryLUT() string {
	if c.primaryLUT == "" {
		return ""
	}
	return c.secondaryLUT
}

// Opacity returns the blend opacity in [0,1].
func (c Config) Opacity() float64 { return c.opacity }

// WhiteBalance returns the white-balance offset in [-10,10].
func (c Config) WhiteBalance() float64 { return c.whiteBalance }

// HasPrimary reports whether a primary LUT is set.
func (c Config) HasPrimary() bool { return c.primaryLUT != "" }

// HasBlend reports whether the grade blends two LUT branches.
func (c Config) HasBlend() bool { return c.SecondaryLUT() != "" }

// TemperatureOf maps a white-balance value to a color temperature in Kelvin.
func TemperatureOf(value float64) int {
	return NeutralTemperature + int(math.Round(value*KelvinPerStep))
}

// Balance is a linear color-balance adjustment expressed as signed offsets
// from 1.0 for the red and blue channels.
type Balance struct {
	Red  float64
	Blue float64
}

// IsNeutral reports whether the balance changes nothing once formatted.
func (b Balance) IsNeutral() bool {
	return util.FormatDecimal(b.Red) == "0" && util.FormatDecimal(b.Blue) == "0"
}

// BalanceFor converts a white-balance value to a color-balance adjustment.
// Warmer temperatures raise red and lower blue; cooler ones do the opposite.
func BalanceFor(value float64) Balance {
	temp := float64(TemperatureOf(value))

	var redMult, blueMult float64
	if temp < NeutralTemperature {
		f := (NeutralTemperature - temp) / warmSpan
		redMult, blueMult = 1+f, 1-f
	} else {
		f := (temp - NeutralTemperature) / coolSpan
		redMult, blueMult = 1-f, 1+f
	}

	return Balance{
		Red:  (redMult - 1) * redCoefficient,
		Blue: (blueMult - 1) * blueCoefficient,
	}
}

// Balance returns the color-balance adjustment for this grade.
func (c Config) Balance() Balance {
	return BalanceFor(c.whiteBalance)
}
