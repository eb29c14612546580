package param

import "github.com/Dhhoyt/HueHue/pkg/dsp/gain"

// Builder provides a fluent API for creating parameters
type Builder struct {
	param *Parameter
}

// New creates a new continuous parameter builder with a 0-1 range.
func New(id, name string) *Builder {
	return &Builder{
		param: &Parameter{
			ID:   id,
			Name: name,
			Kind: KindFloat,
			Min:  0,
			Max:  1,
			Skew: 1,
		},
	}
}

// Range sets the min and max values
func (b *Builder) Range(min, max float64) *Builder {
	b.param.Min = min
	b.param.Max = max
	return b
}

// Default sets the default value (in plain range, not normalized)
func (b *Builder) Default(value float64) *Builder {
	b.param.DefaultValue = value
	return b
}

// Unit sets the unit string
func (b *Builder) Unit(unit string) *Builder {
	b.param.Unit = unit
	return b
}

// Skew sets the normalization exponent; 1 is linear.
func (b *Builder) Skew(factor float64) *Builder {
	b.param.Skew = factor
	return b
}

// Smoothed sets the smoothing style and its duration in milliseconds.
func (b *Builder) Smoothed(style SmoothingStyle, ms float64) *Builder {
	b.param.Smoothing = style
	b.param.SmoothingMs = ms
	return b
}

// ClampOverflow makes values above Max clamp instead of being rejected.
func (b *Builder) ClampOverflow() *Builder {
	b.param.Overflow = OverflowClamp
	return b
}

// Toggle turns the parameter into a boolean
func (b *Builder) Toggle() *Builder {
	b.param.Kind = KindBool
	b.param.Min = 0
	b.param.Max = 1
	return b
}

// Integer restricts the parameter to integral values in [min, max].
func (b *Builder) Integer(min, max int) *Builder {
	b.param.Kind = KindInt
	b.param.Min = float64(min)
	b.param.Max = float64(max)
	return b
}

// Formatter sets custom value formatting and parsing
func (b *Builder) Formatter(format func(float64) string, parse func(string) (float64, error)) *Builder {
	b.param.formatFunc = format
	b.param.parseFunc = parse
	return b
}

// Build returns the configured parameter
func (b *Builder) Build() *Parameter {
	return b.param
}

// GainParameter creates a linear-gain parameter spanning [minDB, maxDB],
// skewed so that it automates linearly in dB and displayed in dB.
func GainParameter(id, name string, minDB, maxDB, defaultDB float64) *Builder {
	return New(id, name).
		Range(gain.DbToLinear(minDB), gain.DbToLinear(maxDB)).
		Default(gain.DbToLinear(defaultDB)).
		Skew(gain.SkewFactor(minDB, maxDB)).
		Unit("dB").
		Formatter(GainToDecibelFormatter(2), DecibelToGainParser)
}

// ToggleParameter creates an on/off switch
func ToggleParameter(id, name string, on bool) *Builder {
	def := 0.0
	if on {
		def = 1
	}
	return New(id, name).Toggle().Default(def)
}

// IntParameter creates an integer parameter
func IntParameter(id, name string, min, max, def int) *Builder {
	return New(id, name).Integer(min, max).Default(float64(def))
}
