// Package param provides parameter declaration, smoothing and lock-free
// publication between control threads and the audio thread.
package param

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the semantic type of a parameter.
type Kind int

const (
	// KindFloat is a bounded continuous value, optionally skewed.
	KindFloat Kind = iota
	// KindInt takes integral values only.
	KindInt
	// KindBool takes 0 or 1.
	KindBool
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Overflow decides what happens to a target above Max.
type Overflow int

const (
	// OverflowReject refuses the value and keeps the previous target.
	OverflowReject Overflow = iota
	// OverflowClamp stores Max and reports ErrConfigurationExceeded.
	OverflowClamp
)

// Parameter describes a plugin parameter. Values are always plain (the
// range the DSP works in); Normalize and Denormalize map to the host's
// 0-1 automation range.
type Parameter struct {
	ID           string
	Name         string
	Unit         string
	Kind         Kind
	Min          float64
	Max          float64
	DefaultValue float64
	Skew         float64 // 1 is linear
	Smoothing    SmoothingStyle
	SmoothingMs  float64
	Overflow     Overflow

	// Value formatting
	formatFunc func(float64) string
	parseFunc  func(string) (float64, error)
}

// Validate checks a plain value and returns the value to store. Int
// values are rounded. Values above Max are clamped under OverflowClamp,
// in which case the clamped value is returned alongside
// ErrConfigurationExceeded.
func (p *Parameter) Validate(value float64) (float64, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: %s=%v is not finite", ErrInvalidParameterValue, p.ID, value)
	}

	switch p.Kind {
	case KindBool:
		if value != 0 && value != 1 {
			return 0, fmt.Errorf("%w: %s=%v is not a boolean", ErrInvalidParameterValue, p.ID, value)
		}
		return value, nil
	case KindInt:
		value = math.Round(value)
	}

	if value < p.Min {
		return 0, fmt.Errorf("%w: %s=%v below %v", ErrInvalidParameterValue, p.ID, value, p.Min)
	}
	if value > p.Max {
		if p.Overflow == OverflowClamp {
			return p.Max, fmt.Errorf("%w: %s=%v clamped to %v", ErrConfigurationExceeded, p.ID, value, p.Max)
		}
		return 0, fmt.Errorf("%w: %s=%v above %v", ErrInvalidParameterValue, p.ID, value, p.Max)
	}
	return value, nil
}

// Normalize converts plain to normalized (0-1), applying the skew.
func (p *Parameter) Normalize(plain float64) float64 {
	if p.Max <= p.Min {
		return 0
	}
	normalized := (plain - p.Min) / (p.Max - p.Min)
	if normalized <= 0 {
		return 0
	}
	if normalized >= 1 {
		return 1
	}
	if p.Skew > 0 && p.Skew != 1 {
		normalized = math.Pow(normalized, p.Skew)
	}
	return normalized
}

// Denormalize converts normalized (0-1) to a plain value of the right kind.
func (p *Parameter) Denormalize(normalized float64) float64 {
	if normalized < 0 {
		normalized = 0
	} else if normalized > 1 {
		normalized = 1
	}

	switch p.Kind {
	case KindBool:
		if normalized >= 0.5 {
			return 1
		}
		return 0
	case KindInt:
		return math.Round(p.Min + normalized*(p.Max-p.Min))
	}

	if p.Skew > 0 && p.Skew != 1 {
		normalized = math.Pow(normalized, 1/p.Skew)
	}
	return p.Min + normalized*(p.Max-p.Min)
}

// SetFormatter sets custom value formatting
func (p *Parameter) SetFormatter(format func(float64) string, parse func(string) (float64, error)) {
	p.formatFunc = format
	p.parseFunc = parse
}

// FormatValue returns the display string for a plain value.
func (p *Parameter) FormatValue(plain float64) string {
	if p.formatFunc != nil {
		return p.formatFunc(plain)
	}

	// Default formatting
	switch p.Kind {
	case KindBool:
		return BoolFormatter(plain)
	case KindInt:
		return fmt.Sprintf("%.0f", plain)
	}
	if p.Unit != "" {
		return fmt.Sprintf("%.2f %s", plain, p.Unit)
	}
	return fmt.Sprintf("%.2f", plain)
}

// ParseValue parses a display string back to a plain value. The result
// is not validated.
func (p *Parameter) ParseValue(str string) (float64, error) {
	if p.parseFunc != nil {
		return p.parseFunc(str)
	}
	if p.Kind == KindBool {
		return BoolParser(str)
	}
	return strconv.ParseFloat(str, 64)
}
