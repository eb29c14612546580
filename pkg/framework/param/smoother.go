package param

import (
	"math"

	"github.com/Dhhoyt/HueHue/pkg/dsp/gain"
)

// SmoothingStyle defines different parameter smoothing algorithms.
type SmoothingStyle int

const (
	// NoSmoothing jumps straight to the target.
	NoSmoothing SmoothingStyle = iota
	// LinearSmoothing moves in equal steps and lands on the target exactly.
	LinearSmoothing
	// ExponentialSmoothing uses a one-pole filter that settles within the
	// smoothing time.
	ExponentialSmoothing
	// LogarithmicSmoothing is linear in decibels. Meant for gain values.
	LogarithmicSmoothing
)

// String returns the string representation of the style.
func (s SmoothingStyle) String() string {
	switch s {
	case NoSmoothing:
		return "none"
	case LinearSmoothing:
		return "linear"
	case ExponentialSmoothing:
		return "exponential"
	case LogarithmicSmoothing:
		return "logarithmic"
	default:
		return "unknown"
	}
}

// Exponential smoothing is considered settled at -80 dB of the jump.
const settleRatio = 1e-4

// Smoother provides parameter smoothing to prevent zipper noise. It is
// owned by the audio thread and never allocates.
type Smoother struct {
	style      SmoothingStyle
	timeMs     float64
	sampleRate float64
	length     int // samples per transition

	current   float64
	target    float64
	remaining int

	// one-pole coefficient
	coeff float64

	// dB state for logarithmic smoothing
	currentDB float64
	targetDB  float64
}

// NewSmoother creates a smoother of the given style that takes timeMs
// milliseconds per transition at sampleRate.
func NewSmoother(style SmoothingStyle, timeMs, sampleRate float64) *Smoother {
	s := &Smoother{style: style, timeMs: timeMs}
	s.SetSampleRate(sampleRate)
	return s
}

// SetSampleRate re-derives the transition length. A transition in
// progress finishes at the new length.
func (s *Smoother) SetSampleRate(sampleRate float64) {
	s.sampleRate = sampleRate
	s.length = int(math.Round(s.timeMs * sampleRate / 1000))
	if s.length < 0 {
		s.length = 0
	}
	if s.remaining > s.length {
		s.remaining = s.length
	}
	if s.length > 0 {
		s.coeff = 1 - math.Pow(settleRatio, 1/float64(s.length))
	} else {
		s.coeff = 1
	}
}

// SetTime changes the transition duration.
func (s *Smoother) SetTime(timeMs float64) {
	s.timeMs = timeMs
	s.SetSampleRate(s.sampleRate)
}

// Length returns the transition length in samples.
func (s *Smoother) Length() int {
	return s.length
}

// Style returns the smoothing style.
func (s *Smoother) Style() SmoothingStyle {
	return s.style
}

// SetTarget starts a transition from the current value.
func (s *Smoother) SetTarget(target float64) {
	if target == s.target && s.remaining > 0 {
		return
	}
	s.target = target
	if s.style == NoSmoothing || s.length == 0 || target == s.current {
		s.current = target
		s.remaining = 0
		return
	}
	s.remaining = s.length
	if s.style == LogarithmicSmoothing {
		s.currentDB = gain.LinearToDb(s.current)
		s.targetDB = gain.LinearToDb(target)
	}
}

// Next advances one sample and returns the smoothed value.
func (s *Smoother) Next() float64 {
	if s.remaining == 0 {
		return s.current
	}

	switch s.style {
	case LinearSmoothing:
		s.current += (s.target - s.current) / float64(s.remaining)
		s.remaining--
	case LogarithmicSmoothing:
		s.currentDB += (s.targetDB - s.currentDB) / float64(s.remaining)
		s.remaining--
		s.current = gain.DbToLinear(s.currentDB)
	case ExponentialSmoothing:
		s.current += (s.target - s.current) * s.coeff
		s.remaining--
	default:
		s.remaining = 0
	}

	if s.remaining == 0 {
		s.current = s.target
	}
	return s.current
}

// IsSmoothing returns true if the smoother is currently smoothing.
func (s *Smoother) IsSmoothing() bool {
	return s.remaining > 0
}

// Remaining returns the number of samples left in the current transition.
func (s *Smoother) Remaining() int {
	return s.remaining
}

// Current returns the last produced value.
func (s *Smoother) Current() float64 {
	return s.current
}

// Target returns the value the smoother is heading to.
func (s *Smoother) Target() float64 {
	return s.target
}

// Reset jumps to value with no transition.
func (s *Smoother) Reset(value float64) {
	s.current = value
	s.target = value
	s.remaining = 0
}
