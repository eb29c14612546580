// Package gain provides amplitude and gain-related DSP operations.
package gain

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Constants for dB conversion
const (
	// MinDB is the floor used for zero or negative amplitudes (effectively -infinity)
	MinDB = -200.0

	// Unity is 0 dB as a linear factor
	Unity = 1.0
)

// LinearToDb converts a linear amplitude value to decibels.
// Returns MinDB for values <= 0.
func LinearToDb(linear float64) float64 {
	if linear <= 0 {
		return MinDB
	}
	db := 20.0 * math.Log10(linear)
	if db < MinDB {
		return MinDB
	}
	return db
}

// DbToLinear converts a decibel value to linear amplitude.
// Values <= MinDB return 0.
func DbToLinear(db float64) float64 {
	if db <= MinDB {
		return 0
	}
	return math.Pow(10.0, db/20.0)
}

// SkewFactor returns the exponent that makes a gain range [minDB, maxDB]
// look linear in dB once normalized: the dB midpoint maps to 0.5.
func SkewFactor(minDB, maxDB float64) float64 {
	minGain := DbToLinear(minDB)
	maxGain := DbToLinear(maxDB)
	midGain := DbToLinear((minDB + maxDB) / 2)
	return math.Log(0.5) / math.Log((midGain-minGain)/(maxGain-minGain))
}

// ApplyRamp multiplies buf by a per-sample gain ramp in-place.
// Both slices must have the same length.
func ApplyRamp(buf, ramp []float64) {
	if len(buf) == 0 {
		return
	}
	vecmath.MulBlockInPlace(buf, ramp)
}

// HardClip limits a sample to [-threshold, threshold].
func HardClip(input, threshold float64) float64 {
	if input > threshold {
		return threshold
	}
	if input < -threshold {
		return -threshold
	}
	return input
}
