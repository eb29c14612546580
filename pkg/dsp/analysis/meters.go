package analysis

import (
	"math"
	"sync/atomic"

	"github.com/Dhhoyt/HueHue/pkg/dsp/gain"
)

// LevelMeter tracks peak levels written by the audio thread and read by
// a UI goroutine. Writes and reads are single atomic operations.
type LevelMeter struct {
	peak atomic.Uint64 // float64 bits, decays towards 0
	hold atomic.Uint64 // float64 bits, max since last Reset

	decay float64
}

// NewLevelMeter creates a meter whose running peak falls by decayDB per block.
func NewLevelMeter(decayDB float64) *LevelMeter {
	return &LevelMeter{decay: gain.DbToLinear(-math.Abs(decayDB))}
}

// Process folds one block of float32 samples into the meter.
func (m *LevelMeter) Process(samples []float32) {
	blockPeak := 0.0
	for _, s := range samples {
		a := math.Abs(float64(s))
		if a > blockPeak {
			blockPeak = a
		}
	}

	peak := math.Float64frombits(m.peak.Load()) * m.decay
	if blockPeak > peak {
		peak = blockPeak
	}
	m.peak.Store(math.Float64bits(peak))

	if blockPeak > math.Float64frombits(m.hold.Load()) {
		m.hold.Store(math.Float64bits(blockPeak))
	}
}

// Peak returns the decaying peak level.
func (m *LevelMeter) Peak() float64 {
	return math.Float64frombits(m.peak.Load())
}

// PeakDB returns the decaying peak level in dB.
func (m *LevelMeter) PeakDB() float64 {
	return gain.LinearToDb(m.Peak())
}

// Hold returns the highest block peak since the last Reset.
func (m *LevelMeter) Hold() float64 {
	return math.Float64frombits(m.hold.Load())
}

// Reset clears both the running peak and the hold value.
func (m *LevelMeter) Reset() {
	m.peak.Store(0)
	m.hold.Store(0)
}
