// Package filter provides the resonant peaking filters behind the colorizer bank.
package filter

import (
	"errors"
	"math"
	"sync/atomic"
)

// MaxChannels is the number of independent delay lines each stage keeps.
const MaxChannels = 2

const (
	// MinQ keeps alpha finite when the Q parameter reaches zero.
	MinQ = 0.01

	// stageLimit is the magnitude past which a stage output counts as divergent.
	stageLimit = 1e6

	// denormalThreshold is the state magnitude flushed to zero.
	denormalThreshold = 1e-25
)

// ErrUnstableFilterState reports that a stage diverged and its delay line was cleared.
var ErrUnstableFilterState = errors.New("filter: unstable filter state")

// Stage is a second-order RBJ peaking filter (Direct Form II transposed)
// with one delay line per channel. The sine and cosine of the centre angle
// are cached so gain and Q changes never touch trigonometry.
type Stage struct {
	frequency  float64
	sampleRate float64
	sinW, cosW float64

	// Coefficients, normalized so a0 = 1
	b0, b1, b2 float64
	a1, a2     float64

	// State variables (per-channel)
	d0, d1 [MaxChannels]float64

	resets atomic.Uint64
}

// SetFrequency moves the centre frequency. This is the only call that
// evaluates sin/cos. Coefficients are refreshed by the next SetShape.
func (s *Stage) SetFrequency(frequency, sampleRate float64) {
	s.frequency = frequency
	s.sampleRate = sampleRate
	omega := 2.0 * math.Pi * frequency / sampleRate
	s.sinW, s.cosW = math.Sincos(omega)
}

// Frequency returns the centre frequency in Hz.
func (s *Stage) Frequency() float64 {
	return s.frequency
}

// SetShape recomputes coefficients from amp = sqrt(linear gain), i.e.
// 10^(dB/40), and invTwoQ = 1/(2Q). O(1), no trigonometry.
func (s *Stage) SetShape(amp, invTwoQ float64) {
	alpha := s.sinW * invTwoQ
	invA0 := 1.0 / (1.0 + alpha/amp)

	s.b0 = (1.0 + alpha*amp) * invA0
	s.b1 = -2.0 * s.cosW * invA0
	s.b2 = (1.0 - alpha*amp) * invA0
	s.a1 = s.b1
	s.a2 = (1.0 - alpha/amp) * invA0
}

// ShapeParams converts linear gain and Q into the SetShape arguments.
func ShapeParams(linearGain, q float64) (amp, invTwoQ float64) {
	if q < MinQ || math.IsNaN(q) {
		q = MinQ
	}
	if linearGain <= 0 || math.IsNaN(linearGain) {
		linearGain = 1e-10
	}
	return math.Sqrt(linearGain), 1.0 / (2.0 * q)
}

// RingSamples returns how many samples a peaking stage at frequency takes
// for its impulse response to decay by floorDB. A unity gain stage is
// transparent and never rings. Unstable poles report math.MaxInt32.
func RingSamples(frequency, sampleRate, linearGain, q, floorDB float64) int {
	if linearGain == 1 || !(frequency > 0) || frequency >= sampleRate/2 {
		return 0
	}
	var st Stage
	st.SetFrequency(frequency, sampleRate)
	st.SetShape(ShapeParams(linearGain, q))

	// Largest pole radius of z^2 + a1 z + a2.
	var r float64
	if d := st.a1*st.a1 - 4*st.a2; d < 0 {
		r = math.Sqrt(st.a2)
	} else {
		r = (math.Abs(st.a1) + math.Sqrt(d)) / 2
	}
	switch {
	case r <= 0:
		return 0
	case r >= 1:
		return math.MaxInt32
	}
	n := math.Ceil(-floorDB / 20 * math.Ln10 / math.Log(r))
	return int(math.Min(n, math.MaxInt32))
}

// Coefficients returns the normalized b0, b1, b2, a1, a2.
func (s *Stage) Coefficients() (b0, b1, b2, a1, a2 float64) {
	return s.b0, s.b1, s.b2, s.a1, s.a2
}

// Tick filters one sample on channel ch. A non-finite or runaway output
// clears that channel's delay line, counts a reset and returns the input
// unchanged.
func (s *Stage) Tick(ch int, x float64) float64 {
	y := s.b0*x + s.d0[ch]
	if math.IsNaN(y) || y > stageLimit || y < -stageLimit {
		s.d0[ch], s.d1[ch] = 0, 0
		s.resets.Add(1)
		return x
	}
	s.d0[ch] = s.b1*x - s.a1*y + s.d1[ch]
	s.d1[ch] = s.b2*x - s.a2*y
	return y
}

// Reset clears the filter state on every channel.
func (s *Stage) Reset() {
	for ch := range s.d0 {
		s.d0[ch] = 0
		s.d1[ch] = 0
	}
}

// Resets returns how many times the stability guard cleared this stage.
func (s *Stage) Resets() uint64 {
	return s.resets.Load()
}

func (s *Stage) flushDenormals() {
	for ch := range s.d0 {
		if math.Abs(s.d0[ch]) < denormalThreshold {
			s.d0[ch] = 0
		}
		if math.Abs(s.d1[ch]) < denormalThreshold {
			s.d1[ch] = 0
		}
	}
}
