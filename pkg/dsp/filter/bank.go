package filter

import (
	"github.com/Dhhoyt/HueHue/pkg/dsp/octave"
)

// Bank is a fixed set of peaking stages summed in parallel:
//
//	y = x + Σ mix_k · (stage_k(x) − x)
//
// Every stage is allocated up front; structural changes only toggle stages
// and fade their contribution in or out.
type Bank struct {
	stages  [octave.MaxRepeats]Stage
	running [octave.MaxRepeats]bool
	active  [octave.MaxRepeats]bool
	mix     [octave.MaxRepeats]float64

	channels   int
	sampleRate float64
	fadeStep   float64

	gain float64
	q    float64
	amp  float64
	invQ float64
}

// NewBank creates a bank for the given channel count (at most MaxChannels).
// fadeSamples is the length of a structural fade; 0 switches stages instantly.
func NewBank(channels int, sampleRate float64, fadeSamples int) *Bank {
	if channels > MaxChannels {
		channels = MaxChannels
	}
	b := &Bank{
		channels:   channels,
		sampleRate: sampleRate,
		gain:       1,
		q:          1,
	}
	b.SetFadeSamples(fadeSamples)
	b.amp, b.invQ = ShapeParams(b.gain, b.q)
	return b
}

// Channels returns the number of channels the bank filters.
func (b *Bank) Channels() int {
	return b.channels
}

// SetFadeSamples sets the structural fade length.
func (b *Bank) SetFadeSamples(n int) {
	if n <= 0 {
		b.fadeStep = 1
		return
	}
	b.fadeStep = 1 / float64(n)
}

// SetSampleRate re-derives every stage angle for a new sample rate.
// Stages are re-derived from their current frequency; callers normally
// follow up with Configure since Nyquist moved.
func (b *Bank) SetSampleRate(sampleRate float64) {
	b.sampleRate = sampleRate
	for k := range b.stages {
		st := &b.stages[k]
		st.SetFrequency(st.frequency, sampleRate)
		st.SetShape(b.amp, b.invQ)
	}
}

// Configure applies an expander result. Newly active stages start from a
// cleared delay line and fade in; deactivated stages fade out and stop once
// silent. With instant set, mixes jump straight to their targets.
func (b *Bank) Configure(bands *octave.Bands, instant bool) {
	for k := range b.stages {
		st := &b.stages[k]
		band := bands[k]

		if band.Active {
			if band.Frequency != st.frequency {
				st.SetFrequency(band.Frequency, b.sampleRate)
			}
			if !b.running[k] {
				st.Reset()
				b.running[k] = true
				b.mix[k] = 0
			}
			// Stopped stages miss SetResonance updates.
			st.SetShape(b.amp, b.invQ)
		} else if b.running[k] && band.Frequency >= b.sampleRate/2 {
			// The old angle would alias; drop it immediately.
			b.running[k] = false
			b.mix[k] = 0
		}
		b.active[k] = band.Active

		if instant {
			if band.Active {
				b.mix[k] = 1
			} else {
				b.running[k] = false
				b.mix[k] = 0
			}
		}
	}
}

// SetResonance updates the linear resonant gain and Q of every running
// stage. It is a no-op when neither value changed.
func (b *Bank) SetResonance(linearGain, q float64) {
	if linearGain == b.gain && q == b.q {
		return
	}
	b.gain, b.q = linearGain, q
	b.amp, b.invQ = ShapeParams(linearGain, q)
	for k := range b.stages {
		if b.running[k] {
			b.stages[k].SetShape(b.amp, b.invQ)
		}
	}
}

// Advance moves structural fades forward by one sample. Call once per
// sample before processing the channels.
func (b *Bank) Advance() {
	for k := range b.stages {
		if !b.running[k] {
			continue
		}
		if b.active[k] {
			if b.mix[k] < 1 {
				b.mix[k] += b.fadeStep
				if b.mix[k] > 1 {
					b.mix[k] = 1
				}
			}
			continue
		}
		b.mix[k] -= b.fadeStep
		if b.mix[k] <= 0 {
			b.mix[k] = 0
			b.running[k] = false
		}
	}
}

// Process filters one sample of channel ch through every running stage.
func (b *Bank) Process(ch int, x float64) float64 {
	y := x
	for k := range b.stages {
		if !b.running[k] {
			continue
		}
		y += b.mix[k] * (b.stages[k].Tick(ch, x) - x)
	}
	return y
}

// Reset clears the state of every stage.
func (b *Bank) Reset() {
	for k := range b.stages {
		b.stages[k].Reset()
	}
}

// FlushDenormals zeroes vanishing state values. Call once per block.
func (b *Bank) FlushDenormals() {
	for k := range b.stages {
		if b.running[k] {
			b.stages[k].flushDenormals()
		}
	}
}

// ActiveCount returns the number of stages targeted active.
func (b *Bank) ActiveCount() int {
	n := 0
	for _, a := range b.active {
		if a {
			n++
		}
	}
	return n
}

// RunningCount returns the number of stages still contributing, including
// those fading out.
func (b *Bank) RunningCount() int {
	n := 0
	for _, r := range b.running {
		if r {
			n++
		}
	}
	return n
}

// Stage returns the k-th stage for inspection.
func (b *Bank) Stage(k int) *Stage {
	return &b.stages[k]
}

// Mix returns the current contribution weight of stage k.
func (b *Bank) Mix(k int) float64 {
	return b.mix[k]
}

// UnstableResets sums the stability-guard resets over every stage.
func (b *Bank) UnstableResets() uint64 {
	var n uint64
	for k := range b.stages {
		n += b.stages[k].Resets()
	}
	return n
}
