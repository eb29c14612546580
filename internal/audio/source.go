package audio

import (
	"math"
	"sync/atomic"

	"github.com/Dhhoyt/HueHue/pkg/dsp/analysis"
	"github.com/Dhhoyt/HueHue/pkg/framework/process"
)

// Generator produces a mono signal scaled by gain.
type Generator interface {
	Generate(dst []float32, gain float64)
}

// Effect processes planar blocks, as huehue.Processor does.
type Effect interface {
	Process(input, output [][]float32, sampleRate float64) process.Status
}

// EffectSource runs generated input through an Effect and interleaves the
// result. It accepts mono or stereo effects; mono output is duplicated.
type EffectSource struct {
	effect     Effect
	gens       []Generator
	sampleRate float64
	level      atomic.Uint64 // float64 bits

	in, out [][]float32
	block   int
	silent  atomic.Uint64
	meter   *analysis.LevelMeter
}

// NewEffectSource feeds one generator per effect channel into effect in
// blocks of at most blockSize frames.
func NewEffectSource(effect Effect, sampleRate float64, blockSize int, gens ...Generator) *EffectSource {
	if blockSize <= 0 {
		blockSize = 512
	}
	s := &EffectSource{
		effect:     effect,
		gens:       gens,
		sampleRate: sampleRate,
		block:      blockSize,
		meter:      analysis.NewLevelMeter(3),
		in:         make([][]float32, len(gens)),
		out:        make([][]float32, len(gens)),
	}
	for ch := range gens {
		s.in[ch] = make([]float32, blockSize)
		s.out[ch] = make([]float32, blockSize)
	}
	s.SetLevel(1)
	return s
}

// SetLevel sets the generator gain. Safe from any goroutine.
func (s *EffectSource) SetLevel(level float64) {
	s.level.Store(math.Float64bits(level))
}

// Level returns the generator gain.
func (s *EffectSource) Level() float64 {
	return math.Float64frombits(s.level.Load())
}

// SilentBlocks counts blocks the effect reported as silent.
func (s *EffectSource) SilentBlocks() uint64 {
	return s.silent.Load()
}

// Meter reports the level of everything sent to the device.
func (s *EffectSource) Meter() *analysis.LevelMeter {
	return s.meter
}

// Process implements SampleSource.
func (s *EffectSource) Process(dst []float32) {
	channels := len(s.gens)
	if channels == 0 {
		clear(dst)
		return
	}
	level := s.Level()
	frames := len(dst) / Channels
	for done := 0; done < frames; {
		n := min(s.block, frames-done)
		in := s.in
		out := s.out
		for ch := 0; ch < channels; ch++ {
			in[ch] = in[ch][:n]
			out[ch] = out[ch][:n]
			s.gens[ch].Generate(in[ch], level)
		}
		if s.effect.Process(in, out, s.sampleRate) == process.Silent {
			s.silent.Add(1)
		}

		frame := dst[done*Channels:]
		for i := 0; i < n; i++ {
			for c := 0; c < Channels; c++ {
				frame[i*Channels+c] = out[min(c, channels-1)][i]
			}
		}
		done += n
	}
	clear(dst[frames*Channels:])
	s.meter.Process(dst)
}
