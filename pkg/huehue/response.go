package huehue

import (
	"errors"
	"fmt"

	"github.com/Dhhoyt/HueHue/pkg/dsp/analysis"
	"github.com/Dhhoyt/HueHue/pkg/framework/debug"
	"github.com/Dhhoyt/HueHue/pkg/framework/param"
)

// Setting is one parameter target used by MeasureResponse.
type Setting struct {
	ID    string
	Value float64
}

// ImpulseResponse runs a unit impulse through a fresh mono processor with
// every setting applied and returns the first length output samples.
// Clamped settings are accepted.
func ImpulseResponse(length int, settings []Setting, opts ...Option) ([]float64, error) {
	if length <= 0 {
		return nil, analysis.ErrEmptyImpulse
	}
	opts = append([]Option{WithLogger(debug.Discard())}, opts...)
	opts = append(opts, WithMono(), WithSilenceThreshold(0))
	p, err := New(opts...)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, s := range settings {
		if err := p.SetTarget(s.ID, s.Value); err != nil && !errors.Is(err, param.ErrConfigurationExceeded) {
			errs = append(errs, fmt.Errorf("%s: %w", s.ID, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	p.Reset()

	block := p.Config().MaxBlockSize
	in := make([]float32, block)
	out := make([]float32, block)
	in[0] = 1

	impulse := make([]float64, 0, length)
	for len(impulse) < length {
		n := min(block, length-len(impulse))
		p.Process([][]float32{in[:n]}, [][]float32{out[:n]}, p.SampleRate())
		for _, v := range out[:n] {
			impulse = append(impulse, float64(v))
		}
		in[0] = 0
	}
	return impulse, nil
}

// MeasureResponse returns the magnitude response of the processor with
// every setting applied.
func MeasureResponse(length int, settings []Setting, opts ...Option) (*analysis.Response, error) {
	impulse, err := ImpulseResponse(length, settings, opts...)
	if err != nil {
		return nil, err
	}
	cfg := ApplyOptions(opts...)
	return analysis.MagnitudeResponse(impulse, cfg.SampleRate)
}
