package analysis

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/Dhhoyt/HueHue/pkg/dsp/gain"
)

// ErrEmptyImpulse is returned when there is nothing to transform.
var ErrEmptyImpulse = errors.New("analysis: empty impulse response")

// Response is a one-sided magnitude spectrum (bins 0..N/2).
type Response struct {
	SampleRate float64
	Size       int
	Magnitude  []float64
}

// MagnitudeResponse zero-pads the impulse response to a power of two and
// returns its magnitude spectrum.
func MagnitudeResponse(impulse []float64, sampleRate float64) (*Response, error) {
	if len(impulse) == 0 {
		return nil, ErrEmptyImpulse
	}

	size := nextPowerOf2(len(impulse))
	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("analysis: failed to create FFT plan: %w", err)
	}

	in := make([]complex128, size)
	for i, v := range impulse {
		in[i] = complex(v, 0)
	}
	out := make([]complex128, size)
	if err := plan.Forward(out, in); err != nil {
		return nil, fmt.Errorf("analysis: forward FFT failed: %w", err)
	}

	bins := size/2 + 1
	re := make([]float64, bins)
	im := make([]float64, bins)
	for k := 0; k < bins; k++ {
		re[k] = real(out[k])
		im[k] = imag(out[k])
	}

	mag := make([]float64, bins)
	vecmath.Magnitude(mag, re, im)

	return &Response{SampleRate: sampleRate, Size: size, Magnitude: mag}, nil
}

// BinFrequency returns the centre frequency of bin k in Hz.
func (r *Response) BinFrequency(k int) float64 {
	return float64(k) * r.SampleRate / float64(r.Size)
}

// Bin returns the bin nearest to freq.
func (r *Response) Bin(freq float64) int {
	k := int(math.Round(freq * float64(r.Size) / r.SampleRate))
	if k < 0 {
		return 0
	}
	if k >= len(r.Magnitude) {
		return len(r.Magnitude) - 1
	}
	return k
}

// At returns the linear magnitude nearest to freq.
func (r *Response) At(freq float64) float64 {
	return r.Magnitude[r.Bin(freq)]
}

// AtDB returns the magnitude nearest to freq in dB.
func (r *Response) AtDB(freq float64) float64 {
	return gain.LinearToDb(r.At(freq))
}

// Peak returns the frequency and magnitude of the largest bin in [lo, hi].
func (r *Response) Peak(lo, hi float64) (freq, mag float64) {
	best := r.Bin(lo)
	for k := best; k <= r.Bin(hi); k++ {
		if r.Magnitude[k] > r.Magnitude[best] {
			best = k
		}
	}
	return r.BinFrequency(best), r.Magnitude[best]
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
