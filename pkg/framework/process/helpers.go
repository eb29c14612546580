package process

import (
	"math"

	"github.com/Dhhoyt/HueHue/pkg/dsp/gain"
)

// LoadChannel converts channel ch of the input block into its work buffer
// starting at offset and returns the filled slice.
func (c *Context) LoadChannel(ch, offset, n int) []float64 {
	work := c.work[ch][:n]
	in := c.Input[ch][offset : offset+n]
	for i, x := range in {
		work[i] = float64(x)
	}
	return work
}

// StoreChannel writes work back to output channel ch at offset. NaN
// becomes silence and values are limited to +-limit.
func (c *Context) StoreChannel(ch, offset int, work []float64, limit float64) {
	out := c.Output[ch][offset : offset+len(work)]
	for i, y := range work {
		if math.IsNaN(y) {
			y = 0
		}
		out[i] = float32(gain.HardClip(y, limit))
	}
}

// InputPeak returns the largest absolute input sample across channels.
func (c *Context) InputPeak() float64 {
	return peak(c.Input, c.NumChannels())
}

// OutputPeak returns the largest absolute output sample across channels.
func (c *Context) OutputPeak() float64 {
	return peak(c.Output, c.NumChannels())
}

func peak(bufs [][]float32, channels int) float64 {
	var p float32
	for ch := 0; ch < channels; ch++ {
		for _, x := range bufs[ch] {
			if x < 0 {
				x = -x
			}
			if x > p {
				p = x
			}
		}
	}
	return float64(p)
}
