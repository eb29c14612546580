// Package octave derives octave-repeated resonance frequencies from a single
// nominal band.
package octave

// MaxRepeats is the largest number of octave repeats a band can expand to.
const MaxRepeats = 10

// Band is one slot produced by the expander.
type Band struct {
	Frequency float64
	Active    bool
}

// Bands holds every slot the expander can produce. Slots beyond the
// requested count are always inactive.
type Bands [MaxRepeats]Band

// ActiveCount returns the number of active slots.
func (b *Bands) ActiveCount() int {
	n := 0
	for i := range b {
		if b[i].Active {
			n++
		}
	}
	return n
}

// Expand fills dst with the bands for a base frequency.
//
// Without repeat a single band sits at base. With repeat, count bands are
// stacked upward at base·2^k for k = 0..count-1. count is clamped to
// [1, MaxRepeats]. Any band at or above Nyquist is marked inactive but keeps
// its computed frequency.
func Expand(dst *Bands, base float64, repeat bool, count int, sampleRate float64) {
	if count < 1 {
		count = 1
	} else if count > MaxRepeats {
		count = MaxRepeats
	}
	if !repeat {
		count = 1
	}

	nyquist := sampleRate / 2
	freq := base
	for k := range dst {
		dst[k].Frequency = freq
		dst[k].Active = k < count && freq > 0 && freq < nyquist
		freq *= 2
	}
}
