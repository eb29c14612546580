// Package utility provides test and demo signal sources.
package utility

import (
	"math/rand"
)

// NoiseType represents different types of noise.
type NoiseType int

const (
	// WhiteNoise has equal energy at all frequencies
	WhiteNoise NoiseType = iota
	// PinkNoise has equal energy per octave (1/f spectrum)
	PinkNoise
	// BrownNoise has 1/f² spectrum (Brownian noise)
	BrownNoise
)

// ParseNoiseType maps "white", "pink" or "brown" to a NoiseType.
func ParseNoiseType(s string) (NoiseType, bool) {
	switch s {
	case "white":
		return WhiteNoise, true
	case "pink":
		return PinkNoise, true
	case "brown":
		return BrownNoise, true
	}
	return WhiteNoise, false
}

// NoiseGenerator generates reproducible noise in [-1, 1].
type NoiseGenerator struct {
	noiseType NoiseType
	seed      int64
	rand      *rand.Rand

	// Pink noise state (Voss-McCartney algorithm)
	pinkRows [16]float64
	pinkSum  float64
	pinkTick uint32

	brownState float64
}

// NewNoiseGenerator creates a generator with a fixed seed.
func NewNoiseGenerator(noiseType NoiseType, seed int64) *NoiseGenerator {
	n := &NoiseGenerator{noiseType: noiseType, seed: seed}
	n.Reset()
	return n
}

// Reset restarts the sequence from the seed.
func (n *NoiseGenerator) Reset() {
	n.rand = rand.New(rand.NewSource(n.seed))
	n.pinkSum = 0
	n.pinkTick = 0
	for i := range n.pinkRows {
		n.pinkRows[i] = n.white()
		n.pinkSum += n.pinkRows[i]
	}
	n.brownState = 0
}

func (n *NoiseGenerator) white() float64 {
	return n.rand.Float64()*2 - 1
}

// Next generates the next noise sample.
func (n *NoiseGenerator) Next() float64 {
	switch n.noiseType {
	case PinkNoise:
		return n.nextPink()
	case BrownNoise:
		return n.nextBrown()
	default:
		return n.white()
	}
}

func (n *NoiseGenerator) nextPink() float64 {
	// Update the row picked by the lowest set bit of the counter.
	n.pinkTick++
	row := 0
	for t := n.pinkTick; t&1 == 0 && row < len(n.pinkRows)-1; t >>= 1 {
		row++
	}
	n.pinkSum -= n.pinkRows[row]
	n.pinkRows[row] = n.white()
	n.pinkSum += n.pinkRows[row]

	return clamp((n.pinkSum + n.white()) / float64(len(n.pinkRows)+1))
}

func (n *NoiseGenerator) nextBrown() float64 {
	// Leaky integrator to prevent DC buildup
	n.brownState = (n.brownState + n.white()*0.0625) * 0.997
	n.brownState = clamp(n.brownState)
	return n.brownState
}

// Generate fills a buffer with noise scaled by gain.
func (n *NoiseGenerator) Generate(buffer []float32, gain float64) {
	for i := range buffer {
		buffer[i] = float32(n.Next() * gain)
	}
}

func clamp(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
