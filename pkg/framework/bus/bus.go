// Package bus describes the audio channel layouts a processor accepts.
package bus

import (
	"errors"
	"fmt"
)

// ErrUnsupportedLayout is returned for channel counts no bus accepts.
var ErrUnsupportedLayout = errors.New("unsupported channel layout")

// Direction represents the bus direction
type Direction int32

const (
	// DirectionInput represents input bus
	DirectionInput Direction = 0
	// DirectionOutput represents output bus
	DirectionOutput Direction = 1
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	if d == DirectionInput {
		return "input"
	}
	return "output"
}

// Info contains bus configuration
type Info struct {
	Direction    Direction
	ChannelCount int
	Name         string
}

// Configuration is a main input and output bus pair.
type Configuration struct {
	input  Info
	output Info
}

// NewStereoConfiguration creates a standard stereo I/O configuration
func NewStereoConfiguration() *Configuration {
	return &Configuration{
		input:  Info{Direction: DirectionInput, ChannelCount: 2, Name: "Stereo In"},
		output: Info{Direction: DirectionOutput, ChannelCount: 2, Name: "Stereo Out"},
	}
}

// NewMonoConfiguration creates a mono I/O configuration
func NewMonoConfiguration() *Configuration {
	return &Configuration{
		input:  Info{Direction: DirectionInput, ChannelCount: 1, Name: "Mono In"},
		output: Info{Direction: DirectionOutput, ChannelCount: 1, Name: "Mono Out"},
	}
}

// Bus returns the main bus for a direction.
func (c *Configuration) Bus(direction Direction) Info {
	if direction == DirectionInput {
		return c.input
	}
	return c.output
}

// Channels returns the channel count of the main bus in a direction.
func (c *Configuration) Channels(direction Direction) int {
	return c.Bus(direction).ChannelCount
}

// Accept checks a block's channel counts. A block may use fewer channels
// than the bus carries (mono into a stereo bus) but input and output
// must match.
func (c *Configuration) Accept(inputs, outputs int) error {
	switch {
	case inputs != outputs:
		return fmt.Errorf("%w: %d inputs, %d outputs", ErrUnsupportedLayout, inputs, outputs)
	case inputs < 1:
		return fmt.Errorf("%w: no channels", ErrUnsupportedLayout)
	case inputs > c.input.ChannelCount:
		return fmt.Errorf("%w: %d channels on %s", ErrUnsupportedLayout, inputs, c.input.Name)
	}
	return nil
}
