// Package plugin provides plugin identity and the processor contract.
package plugin

import (
	"github.com/Dhhoyt/HueHue/pkg/framework/bus"
	"github.com/Dhhoyt/HueHue/pkg/framework/param"
	"github.com/Dhhoyt/HueHue/pkg/framework/process"
)

// Processor is implemented by audio effects driven by a host.
type Processor interface {
	// Initialize prepares for processing at sampleRate. May allocate.
	Initialize(sampleRate float64, maxBlockSize int) error
	// ProcessAudio processes one block - zero allocations allowed!
	ProcessAudio(ctx *process.Context) (process.Status, error)
	// Reset clears all audio state.
	Reset()
	Parameters() *param.Store
	Buses() *bus.Configuration
	LatencySamples() int
	TailSamples() int
}

// BaseProcessor provides common functionality for audio processors
type BaseProcessor struct {
	params     *param.Store
	buses      *bus.Configuration
	sampleRate float64
}

// NewBaseProcessor creates a new base processor with the given bus configuration
func NewBaseProcessor(params *param.Store, buses *bus.Configuration) *BaseProcessor {
	if buses == nil {
		buses = bus.NewStereoConfiguration() // Default to stereo
	}
	return &BaseProcessor{
		params: params,
		buses:  buses,
	}
}

// Parameters implements the Processor interface
func (b *BaseProcessor) Parameters() *param.Store {
	return b.params
}

// Buses implements the Processor interface
func (b *BaseProcessor) Buses() *bus.Configuration {
	return b.buses
}

// LatencySamples implements the Processor interface - default no latency
func (b *BaseProcessor) LatencySamples() int {
	return 0
}

// TailSamples implements the Processor interface - default no tail.
// Processors with feedback override it.
func (b *BaseProcessor) TailSamples() int {
	return 0
}

// SampleRate returns the current sample rate
func (b *BaseProcessor) SampleRate() float64 {
	return b.sampleRate
}

// SetSampleRate records the sample rate.
func (b *BaseProcessor) SetSampleRate(sampleRate float64) {
	b.sampleRate = sampleRate
}
