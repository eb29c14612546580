// Package process provides the per-block audio processing context.
package process

import (
	"github.com/Dhhoyt/HueHue/pkg/framework/param"
)

// Status reports what a processed block contained.
type Status int

const (
	// Normal means the output carries signal.
	Normal Status = iota
	// Silent means input and output were below the silence threshold.
	Silent
)

// String returns the string representation of the status.
func (s Status) String() string {
	if s == Silent {
		return "silent"
	}
	return "normal"
}

// Context provides a clean API for audio processing with zero allocations
type Context struct {
	Input      [][]float32
	Output     [][]float32
	SampleRate float64

	// Events holds the parameter changes for this block, ordered by offset
	// after PrepareEvents.
	Events []param.Event

	// Pre-allocated work buffers, one per channel
	work [][]float64
}

// NewContext creates a new process context with pre-allocated buffers
func NewContext(channels, maxBlockSize, maxEvents int) *Context {
	work := make([][]float64, channels)
	for ch := range work {
		work[ch] = make([]float64, maxBlockSize)
	}
	return &Context{
		Events: make([]param.Event, 0, maxEvents),
		work:   work,
	}
}

// MaxBlockSize returns the work buffer length.
func (c *Context) MaxBlockSize() int {
	if len(c.work) == 0 {
		return 0
	}
	return len(c.work[0])
}

// NumSamples returns the number of samples to process
func (c *Context) NumSamples() int {
	if len(c.Input) > 0 && len(c.Input[0]) > 0 {
		return len(c.Input[0])
	}
	if len(c.Output) > 0 && len(c.Output[0]) > 0 {
		return len(c.Output[0])
	}
	return 0
}

// NumChannels returns the number of channels present on both sides.
func (c *Context) NumChannels() int {
	n := len(c.Input)
	if len(c.Output) < n {
		n = len(c.Output)
	}
	return n
}

// Work returns channel ch's work buffer sized to n samples - no allocation!
func (c *Context) Work(ch, n int) []float64 {
	return c.work[ch][:n]
}

// PrepareEvents clamps and orders Events for an n-sample block.
func (c *Context) PrepareEvents(n int) {
	SortEvents(c.Events, n)
}

// WorkChannels returns the number of pre-allocated work buffers.
func (c *Context) WorkChannels() int {
	return len(c.work)
}

// SortEvents clamps event offsets into [0, n-1] and sorts them by offset,
// keeping arrival order for equal offsets.
func SortEvents(events []param.Event, n int) {
	for i := range events {
		if events[i].Offset < 0 {
			events[i].Offset = 0
		} else if events[i].Offset >= n {
			events[i].Offset = n - 1
		}
	}
	// Stable insertion sort.
	for i := 1; i < len(events); i++ {
		e := events[i]
		j := i - 1
		for ; j >= 0 && events[j].Offset > e.Offset; j-- {
			events[j+1] = events[j]
		}
		events[j+1] = e
	}
}

// PassThrough copies input to output (for bypass)
func (c *Context) PassThrough() {
	for ch := 0; ch < c.NumChannels(); ch++ {
		copy(c.Output[ch], c.Input[ch])
	}
}

// Clear zeros the output buffers
func (c *Context) Clear() {
	for ch := range c.Output {
		clear(c.Output[ch])
	}
}
