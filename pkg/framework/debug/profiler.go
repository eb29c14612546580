package debug

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"
)

// DeadlineMonitor tracks how much of each block's real-time budget the
// audio callback used. Record is lock free and allocation free; the other
// methods are for control threads.
type DeadlineMonitor struct {
	enabled   atomic.Bool
	blocks    atomic.Uint64
	overruns  atomic.Uint64
	totalTime atomic.Int64  // nanoseconds
	maxTime   atomic.Int64  // nanoseconds
	lastLoad  atomic.Uint64 // float64 bits
	maxLoad   atomic.Uint64 // float64 bits
}

// DeadlineStats is a point-in-time copy of the monitor counters.
type DeadlineStats struct {
	Blocks   uint64
	Overruns uint64
	Average  time.Duration
	Max      time.Duration
	LastLoad float64 // fraction of the budget, 1 is the deadline
	MaxLoad  float64
}

// NewDeadlineMonitor creates an enabled monitor.
func NewDeadlineMonitor() *DeadlineMonitor {
	m := &DeadlineMonitor{}
	m.enabled.Store(true)
	return m
}

// SetEnabled enables or disables recording.
func (m *DeadlineMonitor) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
}

// IsEnabled returns whether recording is enabled.
func (m *DeadlineMonitor) IsEnabled() bool {
	return m.enabled.Load()
}

// Budget returns the real-time duration of n samples at sampleRate.
func Budget(n int, sampleRate float64) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(n) * float64(time.Second) / sampleRate)
}

// Record stores one block's processing time against its budget.
func (m *DeadlineMonitor) Record(elapsed, budget time.Duration) {
	if !m.enabled.Load() {
		return
	}

	m.blocks.Add(1)
	m.totalTime.Add(int64(elapsed))
	for {
		cur := m.maxTime.Load()
		if int64(elapsed) <= cur || m.maxTime.CompareAndSwap(cur, int64(elapsed)) {
			break
		}
	}

	if budget <= 0 {
		return
	}
	load := float64(elapsed) / float64(budget)
	m.lastLoad.Store(math.Float64bits(load))
	if elapsed > budget {
		m.overruns.Add(1)
	}
	for {
		cur := m.maxLoad.Load()
		if load <= math.Float64frombits(cur) || m.maxLoad.CompareAndSwap(cur, math.Float64bits(load)) {
			break
		}
	}
}

// Stats returns a snapshot of the counters.
func (m *DeadlineMonitor) Stats() DeadlineStats {
	s := DeadlineStats{
		Blocks:   m.blocks.Load(),
		Overruns: m.overruns.Load(),
		Max:      time.Duration(m.maxTime.Load()),
		LastLoad: math.Float64frombits(m.lastLoad.Load()),
		MaxLoad:  math.Float64frombits(m.maxLoad.Load()),
	}
	if s.Blocks > 0 {
		s.Average = time.Duration(m.totalTime.Load() / int64(s.Blocks))
	}
	return s
}

// Reset clears all counters.
func (m *DeadlineMonitor) Reset() {
	m.blocks.Store(0)
	m.overruns.Store(0)
	m.totalTime.Store(0)
	m.maxTime.Store(0)
	m.lastLoad.Store(0)
	m.maxLoad.Store(0)
}

// Report generates a human readable summary.
func (s DeadlineStats) Report() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "blocks=%d overruns=%d", s.Blocks, s.Overruns)
	fmt.Fprintf(&sb, " avg=%v max=%v", s.Average, s.Max)
	fmt.Fprintf(&sb, " load=%.1f%% peak=%.1f%%", s.LastLoad*100, s.MaxLoad*100)
	return sb.String()
}
