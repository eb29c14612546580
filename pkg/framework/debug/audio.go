package debug

import (
	"fmt"
	"math"
)

// AudioAnalyzer provides utilities for analyzing audio buffers.
type AudioAnalyzer struct {
	clippingThreshold float32
	silenceThreshold  float32
}

// NewAudioAnalyzer creates a new audio analyzer with default settings.
func NewAudioAnalyzer() *AudioAnalyzer {
	return &AudioAnalyzer{
		clippingThreshold: 0.99,
		silenceThreshold:  0.0001,
	}
}

// SetClippingThreshold sets the magnitude counted as clipped.
func (a *AudioAnalyzer) SetClippingThreshold(threshold float32) {
	a.clippingThreshold = threshold
}

// AnalysisResult contains the results of audio buffer analysis.
type AnalysisResult struct {
	Peak           float32
	RMS            float32
	DC             float32
	ClippedSamples int
	Silent         bool
	NaNCount       int
	InfCount       int
}

// Analyze performs analysis on an audio buffer. NaN and Inf samples are
// counted and excluded from the statistics.
func (a *AudioAnalyzer) Analyze(buffer []float32) AnalysisResult {
	result := AnalysisResult{}
	if len(buffer) == 0 {
		return result
	}

	var sum, sumSquares float64
	valid := 0
	for _, sample := range buffer {
		x := float64(sample)
		if math.IsNaN(x) {
			result.NaNCount++
			continue
		}
		if math.IsInf(x, 0) {
			result.InfCount++
			continue
		}
		valid++

		abs := float32(math.Abs(x))
		if abs > result.Peak {
			result.Peak = abs
		}
		if abs >= a.clippingThreshold {
			result.ClippedSamples++
		}
		sum += x
		sumSquares += x * x
	}

	if valid > 0 {
		result.RMS = float32(math.Sqrt(sumSquares / float64(valid)))
		result.DC = float32(sum / float64(valid))
	}
	result.Silent = result.RMS < a.silenceThreshold
	return result
}

// Finite reports whether the buffer held no NaN or Inf samples.
func (r AnalysisResult) Finite() bool {
	return r.NaNCount == 0 && r.InfCount == 0
}

// String formats the result on one line.
func (r AnalysisResult) String() string {
	return fmt.Sprintf("peak=%.4f rms=%.4f dc=%.4f clipped=%d nan=%d inf=%d",
		r.Peak, r.RMS, r.DC, r.ClippedSamples, r.NaNCount, r.InfCount)
}

// CheckBuffer returns a description of every problem found in buffer.
// Samples at or above clip in magnitude count as clipped.
func CheckBuffer(buffer []float32, name string, clip float32) []string {
	var issues []string
	a := NewAudioAnalyzer()
	a.SetClippingThreshold(clip)
	r := a.Analyze(buffer)
	if r.NaNCount > 0 {
		issues = append(issues, fmt.Sprintf("%s: %d NaN samples", name, r.NaNCount))
	}
	if r.InfCount > 0 {
		issues = append(issues, fmt.Sprintf("%s: %d Inf samples", name, r.InfCount))
	}
	if r.ClippedSamples > 0 {
		issues = append(issues, fmt.Sprintf("%s: %d clipped samples", name, r.ClippedSamples))
	}
	if math.Abs(float64(r.DC)) > 0.01 {
		issues = append(issues, fmt.Sprintf("%s: DC offset %.4f", name, r.DC))
	}
	return issues
}

// LogBufferStats logs buffer statistics at debug level.
func LogBufferStats(l *Logger, buffer []float32, name string) {
	if !l.Enabled(LogLevelDebug) {
		return
	}
	l.Debug("%s: %s", name, NewAudioAnalyzer().Analyze(buffer))
}
