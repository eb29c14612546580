// Package analysis provides measurement tools for the colorizer.
//
// Frequency response:
//   - MagnitudeResponse turns an impulse response into a magnitude
//     spectrum using an FFT plan from algo-fft.
//   - Response.At and Response.Peak read it back by frequency.
//
// Level metering:
//   - LevelMeter records block peaks from the audio thread with atomic
//     stores so a UI goroutine can read them without locking.
//
// Example usage:
//
//	resp, err := analysis.MagnitudeResponse(impulse, 48000)
//	if err != nil {
//	    return err
//	}
//	freq, mag := resp.Peak(100, 1000)
package analysis
