// Command huehue-response prints the colorizer's magnitude response at
// every band centre.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"text/tabwriter"

	"github.com/Dhhoyt/HueHue/pkg/dsp/analysis"
	"github.com/Dhhoyt/HueHue/pkg/dsp/gain"
	"github.com/Dhhoyt/HueHue/pkg/dsp/octave"
	"github.com/Dhhoyt/HueHue/pkg/framework/debug"
	"github.com/Dhhoyt/HueHue/pkg/framework/param"
	"github.com/Dhhoyt/HueHue/pkg/huehue"
)

func main() {
	var (
		sampleRate = flag.Float64("sample-rate", 48000, "sample rate in Hz")
		base       = flag.Float64("base", 110, "lowest resonance in Hz")
		repeat     = flag.Bool("repeat", true, "repeat the resonance every octave")
		repeats    = flag.Int("range", 10, "number of octave repeats (1-10)")
		resonantDB = flag.Float64("resonant", 12, "resonant gain in dB")
		q          = flag.Float64("q", 30, "resonance Q")
		gainDB     = flag.Float64("gain", 0, "output gain in dB")
		size       = flag.Int("size", 1<<17, "impulse length in samples")
		logLevel   = flag.String("log-level", "warn", "debug|info|warn|error|off")
	)
	flag.Parse()

	level, err := debug.ParseLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	logger := debug.New(os.Stderr, "huehue-response", debug.FlagLevel|debug.FlagPrefix)
	logger.SetLevel(level)

	repeatValue := 0.0
	if *repeat {
		repeatValue = 1
	}
	settings := []huehue.Setting{
		{ID: huehue.ParamRepeatOctaves, Value: repeatValue},
		{ID: huehue.ParamRepeatRange, Value: float64(*repeats)},
		{ID: huehue.ParamResonantGain, Value: gain.DbToLinear(*resonantDB)},
		{ID: huehue.ParamQ, Value: *q},
		{ID: huehue.ParamGain, Value: gain.DbToLinear(*gainDB)},
	}

	opts := []huehue.Option{
		huehue.WithSampleRate(*sampleRate),
		huehue.WithBaseFrequency(*base),
	}
	impulse, err := huehue.ImpulseResponse(*size, settings, opts...)
	if err != nil {
		log.Fatal(err)
	}

	samples := make([]float32, len(impulse))
	for i, v := range impulse {
		samples[i] = float32(v)
	}
	limit := huehue.ApplyOptions(opts...).OutputLimit
	for _, issue := range debug.CheckBuffer(samples, "impulse", float32(limit)) {
		logger.Warn("%s, response is unreliable", issue)
	}
	debug.LogBufferStats(logger, samples, "impulse")

	resp, err := analysis.MagnitudeResponse(impulse, *sampleRate)
	if err != nil {
		log.Fatal(err)
	}

	var bands octave.Bands
	octave.Expand(&bands, *base, *repeat, *repeats, *sampleRate)

	fmt.Printf("fft size %d, resolution %.2f Hz\n", resp.Size, resp.BinFrequency(1))
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "band\tcentre\tresponse\tpeak at\t")
	for k, b := range bands {
		if !b.Active {
			continue
		}
		lo, hi := b.Frequency/math.Sqrt2, b.Frequency*math.Sqrt2
		peak, mag := resp.Peak(lo, hi)
		fmt.Fprintf(tw, "%d\t%s\t%.2f dB\t%s (%.2f dB)\t\n",
			k, param.FrequencyFormatter(b.Frequency), resp.AtDB(b.Frequency),
			param.FrequencyFormatter(peak), gain.LinearToDb(mag))
	}
	if err := tw.Flush(); err != nil {
		log.Fatal(err)
	}
}
