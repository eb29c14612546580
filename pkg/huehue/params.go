package huehue

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Dhhoyt/HueHue/pkg/dsp/octave"
	"github.com/Dhhoyt/HueHue/pkg/framework/param"
)

// Parameter ids. These are persisted by hosts and must never change.
const (
	ParamRepeatOctaves = "repeat_octaves"
	ParamRepeatRange   = "repeat_range"
	ParamResonantGain  = "resonant_gain"
	ParamQ             = "Q"
	ParamGain          = "gain"
)

// Declaration order, which is also the store index.
const (
	idxRepeatOctaves = iota
	idxRepeatRange
	idxResonantGain
	idxQ
	idxGain
	numParams
)

const (
	gainMinDB      = -30.0
	gainMaxDB      = 30.0
	gainSmoothMs   = 50.0
	maxQ           = 10000.0
	defaultQ       = 100.0
	defaultRepeats = 10
)

// Parameters returns fresh declarations of every HueHue parameter in
// store order.
func Parameters() []*param.Parameter {
	return []*param.Parameter{
		param.ToggleParameter(ParamRepeatOctaves, "Repeat Octaves", false).
			Build(),
		param.IntParameter(ParamRepeatRange, "Repeat Range", 1, octave.MaxRepeats, defaultRepeats).
			ClampOverflow().
			Build(),
		param.GainParameter(ParamResonantGain, "Resonant Gain", gainMinDB, gainMaxDB, 0).
			Smoothed(param.LogarithmicSmoothing, gainSmoothMs).
			Build(),
		param.New(ParamQ, "Q").
			Range(0, maxQ).
			Default(defaultQ).
			Formatter(formatQ, parseQ).
			Build(),
		param.GainParameter(ParamGain, "Gain", gainMinDB, gainMaxDB, 0).
			Smoothed(param.LogarithmicSmoothing, gainSmoothMs).
			Build(),
	}
}

func formatQ(q float64) string {
	return fmt.Sprintf("%.2f", q)
}

func parseQ(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "Q"))
	return strconv.ParseFloat(s, 64)
}
