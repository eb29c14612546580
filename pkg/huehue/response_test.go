package huehue

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhhoyt/HueHue/pkg/dsp/gain"
	"github.com/Dhhoyt/HueHue/pkg/framework/param"
)

func TestImpulseResponseUnity(t *testing.T) {
	impulse, err := ImpulseResponse(1000, nil)
	require.NoError(t, err)
	require.Len(t, impulse, 1000)

	assert.InDelta(t, 1.0, impulse[0], 1e-6)
	for i, v := range impulse[1:] {
		require.InDelta(t, 0.0, v, 1e-6, "sample %d", i+1)
	}
}

func TestMeasureResponsePeaksAtBandCentres(t *testing.T) {
	settings := []Setting{
		{ParamRepeatOctaves, 1},
		{ParamRepeatRange, 5},
		{ParamResonantGain, gain.DbToLinear(12)},
		{ParamQ, 10},
	}
	resp, err := MeasureResponse(1<<16, settings)
	require.NoError(t, err)

	for k := 0; k < 5; k++ {
		centre := 110 * math.Exp2(float64(k))
		assert.InDelta(t, 12.0, resp.AtDB(centre), 1.0, "%.0f Hz", centre)

		freq, _ := resp.Peak(centre*0.9, centre*1.1)
		assert.InDelta(t, centre, freq, centre*0.02)
	}

	// Far above the last band the response returns to unity.
	assert.InDelta(t, 0.0, resp.AtDB(10000), 0.5)
}

func TestMeasureResponseSingleBand(t *testing.T) {
	resp, err := MeasureResponse(1<<16, []Setting{
		{ParamResonantGain, gain.DbToLinear(-12)},
		{ParamQ, 10},
	}, WithBaseFrequency(440))
	require.NoError(t, err)

	assert.InDelta(t, -12.0, resp.AtDB(440), 1.0)
	assert.InDelta(t, 0.0, resp.AtDB(880), 0.5)
	assert.InDelta(t, 0.0, resp.AtDB(220), 0.5)
}

func TestImpulseResponseErrors(t *testing.T) {
	_, err := ImpulseResponse(0, nil)
	assert.Error(t, err)

	_, err = ImpulseResponse(16, []Setting{{ParamQ, -3}, {"tint", 1}})
	assert.ErrorIs(t, err, param.ErrInvalidParameterValue)
	assert.ErrorIs(t, err, param.ErrUnknownParameter)

	_, err = ImpulseResponse(16, []Setting{{ParamRepeatRange, 40}})
	assert.NoError(t, err, "clamped settings are accepted")
}
