package huehue

import (
	"bytes"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhhoyt/HueHue/pkg/dsp/gain"
	"github.com/Dhhoyt/HueHue/pkg/dsp/utility"
	"github.com/Dhhoyt/HueHue/pkg/framework/debug"
	"github.com/Dhhoyt/HueHue/pkg/framework/param"
	"github.com/Dhhoyt/HueHue/pkg/framework/plugin"
	"github.com/Dhhoyt/HueHue/pkg/framework/process"
)

const sampleRate = 48000.0

func newTestProcessor(t testing.TB, opts ...Option) *Processor {
	t.Helper()
	opts = append([]Option{WithLogger(debug.Discard())}, opts...)
	p, err := New(opts...)
	require.NoError(t, err)
	return p
}

func stereo(n int) [][]float32 {
	return [][]float32{make([]float32, n), make([]float32, n)}
}

func constant(n int, v float32) [][]float32 {
	buf := stereo(n)
	for ch := range buf {
		for i := range buf[ch] {
			buf[ch][i] = v
		}
	}
	return buf
}

func noise(n int, seed int64, level float64) [][]float32 {
	buf := stereo(n)
	gen := utility.NewNoiseGenerator(utility.WhiteNoise, seed)
	for ch := range buf {
		gen.Generate(buf[ch], level)
	}
	return buf
}

func requireFinite(t *testing.T, bufs [][]float32, limit float64) {
	t.Helper()
	for ch := range bufs {
		r := debug.NewAudioAnalyzer().Analyze(bufs[ch])
		require.True(t, r.Finite(), "channel %d: %s", ch, r)
		require.LessOrEqual(t, r.Peak, float32(limit))
	}
}

func TestNewDefaults(t *testing.T) {
	p := newTestProcessor(t)

	assert.Equal(t, sampleRate, p.SampleRate())
	assert.Equal(t, 110.0, p.Config().BaseFrequency)
	assert.Equal(t, 1, p.Diagnostics().ActiveStages, "repeat_octaves defaults off")

	want := map[string]float64{
		ParamRepeatOctaves: 0,
		ParamRepeatRange:   10,
		ParamResonantGain:  1,
		ParamQ:             100,
		ParamGain:          1,
	}
	for id, v := range want {
		got, err := p.Current(id)
		require.NoError(t, err)
		assert.Equal(t, v, got, id)
	}

	_, err := New(WithLogger(debug.Discard()), WithSampleRate(-1))
	require.NoError(t, err, "invalid options keep defaults")
}

func TestInitializeRejectsBadSettings(t *testing.T) {
	p := newTestProcessor(t)
	assert.Error(t, p.Initialize(0, 512))
	assert.Error(t, p.Initialize(math.NaN(), 512))
	assert.Error(t, p.Initialize(48000, 0))
	require.NoError(t, p.Initialize(44100, 256))
	assert.Equal(t, 44100.0, p.SampleRate())
	assert.Equal(t, 256, p.Config().MaxBlockSize)
}

func TestCurrentReachesTarget(t *testing.T) {
	tests := []struct {
		id    string
		value float64
	}{
		{ParamRepeatOctaves, 1},
		{ParamRepeatRange, 3},
		{ParamResonantGain, gain.DbToLinear(12)},
		{ParamResonantGain, gain.DbToLinear(-30)},
		{ParamQ, 2500},
		{ParamQ, 0},
		{ParamGain, gain.DbToLinear(-18)},
		{ParamGain, gain.DbToLinear(30)},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			p := newTestProcessor(t)
			require.NoError(t, p.SetTarget(tt.id, tt.value))

			in := noise(512, 1, 0.1)
			out := stereo(512)
			// 60 ms, past the 50 ms smoothing time.
			for i := 0; i < 6; i++ {
				p.Process(in, out, sampleRate)
			}

			got, err := p.Current(tt.id)
			require.NoError(t, err)
			assert.InDelta(t, tt.value, got, 1e-9)
		})
	}
}

func TestGainSmoothingIsMonotonicInDB(t *testing.T) {
	p := newTestProcessor(t)
	in := constant(1, 0.5)
	out := stereo(1)

	step := func() float64 {
		p.Process(in, out, sampleRate)
		v, err := p.Current(ParamGain)
		require.NoError(t, err)
		return gain.LinearToDb(v)
	}

	require.NoError(t, p.SetTarget(ParamGain, gain.DbToLinear(30)))
	prev := 0.0
	for i := 0; i < 2400; i++ {
		db := step()
		require.GreaterOrEqual(t, db, prev-1e-9, "sample %d", i)
		require.LessOrEqual(t, db, 30+1e-9, "no overshoot")
		prev = db
	}
	assert.InDelta(t, 30.0, prev, 1e-9)

	require.NoError(t, p.SetTarget(ParamGain, 1))
	for i := 0; i < 2400; i++ {
		db := step()
		require.LessOrEqual(t, db, prev+1e-9, "sample %d", i)
		require.GreaterOrEqual(t, db, -1e-9, "no undershoot")
		prev = db
	}
	assert.InDelta(t, 0.0, prev, 1e-9)
}

func TestRepeatOffYieldsOneStage(t *testing.T) {
	p := newTestProcessor(t)
	in := noise(64, 2, 0.1)
	out := stereo(64)

	for _, n := range []float64{1, 4, 10} {
		require.NoError(t, p.SetTarget(ParamRepeatRange, n))
		p.Process(in, out, sampleRate)
		assert.Equal(t, 1, p.Diagnostics().ActiveStages, "range %v", n)
	}

	require.NoError(t, p.SetTarget(ParamRepeatOctaves, 1))
	require.NoError(t, p.SetTarget(ParamRepeatRange, 4))
	p.Process(in, out, sampleRate)
	assert.Equal(t, 4, p.Diagnostics().ActiveStages)
}

func TestRepeatRangeOverflowIsClamped(t *testing.T) {
	p := newTestProcessor(t)
	require.NoError(t, p.SetTarget(ParamRepeatOctaves, 1))
	require.NoError(t, p.SetTarget(ParamRepeatRange, 2))
	assert.ErrorIs(t, p.SetTarget(ParamRepeatRange, 14), param.ErrConfigurationExceeded)

	p.Process(noise(32, 3, 0.1), stereo(32), sampleRate)
	v, err := p.Current(ParamRepeatRange)
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)
}

func TestInvalidTargetsAreRejected(t *testing.T) {
	p := newTestProcessor(t)
	assert.ErrorIs(t, p.SetTarget(ParamGain, 100), param.ErrInvalidParameterValue)
	assert.ErrorIs(t, p.SetTarget(ParamQ, -1), param.ErrInvalidParameterValue)
	assert.ErrorIs(t, p.SetTarget(ParamQ, math.Inf(1)), param.ErrInvalidParameterValue)
	assert.ErrorIs(t, p.SetTarget(ParamRepeatOctaves, 0.5), param.ErrInvalidParameterValue)
	assert.ErrorIs(t, p.SetTarget("colour", 1), param.ErrUnknownParameter)

	v, err := p.Target(ParamQ)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v, "previous value retained")
}

func TestSilentInSilentOut(t *testing.T) {
	settings := []map[string]float64{
		{},
		{ParamRepeatOctaves: 1, ParamQ: 10000, ParamResonantGain: gain.DbToLinear(30)},
		{ParamRepeatOctaves: 1, ParamQ: 0, ParamResonantGain: gain.DbToLinear(-30), ParamGain: gain.DbToLinear(30)},
		{ParamQ: 1, ParamResonantGain: gain.DbToLinear(30), ParamGain: gain.DbToLinear(30)},
	}

	for _, s := range settings {
		p := newTestProcessor(t)
		for id, v := range s {
			require.NoError(t, p.SetTarget(id, v))
		}
		in := stereo(512)
		out := constant(512, 1) // stale data must be overwritten
		for i := 0; i < 10; i++ {
			assert.Equal(t, process.Silent, p.Process(in, out, sampleRate))
			for ch := range out {
				for _, y := range out[ch] {
					require.Zero(t, y)
				}
			}
		}
	}
}

func TestSilenceDetectionCanBeDisabled(t *testing.T) {
	p := newTestProcessor(t, WithSilenceThreshold(0))
	assert.Equal(t, process.Normal, p.Process(stereo(64), stereo(64), sampleRate))
	assert.Zero(t, p.Diagnostics().SilentBlocks)
}

func TestZeroLengthBlock(t *testing.T) {
	p := newTestProcessor(t)
	require.NoError(t, p.SetTargetAt(ParamGain, gain.DbToLinear(-6), 0))

	assert.Equal(t, process.Normal, p.Process(stereo(0), stereo(0), sampleRate))
	assert.Equal(t, process.Normal, p.Process(nil, nil, sampleRate))
	v, err := p.Current(ParamGain)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v, "event still pending")
	assert.Zero(t, p.Diagnostics().Deadline.Blocks)
}

func TestExtremeQStaysFinite(t *testing.T) {
	p := newTestProcessor(t)
	require.NoError(t, p.SetTarget(ParamRepeatOctaves, 1))
	require.NoError(t, p.SetTarget(ParamQ, 10000))
	require.NoError(t, p.SetTarget(ParamResonantGain, gain.DbToLinear(30)))
	require.NoError(t, p.SetTarget(ParamGain, gain.DbToLinear(30)))

	const block = 1024
	gen := utility.NewNoiseGenerator(utility.WhiteNoise, 10)
	in := stereo(block)
	out := stereo(block)
	for done := 0; done < 10*int(sampleRate); done += block {
		gen.Generate(in[0], 1)
		gen.Generate(in[1], 1)
		p.Process(in, out, sampleRate)
		requireFinite(t, out, p.Config().OutputLimit)
	}
}

func TestHostEventsAreSampleAccurate(t *testing.T) {
	p := newTestProcessor(t)
	ctx := p.NewContext(4)
	ctx.Input = constant(256, 0.5)
	ctx.Output = stereo(256)
	ctx.SampleRate = sampleRate

	e, err := p.Parameters().NewEvent(ParamGain, gain.DbToLinear(-30), 100)
	require.NoError(t, err)
	ctx.Events = append(ctx.Events, e)

	status, err := p.ProcessAudio(ctx)
	require.NoError(t, err)
	assert.Equal(t, process.Normal, status)

	for ch := range ctx.Output {
		for i := 0; i < 100; i++ {
			require.Equal(t, float32(0.5), ctx.Output[ch][i], "sample %d untouched", i)
		}
		assert.Less(t, ctx.Output[ch][100], float32(0.5), "change starts at its offset")
		assert.Less(t, ctx.Output[ch][255], ctx.Output[ch][100])
	}
}

func TestQueuedEventsAreSampleAccurate(t *testing.T) {
	p := newTestProcessor(t)
	in := constant(512, 0.5)
	out := stereo(512)

	// Out of order on purpose.
	require.NoError(t, p.SetTargetAt(ParamGain, gain.DbToLinear(-30), 300))
	require.NoError(t, p.SetTargetAt(ParamGain, gain.DbToLinear(6), 200))
	p.Process(in, out, sampleRate)

	for i := 0; i < 200; i++ {
		require.Equal(t, float32(0.5), out[0][i])
	}
	assert.Greater(t, out[0][200], float32(0.5))
	assert.Greater(t, out[0][299], out[0][200])
	assert.Less(t, out[0][301], out[0][300])

	target, err := p.Target(ParamGain)
	require.NoError(t, err)
	assert.Equal(t, 1.0, target, "events do not touch the snapshot")

	// An unchanged snapshot must not undo the event.
	for i := 0; i < 10; i++ {
		p.Process(in, out, sampleRate)
	}
	cur, err := p.Current(ParamGain)
	require.NoError(t, err)
	assert.InDelta(t, gain.DbToLinear(-30), cur, 1e-12)
}

func TestSetTargetAfterEventIsApplied(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		event float64
	}{
		{"gain", ParamGain, gain.DbToLinear(-30)},
		{"Q", ParamQ, 5},
		{"resonant gain", ParamResonantGain, gain.DbToLinear(18)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProcessor(t)
			in := constant(512, 0.5)
			out := stereo(512)

			previous, err := p.Target(tt.id)
			require.NoError(t, err)

			require.NoError(t, p.SetTargetAt(tt.id, tt.event, 0))
			for i := 0; i < 20; i++ {
				p.Process(in, out, sampleRate)
			}
			cur, err := p.Current(tt.id)
			require.NoError(t, err)
			assert.InDelta(t, tt.event, cur, 1e-9)

			// Same value as the snapshot already holds.
			require.NoError(t, p.SetTarget(tt.id, previous))
			for i := 0; i < 20; i++ {
				p.Process(in, out, sampleRate)
			}
			cur, err = p.Current(tt.id)
			require.NoError(t, err)
			target, err := p.Target(tt.id)
			require.NoError(t, err)
			assert.InDelta(t, target, cur, 1e-9)
		})
	}
}

func TestLaterWriteWins(t *testing.T) {
	in := constant(512, 0.5)
	out := stereo(512)

	t.Run("SetTargetSupersedesQueuedEvent", func(t *testing.T) {
		p := newTestProcessor(t)
		require.NoError(t, p.SetTargetAt(ParamQ, 5, 100))
		require.NoError(t, p.SetTarget(ParamQ, 250))
		p.Process(in, out, sampleRate)

		cur, err := p.Current(ParamQ)
		require.NoError(t, err)
		assert.Equal(t, 250.0, cur)
	})

	t.Run("QueuedEventAfterSetTarget", func(t *testing.T) {
		p := newTestProcessor(t)
		require.NoError(t, p.SetTarget(ParamQ, 250))
		require.NoError(t, p.SetTargetAt(ParamQ, 5, 100))
		p.Process(in, out, sampleRate)

		cur, err := p.Current(ParamQ)
		require.NoError(t, err)
		assert.Equal(t, 5.0, cur)
	})
}

func TestEventOffsetsAreClamped(t *testing.T) {
	p := newTestProcessor(t)
	require.NoError(t, p.SetTargetAt(ParamGain, gain.DbToLinear(-12), 5000))
	out := stereo(64)
	p.Process(constant(64, 0.5), out, sampleRate)

	assert.Equal(t, float32(0.5), out[0][62])
	assert.Less(t, out[0][63], float32(0.5), "late event lands on the last sample")
}

func TestLongBlocksAreChunked(t *testing.T) {
	small := newTestProcessor(t, WithMaxBlockSize(64))
	large := newTestProcessor(t, WithMaxBlockSize(2048))

	for _, p := range []*Processor{small, large} {
		require.NoError(t, p.SetTarget(ParamRepeatOctaves, 1))
		require.NoError(t, p.SetTarget(ParamResonantGain, gain.DbToLinear(12)))
		require.NoError(t, p.SetTarget(ParamQ, 20))
		require.NoError(t, p.SetTargetAt(ParamGain, gain.DbToLinear(-6), 700))
	}

	in := noise(1000, 4, 0.5)
	outSmall := stereo(1000)
	outLarge := stereo(1000)
	small.Process(in, outSmall, sampleRate)
	large.Process(in, outLarge, sampleRate)

	for ch := range outSmall {
		for i := range outSmall[ch] {
			require.InDelta(t, outLarge[ch][i], outSmall[ch][i], 1e-6, "ch %d sample %d", ch, i)
		}
	}
}

func TestSampleRateChange(t *testing.T) {
	p := newTestProcessor(t)
	require.NoError(t, p.SetTarget(ParamRepeatOctaves, 1))

	in := noise(256, 5, 0.1)
	out := stereo(256)

	p.Process(in, out, sampleRate)
	assert.Equal(t, 8, p.Diagnostics().ActiveStages, "110..14080 Hz below 24 kHz")

	p.Process(in, out, 96000)
	assert.Equal(t, 96000.0, p.SampleRate())
	assert.Equal(t, 9, p.Diagnostics().ActiveStages)
	requireFinite(t, out, p.Config().OutputLimit)

	p.Process(in, out, 22050)
	assert.Equal(t, 7, p.Diagnostics().ActiveStages)

	p.Process(in, out, 0)
	assert.Equal(t, 22050.0, p.SampleRate(), "invalid rate ignored")
}

func TestStructuralChangesStayBounded(t *testing.T) {
	p := newTestProcessor(t, WithMaxBlockSize(128))
	require.NoError(t, p.SetTarget(ParamResonantGain, gain.DbToLinear(18)))
	require.NoError(t, p.SetTarget(ParamQ, 50))

	in := noise(128, 6, 0.25)
	out := stereo(128)
	for i := 0; i < 200; i++ {
		require.NoError(t, p.SetTarget(ParamRepeatOctaves, float64(i%2)))
		require.NoError(t, p.SetTarget(ParamRepeatRange, float64(1+i%10)))
		p.Process(in, out, sampleRate)
		requireFinite(t, out, p.Config().OutputLimit)
	}
}

func TestTailSamples(t *testing.T) {
	p := newTestProcessor(t)
	var host plugin.Processor = p
	assert.Zero(t, host.TailSamples(), "unity resonance does not ring")

	require.NoError(t, p.SetTarget(ParamResonantGain, gain.DbToLinear(12)))
	require.NoError(t, p.SetTarget(ParamQ, 20))
	short := host.TailSamples()
	assert.Greater(t, short, 0)

	require.NoError(t, p.SetTarget(ParamQ, 10000))
	long := host.TailSamples()
	assert.Greater(t, long, short)
	assert.Greater(t, long, int(10*sampleRate), "extreme Q rings for seconds")

	// The lowest band dominates, so octave repeats add nothing.
	require.NoError(t, p.SetTarget(ParamRepeatOctaves, 1))
	assert.Equal(t, long, host.TailSamples())

	p.Process(constant(64, 0), stereo(64), 2*sampleRate)
	assert.Greater(t, host.TailSamples(), long, "same decay takes more samples at a higher rate")
}

func TestResetSnapsToTargets(t *testing.T) {
	p := newTestProcessor(t)
	require.NoError(t, p.SetTarget(ParamGain, gain.DbToLinear(-12)))
	p.Reset()

	v, err := p.Current(ParamGain)
	require.NoError(t, err)
	assert.Equal(t, gain.DbToLinear(-12), v)
}

func TestMonoConfiguration(t *testing.T) {
	p := newTestProcessor(t, WithMono())
	in := [][]float32{make([]float32, 64)}
	out := [][]float32{make([]float32, 64)}
	in[0][0] = 1

	assert.Equal(t, process.Normal, p.Process(in, out, sampleRate))
	assert.Zero(t, p.Diagnostics().LayoutErrors)

	p.Process(stereo(64), stereo(64), sampleRate)
	assert.Equal(t, uint64(1), p.Diagnostics().LayoutErrors)
}

func TestUnsupportedLayoutPassesThrough(t *testing.T) {
	var logs bytes.Buffer
	logger := debug.New(&logs, "", debug.FlagLevel|debug.FlagPrefix)
	p := newTestProcessor(t, WithLogger(logger))

	in := [][]float32{{1, 2}, {3, 4}, {5, 6}}
	out := [][]float32{{0, 0}, {0, 0}, {0, 0}}
	assert.Equal(t, process.Normal, p.Process(in, out, sampleRate))
	assert.Equal(t, in, out)

	_, err := p.ProcessAudio(&process.Context{Input: stereo(4), Output: stereo(4)})
	assert.ErrorIs(t, err, ErrNoWorkBuffers)

	ctx := p.NewContext(0)
	ctx.Input = [][]float32{make([]float32, 4), make([]float32, 3)}
	ctx.Output = stereo(4)
	_, err = p.ProcessAudio(ctx)
	assert.ErrorIs(t, err, ErrBlockLength)

	d := p.ReportDiagnostics()
	assert.Equal(t, uint64(1), d.LayoutErrors)
	assert.Contains(t, logs.String(), "[ERROR] [huehue] passed through 1 blocks")

	logs.Reset()
	p.ReportDiagnostics()
	assert.NotContains(t, logs.String(), "passed through", "only reports changes")
}

func TestReportDiagnosticsDebugLine(t *testing.T) {
	var logs bytes.Buffer
	logger := debug.New(&logs, "app", debug.FlagPrefix)
	logger.SetLevel(debug.LogLevelDebug)
	p := newTestProcessor(t, WithLogger(logger))

	p.Process(noise(128, 7, 0.1), stereo(128), sampleRate)
	d := p.ReportDiagnostics()
	assert.Equal(t, uint64(1), d.Deadline.Blocks)
	assert.Contains(t, logs.String(), "[app.huehue] blocks=1")
	assert.Contains(t, logs.String(), "stages=1")
}

func TestConcurrentTargetsWhileProcessing(t *testing.T) {
	p := newTestProcessor(t, WithMaxBlockSize(256))
	in := noise(256, 8, 0.5)
	out := stereo(256)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		gen := utility.NewNoiseGenerator(utility.WhiteNoise, 9)
		for {
			select {
			case <-stop:
				return
			default:
			}
			r := (gen.Next() + 1) / 2
			_ = p.SetNormalized(ParamGain, r)
			_ = p.SetNormalized(ParamResonantGain, 1-r)
			_ = p.SetTarget(ParamQ, r*10000)
			_ = p.SetTarget(ParamRepeatOctaves, math.Round(r))
			_ = p.SetTargetAt(ParamRepeatRange, 1+math.Round(r*9), int(r*256))
			_, _ = p.Current(ParamGain)
			_ = p.Diagnostics()
		}
	}()

	for i := 0; i < 300; i++ {
		p.Process(in, out, sampleRate)
		requireFinite(t, out, p.Config().OutputLimit)
	}
	close(stop)
	wg.Wait()
}

func TestProcessDoesNotAllocate(t *testing.T) {
	p := newTestProcessor(t)
	require.NoError(t, p.SetTarget(ParamRepeatOctaves, 1))
	require.NoError(t, p.SetTarget(ParamResonantGain, gain.DbToLinear(12)))
	in := noise(512, 11, 0.5)
	out := stereo(512)

	q := 10.0
	allocs := testing.AllocsPerRun(50, func() {
		q = 110 - q
		_ = p.SetTargetAt(ParamQ, q, 64)
		_ = p.SetTargetAt(ParamRepeatRange, q/10, 128)
		p.Process(in, out, sampleRate)
	})
	assert.Zero(t, allocs)
}

func BenchmarkProcess(b *testing.B) {
	p := newTestProcessor(b)
	require.NoError(b, p.SetTarget(ParamRepeatOctaves, 1))
	require.NoError(b, p.SetTarget(ParamResonantGain, gain.DbToLinear(12)))
	in := noise(512, 12, 0.5)
	out := stereo(512)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Process(in, out, sampleRate)
	}
}
