package huehue

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Dhhoyt/HueHue/pkg/dsp/filter"
	"github.com/Dhhoyt/HueHue/pkg/dsp/gain"
	"github.com/Dhhoyt/HueHue/pkg/dsp/octave"
	"github.com/Dhhoyt/HueHue/pkg/framework/bus"
	"github.com/Dhhoyt/HueHue/pkg/framework/debug"
	"github.com/Dhhoyt/HueHue/pkg/framework/param"
	"github.com/Dhhoyt/HueHue/pkg/framework/plugin"
	"github.com/Dhhoyt/HueHue/pkg/framework/process"
)

var (
	// ErrNoWorkBuffers is returned for a context without a work buffer per
	// channel. Use Processor.NewContext.
	ErrNoWorkBuffers = errors.New("context has no work buffers")
	// ErrBlockLength is returned when channel buffers differ in length.
	ErrBlockLength = errors.New("channel buffers differ in length")
)

var _ plugin.Processor = (*Processor)(nil)

// Processor runs the octave-repeated resonant filter bank. Process and
// ProcessAudio belong to a single audio goroutine; the parameter setters,
// Current and Diagnostics may be called from any goroutine.
type Processor struct {
	*plugin.BaseProcessor

	cfg   Config
	log   *debug.Logger
	store *param.Store
	bank  *filter.Bank
	bands octave.Bands

	ctx    *process.Context // backs Process
	queued []param.Event
	ramp   []float64

	// Audio thread parameter state. seen holds the snapshot serial last
	// applied per parameter so events are not undone by an unchanged one.
	version     uint64
	seen        [numParams]uint64
	repeat      bool
	repeatRange int
	q           float64
	resonant    *param.Smoother
	output      *param.Smoother
	structural  bool
	hostNext    int
	queuedNext  int

	monitor      *debug.DeadlineMonitor
	rate         atomic.Uint64 // sample rate, float64 bits
	silentBlocks atomic.Uint64
	layoutErrors atomic.Uint64
	activeStages atomic.Int32

	reportMu sync.Mutex
	reported Diagnostics
}

// New creates a processor initialized at the configured sample rate and
// block size.
func New(opts ...Option) (*Processor, error) {
	cfg := ApplyOptions(opts...)
	if err := Info.Validate(); err != nil {
		return nil, err
	}

	store, err := param.NewStoreWithCapacity(cfg.EventCapacity, Parameters()...)
	if err != nil {
		return nil, fmt.Errorf("huehue: %w", err)
	}

	buses := bus.NewStereoConfiguration()
	if cfg.Channels == 1 {
		buses = bus.NewMonoConfiguration()
	}

	p := &Processor{
		BaseProcessor: plugin.NewBaseProcessor(store, buses),
		cfg:           cfg,
		log:           cfg.Logger.Named("huehue"),
		store:         store,
		monitor:       debug.NewDeadlineMonitor(),
	}
	rg := store.Param(idxResonantGain)
	p.resonant = param.NewSmoother(rg.Smoothing, rg.SmoothingMs, cfg.SampleRate)
	og := store.Param(idxGain)
	p.output = param.NewSmoother(og.Smoothing, og.SmoothingMs, cfg.SampleRate)

	if err := p.Initialize(cfg.SampleRate, cfg.MaxBlockSize); err != nil {
		return nil, err
	}
	return p, nil
}

// Initialize (re)allocates every buffer for sampleRate and maxBlockSize
// and resets all state. It must not run concurrently with processing.
func (p *Processor) Initialize(sampleRate float64, maxBlockSize int) error {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) || maxBlockSize <= 0 {
		return fmt.Errorf("huehue: invalid sample rate %v or block size %d", sampleRate, maxBlockSize)
	}

	channels := p.Buses().Channels(bus.DirectionInput)
	p.bank = filter.NewBank(channels, sampleRate, fadeSamples(p.cfg.FadeMs, sampleRate))
	p.ctx = process.NewContext(channels, maxBlockSize, 0)
	p.queued = make([]param.Event, 0, p.store.EventCapacity())
	p.ramp = make([]float64, maxBlockSize)
	p.cfg.MaxBlockSize = maxBlockSize

	p.setSampleRate(sampleRate)
	p.Reset()

	p.log.Info("initialized at %.0f Hz, %d samples per block, %d channels, base %.2f Hz",
		sampleRate, maxBlockSize, channels, p.cfg.BaseFrequency)
	return nil
}

// NewContext returns a block context with work buffers sized for this
// processor, for hosts that pass events through ProcessAudio.
func (p *Processor) NewContext(maxEvents int) *process.Context {
	return process.NewContext(p.Buses().Channels(bus.DirectionInput), p.cfg.MaxBlockSize, maxEvents)
}

// Config returns the active configuration.
func (p *Processor) Config() Config {
	return p.cfg
}

func fadeSamples(ms, sampleRate float64) int {
	return int(math.Round(ms * sampleRate / 1000))
}

func (p *Processor) setSampleRate(sampleRate float64) {
	p.SetSampleRate(sampleRate)
	p.rate.Store(math.Float64bits(sampleRate))
	p.resonant.SetSampleRate(sampleRate)
	p.output.SetSampleRate(sampleRate)
	p.bank.SetSampleRate(sampleRate)
	p.bank.SetFadeSamples(fadeSamples(p.cfg.FadeMs, sampleRate))
	p.structural = true
}

// Reset jumps every parameter to its target and clears the filter state.
// It must not run concurrently with processing.
func (p *Processor) Reset() {
	snap := p.store.Snapshot()
	p.version = snap.Version
	for i := 0; i < numParams; i++ {
		p.seen[i] = snap.Serials[i]
		p.applyTarget(i, snap.Values[i])
	}
	p.resonant.Reset(p.resonant.Target())
	p.output.Reset(p.output.Target())
	p.bank.SetResonance(p.resonant.Current(), p.q)
	p.reconfigure(true)
	p.bank.Reset()
	p.publish()
}

// SetTarget publishes a new target for parameter id. See param.Store.
func (p *Processor) SetTarget(id string, value float64) error {
	return p.store.SetTarget(id, value)
}

// SetTargetAt schedules a target change offset samples into the next
// processed block.
func (p *Processor) SetTargetAt(id string, value float64, offset int) error {
	return p.store.SetTargetAt(id, value, offset)
}

// SetNormalized sets id from a host-normalized value in [0, 1].
func (p *Processor) SetNormalized(id string, normalized float64) error {
	return p.store.SetNormalized(id, normalized)
}

// Current returns the value the audio thread used at the end of the last
// processed block.
func (p *Processor) Current(id string) (float64, error) {
	return p.store.Current(id)
}

// Target returns the latest published target for id.
func (p *Processor) Target(id string) (float64, error) {
	return p.store.Target(id)
}

// Process filters one block. input and output must have the same channel
// count and length; they are not retained after the call.
func (p *Processor) Process(input, output [][]float32, sampleRate float64) process.Status {
	ctx := p.ctx
	ctx.Input, ctx.Output, ctx.SampleRate = input, output, sampleRate
	ctx.Events = ctx.Events[:0]

	status, err := p.ProcessAudio(ctx)
	if err != nil {
		p.layoutErrors.Add(1)
		ctx.PassThrough()
	}
	ctx.Input, ctx.Output = nil, nil
	return status
}

// ProcessAudio filters the block in ctx, applying ctx.Events and any
// events queued through SetTargetAt at their sample offsets. Events in
// ctx.Events should come from Store.NewEvent.
func (p *Processor) ProcessAudio(ctx *process.Context) (process.Status, error) {
	n := ctx.NumSamples()
	if n == 0 {
		return process.Normal, nil
	}
	if err := p.Buses().Accept(len(ctx.Input), len(ctx.Output)); err != nil {
		return process.Normal, err
	}
	channels := ctx.NumChannels()
	if ctx.WorkChannels() < channels || ctx.MaxBlockSize() == 0 {
		return process.Normal, ErrNoWorkBuffers
	}
	for ch := 0; ch < channels; ch++ {
		if len(ctx.Input[ch]) != n || len(ctx.Output[ch]) != n {
			return process.Normal, ErrBlockLength
		}
	}

	start := time.Now()
	if sr := ctx.SampleRate; sr > 0 && !math.IsInf(sr, 0) && sr != p.SampleRate() {
		p.setSampleRate(sr)
	}

	ctx.PrepareEvents(n)
	p.queued = p.store.Drain(p.queued)
	process.SortEvents(p.queued, n)
	p.hostNext, p.queuedNext = 0, 0

	chunk := min(ctx.MaxBlockSize(), len(p.ramp))
	for off := 0; off < n; off += chunk {
		p.processChunk(ctx, channels, off, min(chunk, n-off))
	}

	status := process.Normal
	if thr := p.cfg.SilenceThreshold; thr > 0 && ctx.InputPeak() < thr && ctx.OutputPeak() < thr {
		ctx.Clear()
		p.bank.Reset()
		p.silentBlocks.Add(1)
		status = process.Silent
	}

	p.publish()
	p.monitor.Record(time.Since(start), debug.Budget(n, p.SampleRate()))
	return status, nil
}

func (p *Processor) processChunk(ctx *process.Context, channels, off, n int) {
	var work [filter.MaxChannels][]float64
	for ch := 0; ch < channels; ch++ {
		work[ch] = ctx.LoadChannel(ch, off, n)
	}
	ramp := p.ramp[:n]

	for i := 0; i < n; i++ {
		p.pollSnapshot()
		p.hostNext = p.applyEvents(ctx.Events, p.hostNext, off+i, false)
		p.queuedNext = p.applyEvents(p.queued, p.queuedNext, off+i, true)
		if p.structural {
			p.reconfigure(false)
		}

		p.bank.SetResonance(p.resonant.Next(), p.q)
		p.bank.Advance()
		for ch := 0; ch < channels; ch++ {
			work[ch][i] = p.bank.Process(ch, work[ch][i])
		}
		ramp[i] = p.output.Next()
	}

	for ch := 0; ch < channels; ch++ {
		gain.ApplyRamp(work[ch], ramp)
		ctx.StoreChannel(ch, off, work[ch], p.cfg.OutputLimit)
	}
	p.bank.FlushDenormals()
}

// pollSnapshot applies parameters whose published target changed.
func (p *Processor) pollSnapshot() {
	snap := p.store.Snapshot()
	if snap.Version == p.version {
		return
	}
	p.version = snap.Version
	for i := 0; i < numParams; i++ {
		if snap.Serials[i] != p.seen[i] {
			p.seen[i] = snap.Serials[i]
			p.applyTarget(i, snap.Values[i])
		}
	}
}

// applyEvents applies events due at pos starting from next and returns
// the index of the first pending event. Queued events older than the
// last applied SetTarget of their parameter are dropped.
func (p *Processor) applyEvents(events []param.Event, next, pos int, queued bool) int {
	for ; next < len(events) && events[next].Offset <= pos; next++ {
		e := events[next]
		if e.Index < 0 || e.Index >= numParams || math.IsNaN(e.Value) {
			continue
		}
		if queued && e.Serial < p.seen[e.Index] {
			continue
		}
		def := p.store.Param(e.Index)
		p.applyTarget(e.Index, math.Min(math.Max(e.Value, def.Min), def.Max))
	}
	return next
}

func (p *Processor) applyTarget(i int, v float64) {
	switch i {
	case idxRepeatOctaves:
		if r := v >= 0.5; r != p.repeat {
			p.repeat = r
			p.structural = true
		}
	case idxRepeatRange:
		if n := int(math.Round(v)); n != p.repeatRange {
			p.repeatRange = n
			p.structural = true
		}
	case idxResonantGain:
		p.resonant.SetTarget(v)
	case idxQ:
		p.q = v
	case idxGain:
		p.output.SetTarget(v)
	}
}

func (p *Processor) reconfigure(instant bool) {
	octave.Expand(&p.bands, p.cfg.BaseFrequency, p.repeat, p.repeatRange, p.SampleRate())
	p.bank.Configure(&p.bands, instant)
	p.structural = false
	p.activeStages.Store(int32(p.bank.ActiveCount()))
}

func (p *Processor) publish() {
	repeat := 0.0
	if p.repeat {
		repeat = 1
	}
	p.store.PublishCurrent(idxRepeatOctaves, repeat)
	p.store.PublishCurrent(idxRepeatRange, float64(p.repeatRange))
	p.store.PublishCurrent(idxResonantGain, p.resonant.Current())
	p.store.PublishCurrent(idxQ, p.q)
	p.store.PublishCurrent(idxGain, p.output.Current())
}

// tailFloorDB is the decay after which the ring-out counts as finished.
const tailFloorDB = 60

// TailSamples returns how long the output keeps ringing once the input
// stops, for the published targets: the time the lowest active band
// takes to decay by 60 dB. Safe to call from any goroutine.
func (p *Processor) TailSamples() int {
	snap := p.store.Snapshot()
	sampleRate := math.Float64frombits(p.rate.Load())

	var bands octave.Bands
	octave.Expand(&bands, p.cfg.BaseFrequency, snap.Values[idxRepeatOctaves] >= 0.5,
		int(math.Round(snap.Values[idxRepeatRange])), sampleRate)

	tail := 0
	for _, b := range bands {
		if b.Active {
			tail = max(tail, filter.RingSamples(b.Frequency, sampleRate,
				snap.Values[idxResonantGain], snap.Values[idxQ], tailFloorDB))
		}
	}
	return tail
}

// Diagnostics is a snapshot of the processor's health counters.
type Diagnostics struct {
	UnstableResets uint64
	SilentBlocks   uint64
	LayoutErrors   uint64
	ActiveStages   int
	Deadline       debug.DeadlineStats
}

// Diagnostics returns the current counters without logging.
func (p *Processor) Diagnostics() Diagnostics {
	return Diagnostics{
		UnstableResets: p.bank.UnstableResets(),
		SilentBlocks:   p.silentBlocks.Load(),
		LayoutErrors:   p.layoutErrors.Load(),
		ActiveStages:   int(p.activeStages.Load()),
		Deadline:       p.monitor.Stats(),
	}
}

// ReportDiagnostics logs what changed since the previous report. Call it
// from a control goroutine, never from the audio callback.
func (p *Processor) ReportDiagnostics() Diagnostics {
	d := p.Diagnostics()

	p.reportMu.Lock()
	prev := p.reported
	p.reported = d
	p.reportMu.Unlock()

	if n := d.UnstableResets - prev.UnstableResets; n > 0 {
		p.log.Warn("%v: %d stage resets since last report", filter.ErrUnstableFilterState, n)
	}
	if n := d.Deadline.Overruns - prev.Deadline.Overruns; n > 0 {
		p.log.Warn("missed %d block deadlines, peak load %.0f%%", n, d.Deadline.MaxLoad*100)
	}
	if n := d.LayoutErrors - prev.LayoutErrors; n > 0 {
		p.log.Error("passed through %d blocks with an unsupported channel layout", n)
	}
	p.log.Debug("%s stages=%d silent=%d", d.Deadline.Report(), d.ActiveStages, d.SilentBlocks)
	return d
}
