// Command huehue-live plays generated noise through the HueHue colorizer
// on the default sound device.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Dhhoyt/HueHue/internal/audio"
	"github.com/Dhhoyt/HueHue/internal/control"
	"github.com/Dhhoyt/HueHue/pkg/dsp/gain"
	"github.com/Dhhoyt/HueHue/pkg/dsp/utility"
	"github.com/Dhhoyt/HueHue/pkg/framework/debug"
	"github.com/Dhhoyt/HueHue/pkg/framework/state"
	"github.com/Dhhoyt/HueHue/pkg/huehue"
)

func main() {
	var (
		sampleRate  = flag.Int("sample-rate", 48000, "output sample rate")
		blockSize   = flag.Int("block", 512, "processing block size in frames")
		latency     = flag.Duration("latency", 50*time.Millisecond, "device buffer length")
		base        = flag.Float64("base", 110, "lowest resonance in Hz")
		noiseName   = flag.String("noise", "pink", "source: white|pink|brown")
		levelDB     = flag.Float64("level", -12, "source level in dB")
		repeat      = flag.Bool("repeat", true, "repeat the resonance every octave")
		repeats     = flag.Int("range", 10, "number of octave repeats (1-10)")
		resonantDB  = flag.Float64("resonant", 12, "resonant gain in dB")
		q           = flag.Float64("q", 30, "resonance Q")
		gainDB      = flag.Float64("gain", -6, "output gain in dB")
		controlFile = flag.String("control", "", "file of id = value lines, reloaded on change")
		stateFile   = flag.String("state", "", "parameter state restored at start and saved on exit")
		logLevel    = flag.String("log-level", "info", "debug|info|warn|error|off")
		logFile     = flag.String("log-file", "", "append log output to this file instead of stderr")
		duration    = flag.Duration("duration", 0, "stop after this long (0 = until interrupted)")
	)
	flag.Parse()

	level, err := debug.ParseLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	logger := debug.New(os.Stderr, "huehue-live", debug.DefaultFlags)
	if *logFile != "" {
		var closer io.Closer
		logger, closer, err = debug.NewFileLogger(*logFile, "huehue-live", debug.DefaultFlags)
		if err != nil {
			log.Fatal(err)
		}
		defer closer.Close()
	}
	logger.SetLevel(level)

	noiseType, ok := utility.ParseNoiseType(strings.ToLower(strings.TrimSpace(*noiseName)))
	if !ok {
		log.Fatalf("invalid -noise %q (expected white|pink|brown)", *noiseName)
	}

	p, err := huehue.New(
		huehue.WithSampleRate(float64(*sampleRate)),
		huehue.WithMaxBlockSize(*blockSize),
		huehue.WithBaseFrequency(*base),
		huehue.WithLogger(logger),
	)
	if err != nil {
		log.Fatal(err)
	}

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
	for _, s := range settings {
		if err := p.SetTarget(s.ID, s.Value); err != nil {
			logger.Warn("%v", err)
		}
	}
	states := state.NewManager(p.Parameters(), huehue.Info)
	if *stateFile != "" {
		if err := loadState(states, *stateFile); err != nil {
			logger.Warn("%v", err)
		}
	}
	p.Reset()

	if *controlFile != "" {
		w, err := control.Watch(*controlFile, p.Parameters(), logger)
		if err != nil {
			log.Fatal(err)
		}
		defer w.Close()
	}

	src := audio.NewEffectSource(p, float64(*sampleRate), *blockSize,
		utility.NewNoiseGenerator(noiseType, 1),
		utility.NewNoiseGenerator(noiseType, 2))
	src.SetLevel(gain.DbToLinear(*levelDB))

	player, err := audio.NewPlayer(*sampleRate, *latency, src)
	if err != nil {
		log.Fatal(err)
	}
	player.Play()
	logger.Info("playing %s noise, press Ctrl+C to stop", *noiseName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			played := player.Position()
			if err := player.Stop(); err != nil {
				logger.Error("stop: %v", err)
			}
			if *stateFile != "" {
				if err := saveState(states, *stateFile); err != nil {
					logger.Error("%v", err)
				}
			}
			d := p.ReportDiagnostics()
			fmt.Printf("played %v, output peak %.1f dB, %s\n", played.Round(time.Millisecond),
				gain.LinearToDb(src.Meter().Hold()), d.Deadline.Report())
			return
		case <-ticker.C:
			p.ReportDiagnostics()
			logger.Debug("output %.1f dB", src.Meter().PeakDB())
		}
	}
}

func loadState(m *state.Manager, path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	if err := m.Load(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func saveState(m *state.Manager, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := m.Save(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
