package huehue

import (
	"github.com/Dhhoyt/HueHue/pkg/dsp/gain"
	"github.com/Dhhoyt/HueHue/pkg/framework/debug"
	"github.com/Dhhoyt/HueHue/pkg/framework/param"
)

// Config holds the processor settings that are not host parameters.
type Config struct {
	// BaseFrequency is the centre of the lowest resonance in Hz.
	BaseFrequency float64
	SampleRate    float64
	// MaxBlockSize bounds the work buffers; longer blocks are chunked.
	MaxBlockSize int
	// Channels is 1 (mono) or 2 (stereo).
	Channels int
	// OutputLimit is the largest absolute sample written to the host.
	OutputLimit float64
	// FadeMs is the length of a structural crossfade.
	FadeMs float64
	// SilenceThreshold is the peak level under which a block is Silent.
	SilenceThreshold float64
	EventCapacity    int
	Logger           *debug.Logger
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns the settings used when no option is given.
func DefaultConfig() Config {
	return Config{
		BaseFrequency:    110,
		SampleRate:       48000,
		MaxBlockSize:     1024,
		Channels:         2,
		OutputLimit:      gain.DbToLinear(24),
		FadeMs:           5,
		SilenceThreshold: gain.DbToLinear(-120),
		EventCapacity:    param.DefaultEventCapacity,
	}
}

// WithBaseFrequency sets the lowest resonance frequency.
func WithBaseFrequency(hz float64) Option {
	return func(cfg *Config) {
		if hz > 0 {
			cfg.BaseFrequency = hz
		}
	}
}

// WithSampleRate sets the initial sample rate.
func WithSampleRate(sampleRate float64) Option {
	return func(cfg *Config) {
		if sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithMaxBlockSize sets the work buffer length.
func WithMaxBlockSize(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.MaxBlockSize = n
		}
	}
}

// WithMono configures a single channel.
func WithMono() Option {
	return func(cfg *Config) {
		cfg.Channels = 1
	}
}

// WithOutputLimit sets the output clamp.
func WithOutputLimit(limit float64) Option {
	return func(cfg *Config) {
		if limit > 0 {
			cfg.OutputLimit = limit
		}
	}
}

// WithFadeTime sets the structural crossfade length in milliseconds. Zero
// switches stages instantly.
func WithFadeTime(ms float64) Option {
	return func(cfg *Config) {
		if ms >= 0 {
			cfg.FadeMs = ms
		}
	}
}

// WithSilenceThreshold sets the Silent detection level. Zero disables it.
func WithSilenceThreshold(linear float64) Option {
	return func(cfg *Config) {
		if linear >= 0 {
			cfg.SilenceThreshold = linear
		}
	}
}

// WithEventCapacity sets the size of the sample-accurate event queue.
func WithEventCapacity(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.EventCapacity = n
		}
	}
}

// WithLogger sets the logger used by control-thread calls.
func WithLogger(l *debug.Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = l
	}
}

// ApplyOptions applies zero or more options to the default config.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = debug.Default()
	}
	return cfg
}
