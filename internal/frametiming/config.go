package frametiming

import "time"

const (
	defaultFastAlpha   = 0.2
	defaultSlowAlpha   = 0.05
	defaultJitterAlpha = 0.1
	defaultGoodFPS     = 45.0
	defaultNoiseFloor  = 0.01
	defaultMinSample   = time.Millisecond
	defaultMaxSample   = time.Second
	defaultInitialFPS  = 60.0
	defaultWarmup      = 2 * time.Second
)

// Config tunes the smoothing and stability detection of a Monitor.
type Config struct {
	// FastAlpha is the EMA weight of the reactive FPS average.
	FastAlpha float64
	// SlowAlpha is the EMA weight of the stable FPS average.
	SlowAlpha float64
	// JitterAlpha is the EMA weight of the frame-to-frame duration delta.
	JitterAlpha float64
	// GoodFPS is the floor fps_fast must exceed for a frame to count as stable.
	GoodFPS float64
	// NoiseFloor is the jitter (seconds) below which a frame counts as stable.
	NoiseFloor float64
	// MinSample is the shortest frame accepted; shorter ones are dropped.
	MinSample time.Duration
	// MaxSample is the longest frame accepted; longer ones are dropped.
	MaxSample time.Duration
	// InitialFPS seeds both averages.
	InitialFPS float64
	// Warmup is the cooldown armed at construction. Zero disables it.
	Warmup time.Duration
}

func DefaultConfig() Config {
	return Config{
		FastAlpha:   defaultFastAlpha,
		SlowAlpha:   defaultSlowAlpha,
		JitterAlpha: defaultJitterAlpha,
		GoodFPS:     defaultGoodFPS,
		NoiseFloor:  defaultNoiseFloor,
		MinSample:   defaultMinSample,
		MaxSample:   defaultMaxSample,
		InitialFPS:  defaultInitialFPS,
		Warmup:      defaultWarmup,
	}
}

// withDefaults fills zero or out-of-range fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FastAlpha <= 0 || c.FastAlpha > 1 {
		c.FastAlpha = d.FastAlpha
	}
	if c.SlowAlpha <= 0 || c.SlowAlpha > 1 {
		c.SlowAlpha = d.SlowAlpha
	}
	if c.JitterAlpha <= 0 || c.JitterAlpha > 1 {
		c.JitterAlpha = d.JitterAlpha
	}
	if c.GoodFPS <= 0 {
		c.GoodFPS = d.GoodFPS
	}
	if c.NoiseFloor <= 0 {
		c.NoiseFloor = d.NoiseFloor
	}
	if c.MaxSample <= 0 {
		c.MaxSample = d.MaxSample
	}
	if c.MinSample <= 0 || c.MinSample > c.MaxSample {
		c.MinSample = min(d.MinSample, c.MaxSample)
	}
	if c.InitialFPS <= 0 {
		c.InitialFPS = d.InitialFPS
	}
	if c.Warmup < 0 {
		c.Warmup = 0
	}

	return c
}
