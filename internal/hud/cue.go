package hud

import (
	"math"
	"time"

	"codeberg.org/mutker/perfgov/internal/logger"
	"codeberg.org/mutker/perfgov/internal/quality"
	"github.com/gopxl/beep"
	beepfx "github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const (
	sampleRate  = beep.SampleRate(44100)
	cueDuration = 120 * time.Millisecond
	cueVolume   = 0.3
	upgradeHz   = 880.0
	downgradeHz = 440.0
	levelStepHz = 55.0
)

// Cue plays a short tone on every quality change. A Cue whose speaker failed
// to open stays silent.
type Cue struct {
	play    func(beep.Streamer)
	close   func()
	enabled bool
	log     logger.Logger
}

// NewCue opens the default audio device. Failure is logged, not returned.
func NewCue(log logger.Logger) *Cue {
	log = log.With("audio")

	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		log.Warn().Err(err).Msg("Audio initialization failed, quality cues disabled")
		return &Cue{log: log}
	}

	return &Cue{play: speaker.Play, close: speaker.Close, enabled: true, log: log}
}

func newCueWithPlayer(play func(beep.Streamer), log logger.Logger) *Cue {
	return &Cue{play: play, enabled: true, log: log}
}

func (c *Cue) Enabled() bool {
	return c.enabled
}

// Play is a bus handler for quality changes.
func (c *Cue) Play(ev quality.Changed) {
	if !c.enabled {
		return
	}

	sine, err := generators.SineTone(sampleRate, toneFor(ev))
	if err != nil {
		c.log.Debug().Err(err).Msg("Cannot build quality cue")
		return
	}

	tone := beep.Take(sampleRate.N(cueDuration), sine)
	c.play(&beepfx.Volume{Streamer: tone, Base: 2, Volume: math.Log2(cueVolume)})
}

func (c *Cue) Close() {
	if c.enabled && c.close != nil {
		c.close()
	}
	c.enabled = false
}

// toneFor pitches upgrades above downgrades and shifts with the target level.
func toneFor(ev quality.Changed) float64 {
	base := downgradeHz
	if ev.Upgrade() {
		base = upgradeHz
	}
	return base + float64(ev.New)*levelStepHz
}
