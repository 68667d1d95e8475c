// Package frametiming turns raw per-frame durations into smoothed signals:
// a fast and a slow FPS average, a jitter estimate and a stable-frame streak.
package frametiming

import (
	"math"
	"time"
)

// State is a copy of the monitor's signals at one point in time.
type State struct {
	FPSFast      float64
	FPSSlow      float64
	Jitter       float64
	StableFrames uint32
	Cooldown     time.Duration
}

// Monitor is mutated by exactly one caller, once per frame. It is not safe
// for concurrent use; readers on other goroutines should consume the
// governor's published snapshot instead.
type Monitor struct {
	cfg      Config
	fpsFast  float64
	fpsSlow  float64
	jitter   float64
	prevDT   float64
	stable   uint32
	cooldown time.Duration
}

func New(cfg Config) *Monitor {
	cfg = cfg.withDefaults()

	return &Monitor{
		cfg:      cfg,
		fpsFast:  cfg.InitialFPS,
		fpsSlow:  cfg.InitialFPS,
		prevDT:   1 / cfg.InitialFPS,
		cooldown: cfg.Warmup,
	}
}

// Ingest folds one frame duration into the averages. Samples shorter than
// MinSample (corrupt timestamps) or longer than MaxSample (debugger pauses,
// device sleep) are dropped without touching any state; the return value
// reports acceptance.
func (m *Monitor) Ingest(dt time.Duration) bool {
	if dt < m.cfg.MinSample || dt > m.cfg.MaxSample {
		return false
	}

	sec := dt.Seconds()
	fps := 1 / sec

	m.fpsFast = m.fpsFast*(1-m.cfg.FastAlpha) + fps*m.cfg.FastAlpha
	m.fpsSlow = m.fpsSlow*(1-m.cfg.SlowAlpha) + fps*m.cfg.SlowAlpha

	m.jitter = m.jitter*(1-m.cfg.JitterAlpha) + math.Abs(sec-m.prevDT)*m.cfg.JitterAlpha
	m.prevDT = sec

	m.cooldown = max(m.cooldown-dt, 0)

	if m.fpsFast > m.cfg.GoodFPS && m.jitter < m.cfg.NoiseFloor {
		if m.stable < math.MaxUint32 {
			m.stable++
		}
	} else {
		m.stable = 0
	}

	return true
}

// StartCooldown blocks transitions for d.
func (m *Monitor) StartCooldown(d time.Duration) {
	m.cooldown = max(d, 0)
}

// ResetStable restarts the stable-frame streak.
func (m *Monitor) ResetStable() {
	m.stable = 0
}

func (m *Monitor) FPSFast() float64        { return m.fpsFast }
func (m *Monitor) FPSSlow() float64        { return m.fpsSlow }
func (m *Monitor) Jitter() float64         { return m.jitter }
func (m *Monitor) StableFrames() uint32    { return m.stable }
func (m *Monitor) Cooldown() time.Duration { return m.cooldown }
func (m *Monitor) CoolingDown() bool       { return m.cooldown > 0 }

func (m *Monitor) State() State {
	return State{
		FPSFast:      m.fpsFast,
		FPSSlow:      m.fpsSlow,
		Jitter:       m.jitter,
		StableFrames: m.stable,
		Cooldown:     m.cooldown,
	}
}
