// Package governor drives the quality level from frame timing: it steps one
// tier down when the frame rate sags or stutters, one tier up after a
// sustained stable stretch, and holds still during cooldowns.
package governor

import (
	"sync/atomic"
	"time"

	"codeberg.org/mutker/perfgov/internal/frametiming"
	"codeberg.org/mutker/perfgov/internal/logger"
	"codeberg.org/mutker/perfgov/internal/quality"
)

// Publisher receives every accepted transition.
type Publisher interface {
	Publish(quality.Changed)
}

// Snapshot is the read-only view handed to consumers. A new value is
// published after every frame; readers never block the writer.
type Snapshot struct {
	Frame        uint64
	Level        quality.Level
	Params       quality.Params
	FPSFast      float64
	FPSSlow      float64
	Jitter       float64
	StableFrames uint32
	Cooldown     time.Duration
}

// Reader is implemented by anything that hands out the current snapshot.
type Reader interface {
	Snapshot() Snapshot
}

// Reason explains why a transition fired.
type Reason string

const (
	ReasonLowFPS  Reason = "low_fps"
	ReasonStutter Reason = "stutter"
	ReasonStable  Reason = "stable"
)

// Governor owns the quality level. Step and Tick must be called from a
// single goroutine; Snapshot may be called from any.
type Governor struct {
	cfg     Config
	monitor *frametiming.Monitor
	pub     Publisher
	log     logger.Logger

	level  quality.Level
	params quality.Params
	frame  uint64

	snap atomic.Pointer[Snapshot]
}

func New(cfg Config, monitor *frametiming.Monitor, initial quality.Level, pub Publisher, log logger.Logger) *Governor {
	if !initial.Valid() {
		initial = quality.Medium
	}

	g := &Governor{
		cfg:     cfg.withDefaults(),
		monitor: monitor,
		pub:     pub,
		log:     log.With("governor"),
	}
	g.applyLevel(initial)
	g.publishSnapshot()

	g.log.Info().
		Stringer("level", initial).
		Float64("downgrade_threshold", g.cfg.DowngradeThreshold).
		Float64("upgrade_threshold", g.cfg.UpgradeThreshold).
		Msg("Quality governor started")

	return g
}

// Step ingests one frame duration and evaluates a transition.
func (g *Governor) Step(dt time.Duration) (quality.Changed, bool) {
	g.frame++
	g.monitor.Ingest(dt)

	return g.Tick()
}

// Tick evaluates at most one transition from the monitor's current signals.
// Downgrades are checked first; an upgrade is considered only when no
// downgrade condition holds.
func (g *Governor) Tick() (quality.Changed, bool) {
	defer g.publishSnapshot()

	if g.monitor.CoolingDown() {
		return quality.Changed{}, false
	}

	fps := g.monitor.FPSSlow()
	stutter := g.monitor.Jitter() > g.cfg.JitterThreshold

	if fps < g.cfg.DowngradeThreshold || (stutter && fps < g.cfg.JitterFPSCeiling) {
		reason := ReasonLowFPS
		if fps >= g.cfg.DowngradeThreshold {
			reason = ReasonStutter
		}

		return g.transition(g.level.StepDown(), g.cfg.DowngradeCooldown, reason)
	}

	if g.monitor.StableFrames() > g.cfg.StableFrames && fps > g.cfg.UpgradeThreshold {
		return g.transition(g.level.StepUp(), g.cfg.UpgradeCooldown, ReasonStable)
	}

	return quality.Changed{}, false
}

func (g *Governor) transition(next quality.Level, cooldown time.Duration, reason Reason) (quality.Changed, bool) {
	if next == g.level {
		return quality.Changed{}, false
	}

	ev := quality.Changed{Old: g.level, New: next}
	g.applyLevel(next)
	g.monitor.StartCooldown(cooldown)
	g.monitor.ResetStable()

	g.log.Info().
		Stringer("old", ev.Old).
		Stringer("new", ev.New).
		Str("reason", string(reason)).
		Float64("fps", g.monitor.FPSSlow()).
		Float64("jitter", g.monitor.Jitter()).
		Uint64("frame", g.frame).
		Msg("Quality level changed")

	if g.pub != nil {
		g.pub.Publish(ev)
	}

	return ev, true
}

func (g *Governor) applyLevel(level quality.Level) {
	g.level = level
	g.params = quality.ParamsFor(level)
}

func (g *Governor) publishSnapshot() {
	s := g.monitor.State()
	g.snap.Store(&Snapshot{
		Frame:        g.frame,
		Level:        g.level,
		Params:       g.params,
		FPSFast:      s.FPSFast,
		FPSSlow:      s.FPSSlow,
		Jitter:       s.Jitter,
		StableFrames: s.StableFrames,
		Cooldown:     s.Cooldown,
	})
}

// Snapshot returns the state as of the end of the last frame.
func (g *Governor) Snapshot() Snapshot {
	return *g.snap.Load()
}

func (g *Governor) Level() quality.Level {
	return g.level
}

func (g *Governor) Params() quality.Params {
	return g.params
}

func (g *Governor) Monitor() *frametiming.Monitor {
	return g.monitor
}

func (g *Governor) Config() Config {
	return g.cfg
}
