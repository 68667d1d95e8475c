package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"codeberg.org/mutker/perfgov/internal/config"
	"codeberg.org/mutker/perfgov/internal/effects"
	"codeberg.org/mutker/perfgov/internal/errors"
	"codeberg.org/mutker/perfgov/internal/events"
	"codeberg.org/mutker/perfgov/internal/framesource"
	"codeberg.org/mutker/perfgov/internal/frametiming"
	"codeberg.org/mutker/perfgov/internal/governor"
	"codeberg.org/mutker/perfgov/internal/logger"
	"codeberg.org/mutker/perfgov/internal/metrics"
	"codeberg.org/mutker/perfgov/internal/pid"
	"codeberg.org/mutker/perfgov/internal/platform"
	"codeberg.org/mutker/perfgov/internal/quality"
	"codeberg.org/mutker/perfgov/internal/telemetry"
)

type app struct {
	cfg       *config.Config
	log       logger.Logger
	bus       *events.Bus[quality.Changed]
	gov       *governor.Governor
	spawners  *effects.SpawnerSet
	collector metrics.Collector
	failures  int
	journal   telemetry.Journal
	pidFile   *pid.File
	ctx       context.Context
}

func newApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	errFactory := errors.New()

	initial := platform.Detect(log).InitialLevel()
	if level, ok := cfg.Level(); ok {
		initial = level
	}

	a := &app{
		cfg: cfg,
		log: log,
		bus: events.NewBus[quality.Changed](),
		ctx: ctx,
	}

	monitor := frametiming.New(cfg.TimingConfig())
	a.gov = governor.New(cfg.GovernorConfig(), monitor, initial, a.bus, log)
	a.spawners = effects.NewSpawnerSet(a.bus, initial, log).DefaultRoomSpawners()

	if cfg.Metrics {
		a.pidFile = pid.New(cfg.PIDFile)
		if err := a.pidFile.Acquire(); err != nil {
			a.pidFile = nil
			a.close()
			return nil, err
		}
	}

	collector, err := metrics.NewService(cfg.MetricsConfig(), log)
	if err != nil {
		a.close()
		return nil, errFactory.Wrap(errors.ErrInitMetrics, err)
	}
	a.collector = collector

	journal, err := telemetry.NewService(cfg.TelemetryConfig())
	if err != nil {
		a.close()
		return nil, errFactory.Wrap(errors.ErrInitTelemetry, err)
	}
	a.journal = journal
	a.bus.Handle("telemetry", a.recordTransition)

	log.Info().
		Stringer("level", initial).
		Str("source", cfg.Source.String()).
		Bool("metrics", cfg.Metrics).
		Bool("telemetry", cfg.Telemetry).
		Msg("Governor started")

	return a, nil
}

// recordTransition runs inside Governor.Step, before the snapshot is
// republished, so the signals are read from the monitor.
func (a *app) recordTransition(ev quality.Changed) {
	m := a.gov.Monitor()
	t := &telemetry.Transition{
		Timestamp: time.Now(),
		Old:       ev.Old,
		New:       ev.New,
		FPSSlow:   m.FPSSlow(),
		Jitter:    m.Jitter(),
	}
	if err := a.journal.Record(a.ctx, t); err != nil {
		a.log.Warn().Err(err).Msg("Failed to journal quality transition")
	}
}

// maxMetricsFailures is how many consecutive Record errors are tolerated
// before metrics collection is switched off for the rest of the run.
const maxMetricsFailures = 10

// frame runs one host-loop iteration. Metrics errors never stop the loop.
func (a *app) frame(ctx context.Context, dt time.Duration) {
	a.gov.Step(dt)
	a.spawners.Update()
	a.recordMetrics(ctx)
	a.bus.EndFrame()
}

func (a *app) recordMetrics(ctx context.Context) {
	err := a.collector.Record(ctx, metrics.SampleFrom(time.Now(), a.gov.Snapshot()))
	if err == nil {
		a.failures = 0
		return
	}
	if ctx.Err() != nil {
		return
	}

	a.failures++
	a.log.Warn().Err(err).Int("consecutive", a.failures).Msg("Failed to record metrics")
	if a.failures < maxMetricsFailures {
		return
	}

	a.log.Error().Int("failures", a.failures).Msg("Disabling metrics collection")
	if err := a.collector.Close(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to close metrics collector")
	}
	a.collector = metrics.Disabled()
}

// runSource feeds every frame of src through the governor until the source
// ends or ctx is cancelled.
func (a *app) runSource(ctx context.Context, src framesource.Source) error {
	for {
		dt, err := src.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case ctx.Err() != nil:
			return nil
		case err != nil:
			return errors.New().Wrap(errors.ErrFrameSource, err)
		}

		a.frame(ctx, dt)
	}
}

func (a *app) openSource() (framesource.Source, func() error, error) {
	switch a.cfg.Source {
	case config.SourceTrace:
		tr, err := framesource.OpenTrace(a.cfg.Trace)
		if err != nil {
			return nil, nil, err
		}
		return tr, tr.Close, nil
	default:
		phases, err := framesource.ParseProfile(a.cfg.Profile)
		if err != nil {
			return nil, nil, err
		}
		return framesource.NewSynthetic(phases, a.cfg.Realtime), func() error { return nil }, nil
	}
}

func (a *app) run(ctx context.Context) error {
	if a.cfg.Source == config.SourceTerminal {
		return a.runTerminal(ctx)
	}

	src, closeSrc, err := a.openSource()
	if err != nil {
		return err
	}
	defer closeSrc()

	return a.runSource(ctx, src)
}

func (a *app) summary() {
	s := a.gov.Snapshot()
	a.log.Info().
		Uint64("frames", s.Frame).
		Stringer("level", s.Level).
		Float64("fps_slow", s.FPSSlow).
		Float64("jitter", s.Jitter).
		Msg("Run finished")
}

func (a *app) close() {
	if a.spawners != nil {
		a.spawners.Close()
	}
	if a.collector != nil {
		if err := a.collector.Close(); err != nil {
			a.log.Error().Err(err).Msg("Failed to close metrics collector")
		}
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.log.Error().Err(err).Msg("Failed to close transition journal")
		}
	}
	if a.pidFile != nil {
		if err := a.pidFile.Release(); err != nil {
			a.log.Error().Err(err).Msg("Failed to remove PID file")
		}
	}
}

// report prints the newest transitions from the journal.
func report(ctx context.Context, cfg *config.Config, w io.Writer) error {
	errFactory := errors.New()

	journal, err := telemetry.NewService(cfg.TelemetryConfig())
	if err != nil {
		return errFactory.Wrap(errors.ErrReport, err)
	}
	defer journal.Close()

	recent, err := journal.Recent(ctx, cfg.Report)
	if err != nil {
		return errFactory.Wrap(errors.ErrReport, err)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tFROM\tTO\tFPS\tJITTER")
	for _, t := range recent {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%.4f\n",
			t.Timestamp.Format(time.RFC3339), t.Old, t.New, t.FPSSlow, t.Jitter)
	}

	return tw.Flush()
}
