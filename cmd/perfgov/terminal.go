package main

import (
	"context"
	"time"

	"codeberg.org/mutker/perfgov/internal/errors"
	"codeberg.org/mutker/perfgov/internal/framesource"
	"codeberg.org/mutker/perfgov/internal/hud"
	"github.com/gdamore/tcell/v2"
)

const eventBuffer = 100

// runTerminal drives the governor from real frame times of the tcell demo.
func (a *app) runTerminal(ctx context.Context) error {
	errFactory := errors.New()

	screen, err := tcell.NewScreen()
	if err != nil {
		return errFactory.Wrap(errors.ErrInitScreen, err)
	}
	if err := screen.Init(); err != nil {
		return errFactory.Wrap(errors.ErrInitScreen, err)
	}
	defer screen.Fini()

	if a.cfg.Audio {
		cue := hud.NewCue(a.log)
		defer cue.Close()
		a.bus.Handle("audio", cue.Play)
	}

	field := hud.NewField(a.gov, a.spawners, hud.BaseParticles, time.Now().UnixNano())
	field.Resize(screen.Size())

	done := make(chan struct{})
	defer close(done)
	eventChan := make(chan tcell.Event, eventBuffer)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case eventChan <- ev:
			case <-done:
				return
			}
		}
	}()

	clock := framesource.NewClock(a.cfg.TargetFPS)
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-eventChan:
			if field.HandleEvent(ev) {
				return nil
			}
			if _, ok := ev.(*tcell.EventResize); ok {
				screen.Sync()
			}
			continue
		default:
		}

		dt, err := clock.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errFactory.Wrap(errors.ErrFrameSource, err)
		}

		a.frame(ctx, dt)
		field.Update(dt, time.Since(start))
		field.Draw(screen)
	}
}
