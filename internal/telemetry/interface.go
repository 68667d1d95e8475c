package telemetry

import (
	"context"
	"time"

	"codeberg.org/mutker/perfgov/internal/quality"
)

// Journal records quality transitions and reads them back.
type Journal interface {
	Record(ctx context.Context, t *Transition) error
	Recent(ctx context.Context, limit int) ([]Transition, error)
	Close() error
}

// Transition is one journaled level change with the signals that caused it.
type Transition struct {
	Timestamp time.Time
	Old       quality.Level
	New       quality.Level
	FPSSlow   float64
	Jitter    float64
}
