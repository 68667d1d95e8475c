package metrics

import (
	"context"
	"time"

	"codeberg.org/mutker/perfgov/internal/governor"
	"codeberg.org/mutker/perfgov/internal/quality"
)

// Collector defines the core domain interface
type Collector interface {
	Record(ctx context.Context, sample *Sample) error
	Close() error
}

// Repository defines the interface for frame sample storage
type Repository interface {
	Record(sample *Sample) error
	Flush() error
	Close() error
}

// Sample is one recorded frame.
type Sample struct {
	Timestamp time.Time
	Frame     uint64
	Timing    TimingMetrics
	Quality   QualityMetrics
}

// Domain value objects
type TimingMetrics struct {
	FPSFast      float64
	FPSSlow      float64
	Jitter       float64
	StableFrames uint32
}

type QualityMetrics struct {
	Level              quality.Level
	ParticleMultiplier float64
	MaxLights          uint32
}

// SampleFrom converts a governor snapshot into a sample taken at ts.
func SampleFrom(ts time.Time, s governor.Snapshot) *Sample {
	return &Sample{
		Timestamp: ts,
		Frame:     s.Frame,
		Timing: TimingMetrics{
			FPSFast:      s.FPSFast,
			FPSSlow:      s.FPSSlow,
			Jitter:       s.Jitter,
			StableFrames: s.StableFrames,
		},
		Quality: QualityMetrics{
			Level:              s.Level,
			ParticleMultiplier: s.Params.ParticleMultiplier,
			MaxLights:          s.Params.MaxLights,
		},
	}
}
