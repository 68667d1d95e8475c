// Package framesource produces the per-frame durations fed to the governor:
// scripted load profiles, recorded traces and the wall clock.
package framesource

import (
	"context"
	"time"
)

// Source yields one frame duration per call. Finite sources return io.EOF
// when exhausted.
type Source interface {
	Next(ctx context.Context) (time.Duration, error)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
