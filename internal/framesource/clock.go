package framesource

import (
	"context"
	"time"
)

// Clock measures real elapsed time between calls, pacing frames to a
// target rate. Work done by the caller between calls counts toward the
// frame, so slow frames show up as long durations.
type Clock struct {
	target time.Duration
	now    func() time.Time
	last   time.Time
}

func NewClock(targetFPS float64) *Clock {
	c := &Clock{now: time.Now}
	if targetFPS > 0 {
		c.target = time.Duration(float64(time.Second) / targetFPS)
	}

	return c
}

func (c *Clock) Next(ctx context.Context) (time.Duration, error) {
	if c.last.IsZero() {
		c.last = c.now()
	}

	if wait := c.target - c.now().Sub(c.last); wait > 0 {
		if err := sleep(ctx, wait); err != nil {
			return 0, err
		}
	} else if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := c.now()
	dt := now.Sub(c.last)
	c.last = now

	return dt, nil
}
