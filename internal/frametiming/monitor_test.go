package frametiming_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/perfgov/internal/frametiming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fps(n float64) time.Duration {
	return time.Duration(float64(time.Second) / n)
}

func newMonitor() *frametiming.Monitor {
	cfg := frametiming.DefaultConfig()
	cfg.Warmup = 0

	return frametiming.New(cfg)
}

func TestInitialState(t *testing.T) {
	m := frametiming.New(frametiming.DefaultConfig())
	s := m.State()

	assert.InDelta(t, 60.0, s.FPSFast, 1e-9)
	assert.InDelta(t, 60.0, s.FPSSlow, 1e-9)
	assert.Zero(t, s.Jitter)
	assert.Zero(t, s.StableFrames)
	assert.Equal(t, 2*time.Second, s.Cooldown)
}

func TestDiscardsImplausibleSamples(t *testing.T) {
	m := newMonitor()
	for i := 0; i < 10; i++ {
		require.True(t, m.Ingest(fps(50)))
	}
	before := m.State()

	for _, dt := range []time.Duration{0, -time.Millisecond, 5 * time.Second, time.Second + 1} {
		assert.False(t, m.Ingest(dt), "dt=%s", dt)
		assert.Equal(t, before, m.State(), "dt=%s", dt)
	}

	assert.True(t, m.Ingest(time.Second), "the sanity ceiling itself is accepted")
}

func TestDiscardsTooShortSamples(t *testing.T) {
	m := newMonitor()
	before := m.State()

	for _, dt := range []time.Duration{time.Nanosecond, time.Microsecond, 999 * time.Microsecond} {
		assert.False(t, m.Ingest(dt), "dt=%s", dt)
		assert.Equal(t, before, m.State(), "dt=%s", dt)
	}

	require.True(t, m.Ingest(time.Millisecond), "the floor itself is accepted")
	assert.LessOrEqual(t, m.FPSFast(), 1000.0)
	assert.LessOrEqual(t, m.FPSSlow(), 1000.0)
}

func TestCorruptSampleDoesNotStallAverages(t *testing.T) {
	m := newMonitor()
	m.Ingest(time.Microsecond)

	for range 40 {
		m.Ingest(50 * time.Millisecond)
	}
	assert.Less(t, m.FPSSlow(), 28.0, "a 20 FPS stream drags the slow average under the floor")
}

func TestMinSampleAboveMaxIsReset(t *testing.T) {
	cfg := frametiming.DefaultConfig()
	cfg.MinSample = 2 * time.Second
	m := frametiming.New(cfg)

	assert.True(t, m.Ingest(16*time.Millisecond))
}

func TestFastAverageReactsFirst(t *testing.T) {
	m := newMonitor()
	for i := 0; i < 8; i++ {
		m.Ingest(fps(20))
	}

	// 8 samples close ~83% of a 40 fps step on the fast average
	// and only ~34% on the slow one.
	assert.Less(t, m.FPSFast(), 27.0)
	assert.Greater(t, m.FPSSlow(), 45.0)

	for i := 0; i < 100; i++ {
		m.Ingest(fps(20))
	}
	assert.InDelta(t, 20.0, m.FPSFast(), 0.01)
	assert.InDelta(t, 20.0, m.FPSSlow(), 0.3)
}

func TestJitterTracksFrameDelta(t *testing.T) {
	m := newMonitor()
	for i := 0; i < 200; i++ {
		if i%2 == 0 {
			m.Ingest(fps(50))
		} else {
			m.Ingest(fps(25))
		}
	}

	// |1/25 - 1/50| = 20ms on every frame.
	assert.InDelta(t, 0.02, m.Jitter(), 1e-4)
	assert.Zero(t, m.StableFrames())
}

func TestStableFrames(t *testing.T) {
	m := newMonitor()
	for i := 1; i <= 300; i++ {
		m.Ingest(fps(60))
		require.Equal(t, uint32(i), m.StableFrames())
	}

	// One long hitch pushes jitter past the noise floor.
	m.Ingest(200 * time.Millisecond)
	assert.Zero(t, m.StableFrames())

	m.ResetStable()
	assert.Zero(t, m.StableFrames())
}

func TestStableFramesNeedGoodFPS(t *testing.T) {
	m := newMonitor()
	for i := 0; i < 100; i++ {
		m.Ingest(fps(40))
	}

	assert.Zero(t, m.StableFrames())
	assert.Less(t, m.Jitter(), 0.01)
}

func TestCooldownCountsDown(t *testing.T) {
	m := newMonitor()
	m.StartCooldown(time.Second)
	assert.True(t, m.CoolingDown())

	for i := 0; i < 19; i++ {
		m.Ingest(50 * time.Millisecond)
	}
	assert.Equal(t, 50*time.Millisecond, m.Cooldown())

	m.Ingest(50 * time.Millisecond)
	assert.Zero(t, m.Cooldown())
	assert.False(t, m.CoolingDown())

	m.Ingest(50 * time.Millisecond)
	assert.Zero(t, m.Cooldown(), "cooldown never goes negative")

	m.StartCooldown(-time.Second)
	assert.Zero(t, m.Cooldown())
}

func TestZeroConfigUsesDefaults(t *testing.T) {
	m := frametiming.New(frametiming.Config{})

	assert.InDelta(t, 60.0, m.FPSSlow(), 1e-9)
	assert.Zero(t, m.Cooldown())
	assert.False(t, m.Ingest(2*time.Second))
}
