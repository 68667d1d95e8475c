package framesource_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/perfgov/internal/errors"
	"codeberg.org/mutker/perfgov/internal/framesource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, src framesource.Source) []time.Duration {
	t.Helper()

	var out []time.Duration
	for {
		dt, err := src.Next(context.Background())
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, dt)
	}
}

func TestParseProfile(t *testing.T) {
	phases, err := framesource.ParseProfile("600@60, 300@20,900@55/25")
	require.NoError(t, err)
	assert.Equal(t, []framesource.Phase{
		{Frames: 600, FPS: 60},
		{Frames: 300, FPS: 20},
		{Frames: 900, FPS: 55, AltFPS: 25},
	}, phases)

	for _, bad := range []string{"", "60", "x@60", "10@", "10@0", "10@60/", "-1@30", "5@30/abc"} {
		_, err := framesource.ParseProfile(bad)
		assert.True(t, errors.HasCode(err, framesource.ErrInvalidProfile), "profile %q", bad)
	}
}

func TestSynthetic(t *testing.T) {
	src := framesource.NewSynthetic([]framesource.Phase{
		{Frames: 2, FPS: 20},
		{Frames: 4, FPS: 50, AltFPS: 25},
	}, false)

	assert.Equal(t, 6, src.TotalFrames())
	assert.Equal(t, []time.Duration{
		50 * time.Millisecond, 50 * time.Millisecond,
		20 * time.Millisecond, 40 * time.Millisecond,
		20 * time.Millisecond, 40 * time.Millisecond,
	}, drain(t, src))

	_, err := src.Next(context.Background())
	assert.Equal(t, io.EOF, err, "stays exhausted")
}

func TestSyntheticRealtimeHonoursCancel(t *testing.T) {
	src := framesource.NewSynthetic([]framesource.Phase{{Frames: 10, FPS: 0.5}}, true)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTrace(t *testing.T) {
	trace := framesource.NewTrace(strings.NewReader("# recorded on a laptop\n16.6\n\n 33.3 \n50\n"))

	got := drain(t, trace)
	require.Len(t, got, 3)
	assert.Equal(t, 16600*time.Microsecond, got[0])
	assert.Equal(t, 33300*time.Microsecond, got[1])
	assert.Equal(t, 50*time.Millisecond, got[2])
	assert.NoError(t, trace.Close())
}

func TestTraceInvalidLine(t *testing.T) {
	trace := framesource.NewTrace(strings.NewReader("16.6\nfast\n"))

	_, err := trace.Next(context.Background())
	require.NoError(t, err)

	_, err = trace.Next(context.Background())
	assert.True(t, errors.HasCode(err, framesource.ErrInvalidTrace))
	assert.Contains(t, err.Error(), "fast")
}

func TestOpenTrace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.txt")
	require.NoError(t, os.WriteFile(path, []byte("20\n40\n"), 0o600))

	trace, err := framesource.OpenTrace(path)
	require.NoError(t, err)
	defer trace.Close()

	assert.Equal(t, []time.Duration{20 * time.Millisecond, 40 * time.Millisecond}, drain(t, trace))

	_, err = framesource.OpenTrace(filepath.Join(t.TempDir(), "missing.txt"))
	assert.True(t, errors.HasCode(err, framesource.ErrOpenTrace))
}

func TestClockPacesFrames(t *testing.T) {
	clock := framesource.NewClock(100)

	for i := 0; i < 3; i++ {
		dt, err := clock.Next(context.Background())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, dt, 10*time.Millisecond)
	}
}

func TestClockCancelled(t *testing.T) {
	clock := framesource.NewClock(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := clock.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
