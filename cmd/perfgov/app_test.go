package main

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"codeberg.org/mutker/perfgov/internal/config"
	"codeberg.org/mutker/perfgov/internal/errors"
	"codeberg.org/mutker/perfgov/internal/logger"
	"codeberg.org/mutker/perfgov/internal/metrics"
	"codeberg.org/mutker/perfgov/internal/quality"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paths struct {
	metrics   string
	telemetry string
	pid       string
}

func testConfig(t *testing.T, extra ...string) (*config.Config, paths) {
	t.Helper()
	t.Setenv("PERFGOV_CONFIG", "")

	dir := t.TempDir()
	p := paths{
		metrics:   filepath.Join(dir, "metrics.db"),
		telemetry: filepath.Join(dir, "telemetry.db"),
		pid:       filepath.Join(dir, "perfgov.pid"),
	}
	args := append([]string{
		"--initial-level", "medium",
		"--metrics", "--metrics-db", p.metrics,
		"--telemetry", "--telemetry-db", p.telemetry,
		"--pid-file", p.pid,
	}, extra...)

	cfg, err := config.Load(config.WithArgs(args))
	require.NoError(t, err)
	return cfg, p
}

func TestSyntheticRunJournalsEveryTransition(t *testing.T) {
	cfg, p := testConfig(t, "--profile", "600@60,300@20")
	ctx := context.Background()

	a, err := newApp(ctx, cfg, logger.New(io.Discard))
	require.NoError(t, err)
	assert.FileExists(t, p.pid)

	var seen []quality.Changed
	a.bus.Handle("test", func(ev quality.Changed) { seen = append(seen, ev) })

	require.NoError(t, a.run(ctx))
	assert.Equal(t, uint64(900), a.gov.Snapshot().Frame)
	assert.Less(t, a.gov.Level(), quality.Ultra, "the slow phase drops quality")
	a.close()
	assert.NoFileExists(t, p.pid)

	require.NotEmpty(t, seen)
	assert.Equal(t, quality.Changed{Old: quality.Medium, New: quality.High}, seen[0])
	assert.False(t, seen[len(seen)-1].Upgrade())

	cfg.Report = 100
	var out bytes.Buffer
	require.NoError(t, report(ctx, cfg, &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(seen)+1)
	assert.Contains(t, lines[0], "FROM")
	assert.Contains(t, lines[len(lines)-1], "Medium")
	assert.Contains(t, lines[len(lines)-1], "High")

	db, err := sql.Open("sqlite3", p.metrics)
	require.NoError(t, err)
	defer db.Close()
	var frames int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM frames").Scan(&frames))
	assert.Equal(t, 90, frames, "one sample every ten frames")
}

// failingCollector fails every Record call whose 1-based index is not a
// multiple of okEvery. A zero okEvery fails them all.
type failingCollector struct {
	okEvery int
	records int
	closed  bool
}

func (c *failingCollector) Record(context.Context, *metrics.Sample) error {
	c.records++
	if c.okEvery > 0 && c.records%c.okEvery == 0 {
		return nil
	}
	return errors.New().New(errors.ErrCollectMetrics)
}

func (c *failingCollector) Close() error {
	c.closed = true
	return nil
}

func TestMetricsFailuresDoNotStopRun(t *testing.T) {
	cfg, _ := testConfig(t, "--profile", "100@60")
	ctx := context.Background()

	a, err := newApp(ctx, cfg, logger.New(io.Discard))
	require.NoError(t, err)
	defer a.close()

	require.NoError(t, a.collector.Close())
	broken := &failingCollector{}
	a.collector = broken

	require.NoError(t, a.run(ctx))
	assert.Equal(t, uint64(100), a.gov.Snapshot().Frame)
	assert.Equal(t, maxMetricsFailures, broken.records, "collection stops after repeated failures")
	assert.True(t, broken.closed)
}

func TestIntermittentMetricsFailuresKeepCollecting(t *testing.T) {
	cfg, _ := testConfig(t, "--profile", "100@60")
	ctx := context.Background()

	a, err := newApp(ctx, cfg, logger.New(io.Discard))
	require.NoError(t, err)
	defer a.close()

	require.NoError(t, a.collector.Close())
	flaky := &failingCollector{okEvery: 2}
	a.collector = flaky

	require.NoError(t, a.run(ctx))
	assert.Equal(t, uint64(100), a.gov.Snapshot().Frame)
	assert.Equal(t, 100, flaky.records)
	assert.False(t, flaky.closed)
}

func TestTraceRun(t *testing.T) {
	trace := filepath.Join(t.TempDir(), "frames.txt")
	lines := strings.Repeat("16.7\n", 100)
	require.NoError(t, os.WriteFile(trace, []byte("# captured trace\n"+lines), 0o600))

	cfg, _ := testConfig(t, "--source", "trace", "--trace", trace)
	ctx := context.Background()

	a, err := newApp(ctx, cfg, logger.New(io.Discard))
	require.NoError(t, err)
	defer a.close()

	require.NoError(t, a.run(ctx))
	assert.Equal(t, uint64(100), a.gov.Snapshot().Frame)
	assert.Equal(t, quality.Medium, a.gov.Level(), "warm-up holds the level")
}

func TestMissingTrace(t *testing.T) {
	cfg, _ := testConfig(t, "--source", "trace", "--trace", filepath.Join(t.TempDir(), "none.txt"))
	ctx := context.Background()

	a, err := newApp(ctx, cfg, logger.New(io.Discard))
	require.NoError(t, err)
	defer a.close()

	assert.Error(t, a.run(ctx))
}

func TestSecondInstanceRefused(t *testing.T) {
	cfg, p := testConfig(t)
	require.NoError(t, os.WriteFile(p.pid, []byte(strconv.Itoa(os.Getppid())), 0o600))

	_, err := newApp(context.Background(), cfg, logger.New(io.Discard))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg, _ := testConfig(t, "--profile", "100000@60", "--realtime")
	ctx, cancel := context.WithCancel(context.Background())

	a, err := newApp(ctx, cfg, logger.New(io.Discard))
	require.NoError(t, err)
	defer a.close()

	cancel()
	assert.NoError(t, a.run(ctx))
	assert.Less(t, a.gov.Snapshot().Frame, uint64(100000))
}
