package metrics_test

import (
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/perfgov/internal/errors"
	"codeberg.org/mutker/perfgov/internal/governor"
	"codeberg.org/mutker/perfgov/internal/logger"
	"codeberg.org/mutker/perfgov/internal/metrics"
	"codeberg.org/mutker/perfgov/internal/quality"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) metrics.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := metrics.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = filepath.Join(dir, "metrics.db")
	cfg.BackupDir = filepath.Join(dir, "backups")
	cfg.BatchTimeout = 0
	cfg.SampleEvery = 1

	return cfg
}

func countFrames(t *testing.T, path string) int {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM frames").Scan(&n))

	return n
}

func sample(frame uint64, level quality.Level) *metrics.Sample {
	return metrics.SampleFrom(time.Unix(1700000000, int64(frame)), governor.Snapshot{
		Frame:   frame,
		Level:   level,
		Params:  quality.ParamsFor(level),
		FPSFast: 58.2,
		FPSSlow: 59.7,
		Jitter:  0.0004,
	})
}

func TestDisabledServiceIsNoop(t *testing.T) {
	cfg := metrics.DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "never.db")

	svc, err := metrics.NewService(cfg, logger.New(io.Discard))
	require.NoError(t, err)
	require.NoError(t, svc.Record(context.Background(), sample(1, quality.Medium)))
	require.NoError(t, svc.Close())

	_, err = os.Stat(cfg.DBPath)
	assert.True(t, os.IsNotExist(err))
}

func TestBatchedRecording(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 3

	svc, err := metrics.NewService(cfg, logger.New(io.Discard))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, svc.Record(ctx, sample(1, quality.Medium)))
	require.NoError(t, svc.Record(ctx, sample(2, quality.Medium)))
	assert.Zero(t, countFrames(t, cfg.DBPath), "still buffered")

	require.NoError(t, svc.Record(ctx, sample(3, quality.Low)))
	assert.Equal(t, 3, countFrames(t, cfg.DBPath))

	require.NoError(t, svc.Record(ctx, sample(4, quality.Low)))
	require.NoError(t, svc.Close())
	assert.Equal(t, 4, countFrames(t, cfg.DBPath), "close flushes the remainder")
}

func TestSampleEvery(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 100
	cfg.SampleEvery = 10

	svc, err := metrics.NewService(cfg, logger.New(io.Discard))
	require.NoError(t, err)

	for i := uint64(1); i <= 25; i++ {
		require.NoError(t, svc.Record(context.Background(), sample(i, quality.High)))
	}
	require.NoError(t, svc.Close())

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query("SELECT frame, level, max_lights FROM frames ORDER BY frame")
	require.NoError(t, err)
	defer rows.Close()

	var frames []int
	for rows.Next() {
		var frame, level, lights int
		require.NoError(t, rows.Scan(&frame, &level, &lights))
		assert.Equal(t, int(quality.High), level)
		assert.Equal(t, 12, lights)
		frames = append(frames, frame)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []int{1, 11, 21}, frames)
}

func TestPeriodicFlush(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 1000
	cfg.BatchTimeout = 20 * time.Millisecond

	svc, err := metrics.NewService(cfg, logger.New(io.Discard))
	require.NoError(t, err)
	defer svc.Close()

	require.NoError(t, svc.Record(context.Background(), sample(1, quality.Medium)))

	assert.Eventually(t, func() bool {
		return countFrames(t, cfg.DBPath) == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestFailedBatchIsDropped(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 3
	ctx := context.Background()

	c, err := metrics.NewService(cfg, logger.New(io.Discard))
	require.NoError(t, err)
	defer c.Close()

	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, c.Record(ctx, sample(i, quality.High)))
	}
	require.Equal(t, 3, countFrames(t, cfg.DBPath))

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("ALTER TABLE frames RENAME TO frames_moved")
	require.NoError(t, err)

	require.NoError(t, c.Record(ctx, sample(4, quality.High)))
	require.NoError(t, c.Record(ctx, sample(5, quality.High)))
	err = c.Record(ctx, sample(6, quality.High))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, metrics.ErrMetricsCollection))

	_, err = db.Exec("ALTER TABLE frames_moved RENAME TO frames")
	require.NoError(t, err)

	for i := uint64(7); i <= 9; i++ {
		require.NoError(t, c.Record(ctx, sample(i, quality.High)))
	}
	assert.Equal(t, 6, countFrames(t, cfg.DBPath), "frames 4-6 were dropped, not replayed")
}

func TestRecordRejectsNil(t *testing.T) {
	cfg := testConfig(t)
	svc, err := metrics.NewService(cfg, logger.New(io.Discard))
	require.NoError(t, err)
	defer svc.Close()

	err = svc.Record(context.Background(), nil)
	assert.True(t, errors.HasCode(err, metrics.ErrInvalidMetrics))
}

func TestRecordCancelledContext(t *testing.T) {
	cfg := testConfig(t)
	svc, err := metrics.NewService(cfg, logger.New(io.Discard))
	require.NoError(t, err)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = svc.Record(ctx, sample(1, quality.Low))
	assert.True(t, errors.HasCode(err, metrics.ErrOperationTimeout))
}

func TestSchemaUpgradeBacksUp(t *testing.T) {
	cfg := testConfig(t)

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE schema_versions (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL);
		INSERT INTO schema_versions VALUES (99, datetime('now'));
		CREATE TABLE frames (timestamp INTEGER PRIMARY KEY);`)
	require.NoError(t, err)

	require.NoError(t, metrics.ValidateAndUpdateSchema(db, cfg.BackupDir, logger.New(io.Discard)))

	version, err := metrics.GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, metrics.SchemaVersion, version)

	backups, err := filepath.Glob(filepath.Join(cfg.BackupDir, "metrics_v99_*.db"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	// Already current: nothing to do.
	require.NoError(t, metrics.ValidateAndUpdateSchema(db, cfg.BackupDir, logger.New(io.Discard)))
}

func TestConfigValidate(t *testing.T) {
	cfg := metrics.DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Enabled = true
	cfg.DBPath = ""
	assert.True(t, errors.HasCode(cfg.Validate(), metrics.ErrInvalidDBPath))

	cfg = metrics.DefaultConfig()
	cfg.BatchSize = -1
	assert.True(t, errors.HasCode(cfg.Validate(), metrics.ErrInvalidConfig))
}
