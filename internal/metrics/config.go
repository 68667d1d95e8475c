package metrics

import (
	"time"

	"codeberg.org/mutker/perfgov/internal/errors"
)

const (
	// File system permissions and paths
	defaultDirPerm      = 0o755
	defaultDBPath       = "/var/lib/perfgov/metrics.db"
	defaultBackupDir    = "/var/lib/perfgov/backups"
	defaultBatchSize    = 120
	defaultBatchTimeout = 5 * time.Second
	defaultSampleEvery  = 10
)

type Config struct {
	DBPath       string
	BackupDir    string
	BatchSize    int
	BatchTimeout time.Duration
	// SampleEvery records one frame out of every N.
	SampleEvery int
	Enabled     bool
}

func DefaultConfig() Config {
	return Config{
		DBPath:       defaultDBPath,
		BackupDir:    defaultBackupDir,
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
		SampleEvery:  defaultSampleEvery,
		Enabled:      false, // Disabled by default
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate DBPath if metrics is enabled
	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 0 || c.BatchTimeout < 0 || c.SampleEvery < 0 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			BatchSize    int
			BatchTimeout time.Duration
			SampleEvery  int
		}{c.BatchSize, c.BatchTimeout, c.SampleEvery})
	}

	return nil
}
