package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/perfgov/internal/errors"
	"codeberg.org/mutker/perfgov/internal/framesource"
	"codeberg.org/mutker/perfgov/internal/frametiming"
	"codeberg.org/mutker/perfgov/internal/governor"
	"codeberg.org/mutker/perfgov/internal/logger"
	"codeberg.org/mutker/perfgov/internal/metrics"
	"codeberg.org/mutker/perfgov/internal/quality"
	"codeberg.org/mutker/perfgov/internal/telemetry"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel   = "info"
	DefaultSource     = SourceSynthetic
	DefaultProfile    = "600@60,300@20,900@60"
	DefaultTargetFPS  = 60.0
	DefaultConfigFile = "/etc/perfgov.toml"
	DefaultPIDFile    = "/run/perfgov.pid"
	defaultEnvPrefix  = "PERFGOV"
	autoLevel         = "auto"
)

// Config is the flattened runtime configuration of perfgov.
type Config struct {
	LogLevel  string
	Source    Source
	Trace     string
	Profile   string
	Realtime  bool
	TargetFPS float64

	// InitialLevel is a quality level name or "auto" for platform detection.
	InitialLevel string

	DowngradeThreshold float64
	UpgradeThreshold   float64
	JitterThreshold    float64
	JitterFPSCeiling   float64
	StableFrames       int
	DowngradeCooldown  time.Duration
	UpgradeCooldown    time.Duration
	Warmup             time.Duration

	FastAlpha  float64
	SlowAlpha  float64
	GoodFPS    float64
	NoiseFloor float64
	MinSample  time.Duration
	MaxSample  time.Duration

	Metrics      bool
	MetricsDB    string
	BatchSize    int
	BatchTimeout time.Duration
	SampleEvery  int

	Telemetry   bool
	TelemetryDB string

	Audio   bool
	PIDFile string
	// Report prints the last N transitions and exits when non-zero.
	Report int
}

type flagDef struct {
	key   string
	usage string
}

// flag names are the keys with dashes; keys stay flat for TOML and env
var flagDefs = []flagDef{
	{"log_level", "Log level (debug, info, warning, error)"},
	{"source", "Frame source (synthetic, trace, terminal)"},
	{"trace", "Frame trace file, one duration in milliseconds per line"},
	{"profile", "Synthetic load profile, e.g. 600@60,300@20,900@55/25"},
	{"realtime", "Pace synthetic frames in real time"},
	{"target_fps", "Frame rate the terminal demo paces itself to"},
	{"initial_level", "Starting quality level or auto"},
	{"downgrade_threshold", "Slow FPS below which quality drops"},
	{"upgrade_threshold", "Slow FPS above which stable play may raise quality"},
	{"jitter_threshold", "Frame jitter in seconds counted as stutter"},
	{"jitter_fps_ceiling", "Slow FPS below which stutter alone drops quality"},
	{"stable_frames", "Consecutive stable frames required before an upgrade"},
	{"downgrade_cooldown", "Quiet period after a downgrade"},
	{"upgrade_cooldown", "Quiet period after an upgrade"},
	{"warmup", "Quiet period after startup"},
	{"fast_alpha", "Weight of the reactive FPS average"},
	{"slow_alpha", "Weight of the stable FPS average"},
	{"good_fps", "Reactive FPS a frame needs to count as stable"},
	{"noise_floor", "Jitter in seconds below which a frame counts as stable"},
	{"min_sample", "Shortest frame duration accepted"},
	{"max_sample", "Longest frame duration accepted"},
	{"metrics", "Record per-frame samples to SQLite"},
	{"metrics_db", "Path of the metrics database"},
	{"batch_size", "Samples buffered before a metrics flush"},
	{"batch_timeout", "Longest time samples stay buffered"},
	{"sample_every", "Record one sample every N frames"},
	{"telemetry", "Journal quality transitions to SQLite"},
	{"telemetry_db", "Path of the transition journal"},
	{"audio", "Play a tone on quality changes (terminal source)"},
	{"pid_file", "PID file guarding the metrics database"},
	{"report", "Print the last N transitions and exit"},
}

func setDefaults(v *viper.Viper) {
	gov := governor.DefaultConfig()
	timing := frametiming.DefaultConfig()
	mcfg := metrics.DefaultConfig()
	tcfg := telemetry.DefaultConfig()

	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("source", string(DefaultSource))
	v.SetDefault("trace", "")
	v.SetDefault("profile", DefaultProfile)
	v.SetDefault("realtime", false)
	v.SetDefault("target_fps", DefaultTargetFPS)
	v.SetDefault("initial_level", autoLevel)
	v.SetDefault("downgrade_threshold", gov.DowngradeThreshold)
	v.SetDefault("upgrade_threshold", gov.UpgradeThreshold)
	v.SetDefault("jitter_threshold", gov.JitterThreshold)
	v.SetDefault("jitter_fps_ceiling", gov.JitterFPSCeiling)
	v.SetDefault("stable_frames", int(gov.StableFrames))
	v.SetDefault("downgrade_cooldown", gov.DowngradeCooldown)
	v.SetDefault("upgrade_cooldown", gov.UpgradeCooldown)
	v.SetDefault("warmup", timing.Warmup)
	v.SetDefault("fast_alpha", timing.FastAlpha)
	v.SetDefault("slow_alpha", timing.SlowAlpha)
	v.SetDefault("good_fps", timing.GoodFPS)
	v.SetDefault("noise_floor", timing.NoiseFloor)
	v.SetDefault("min_sample", timing.MinSample)
	v.SetDefault("max_sample", timing.MaxSample)
	v.SetDefault("metrics", mcfg.Enabled)
	v.SetDefault("metrics_db", mcfg.DBPath)
	v.SetDefault("batch_size", mcfg.BatchSize)
	v.SetDefault("batch_timeout", mcfg.BatchTimeout)
	v.SetDefault("sample_every", mcfg.SampleEvery)
	v.SetDefault("telemetry", tcfg.Enabled)
	v.SetDefault("telemetry_db", tcfg.DBPath)
	v.SetDefault("audio", false)
	v.SetDefault("pid_file", DefaultPIDFile)
	v.SetDefault("report", 0)
}

func newFlagSet(v *viper.Viper) *pflag.FlagSet {
	fs := pflag.NewFlagSet("perfgov", pflag.ContinueOnError)
	for _, fd := range flagDefs {
		name := strings.ReplaceAll(fd.key, "_", "-")
		switch def := v.Get(fd.key).(type) {
		case bool:
			fs.Bool(name, def, fd.usage)
		case int:
			fs.Int(name, def, fd.usage)
		case float64:
			fs.Float64(name, def, fd.usage)
		case time.Duration:
			fs.Duration(name, def, fd.usage)
		default:
			fs.String(name, v.GetString(fd.key), fd.usage)
		}
	}
	return fs
}

// Load reads defaults, the TOML config file, PERFGOV_* environment variables
// and command line flags, in increasing order of precedence.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: defaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if !o.argsSet {
		o.args = os.Args[1:]
	}

	v := viper.New()
	setDefaults(v)

	fs := newFlagSet(v)
	if err := fs.Parse(o.args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	for _, fd := range flagDefs {
		if err := v.BindPFlag(fd.key, fs.Lookup(strings.ReplaceAll(fd.key, "_", "-"))); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	v.SetEnvPrefix(o.envPrefix)
	v.AutomaticEnv()

	if err := readConfigFile(v, o); err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel:           strings.ToLower(v.GetString("log_level")),
		Source:             Source(strings.ToLower(v.GetString("source"))),
		Trace:              v.GetString("trace"),
		Profile:            v.GetString("profile"),
		Realtime:           v.GetBool("realtime"),
		TargetFPS:          v.GetFloat64("target_fps"),
		InitialLevel:       strings.ToLower(v.GetString("initial_level")),
		DowngradeThreshold: v.GetFloat64("downgrade_threshold"),
		UpgradeThreshold:   v.GetFloat64("upgrade_threshold"),
		JitterThreshold:    v.GetFloat64("jitter_threshold"),
		JitterFPSCeiling:   v.GetFloat64("jitter_fps_ceiling"),
		StableFrames:       v.GetInt("stable_frames"),
		DowngradeCooldown:  v.GetDuration("downgrade_cooldown"),
		UpgradeCooldown:    v.GetDuration("upgrade_cooldown"),
		Warmup:             v.GetDuration("warmup"),
		FastAlpha:          v.GetFloat64("fast_alpha"),
		SlowAlpha:          v.GetFloat64("slow_alpha"),
		GoodFPS:            v.GetFloat64("good_fps"),
		NoiseFloor:         v.GetFloat64("noise_floor"),
		MinSample:          v.GetDuration("min_sample"),
		MaxSample:          v.GetDuration("max_sample"),
		Metrics:            v.GetBool("metrics"),
		MetricsDB:          v.GetString("metrics_db"),
		BatchSize:          v.GetInt("batch_size"),
		BatchTimeout:       v.GetDuration("batch_timeout"),
		SampleEvery:        v.GetInt("sample_every"),
		Telemetry:          v.GetBool("telemetry"),
		TelemetryDB:        v.GetString("telemetry_db"),
		Audio:              v.GetBool("audio"),
		PIDFile:            v.GetString("pid_file"),
		Report:             v.GetInt("report"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	return cfg, nil
}

// readConfigFile loads an explicit path, then $<PREFIX>_CONFIG, then the
// system file. Only the system file may be missing.
func readConfigFile(v *viper.Viper, o *options) error {
	path := o.configPath
	if path == "" {
		path = os.Getenv(o.envPrefix + "_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err != nil {
			return nil
		}
		path = DefaultConfigFile
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return errors.New().Wrap(errors.ErrReadConfig, err)
	}

	return nil
}

// Validate checks every value and returns the first *ValidationError found.
func (c *Config) Validate() error {
	if _, ok := logger.ParseLevel(c.LogLevel); !ok {
		return newValidationError(errors.ErrInvalidLogLevel, "log_level", c.LogLevel,
			"must be one of debug, info, warning, error")
	}

	if err := c.validateSource(); err != nil {
		return err
	}

	if c.InitialLevel != autoLevel {
		if _, err := quality.ParseLevel(c.InitialLevel); err != nil {
			return newValidationError(errors.ErrInvalidLevel, "initial_level", c.InitialLevel,
				"must be auto or one of potato, low, medium, high, ultra")
		}
	}

	return c.validateThresholds()
}

func (c *Config) validateSource() error {
	if !c.Source.IsValid() {
		return newValidationError(errors.ErrInvalidSource, "source", c.Source,
			"must be one of synthetic, trace, terminal")
	}

	switch c.Source {
	case SourceTrace:
		if c.Trace == "" && c.Report == 0 {
			return newValidationError(errors.ErrInvalidSource, "trace", c.Trace,
				"trace source needs a trace file")
		}
	case SourceSynthetic:
		if _, err := framesource.ParseProfile(c.Profile); err != nil {
			return newValidationError(errors.ErrInvalidSource, "profile", c.Profile, err.Error())
		}
	}

	return nil
}

func (c *Config) validateThresholds() error {
	positive := []struct {
		field string
		value float64
	}{
		{"target_fps", c.TargetFPS},
		{"downgrade_threshold", c.DowngradeThreshold},
		{"jitter_threshold", c.JitterThreshold},
		{"good_fps", c.GoodFPS},
		{"noise_floor", c.NoiseFloor},
		{"min_sample", c.MinSample.Seconds()},
		{"max_sample", c.MaxSample.Seconds()},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return newValidationError(errors.ErrInvalidThreshold, p.field, p.value, "must be positive")
		}
	}

	switch {
	case c.UpgradeThreshold <= c.DowngradeThreshold:
		return newValidationError(errors.ErrInvalidThreshold, "upgrade_threshold", c.UpgradeThreshold,
			"must be above downgrade_threshold")
	case c.JitterFPSCeiling < c.DowngradeThreshold:
		return newValidationError(errors.ErrInvalidThreshold, "jitter_fps_ceiling", c.JitterFPSCeiling,
			"must not be below downgrade_threshold")
	case c.FastAlpha <= 0 || c.FastAlpha > 1:
		return newValidationError(errors.ErrInvalidThreshold, "fast_alpha", c.FastAlpha, "must be in (0, 1]")
	case c.SlowAlpha <= 0 || c.SlowAlpha > 1:
		return newValidationError(errors.ErrInvalidThreshold, "slow_alpha", c.SlowAlpha, "must be in (0, 1]")
	case c.MinSample >= c.MaxSample:
		return newValidationError(errors.ErrInvalidThreshold, "min_sample", c.MinSample,
			"must be below max_sample")
	case c.StableFrames <= 0 || int64(c.StableFrames) > math.MaxUint32:
		return newValidationError(errors.ErrInvalidThreshold, "stable_frames", c.StableFrames,
			"must be between 1 and 4294967295")
	case c.DowngradeCooldown < 0, c.UpgradeCooldown < 0, c.Warmup < 0:
		return newValidationError(errors.ErrInvalidThreshold, "cooldown",
			[]time.Duration{c.DowngradeCooldown, c.UpgradeCooldown, c.Warmup}, "must not be negative")
	case c.BatchSize < 1:
		return newValidationError(errors.ErrInvalidThreshold, "batch_size", c.BatchSize, "must be at least 1")
	case c.SampleEvery < 1:
		return newValidationError(errors.ErrInvalidThreshold, "sample_every", c.SampleEvery, "must be at least 1")
	case c.Report < 0:
		return newValidationError(errors.ErrInvalidThreshold, "report", c.Report, "must not be negative")
	}

	return nil
}

// Level returns the configured initial level; ok is false for "auto".
func (c *Config) Level() (level quality.Level, ok bool) {
	if c.InitialLevel == autoLevel {
		return quality.Medium, false
	}
	l, err := quality.ParseLevel(c.InitialLevel)
	if err != nil {
		return quality.Medium, false
	}
	return l, true
}

func (c *Config) GovernorConfig() governor.Config {
	return governor.Config{
		DowngradeThreshold: c.DowngradeThreshold,
		UpgradeThreshold:   c.UpgradeThreshold,
		JitterThreshold:    c.JitterThreshold,
		JitterFPSCeiling:   c.JitterFPSCeiling,
		StableFrames:       uint32(c.StableFrames),
		DowngradeCooldown:  c.DowngradeCooldown,
		UpgradeCooldown:    c.UpgradeCooldown,
	}
}

func (c *Config) TimingConfig() frametiming.Config {
	cfg := frametiming.DefaultConfig()
	cfg.FastAlpha = c.FastAlpha
	cfg.SlowAlpha = c.SlowAlpha
	cfg.GoodFPS = c.GoodFPS
	cfg.NoiseFloor = c.NoiseFloor
	cfg.MinSample = c.MinSample
	cfg.MaxSample = c.MaxSample
	cfg.Warmup = c.Warmup
	return cfg
}

func (c *Config) MetricsConfig() metrics.Config {
	return metrics.Config{
		DBPath:       c.MetricsDB,
		BackupDir:    filepath.Join(filepath.Dir(c.MetricsDB), "backups"),
		BatchSize:    c.BatchSize,
		BatchTimeout: c.BatchTimeout,
		SampleEvery:  c.SampleEvery,
		Enabled:      c.Metrics,
	}
}

func (c *Config) TelemetryConfig() telemetry.Config {
	return telemetry.Config{
		DBPath: c.TelemetryDB,
		// the report reads the journal even when recording is off
		Enabled: c.Telemetry || c.Report > 0,
	}
}
