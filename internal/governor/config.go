package governor

import "time"

const (
	defaultDowngradeThreshold = 28.0
	defaultUpgradeThreshold   = 55.0
	defaultJitterThreshold    = 0.015
	defaultJitterFPSCeiling   = 40.0
	defaultStableFrames       = 240
	defaultDowngradeCooldown  = 3 * time.Second
	defaultUpgradeCooldown    = 5 * time.Second
)

// Config holds the transition thresholds. DowngradeThreshold must stay below
// UpgradeThreshold; the gap between them is the hysteresis band.
type Config struct {
	DowngradeThreshold float64
	UpgradeThreshold   float64
	// JitterThreshold is the jitter (seconds) above which frames count as stuttering.
	JitterThreshold float64
	// JitterFPSCeiling is the slow FPS below which stutter alone forces a downgrade.
	JitterFPSCeiling  float64
	StableFrames      uint32
	DowngradeCooldown time.Duration
	UpgradeCooldown   time.Duration
}

func DefaultConfig() Config {
	return Config{
		DowngradeThreshold: defaultDowngradeThreshold,
		UpgradeThreshold:   defaultUpgradeThreshold,
		JitterThreshold:    defaultJitterThreshold,
		JitterFPSCeiling:   defaultJitterFPSCeiling,
		StableFrames:       defaultStableFrames,
		DowngradeCooldown:  defaultDowngradeCooldown,
		UpgradeCooldown:    defaultUpgradeCooldown,
	}
}

// withDefaults replaces unset fields and an inverted band with the defaults.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DowngradeThreshold <= 0 || c.UpgradeThreshold <= 0 || c.DowngradeThreshold >= c.UpgradeThreshold {
		c.DowngradeThreshold = d.DowngradeThreshold
		c.UpgradeThreshold = d.UpgradeThreshold
	}
	if c.JitterThreshold <= 0 {
		c.JitterThreshold = d.JitterThreshold
	}
	if c.JitterFPSCeiling <= 0 {
		c.JitterFPSCeiling = d.JitterFPSCeiling
	}
	if c.StableFrames == 0 {
		c.StableFrames = d.StableFrames
	}
	if c.DowngradeCooldown < 0 {
		c.DowngradeCooldown = d.DowngradeCooldown
	}
	if c.UpgradeCooldown < 0 {
		c.UpgradeCooldown = d.UpgradeCooldown
	}

	return c
}
