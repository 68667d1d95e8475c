package quality

import (
	"math"
	"time"
)

// Params is the bundle of rendering-intensity knobs that change together
// with the quality level.
type Params struct {
	ParticleMultiplier float64
	EffectIntensity    float64
	MaxLights          uint32
	MaterialUpdateHz   float64
}

var paramTable = [...]Params{
	Potato: {ParticleMultiplier: 0.08, EffectIntensity: 0.0, MaxLights: 2, MaterialUpdateHz: 5},
	Low:    {ParticleMultiplier: 0.2, EffectIntensity: 0.5, MaxLights: 4, MaterialUpdateHz: 10},
	Medium: {ParticleMultiplier: 0.4, EffectIntensity: 0.8, MaxLights: 8, MaterialUpdateHz: 20},
	High:   {ParticleMultiplier: 0.7, EffectIntensity: 1.0, MaxLights: 12, MaterialUpdateHz: 30},
	Ultra:  {ParticleMultiplier: 1.0, EffectIntensity: 1.0, MaxLights: 16, MaterialUpdateHz: 60},
}

// ParamsFor returns the tuning bundle for l. Out-of-range levels are clamped
// to the nearest tier.
func ParamsFor(l Level) Params {
	switch {
	case l < Potato:
		l = Potato
	case l > Ultra:
		l = Ultra
	}

	return paramTable[l]
}

// ParticleCount scales a base particle count, never returning less than one.
func (p Params) ParticleCount(base int) int {
	n := int(math.Ceil(float64(base) * p.ParticleMultiplier))

	return max(n, 1)
}

// MaterialInterval is the minimum time between material refreshes.
func (p Params) MaterialInterval() time.Duration {
	if p.MaterialUpdateHz <= 0 {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(float64(time.Second) / p.MaterialUpdateHz)
}

// ShouldUpdateMaterials reports whether enough time has passed since the
// last material refresh at last for another one at elapsed.
func (p Params) ShouldUpdateMaterials(elapsed, last time.Duration) bool {
	return elapsed-last >= p.MaterialInterval()
}
