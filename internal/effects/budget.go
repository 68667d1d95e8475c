package effects

import (
	"time"

	"codeberg.org/mutker/perfgov/internal/governor"
)

// LightBudget caps the number of simultaneous dynamic lights.
type LightBudget struct {
	src governor.Reader
}

func NewLightBudget(src governor.Reader) *LightBudget {
	return &LightBudget{src: src}
}

// Clamp returns how many of the requested lights may be lit this frame.
func (b *LightBudget) Clamp(requested int) int {
	if requested <= 0 {
		return 0
	}
	limit := int(b.src.Snapshot().Params.MaxLights)

	return min(requested, limit)
}

// MaterialThrottle paces material refreshes to the level's update rate.
type MaterialThrottle struct {
	src  governor.Reader
	last time.Duration
	init bool
}

func NewMaterialThrottle(src governor.Reader) *MaterialThrottle {
	return &MaterialThrottle{src: src}
}

// Due reports whether materials should refresh at elapsed (time since start)
// and records the refresh when they should.
func (t *MaterialThrottle) Due(elapsed time.Duration) bool {
	if !t.init || t.src.Snapshot().Params.ShouldUpdateMaterials(elapsed, t.last) {
		t.init = true
		t.last = elapsed
		return true
	}

	return false
}
