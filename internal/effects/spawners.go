// Package effects holds the rendering-intensity consumers that react to
// quality changes: particle spawners, the dynamic light budget and the
// material refresh throttle.
package effects

import (
	"sort"
	"sync"

	"codeberg.org/mutker/perfgov/internal/events"
	"codeberg.org/mutker/perfgov/internal/logger"
	"codeberg.org/mutker/perfgov/internal/quality"
)

// Base spawn rates (particles per second) of the ambient room effects.
const (
	OrbsRate     = 6.0
	WispsRate    = 25.0
	CirclesRate  = 12.0
	SparklesRate = 60.0
	EnergyRate   = 40.0
)

// Spawner is one particle emitter with a fixed base rate.
type Spawner struct {
	Name     string
	BaseRate float64
	Rate     float64
	Active   bool
}

// SpawnerSet rescales its spawners whenever the quality level changes.
type SpawnerSet struct {
	mu       sync.RWMutex
	spawners map[string]*Spawner
	sub      *events.Subscription[quality.Changed]
	level    quality.Level
	log      logger.Logger
}

func NewSpawnerSet(bus *events.Bus[quality.Changed], level quality.Level, log logger.Logger) *SpawnerSet {
	return &SpawnerSet{
		spawners: make(map[string]*Spawner),
		sub:      bus.Subscribe("spawners"),
		level:    level,
		log:      log.With("spawners"),
	}
}

// DefaultRoomSpawners registers the ambient room effects.
func (s *SpawnerSet) DefaultRoomSpawners() *SpawnerSet {
	s.Add("orbs", OrbsRate)
	s.Add("wisps", WispsRate)
	s.Add("circles", CirclesRate)
	s.Add("sparkles", SparklesRate)
	s.Add("energy", EnergyRate)

	return s
}

// Add registers a spawner scaled for the current level.
func (s *SpawnerSet) Add(name string, baseRate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.spawners[name] = &Spawner{
		Name:     name,
		BaseRate: baseRate,
		Rate:     baseRate * quality.ParamsFor(s.level).ParticleMultiplier,
		Active:   true,
	}
}

// SetActive toggles a spawner, e.g. when the visitor leaves its room.
func (s *SpawnerSet) SetActive(name string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sp, ok := s.spawners[name]; ok {
		sp.Active = active
	}
}

// Update drains pending quality changes and rescales every spawner to the
// newest level. It returns whether anything changed.
func (s *SpawnerSet) Update() bool {
	changes := s.sub.Drain()
	if len(changes) == 0 {
		return false
	}

	latest := changes[len(changes)-1].New
	s.Resync(latest)

	s.log.Debug().
		Int("events", len(changes)).
		Float64("multiplier", quality.ParamsFor(latest).ParticleMultiplier).
		Msg("Particle rates adjusted")

	return true
}

// Resync re-derives every rate from level, independent of notifications.
func (s *SpawnerSet) Resync(level quality.Level) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.level = level
	mult := quality.ParamsFor(level).ParticleMultiplier
	for _, sp := range s.spawners {
		sp.Rate = sp.BaseRate * mult
	}
}

// Rate returns the current rate of a spawner, zero when it is inactive or unknown.
func (s *SpawnerSet) Rate(name string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sp, ok := s.spawners[name]
	if !ok || !sp.Active {
		return 0
	}

	return sp.Rate
}

// TotalRate sums the rates of all active spawners.
func (s *SpawnerSet) TotalRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0.0
	for _, sp := range s.spawners {
		if sp.Active {
			total += sp.Rate
		}
	}

	return total
}

// Spawners returns copies of the spawners sorted by name.
func (s *SpawnerSet) Spawners() []Spawner {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Spawner, 0, len(s.spawners))
	for _, sp := range s.spawners {
		out = append(out, *sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

func (s *SpawnerSet) Level() quality.Level {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.level
}

// Close stops listening for quality changes.
func (s *SpawnerSet) Close() {
	s.sub.Close()
}
