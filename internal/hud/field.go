package hud

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"codeberg.org/mutker/perfgov/internal/effects"
	"codeberg.org/mutker/perfgov/internal/governor"
	"github.com/gdamore/tcell/v2"
)

const (
	// BaseParticles is the particle count at Ultra.
	BaseParticles = 1500
	DefaultLoad   = 400
	loadStep      = 200
	maxLoad       = 20000

	// spawners are tuned for a room; the field is busier
	spawnBurst      = 10.0
	requestedLights = 16
	maxSpeed        = 12.0
)

// Canvas is the subset of tcell.Screen the field draws on.
type Canvas interface {
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
	Size() (width, height int)
	Clear()
	Show()
}

type particle struct {
	x, y   float64
	vx, vy float64
	hue    int
}

var palette = [][3]int32{
	{255, 80, 80},
	{255, 170, 60},
	{240, 240, 90},
	{90, 230, 120},
	{80, 200, 255},
	{160, 110, 255},
}

var glyphs = []rune{'.', '·', '+', '*', '✦'}

// Field is a terminal particle panorama whose cost per frame scales with the
// governor's particle budget and the adjustable per-particle load.
type Field struct {
	src       governor.Reader
	spawners  *effects.SpawnerSet
	lights    *effects.LightBudget
	materials *effects.MaterialThrottle
	rng       *rand.Rand

	particles []particle
	width     int
	height    int
	base      int
	load      int
	spawnDebt float64
	hueShift  int
	sink      float64
}

func NewField(src governor.Reader, spawners *effects.SpawnerSet, base int, seed int64) *Field {
	return &Field{
		src:       src,
		spawners:  spawners,
		lights:    effects.NewLightBudget(src),
		materials: effects.NewMaterialThrottle(src),
		rng:       rand.New(rand.NewSource(seed)),
		base:      base,
		load:      DefaultLoad,
	}
}

func (f *Field) Resize(width, height int) {
	f.width, f.height = width, height
	for i := range f.particles {
		p := &f.particles[i]
		p.x = wrap(p.x, float64(width))
		p.y = wrap(p.y, float64(height))
	}
}

// Update advances the simulation by dt; elapsed is the time since start.
func (f *Field) Update(dt, elapsed time.Duration) {
	params := f.src.Snapshot().Params
	target := params.ParticleCount(f.base)

	if len(f.particles) > target {
		f.particles = f.particles[:target]
	}

	f.spawnDebt += f.spawners.TotalRate() * spawnBurst * dt.Seconds()
	spawn := int(f.spawnDebt)
	f.spawnDebt -= float64(spawn)
	for range min(spawn, target-len(f.particles)) {
		f.particles = append(f.particles, f.newParticle())
	}

	secs := dt.Seconds()
	w, h := float64(f.width), float64(f.height)
	for i := range f.particles {
		p := &f.particles[i]
		p.x = wrap(p.x+p.vx*secs, w)
		p.y = wrap(p.y+p.vy*secs, h)
		for j := range f.load {
			f.sink += math.Sin(p.x + float64(j))
		}
	}

	if f.materials.Due(elapsed) {
		f.hueShift++
	}
}

func (f *Field) newParticle() particle {
	return particle{
		x:   f.rng.Float64() * float64(max(f.width, 1)),
		y:   f.rng.Float64() * float64(max(f.height, 1)),
		vx:  (f.rng.Float64()*2 - 1) * maxSpeed,
		vy:  (f.rng.Float64()*2 - 1) * maxSpeed / 2,
		hue: f.rng.Intn(len(palette)),
	}
}

// Draw renders particles, lights and the status line, then shows the canvas.
func (f *Field) Draw(c Canvas) {
	snap := f.src.Snapshot()
	intensity := snap.Params.EffectIntensity

	c.Clear()

	glyph := glyphs[min(int(intensity*float64(len(glyphs)-1)), len(glyphs)-1)]
	for _, p := range f.particles {
		x, y := int(p.x), int(p.y)
		if x < 0 || x >= f.width || y < 1 || y >= f.height {
			continue
		}
		c.SetContent(x, y, glyph, nil, particleStyle(p.hue+f.hueShift, intensity))
	}

	n := f.lights.Clamp(requestedLights)
	lightStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	for i := range n {
		x := (i + 1) * f.width / (n + 1)
		c.SetContent(x, f.height/2, '☼', nil, lightStyle)
	}

	drawText(c, 0, 0, Status(snap), tcell.StyleDefault.Reverse(true))
	drawText(c, 0, f.height-1, fmt.Sprintf("particles:%d load:%d  +/- load  q quit", len(f.particles), f.load),
		tcell.StyleDefault.Foreground(tcell.ColorGray))

	c.Show()
}

// HandleEvent applies a terminal event and reports whether the demo should quit.
func (f *Field) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return true
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q', 'Q':
				return true
			case '+', '=':
				f.load = min(f.load+loadStep, maxLoad)
			case '-', '_':
				f.load = max(f.load-loadStep, 0)
			}
		}
	case *tcell.EventResize:
		f.Resize(ev.Size())
	}

	return false
}

func (f *Field) Particles() int { return len(f.particles) }
func (f *Field) Load() int      { return f.load }

// Status formats the overlay line.
func Status(s governor.Snapshot) string {
	return fmt.Sprintf("FPS:%.0f | %s | j:%.3f", s.FPSFast, s.Level, s.Jitter)
}

func particleStyle(hue int, intensity float64) tcell.Style {
	if intensity <= 0 {
		return tcell.StyleDefault.Foreground(tcell.ColorGray)
	}
	c := palette[hue%len(palette)]
	return tcell.StyleDefault.Foreground(tcell.NewRGBColor(
		int32(float64(c[0])*intensity),
		int32(float64(c[1])*intensity),
		int32(float64(c[2])*intensity),
	))
}

func drawText(c Canvas, x, y int, text string, style tcell.Style) {
	for _, r := range text {
		c.SetContent(x, y, r, nil, style)
		x++
	}
}

func wrap(v, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	v = math.Mod(v, limit)
	if v < 0 {
		v += limit
	}
	return v
}
