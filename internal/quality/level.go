// Package quality defines the discrete rendering quality tiers and the
// tuning parameters bundled with each of them.
package quality

import (
	"fmt"
	"strings"
)

// Level is a rendering quality tier. Higher values mean higher fidelity.
type Level int

const (
	Potato Level = iota
	Low
	Medium
	High
	Ultra
)

var levelNames = [...]string{
	Potato: "Potato",
	Low:    "Low",
	Medium: "Medium",
	High:   "High",
	Ultra:  "Ultra",
}

// Levels returns every level from lowest to highest fidelity.
func Levels() []Level {
	return []Level{Potato, Low, Medium, High, Ultra}
}

// Valid reports whether l is one of the defined tiers.
func (l Level) Valid() bool {
	return l >= Potato && l <= Ultra
}

// StepDown returns the adjacent lower tier. Potato steps down to itself.
func (l Level) StepDown() Level {
	if l <= Potato {
		return Potato
	}
	if l > Ultra {
		return Ultra
	}

	return l - 1
}

// StepUp returns the adjacent higher tier. Ultra steps up to itself.
func (l Level) StepUp() Level {
	if l >= Ultra {
		return Ultra
	}
	if l < Potato {
		return Potato
	}

	return l + 1
}

func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Level(%d)", int(l))
	}

	return levelNames[l]
}

// ParseLevel maps a tier name (case-insensitive) to a Level.
func ParseLevel(name string) (Level, error) {
	for _, l := range Levels() {
		if strings.EqualFold(name, levelNames[l]) {
			return l, nil
		}
	}

	return Medium, fmt.Errorf("unknown quality level %q", name)
}

// Changed is broadcast once for every accepted level transition.
type Changed struct {
	Old Level
	New Level
}

// Upgrade reports whether the transition raised fidelity.
func (c Changed) Upgrade() bool {
	return c.New > c.Old
}
