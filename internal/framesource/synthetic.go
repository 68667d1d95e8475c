package framesource

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/perfgov/internal/errors"
)

// Phase is a run of frames at a fixed rate. When AltFPS is set, frames
// alternate between FPS and AltFPS to produce stutter.
type Phase struct {
	Frames int
	FPS    float64
	AltFPS float64
}

// Synthetic replays a load profile, optionally in real time.
type Synthetic struct {
	phases   []Phase
	realtime bool
	phase    int
	frame    int
}

// ParseProfile reads "frames@fps[/altfps]" phases separated by commas,
// e.g. "600@60,300@20,900@55/25".
func ParseProfile(profile string) ([]Phase, error) {
	errFactory := errors.New()

	var phases []Phase
	for _, part := range strings.Split(profile, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		count, rate, ok := strings.Cut(part, "@")
		if !ok {
			return nil, errFactory.WithData(ErrInvalidProfile, part)
		}

		frames, err := strconv.Atoi(count)
		if err != nil || frames <= 0 {
			return nil, errFactory.WithData(ErrInvalidProfile, part)
		}

		p := Phase{Frames: frames}
		primary, alt, hasAlt := strings.Cut(rate, "/")
		if p.FPS, err = strconv.ParseFloat(primary, 64); err != nil || p.FPS <= 0 {
			return nil, errFactory.WithData(ErrInvalidProfile, part)
		}
		if hasAlt {
			if p.AltFPS, err = strconv.ParseFloat(alt, 64); err != nil || p.AltFPS <= 0 {
				return nil, errFactory.WithData(ErrInvalidProfile, part)
			}
		}

		phases = append(phases, p)
	}

	if len(phases) == 0 {
		return nil, errFactory.WithData(ErrInvalidProfile, profile)
	}

	return phases, nil
}

func NewSynthetic(phases []Phase, realtime bool) *Synthetic {
	return &Synthetic{phases: phases, realtime: realtime}
}

func (s *Synthetic) Next(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	for s.phase < len(s.phases) && s.frame >= s.phases[s.phase].Frames {
		s.phase++
		s.frame = 0
	}
	if s.phase >= len(s.phases) {
		return 0, io.EOF
	}

	p := s.phases[s.phase]
	rate := p.FPS
	if p.AltFPS > 0 && s.frame%2 == 1 {
		rate = p.AltFPS
	}
	s.frame++

	dt := time.Duration(float64(time.Second) / rate)
	if s.realtime {
		if err := sleep(ctx, dt); err != nil {
			return 0, err
		}
	}

	return dt, nil
}

// TotalFrames is the length of the profile.
func (s *Synthetic) TotalFrames() int {
	n := 0
	for _, p := range s.phases {
		n += p.Frames
	}

	return n
}
