// Package platform inspects the host once at startup to pick the initial
// quality level.
package platform

import (
	"runtime"

	"codeberg.org/mutker/perfgov/internal/logger"
	"codeberg.org/mutker/perfgov/internal/quality"
)

const constrainedCPUs = 2

// GPU describes a discrete graphics adapter found by the probe.
type GPU struct {
	Name      string
	MemoryMiB uint64
}

// Profile summarises the host.
type Profile struct {
	OS          string
	Arch        string
	CPUs        int
	GPU         *GPU
	Constrained bool
}

// gpuProber is replaced in tests and by build-specific probes.
var gpuProber = probeGPU

// Detect builds the host profile. A failed GPU probe is logged and treated
// as "no discrete GPU".
func Detect(log logger.Logger) Profile {
	log = log.With("platform")

	p := Profile{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
		CPUs: runtime.NumCPU(),
	}

	gpu, err := gpuProber()
	if err != nil {
		log.Debug().Err(err).Msg("GPU probe unavailable")
	}
	p.GPU = gpu
	p.Constrained = classify(p)

	ev := log.Info().
		Str("os", p.OS).
		Str("arch", p.Arch).
		Int("cpus", p.CPUs).
		Bool("constrained", p.Constrained).
		Stringer("initial_level", p.InitialLevel())
	if p.GPU != nil {
		ev = ev.Str("gpu", p.GPU.Name).Uint64("gpu_memory_mib", p.GPU.MemoryMiB)
	}
	ev.Msg("Platform detected")

	return p
}

func classify(p Profile) bool {
	if p.Arch == "wasm" {
		return true
	}

	return p.CPUs <= constrainedCPUs && p.GPU == nil
}

// InitialLevel is Low on constrained hosts and Medium everywhere else.
func (p Profile) InitialLevel() quality.Level {
	if p.Constrained {
		return quality.Low
	}

	return quality.Medium
}
