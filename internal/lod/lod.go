// Package lod maps camera height to a grass triangle divisor.
package lod

import (
	"errors"
	"fmt"
	"math"

	"voxgrass/internal/config"
)

var ErrInvalid = errors.New("invalid lod settings")

// Settings shape the LOD curve. Heights at or below Near draw every blade,
// heights above Far draw one in MaxMultiplier. Inside the band the linear
// ramp is flattened by a smoothstep while it stays under
// MaxMultiplier*BiasThreshold.
type Settings struct {
	Near          float64
	Far           float64
	MaxMultiplier int
	BiasThreshold float64
	BiasFloor     float64
}

func FromConfig(c config.LODConfig) Settings {
	return Settings{
		Near:          c.Near,
		Far:           c.Far,
		MaxMultiplier: c.MaxMultiplier,
		BiasThreshold: c.BiasThreshold,
		BiasFloor:     c.BiasFloor,
	}
}

func DefaultSettings() Settings {
	return FromConfig(config.Default().LOD)
}

func (s Settings) Validate() error {
	if s.Far <= s.Near {
		return fmt.Errorf("%w: far %.2f must exceed near %.2f", ErrInvalid, s.Far, s.Near)
	}
	if s.MaxMultiplier < 1 {
		return fmt.Errorf("%w: max multiplier %d", ErrInvalid, s.MaxMultiplier)
	}
	// A floor above 1 lifts the biased ramp over the unbiased one, so the
	// multiplier would drop where the bias stops.
	if s.BiasFloor < 0 || s.BiasFloor > 1 {
		return fmt.Errorf("%w: bias floor %.2f outside [0,1]", ErrInvalid, s.BiasFloor)
	}
	if s.BiasThreshold < 0 {
		return fmt.Errorf("%w: bias threshold %.2f", ErrInvalid, s.BiasThreshold)
	}
	return nil
}

// SmoothStep interpolates from..to with a cubic Hermite weight of t,
// t clamped to [0,1].
func SmoothStep(from, to, t float64) float64 {
	t = math.Max(0, math.Min(1, t))
	t = t * t * (3 - 2*t)
	return from + (to-from)*t
}

// Multiplier returns the LOD divisor for a camera height, in [1, MaxMultiplier].
func Multiplier(height float64, s Settings) int {
	if height <= s.Near {
		return 1
	}
	if height > s.Far {
		return s.MaxMultiplier
	}

	maxLOD := float64(s.MaxMultiplier)
	lod := (height - s.Near) / ((s.Far - s.Near) / maxLOD)
	if lod <= maxLOD*s.BiasThreshold {
		lod *= SmoothStep(s.BiasFloor, 1, (height-s.Near)/s.Far)
	}

	m := int(math.Ceil(lod))
	return max(1, min(m, s.MaxMultiplier))
}
