// Package denoise implements temporal filtering of animated mesh sequences:
// motion analysis, adaptive window planning, bilateral and fixed-kernel
// weighting, and the engine that aggregates them into filtered frames.
package denoise

import (
	"errors"
	"fmt"
	"strings"
)

// Denoise errors.
var (
	ErrInvalidConfig = errors.New("invalid filter configuration")
	ErrEmptySequence = errors.New("empty mesh sequence")
	ErrInvalidInput  = errors.New("invalid mesh sequence")
)

// Window size bounds. Every planned window is odd and lies in this range.
const (
	MinWindowSize = 3
	MaxWindowSize = 15
)

// Mode selects how the engine weights neighbouring frames.
type Mode int

const (
	ModeBilateral   Mode = iota // Adaptive window, temporal x spatial x edge weights
	ModeFixedKernel             // Constant window, linear or gaussian kernel
)

// String returns the mode name used in configuration files.
func (m Mode) String() string {
	switch m {
	case ModeBilateral:
		return "bilateral"
	case ModeFixedKernel:
		return "fixed-kernel"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// ParseMode parses a mode name. "temporal" is accepted as an alias of
// fixed-kernel.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bilateral", "adaptive-bilateral":
		return ModeBilateral, nil
	case "fixed-kernel", "fixed", "temporal":
		return ModeFixedKernel, nil
	default:
		return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, s)
	}
}

// WeightFunction is the 1-D kernel shape used in fixed-kernel mode.
type WeightFunction int

const (
	WeightLinear WeightFunction = iota
	WeightGaussian
)

// String returns the weight function name.
func (w WeightFunction) String() string {
	switch w {
	case WeightLinear:
		return "linear"
	case WeightGaussian:
		return "gaussian"
	default:
		return fmt.Sprintf("Unknown(%d)", int(w))
	}
}

// ParseWeightFunction parses "linear" or "gaussian". Anything else is an
// ErrInvalidConfig; there is no fallback to linear.
func ParseWeightFunction(s string) (WeightFunction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear":
		return WeightLinear, nil
	case "gaussian":
		return WeightGaussian, nil
	default:
		return 0, fmt.Errorf("%w: unknown weight function %q (available: linear, gaussian)", ErrInvalidConfig, s)
	}
}

// Params is the immutable per-run filter configuration. The engine applies
// no defaults of its own; every field relevant to Mode must be set.
type Params struct {
	Mode       Mode
	WindowSize int // Base window size; normalized to odd and clamped to [3,15]

	// Bilateral mode.
	SigmaTemporal   float64
	SigmaSpatial    float64
	MotionThreshold float64
	EdgeThreshold   float64

	// Fixed-kernel mode.
	WeightFunction WeightFunction
	GaussianSigma  float64
}

// NormalizeWindowSize rounds an even size up to the next odd value and
// clamps the result to [MinWindowSize, MaxWindowSize].
func NormalizeWindowSize(size int) int {
	if size%2 == 0 {
		size++
	}
	return min(max(size, MinWindowSize), MaxWindowSize)
}

// Normalized validates p and returns a copy with WindowSize normalized.
func (p Params) Normalized() (Params, error) {
	if p.WindowSize < 1 {
		return Params{}, fmt.Errorf("%w: window size %d", ErrInvalidConfig, p.WindowSize)
	}
	p.WindowSize = NormalizeWindowSize(p.WindowSize)

	switch p.Mode {
	case ModeBilateral:
		checks := []struct {
			name  string
			value float64
		}{
			{"sigma temporal", p.SigmaTemporal},
			{"sigma spatial", p.SigmaSpatial},
			{"motion threshold", p.MotionThreshold},
			{"edge threshold", p.EdgeThreshold},
		}
		for _, c := range checks {
			// Written as !(v > 0) so NaN is rejected too.
			if !(c.value > 0) {
				return Params{}, fmt.Errorf("%w: %s must be > 0, got %v", ErrInvalidConfig, c.name, c.value)
			}
		}
	case ModeFixedKernel:
		switch p.WeightFunction {
		case WeightLinear:
		case WeightGaussian:
			if !(p.GaussianSigma > 0) {
				return Params{}, fmt.Errorf("%w: gaussian sigma must be > 0, got %v", ErrInvalidConfig, p.GaussianSigma)
			}
		default:
			return Params{}, fmt.Errorf("%w: unknown weight function %s", ErrInvalidConfig, p.WeightFunction)
		}
	default:
		return Params{}, fmt.Errorf("%w: unknown mode %s", ErrInvalidConfig, p.Mode)
	}

	return p, nil
}
