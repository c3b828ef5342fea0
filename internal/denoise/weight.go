package denoise

import (
	"fmt"
	gomath "math"

	"gonum.org/v1/gonum/floats"

	"github.com/Faultbox/meshdenoise/pkg/math"
)

// Neighbor describes one frame inside a center frame's window.
type Neighbor struct {
	Center       []math.Vec3 // Center frame positions
	Positions    []math.Vec3 // Neighbor frame positions
	Offset       int         // Neighbor position minus center position in sorted order
	CenterMotion float64     // Motion magnitude of the center frame
}

// WeightModel computes a non-negative weight per vertex for a neighbour.
// Implementations must be safe for concurrent use.
type WeightModel interface {
	Weights(dst []float64, n Neighbor)
}

// Bilateral weighs neighbours by temporal distance and by how far each
// vertex moved relative to the center frame. Above the edge threshold the
// spatial term is sharpened so only close neighbours contribute.
type Bilateral struct {
	sigmaTemporal float64
	sigmaSpatial  float64
	edgeThreshold float64
}

// NewBilateral returns a bilateral weight model.
func NewBilateral(sigmaTemporal, sigmaSpatial, edgeThreshold float64) (*Bilateral, error) {
	if !(sigmaTemporal > 0) || !(sigmaSpatial > 0) {
		return nil, fmt.Errorf("%w: sigmas must be > 0, got temporal=%v spatial=%v",
			ErrInvalidConfig, sigmaTemporal, sigmaSpatial)
	}
	if !(edgeThreshold > 0) {
		return nil, fmt.Errorf("%w: edge threshold must be > 0, got %v", ErrInvalidConfig, edgeThreshold)
	}
	return &Bilateral{
		sigmaTemporal: sigmaTemporal,
		sigmaSpatial:  sigmaSpatial,
		edgeThreshold: edgeThreshold,
	}, nil
}

// Temporal returns the weight for an offset of d frames.
func (b *Bilateral) Temporal(d int) float64 {
	fd := float64(d)
	return gomath.Exp(-(fd * fd) / (2 * b.sigmaTemporal * b.sigmaTemporal))
}

// Spatial returns the weight for a squared vertex displacement, including
// the edge term for the given center motion.
func (b *Bilateral) Spatial(distSq, centerMotion float64) float64 {
	w := gomath.Exp(-distSq / (2 * b.sigmaSpatial * b.sigmaSpatial))
	if centerMotion > b.edgeThreshold {
		w = gomath.Pow(w, b.edgeFactor(centerMotion))
	}
	return w
}

func (b *Bilateral) edgeFactor(centerMotion float64) float64 {
	return gomath.Min(2.0, centerMotion/b.edgeThreshold)
}

// Weights implements WeightModel.
func (b *Bilateral) Weights(dst []float64, n Neighbor) {
	temporal := b.Temporal(n.Offset)
	for v := range dst {
		distSq := float64(n.Positions[v].DistanceSq(n.Center[v]))
		dst[v] = temporal * b.Spatial(distSq, n.CenterMotion)
	}
}

// FixedKernel is a normalized 1-D kernel over frame offset. It ignores
// positions entirely.
type FixedKernel struct {
	coeffs []float64
	half   int
}

// NewFixedKernel precomputes a kernel of the given width. The width is
// normalized like Params.WindowSize. sigma is only used by WeightGaussian.
func NewFixedKernel(fn WeightFunction, width int, sigma float64) (*FixedKernel, error) {
	if width < 1 {
		return nil, fmt.Errorf("%w: window size %d", ErrInvalidConfig, width)
	}
	width = NormalizeWindowSize(width)
	half := width / 2

	coeffs := make([]float64, width)
	switch fn {
	case WeightLinear:
		for i := range coeffs {
			dist := gomath.Abs(float64(i - half))
			coeffs[i] = 1 - dist/float64(half+1)
		}
	case WeightGaussian:
		if !(sigma > 0) {
			return nil, fmt.Errorf("%w: gaussian sigma must be > 0, got %v", ErrInvalidConfig, sigma)
		}
		for i := range coeffs {
			d := float64(i - half)
			coeffs[i] = gomath.Exp(-(d * d) / (2 * sigma * sigma))
		}
	default:
		return nil, fmt.Errorf("%w: unknown weight function %s", ErrInvalidConfig, fn)
	}

	if sum := floats.Sum(coeffs); sum > degenerateWeight {
		floats.Scale(1/sum, coeffs)
	}

	return &FixedKernel{coeffs: coeffs, half: half}, nil
}

// Coefficients returns a copy of the normalized kernel.
func (k *FixedKernel) Coefficients() []float64 {
	out := make([]float64, len(k.coeffs))
	copy(out, k.coeffs)
	return out
}

// At returns the coefficient for a frame offset. Offsets outside the
// kernel reuse the nearest boundary coefficient.
func (k *FixedKernel) At(offset int) float64 {
	i := min(max(offset+k.half, 0), len(k.coeffs)-1)
	return k.coeffs[i]
}

// Weights implements WeightModel.
func (k *FixedKernel) Weights(dst []float64, n Neighbor) {
	w := k.At(n.Offset)
	for v := range dst {
		dst[v] = w
	}
}
