// Package synth generates animated test meshes: a square grid that spins
// about Z while a travelling wave runs across it, with optional per-vertex
// jitter.
package synth

import (
	"errors"
	"fmt"
	gomath "math"
	"math/rand/v2"

	"github.com/Faultbox/meshdenoise/internal/denoise"
	"github.com/Faultbox/meshdenoise/pkg/formats"
	"github.com/Faultbox/meshdenoise/pkg/math"
)

// ErrInvalidOptions is returned for unusable generator settings.
var ErrInvalidOptions = errors.New("invalid generator options")

// Options controls the generated animation.
type Options struct {
	Name          string
	GridSide      int     // Vertices per grid edge (>= 2)
	Frames        int     // Number of frames (>= 1)
	FirstFrame    int     // Index of the first frame
	FPS           float32 // Stored in the header; 0 = unknown
	SpinDegrees   float32 // Total rotation over the clip; may exceed a full turn
	WaveAmplitude float32 // Height of the travelling wave
	Noise         float32 // Max per-axis jitter added to every vertex
	Seed          uint64
}

// DefaultOptions returns a 16x16 grid, two seconds at 24 fps.
func DefaultOptions() Options {
	return Options{
		Name:          "grid",
		GridSide:      16,
		Frames:        48,
		FirstFrame:    1,
		FPS:           24,
		SpinDegrees:   90,
		WaveAmplitude: 0.1,
		Noise:         0.01,
		Seed:          1,
	}
}

// Generate builds the sequence and a matching file header.
func Generate(opts Options) (*denoise.Sequence, formats.MSEQHeader, error) {
	if opts.GridSide < 2 {
		return nil, formats.MSEQHeader{}, fmt.Errorf("%w: grid side %d", ErrInvalidOptions, opts.GridSide)
	}
	if opts.Frames < 1 {
		return nil, formats.MSEQHeader{}, fmt.Errorf("%w: %d frames", ErrInvalidOptions, opts.Frames)
	}
	if opts.Noise < 0 {
		return nil, formats.MSEQHeader{}, fmt.Errorf("%w: negative noise", ErrInvalidOptions)
	}

	base := grid(opts.GridSide)
	counts, indices := quads(opts.GridSide)

	axis := math.Vec3{Z: 1}
	spin := opts.SpinDegrees * gomath.Pi / 180
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	jitter := func() float32 {
		if opts.Noise == 0 {
			return 0
		}
		return (rng.Float32()*2 - 1) * opts.Noise
	}

	frames := make([]denoise.Frame, opts.Frames)
	for f := range frames {
		t := float32(0)
		if opts.Frames > 1 {
			t = float32(f) / float32(opts.Frames-1)
		}
		rot := math.QuatFromAxisAngle(axis, spin*t)
		phase := 2 * gomath.Pi * float64(t)

		positions := make([]math.Vec3, len(base))
		for v, p := range base {
			height := opts.WaveAmplitude * float32(gomath.Sin(float64(p.X)*gomath.Pi-phase))
			p = rot.Rotate(p.Add(math.Vec3{Z: height}))
			positions[v] = p.Add(math.Vec3{X: jitter(), Y: jitter(), Z: jitter()})
		}
		frames[f] = denoise.Frame{Index: opts.FirstFrame + f, Positions: positions}
	}

	seq, err := denoise.NewSequence(frames, denoise.Topology{FaceCounts: counts, FaceIndices: indices})
	if err != nil {
		return nil, formats.MSEQHeader{}, err
	}

	header := formats.MSEQHeader{
		FPS:         opts.FPS,
		Name:        opts.Name,
		VertexCount: len(base),
		FaceCounts:  counts,
		FaceIndices: indices,
	}
	return seq, header, nil
}

// grid returns side*side vertices spanning [-1,1] in X and Y.
func grid(side int) []math.Vec3 {
	step := 2 / float32(side-1)
	out := make([]math.Vec3, 0, side*side)
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			out = append(out, math.Vec3{X: -1 + float32(x)*step, Y: -1 + float32(y)*step})
		}
	}
	return out
}

// quads returns the face table of a side*side vertex grid.
func quads(side int) (counts, indices []int32) {
	n := (side - 1) * (side - 1)
	counts = make([]int32, 0, n)
	indices = make([]int32, 0, n*4)
	for y := 0; y < side-1; y++ {
		for x := 0; x < side-1; x++ {
			i := int32(y*side + x)
			s := int32(side)
			counts = append(counts, 4)
			indices = append(indices, i, i+1, i+s+1, i+s)
		}
	}
	return counts, indices
}
