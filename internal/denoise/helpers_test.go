package denoise

import (
	"github.com/Faultbox/meshdenoise/pkg/math"
)

// scalarFrames builds single-vertex frames whose X coordinate follows xs.
func scalarFrames(xs ...float32) []Frame {
	frames := make([]Frame, len(xs))
	for i, x := range xs {
		frames[i] = Frame{Index: i, Positions: []math.Vec3{{X: x}}}
	}
	return frames
}

// gridFrames builds n frames of a small vertex grid, offset per frame by
// move(frame).
func gridFrames(n, side int, move func(frame int) math.Vec3) []Frame {
	frames := make([]Frame, n)
	for f := range frames {
		off := move(f)
		positions := make([]math.Vec3, 0, side*side)
		for y := 0; y < side; y++ {
			for x := 0; x < side; x++ {
				positions = append(positions, math.Vec3{X: float32(x), Y: float32(y)}.Add(off))
			}
		}
		frames[f] = Frame{Index: f + 1, Positions: positions}
	}
	return frames
}

func bilateralParams() Params {
	return Params{
		Mode:            ModeBilateral,
		WindowSize:      15,
		SigmaTemporal:   4.0,
		SigmaSpatial:    0.25,
		MotionThreshold: 0.1,
		EdgeThreshold:   0.15,
	}
}

func fixedParams(fn WeightFunction) Params {
	return Params{
		Mode:           ModeFixedKernel,
		WindowSize:     5,
		WeightFunction: fn,
		GaussianSigma:  1.0,
	}
}
