package denoise

import (
	"fmt"
)

// MotionProfile holds one motion magnitude per frame, aligned with the
// sorted frame order of the sequence it was computed from.
type MotionProfile []float64

// AnalyzeMotion computes the mean per-vertex displacement of every frame
// against its neighbours. Frames must be sorted and share a vertex count.
//
// Interior frames average the backward and forward displacement lengths per
// vertex; the first and last frame use their single neighbour. A lone frame
// has zero motion.
func AnalyzeMotion(frames []Frame) (MotionProfile, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no frames", ErrEmptySequence)
	}
	vertexCount := len(frames[0].Positions)
	if vertexCount == 0 {
		return nil, fmt.Errorf("%w: zero vertices", ErrInvalidInput)
	}

	profile := make(MotionProfile, len(frames))
	if len(frames) == 1 {
		return profile, nil
	}

	last := len(frames) - 1
	for i := range frames {
		cur := frames[i].Positions
		var total float64
		switch i {
		case 0:
			next := frames[1].Positions
			for v := range cur {
				total += float64(next[v].Distance(cur[v]))
			}
		case last:
			prev := frames[i-1].Positions
			for v := range cur {
				total += float64(cur[v].Distance(prev[v]))
			}
		default:
			prev := frames[i-1].Positions
			next := frames[i+1].Positions
			for v := range cur {
				back := float64(cur[v].Distance(prev[v]))
				fwd := float64(next[v].Distance(cur[v]))
				total += (back + fwd) * 0.5
			}
		}
		profile[i] = total / float64(vertexCount)
	}

	return profile, nil
}
