package denoise

import (
	"fmt"
	"math"
)

// WindowPlan holds one odd window width per frame, aligned with the sorted
// frame order.
type WindowPlan []int

// WindowPlanner maps a frame's motion magnitude to a temporal window width.
type WindowPlanner interface {
	Width(motion float64) int
}

// AdaptivePlanner shrinks the window for high-motion frames and widens it
// for quiet ones.
type AdaptivePlanner struct {
	baseWindowSize  int
	motionThreshold float64
}

// NewAdaptivePlanner returns a planner around a base window size. The base
// size is normalized like Params.WindowSize.
func NewAdaptivePlanner(baseWindowSize int, motionThreshold float64) (*AdaptivePlanner, error) {
	if baseWindowSize < 1 {
		return nil, fmt.Errorf("%w: window size %d", ErrInvalidConfig, baseWindowSize)
	}
	if !(motionThreshold > 0) {
		return nil, fmt.Errorf("%w: motion threshold must be > 0, got %v", ErrInvalidConfig, motionThreshold)
	}
	return &AdaptivePlanner{
		baseWindowSize:  NormalizeWindowSize(baseWindowSize),
		motionThreshold: motionThreshold,
	}, nil
}

// Width returns an odd window width in [MinWindowSize, MaxWindowSize].
func (p *AdaptivePlanner) Width(motion float64) int {
	var scale float64
	if motion > p.motionThreshold {
		scale = math.Max(0.3, 1-motion/p.motionThreshold)
	} else {
		scale = math.Min(2.0, 1+p.motionThreshold/math.Max(motion, 0.001))
	}

	size := int(float64(p.baseWindowSize) * scale)
	if size%2 == 0 {
		size++
	}
	return min(max(size, MinWindowSize), MaxWindowSize)
}

// FixedPlanner returns the same width for every frame.
type FixedPlanner struct {
	size int
}

// NewFixedPlanner returns a planner with a normalized constant width.
func NewFixedPlanner(size int) *FixedPlanner {
	return &FixedPlanner{size: NormalizeWindowSize(size)}
}

// Width ignores motion.
func (p *FixedPlanner) Width(float64) int {
	return p.size
}

// PlanWindows applies a planner to every entry of a motion profile.
func PlanWindows(planner WindowPlanner, profile MotionProfile) WindowPlan {
	plan := make(WindowPlan, len(profile))
	for i, m := range profile {
		plan[i] = planner.Width(m)
	}
	return plan
}

// Range returns the smallest and largest width in the plan.
func (p WindowPlan) Range() (lo, hi int) {
	if len(p) == 0 {
		return 0, 0
	}
	lo, hi = p[0], p[0]
	for _, w := range p[1:] {
		lo = min(lo, w)
		hi = max(hi, w)
	}
	return lo, hi
}

// SuggestWindowSize returns a fixed-kernel window width for a sample rate,
// keeping the window near a tenth of a second.
func SuggestWindowSize(fps float64) int {
	switch {
	case fps <= 35:
		return 3
	case fps <= 65:
		return 5
	default:
		return 7
	}
}
