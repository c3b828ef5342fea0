// Package pipeline moves mesh sequences between storage and the denoise
// engine: it selects the frame range, runs the filter and hands the result
// to a sink.
package pipeline

import (
	"fmt"

	"github.com/Faultbox/meshdenoise/internal/denoise"
	"github.com/Faultbox/meshdenoise/pkg/math"
)

// Provider supplies an input sequence.
type Provider interface {
	// FrameIndices returns the frame numbers in ascending order.
	FrameIndices() []int
	// Positions returns the read-only positions of one frame.
	Positions(frame int) ([]math.Vec3, error)
	VertexCount() int
	Topology() denoise.Topology
}

// Sink receives output frames in ascending order. The sink owns any
// container framing, including writing the shared topology once.
type Sink interface {
	WriteFrame(frame int, positions []math.Vec3) error
}

// Load reads the frames selected by r from p into a sequence.
func Load(p Provider, r FrameRange) (*denoise.Sequence, error) {
	indices := p.FrameIndices()
	if len(indices) == 0 {
		return nil, fmt.Errorf("%w: no frames", denoise.ErrEmptySequence)
	}
	start, end, err := r.Resolve(len(indices))
	if err != nil {
		return nil, err
	}

	frames := make([]denoise.Frame, 0, end-start+1)
	for _, idx := range indices[start : end+1] {
		positions, err := p.Positions(idx)
		if err != nil {
			return nil, fmt.Errorf("reading frame %d: %w", idx, err)
		}
		frames = append(frames, denoise.Frame{Index: idx, Positions: positions})
	}

	return denoise.NewSequence(frames, p.Topology())
}

// Write emits every frame of seq to s in order.
func Write(s Sink, seq *denoise.Sequence) error {
	for _, f := range seq.Frames() {
		if err := s.WriteFrame(f.Index, f.Positions); err != nil {
			return fmt.Errorf("writing frame %d: %w", f.Index, err)
		}
	}
	return nil
}
