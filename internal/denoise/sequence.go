package denoise

import (
	"fmt"
	"slices"

	"github.com/Faultbox/meshdenoise/pkg/math"
)

// Frame is one time sample of the mesh.
type Frame struct {
	Index     int         // Frame number
	Positions []math.Vec3 // One position per vertex
}

// Topology is the face connectivity shared by every frame of a sequence.
type Topology struct {
	FaceIndices []int32 // Vertex indices, face after face
	FaceCounts  []int32 // Vertices per face
}

// FaceCount returns the number of faces.
func (t Topology) FaceCount() int {
	return len(t.FaceCounts)
}

// Sequence is an ordered set of frames with a constant vertex count.
// Frames are kept sorted by index; a map built once translates frame
// numbers to slice positions.
type Sequence struct {
	frames      []Frame
	positions   map[int]int
	vertexCount int
	topology    Topology
}

// NewSequence sorts frames by index and validates them. The position
// slices are referenced, not copied, and must not be modified afterwards.
func NewSequence(frames []Frame, topology Topology) (*Sequence, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no frames", ErrEmptySequence)
	}

	sorted := slices.Clone(frames)
	slices.SortFunc(sorted, func(a, b Frame) int {
		return a.Index - b.Index
	})

	vertexCount := len(sorted[0].Positions)
	if vertexCount == 0 {
		return nil, fmt.Errorf("%w: frame %d has no vertices", ErrEmptySequence, sorted[0].Index)
	}

	positions := make(map[int]int, len(sorted))
	for i, f := range sorted {
		if i > 0 && f.Index == sorted[i-1].Index {
			return nil, fmt.Errorf("%w: duplicate frame index %d", ErrInvalidInput, f.Index)
		}
		if len(f.Positions) != vertexCount {
			return nil, fmt.Errorf("%w: frame %d has %d vertices, expected %d",
				ErrInvalidInput, f.Index, len(f.Positions), vertexCount)
		}
		positions[f.Index] = i
	}

	return &Sequence{
		frames:      sorted,
		positions:   positions,
		vertexCount: vertexCount,
		topology:    topology,
	}, nil
}

// Len returns the number of frames.
func (s *Sequence) Len() int {
	return len(s.frames)
}

// VertexCount returns the per-frame vertex count.
func (s *Sequence) VertexCount() int {
	return s.vertexCount
}

// Topology returns the shared face connectivity.
func (s *Sequence) Topology() Topology {
	return s.topology
}

// Frames returns the frames in index order. The slice must not be modified.
func (s *Sequence) Frames() []Frame {
	return s.frames
}

// Indices returns the frame numbers in ascending order.
func (s *Sequence) Indices() []int {
	indices := make([]int, len(s.frames))
	for i, f := range s.frames {
		indices[i] = f.Index
	}
	return indices
}

// Position returns the sorted position of a frame number.
func (s *Sequence) Position(frameIndex int) (int, bool) {
	i, ok := s.positions[frameIndex]
	return i, ok
}
