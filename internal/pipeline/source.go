package pipeline

import (
	"fmt"

	"github.com/Faultbox/meshdenoise/internal/denoise"
	"github.com/Faultbox/meshdenoise/pkg/formats"
	"github.com/Faultbox/meshdenoise/pkg/math"
)

// FileSource exposes a parsed MSEQ file as a Provider.
type FileSource struct {
	file *formats.MSEQ
}

// NewFileSource wraps a parsed file.
func NewFileSource(m *formats.MSEQ) *FileSource {
	return &FileSource{file: m}
}

// OpenFileSource parses an MSEQ file from disk.
func OpenFileSource(path string) (*FileSource, error) {
	m, err := formats.ParseMSEQFile(path)
	if err != nil {
		return nil, err
	}
	return NewFileSource(m), nil
}

// File returns the underlying parsed file.
func (s *FileSource) File() *formats.MSEQ {
	return s.file
}

// FrameIndices implements Provider.
func (s *FileSource) FrameIndices() []int {
	return s.file.FrameIndices()
}

// Positions implements Provider.
func (s *FileSource) Positions(frame int) ([]math.Vec3, error) {
	f, ok := s.file.Frame(frame)
	if !ok {
		return nil, fmt.Errorf("frame %d not in %q", frame, s.file.Name)
	}
	return f.Positions, nil
}

// VertexCount implements Provider.
func (s *FileSource) VertexCount() int {
	return int(s.file.VertexCount)
}

// Topology implements Provider.
func (s *FileSource) Topology() denoise.Topology {
	return denoise.Topology{
		FaceIndices: s.file.FaceIndices,
		FaceCounts:  s.file.FaceCounts,
	}
}

// Header returns an output header carrying the same name, rate and
// topology as the input.
func (s *FileSource) Header() formats.MSEQHeader {
	return formats.MSEQHeader{
		FPS:         s.file.FPS,
		Name:        s.file.Name,
		VertexCount: int(s.file.VertexCount),
		FaceCounts:  s.file.FaceCounts,
		FaceIndices: s.file.FaceIndices,
	}
}
