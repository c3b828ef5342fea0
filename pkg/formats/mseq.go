// Package formats provides readers and writers for mesh sequence files.
// MSEQ (Mesh SEQuence) stores one topology block and a run of per-frame
// vertex positions.
package formats

import (
	"bufio"
	"bytes"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	gomath "math"
	"os"
	"slices"

	"github.com/Faultbox/meshdenoise/pkg/encoding"
	"github.com/Faultbox/meshdenoise/pkg/math"
)

// MSEQ format errors.
var (
	ErrInvalidMSEQMagic       = errors.New("invalid MSEQ magic: expected 'MSEQ'")
	ErrUnsupportedMSEQVersion = errors.New("unsupported MSEQ version")
	ErrTruncatedMSEQData      = errors.New("truncated MSEQ data")
	ErrInvalidMSEQTopology    = errors.New("invalid MSEQ topology")
	ErrMSEQFrameOrder         = errors.New("MSEQ frame indices must be strictly increasing")
	ErrMSEQVertexCount        = errors.New("MSEQ frame vertex count mismatch")
	ErrMSEQFrameIndexRange    = errors.New("MSEQ frame index out of int32 range")
)

const (
	mseqMagic      = "MSEQ"
	mseqMaxVerts   = 1 << 26
	mseqFrameBytes = 4 // frame index prefix
	vec3Bytes      = 12
)

// MSEQCurrentVersion is the version written by MSEQWriter.
var MSEQCurrentVersion = MSEQVersion{Major: 1, Minor: 0}

// MSEQVersion represents the MSEQ file version.
type MSEQVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v MSEQVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// MSEQFrame is one sample of vertex positions.
type MSEQFrame struct {
	Index     int32
	Positions []math.Vec3
}

// MSEQ represents a parsed mesh sequence file.
type MSEQ struct {
	Version     MSEQVersion
	FPS         float32 // Sample rate; 0 when unknown
	Name        string  // Mesh name
	VertexCount uint32
	FaceCounts  []int32 // Vertices per face
	FaceIndices []int32 // Vertex indices, face after face
	Frames      []MSEQFrame
}

// ParseMSEQ parses an MSEQ file from raw bytes.
func ParseMSEQ(data []byte) (*MSEQ, error) {
	if len(data) < 16 {
		return nil, ErrTruncatedMSEQData
	}
	if string(data[0:4]) != mseqMagic {
		return nil, ErrInvalidMSEQMagic
	}

	m := &MSEQ{
		Version: MSEQVersion{Major: data[4], Minor: data[5]},
	}
	if m.Version.Major != MSEQCurrentVersion.Major {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMSEQVersion, m.Version)
	}

	r := bytes.NewReader(data[6:])

	if err := binary.Read(r, binary.LittleEndian, &m.FPS); err != nil {
		return nil, fmt.Errorf("%w: reading fps", ErrTruncatedMSEQData)
	}

	name, err := readPrefixedString(r)
	if err != nil {
		return nil, err
	}
	m.Name = name

	if err := binary.Read(r, binary.LittleEndian, &m.VertexCount); err != nil {
		return nil, fmt.Errorf("%w: reading vertex count", ErrTruncatedMSEQData)
	}
	if m.VertexCount > mseqMaxVerts {
		return nil, fmt.Errorf("invalid MSEQ vertex count: %d", m.VertexCount)
	}

	if m.FaceCounts, err = readInt32Slice(r, "face counts"); err != nil {
		return nil, err
	}
	if m.FaceIndices, err = readInt32Slice(r, "face indices"); err != nil {
		return nil, err
	}
	if err := ValidateTopology(int(m.VertexCount), m.FaceCounts, m.FaceIndices); err != nil {
		return nil, err
	}

	frameSize := mseqFrameBytes + int(m.VertexCount)*vec3Bytes
	for r.Len() > 0 {
		if r.Len() < frameSize {
			return nil, fmt.Errorf("%w: frame %d", ErrTruncatedMSEQData, len(m.Frames))
		}
		frame := MSEQFrame{Positions: make([]math.Vec3, m.VertexCount)}
		binary.Read(r, binary.LittleEndian, &frame.Index)
		binary.Read(r, binary.LittleEndian, frame.Positions)

		if n := len(m.Frames); n > 0 && frame.Index <= m.Frames[n-1].Index {
			return nil, fmt.Errorf("%w: %d after %d", ErrMSEQFrameOrder, frame.Index, m.Frames[n-1].Index)
		}
		m.Frames = append(m.Frames, frame)
	}

	return m, nil
}

// ParseMSEQFile parses an MSEQ file from disk.
func ParseMSEQFile(path string) (*MSEQ, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading MSEQ file: %w", err)
	}
	return ParseMSEQ(data)
}

// FrameIndices returns the frame numbers in file order.
func (m *MSEQ) FrameIndices() []int {
	indices := make([]int, len(m.Frames))
	for i, f := range m.Frames {
		indices[i] = int(f.Index)
	}
	return indices
}

// Frame returns the frame with the given number. Frames must be in
// increasing index order, as ParseMSEQ guarantees.
func (m *MSEQ) Frame(index int) (*MSEQFrame, bool) {
	i, ok := slices.BinarySearchFunc(m.Frames, index, func(f MSEQFrame, target int) int {
		return cmp.Compare(int(f.Index), target)
	})
	if !ok {
		return nil, false
	}
	return &m.Frames[i], true
}

// Bounds returns the axis-aligned bounding box over all frames.
func (m *MSEQ) Bounds() (lo, hi math.Vec3) {
	for i := range m.Frames {
		flo, fhi := m.Frames[i].Bounds()
		if i == 0 {
			lo, hi = flo, fhi
			continue
		}
		lo = math.Vec3{X: min(lo.X, flo.X), Y: min(lo.Y, flo.Y), Z: min(lo.Z, flo.Z)}
		hi = math.Vec3{X: max(hi.X, fhi.X), Y: max(hi.Y, fhi.Y), Z: max(hi.Z, fhi.Z)}
	}
	return lo, hi
}

// Bounds returns the axis-aligned bounding box of one frame.
func (f *MSEQFrame) Bounds() (lo, hi math.Vec3) {
	for i, p := range f.Positions {
		if i == 0 {
			lo, hi = p, p
			continue
		}
		lo = math.Vec3{X: min(lo.X, p.X), Y: min(lo.Y, p.Y), Z: min(lo.Z, p.Z)}
		hi = math.Vec3{X: max(hi.X, p.X), Y: max(hi.Y, p.Y), Z: max(hi.Z, p.Z)}
	}
	return lo, hi
}

// ValidateTopology checks that face counts are positive, add up to the
// number of indices, and that every index refers to an existing vertex.
func ValidateTopology(vertexCount int, faceCounts, faceIndices []int32) error {
	total := 0
	for i, c := range faceCounts {
		if c <= 0 {
			return fmt.Errorf("%w: face %d has %d vertices", ErrInvalidMSEQTopology, i, c)
		}
		total += int(c)
	}
	if total != len(faceIndices) {
		return fmt.Errorf("%w: face counts sum to %d, have %d indices", ErrInvalidMSEQTopology, total, len(faceIndices))
	}
	for i, idx := range faceIndices {
		if idx < 0 || int(idx) >= vertexCount {
			return fmt.Errorf("%w: index %d out of range at %d", ErrInvalidMSEQTopology, idx, i)
		}
	}
	return nil
}

func readPrefixedString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", fmt.Errorf("%w: reading name length", ErrTruncatedMSEQData)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("%w: reading name", ErrTruncatedMSEQData)
	}
	return encoding.DecodeName(buf), nil
}

func readInt32Slice(r *bytes.Reader, what string) ([]int32, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("%w: reading %s count", ErrTruncatedMSEQData, what)
	}
	if uint64(n)*4 > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: reading %s", ErrTruncatedMSEQData, what)
	}
	out := make([]int32, n)
	if err := binary.Read(r, binary.LittleEndian, out); err != nil {
		return nil, fmt.Errorf("%w: reading %s", ErrTruncatedMSEQData, what)
	}
	return out, nil
}

// MSEQHeader describes the sequence an MSEQWriter produces.
type MSEQHeader struct {
	FPS         float32
	Name        string
	VertexCount int
	FaceCounts  []int32
	FaceIndices []int32
}

// MSEQWriter streams frames into an MSEQ file. The header and topology are
// written together with the first frame.
type MSEQWriter struct {
	w           *bufio.Writer
	header      MSEQHeader
	wroteHeader bool
	lastIndex   int32
	frames      int
}

// NewMSEQWriter validates the header and returns a writer.
func NewMSEQWriter(w io.Writer, header MSEQHeader) (*MSEQWriter, error) {
	if header.VertexCount < 0 || header.VertexCount > mseqMaxVerts {
		return nil, fmt.Errorf("invalid MSEQ vertex count: %d", header.VertexCount)
	}
	if n := len(encoding.EncodeName(header.Name)); n > 0xFFFF {
		return nil, fmt.Errorf("MSEQ mesh name too long: %d bytes", n)
	}
	if err := ValidateTopology(header.VertexCount, header.FaceCounts, header.FaceIndices); err != nil {
		return nil, err
	}
	return &MSEQWriter{w: bufio.NewWriter(w), header: header}, nil
}

// WriteFrame appends one frame. Frame indices must increase and every frame
// must carry exactly VertexCount positions.
func (mw *MSEQWriter) WriteFrame(index int, positions []math.Vec3) error {
	if len(positions) != mw.header.VertexCount {
		return fmt.Errorf("%w: frame %d has %d positions, expected %d",
			ErrMSEQVertexCount, index, len(positions), mw.header.VertexCount)
	}
	if index < gomath.MinInt32 || index > gomath.MaxInt32 {
		return fmt.Errorf("%w: %d", ErrMSEQFrameIndexRange, index)
	}
	if mw.frames > 0 && int32(index) <= mw.lastIndex {
		return fmt.Errorf("%w: %d after %d", ErrMSEQFrameOrder, index, mw.lastIndex)
	}
	if err := mw.writeHeader(); err != nil {
		return err
	}

	if err := binary.Write(mw.w, binary.LittleEndian, int32(index)); err != nil {
		return err
	}
	if err := binary.Write(mw.w, binary.LittleEndian, positions); err != nil {
		return err
	}

	mw.lastIndex = int32(index)
	mw.frames++
	return nil
}

// Frames returns the number of frames written so far.
func (mw *MSEQWriter) Frames() int {
	return mw.frames
}

// Close writes the header if no frame was written and flushes buffered
// data. It does not close the underlying writer.
func (mw *MSEQWriter) Close() error {
	if err := mw.writeHeader(); err != nil {
		return err
	}
	return mw.w.Flush()
}

func (mw *MSEQWriter) writeHeader() error {
	if mw.wroteHeader {
		return nil
	}
	h := mw.header

	buf := new(bytes.Buffer)
	buf.WriteString(mseqMagic)
	buf.WriteByte(MSEQCurrentVersion.Major)
	buf.WriteByte(MSEQCurrentVersion.Minor)
	binary.Write(buf, binary.LittleEndian, h.FPS)
	name := encoding.EncodeName(h.Name)
	binary.Write(buf, binary.LittleEndian, uint16(len(name)))
	buf.Write(name)
	binary.Write(buf, binary.LittleEndian, uint32(h.VertexCount))
	binary.Write(buf, binary.LittleEndian, uint32(len(h.FaceCounts)))
	binary.Write(buf, binary.LittleEndian, h.FaceCounts)
	binary.Write(buf, binary.LittleEndian, uint32(len(h.FaceIndices)))
	binary.Write(buf, binary.LittleEndian, h.FaceIndices)

	if _, err := mw.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing MSEQ header: %w", err)
	}
	mw.wroteHeader = true
	return nil
}
