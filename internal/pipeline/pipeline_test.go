package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshdenoise/internal/denoise"
	"github.com/Faultbox/meshdenoise/pkg/formats"
	"github.com/Faultbox/meshdenoise/pkg/math"
)

// memProvider is an in-memory Provider keyed by frame index.
type memProvider struct {
	indices []int
	frames  map[int][]math.Vec3
	fail    int
}

func newMemProvider(indices ...int) *memProvider {
	p := &memProvider{indices: indices, frames: make(map[int][]math.Vec3), fail: -1}
	for _, idx := range indices {
		p.frames[idx] = []math.Vec3{{X: float32(idx)}, {Y: float32(idx)}, {Z: 1}}
	}
	return p
}

func (p *memProvider) FrameIndices() []int { return p.indices }
func (p *memProvider) VertexCount() int    { return 3 }
func (p *memProvider) Topology() denoise.Topology {
	return denoise.Topology{FaceCounts: []int32{3}, FaceIndices: []int32{0, 1, 2}}
}

func (p *memProvider) Positions(frame int) ([]math.Vec3, error) {
	if frame == p.fail {
		return nil, errors.New("disk on fire")
	}
	return p.frames[frame], nil
}

type recordingSink struct {
	indices []int
}

func (s *recordingSink) WriteFrame(frame int, positions []math.Vec3) error {
	s.indices = append(s.indices, frame)
	return nil
}

func TestLoad_Range(t *testing.T) {
	tests := []struct {
		name string
		r    FrameRange
		want []int
	}{
		{"all", AllFrames(), []int{10, 11, 12, 13, 14}},
		{"middle", FrameRange{Start: 1, End: 3}, []int{11, 12, 13}},
		{"open start", FrameRange{Start: -1, End: 1}, []int{10, 11}},
		{"end clamped", FrameRange{Start: 3, End: 99}, []int{13, 14}},
		{"dcc", DCCRange(2, 2), []int{11}},
	}

	p := newMemProvider(10, 11, 12, 13, 14)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := Load(p, tt.r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, seq.Indices())
			assert.Equal(t, 3, seq.VertexCount())
			assert.Equal(t, 1, seq.Topology().FaceCount())
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(newMemProvider(), AllFrames())
	assert.ErrorIs(t, err, denoise.ErrEmptySequence)

	_, err = Load(newMemProvider(1, 2), FrameRange{Start: 5, End: 9})
	assert.ErrorIs(t, err, ErrInvalidFrameRange)

	p := newMemProvider(1, 2, 3)
	p.fail = 2
	_, err = Load(p, AllFrames())
	assert.ErrorContains(t, err, "reading frame 2")
}

func TestWrite_Order(t *testing.T) {
	seq, err := Load(newMemProvider(4, 5, 9), AllFrames())
	require.NoError(t, err)

	sink := &recordingSink{}
	require.NoError(t, Write(sink, seq))
	assert.Equal(t, []int{4, 5, 9}, sink.indices)
}

func TestParseDCCRange(t *testing.T) {
	r, err := ParseDCCRange("1-10")
	require.NoError(t, err)
	assert.Equal(t, FrameRange{Start: 0, End: 9}, r)

	r, err = ParseDCCRange(" 5 - 6 ")
	require.NoError(t, err)
	assert.Equal(t, FrameRange{Start: 4, End: 5}, r)

	for _, bad := range []string{"", "7", "a-3", "0-4", "3-x"} {
		_, err := ParseDCCRange(bad)
		assert.ErrorIs(t, err, ErrInvalidFrameRange, "input %q", bad)
	}
}

func TestFrameRange_String(t *testing.T) {
	assert.Equal(t, "first-last", AllFrames().String())
	assert.Equal(t, "2-7", FrameRange{Start: 2, End: 7}.String())
}

// writeNoisyInput writes a quad sequence whose second vertex jitters.
func writeNoisyInput(t *testing.T, path string, frames int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := formats.NewMSEQWriter(f, formats.MSEQHeader{
		FPS:         60,
		Name:        "quad",
		VertexCount: 4,
		FaceCounts:  []int32{4},
		FaceIndices: []int32{0, 1, 2, 3},
	})
	require.NoError(t, err)
	for i := 0; i < frames; i++ {
		jitter := float32(0.01)
		if i%2 == 1 {
			jitter = -jitter
		}
		require.NoError(t, w.WriteFrame(i+1, []math.Vec3{
			{X: 0, Y: 0},
			{X: 1 + jitter, Y: 0},
			{X: 1, Y: 1},
			{X: 0, Y: 1},
		}))
	}
	require.NoError(t, w.Close())
}

func TestFileSource_Positions(t *testing.T) {
	in := filepath.Join(t.TempDir(), "in.mseq")
	writeNoisyInput(t, in, 6)

	src, err := OpenFileSource(in)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, src.FrameIndices())

	p, err := src.Positions(4)
	require.NoError(t, err)
	assert.InDelta(t, 0.99, float64(p[1].X), 1e-6)

	for _, missing := range []int{0, 7} {
		_, err := src.Positions(missing)
		assert.Error(t, err, "frame %d", missing)
	}
}

func TestDenoiseFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.mseq")
	out := filepath.Join(dir, "out", "smooth.mseq")
	writeNoisyInput(t, in, 12)

	report, err := DenoiseFile(Job{
		Input:  in,
		Output: out,
		Range:  DCCRange(3, 10),
		Params: denoise.Params{
			Mode:            denoise.ModeBilateral,
			WindowSize:      15,
			SigmaTemporal:   4,
			SigmaSpatial:    0.25,
			MotionThreshold: 0.1,
			EdgeThreshold:   0.15,
		},
		Workers: 2,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 8, report.Frames)
	assert.Equal(t, 4, report.Vertices)
	assert.Equal(t, float32(60), report.FPS)

	m, err := formats.ParseMSEQFile(out)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5, 6, 7, 8, 9, 10}, m.FrameIndices())
	assert.Equal(t, "quad", m.Name)
	assert.Equal(t, []int32{0, 1, 2, 3}, m.FaceIndices)

	// Jitter is pulled toward the mean for interior frames.
	mid, ok := m.Frame(6)
	require.True(t, ok)
	assert.Less(t, absf(mid.Positions[1].X-1), float32(0.01))

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestDenoiseFile_AutoWindow(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.mseq")
	writeNoisyInput(t, in, 6)

	report, err := DenoiseFile(Job{
		Input:  in,
		Output: filepath.Join(dir, "out.mseq"),
		Range:  AllFrames(),
		Params: denoise.Params{
			Mode:           denoise.ModeFixedKernel,
			WindowSize:     11,
			WeightFunction: denoise.WeightLinear,
			GaussianSigma:  1,
		},
		AutoWindow: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, report.Params.WindowSize)
}

func TestDenoiseFile_ChosenWindowKept(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.mseq")
	writeNoisyInput(t, in, 6)

	report, err := DenoiseFile(Job{
		Input:  in,
		Output: filepath.Join(dir, "out.mseq"),
		Range:  AllFrames(),
		Params: denoise.Params{
			Mode:           denoise.ModeFixedKernel,
			WindowSize:     11,
			WeightFunction: denoise.WeightLinear,
			GaussianSigma:  1,
		},
		AutoWindow: false,
	})
	require.NoError(t, err)
	assert.Equal(t, 11, report.Params.WindowSize)
}

func TestDenoiseFile_NoOutputOnError(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.mseq")
	out := filepath.Join(dir, "out.mseq")
	writeNoisyInput(t, in, 4)

	_, err := DenoiseFile(Job{
		Input:  in,
		Output: out,
		Range:  AllFrames(),
		Params: denoise.Params{Mode: denoise.ModeBilateral, WindowSize: 5},
	})
	require.ErrorIs(t, err, denoise.ErrInvalidConfig)
	assert.NoFileExists(t, out)

	_, err = DenoiseFile(Job{
		Input:  filepath.Join(dir, "missing.mseq"),
		Output: out,
		Range:  AllFrames(),
	})
	require.Error(t, err)
	assert.NoFileExists(t, out)
}

func TestWriteFileAtomic_Invalid(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.mseq")

	seq, err := Load(newMemProvider(1, 2), AllFrames())
	require.NoError(t, err)

	// Header vertex count disagrees with the sequence.
	err = WriteFileAtomic(out, formats.MSEQHeader{
		Name:        "bad",
		VertexCount: 4,
		FaceCounts:  []int32{3},
		FaceIndices: []int32{0, 1, 2},
	}, seq)
	require.Error(t, err)
	assert.NoFileExists(t, out)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
