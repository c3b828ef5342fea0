package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshdenoise/internal/denoise"
	"github.com/Faultbox/meshdenoise/pkg/math"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func testProfile() Profile {
	return Profile{
		Title:   "test",
		Indices: []int{10, 11, 12, 13, 14},
		Motion:  denoise.MotionProfile{0.1, 0.2, 0.6, 0.2, 0.1},
		Windows: denoise.WindowPlan{15, 15, 5, 15, 15},
	}
}

func TestSummarize(t *testing.T) {
	s, err := Summarize(testProfile())
	require.NoError(t, err)

	want := Summary{
		Frames:       5,
		MeanMotion:   0.24,
		StdDevMotion: 0.2073644135,
		MedianMotion: 0.2,
		MaxMotion:    0.6,
		PeakFrame:    12,
		MeanWindow:   13,
		MinWindow:    5,
		MaxWindow:    15,
	}
	if diff := cmp.Diff(want, s, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Summarize mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarize_SingleFrame(t *testing.T) {
	s, err := Summarize(Profile{
		Indices: []int{1},
		Motion:  denoise.MotionProfile{0},
		Windows: denoise.WindowPlan{15},
	})
	require.NoError(t, err)
	assert.Zero(t, s.StdDevMotion)
	assert.Equal(t, 1, s.PeakFrame)
}

func TestSummarize_Invalid(t *testing.T) {
	_, err := Summarize(Profile{})
	assert.ErrorIs(t, err, ErrNoFrames)

	p := testProfile()
	p.Windows = p.Windows[:2]
	_, err = Summarize(p)
	assert.Error(t, err)
}

func TestRenderer_WritePNG(t *testing.T) {
	var buf bytes.Buffer
	err := Renderer{MotionThreshold: 0.1}.WritePNG(&buf, testProfile())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic), "output is not a PNG")
}

func TestRenderer_SavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plots", "motion.png")
	require.NoError(t, Renderer{}.SavePNG(path, testProfile()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))
}

func TestRenderer_NoFramesLeavesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.png")
	err := Renderer{}.SavePNG(path, Profile{})
	assert.ErrorIs(t, err, ErrNoFrames)
	assert.NoFileExists(t, path)
}

func TestFromResult(t *testing.T) {
	frames := make([]denoise.Frame, 4)
	for i := range frames {
		frames[i] = denoise.Frame{Index: i + 1, Positions: []math.Vec3{{X: float32(i) * 0.5}}}
	}
	seq, err := denoise.NewSequence(frames, denoise.Topology{})
	require.NoError(t, err)
	e, err := denoise.New(denoise.Params{
		Mode:           denoise.ModeFixedKernel,
		WindowSize:     3,
		WeightFunction: denoise.WeightLinear,
		GaussianSigma:  1,
	}, denoise.Options{Workers: 1})
	require.NoError(t, err)
	res, err := e.Run(seq)
	require.NoError(t, err)

	p := FromResult("ramp", res)
	assert.Equal(t, []int{1, 2, 3, 4}, p.Indices)
	assert.Equal(t, []int{3, 3, 3, 3}, []int(p.Windows))

	s, err := Summarize(p)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, s.MeanMotion, 1e-6)
}
