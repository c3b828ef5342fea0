// Package report summarizes and plots the per-frame motion analysis of a
// denoise run.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/Faultbox/meshdenoise/internal/denoise"
)

// ErrNoFrames is returned when there is nothing to summarize.
var ErrNoFrames = errors.New("report: no frames")

// Profile is the per-frame analysis of a sequence.
type Profile struct {
	Title   string
	Indices []int // Frame numbers, ascending
	Motion  denoise.MotionProfile
	Windows denoise.WindowPlan
}

// FromResult builds a profile from an engine result.
func FromResult(title string, res *denoise.Result) Profile {
	return Profile{
		Title:   title,
		Indices: res.Output.Indices(),
		Motion:  res.Motion,
		Windows: res.Windows,
	}
}

func (p Profile) validate() error {
	if len(p.Indices) == 0 {
		return ErrNoFrames
	}
	if len(p.Motion) != len(p.Indices) || len(p.Windows) != len(p.Indices) {
		return fmt.Errorf("report: %d frames, %d motion samples, %d windows",
			len(p.Indices), len(p.Motion), len(p.Windows))
	}
	return nil
}

// Summary holds descriptive statistics of a profile.
type Summary struct {
	Frames       int
	MeanMotion   float64
	StdDevMotion float64
	MedianMotion float64
	MaxMotion    float64
	PeakFrame    int // Frame number with the largest motion
	MeanWindow   float64
	MinWindow    int
	MaxWindow    int
}

// Summarize computes the summary of p.
func Summarize(p Profile) (Summary, error) {
	if err := p.validate(); err != nil {
		return Summary{}, err
	}

	motion := []float64(p.Motion)
	s := Summary{
		Frames:     len(motion),
		MeanMotion: stat.Mean(motion, nil),
	}
	if len(motion) > 1 {
		s.StdDevMotion = stat.StdDev(motion, nil)
	}

	sorted := slices.Clone(motion)
	slices.Sort(sorted)
	s.MedianMotion = stat.Quantile(0.5, stat.Empirical, sorted, nil)

	peak := 0
	for i, m := range motion {
		if m > motion[peak] {
			peak = i
		}
	}
	s.MaxMotion = motion[peak]
	s.PeakFrame = p.Indices[peak]

	widths := make([]float64, len(p.Windows))
	for i, w := range p.Windows {
		widths[i] = float64(w)
	}
	s.MeanWindow = stat.Mean(widths, nil)
	s.MinWindow, s.MaxWindow = p.Windows.Range()

	return s, nil
}

// Log writes the summary as a single structured entry.
func (s Summary) Log(log *zap.Logger) {
	log.Info("motion summary",
		zap.Int("frames", s.Frames),
		zap.Float64("mean", s.MeanMotion),
		zap.Float64("stddev", s.StdDevMotion),
		zap.Float64("median", s.MedianMotion),
		zap.Float64("max", s.MaxMotion),
		zap.Int("peak_frame", s.PeakFrame),
		zap.Float64("mean_window", s.MeanWindow),
		zap.Int("min_window", s.MinWindow),
		zap.Int("max_window", s.MaxWindow),
	)
}

// Plot size
const (
	plotWidth  = 12 * vg.Inch
	plotHeight = 7 * vg.Inch
)

var (
	motionColor    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	thresholdColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	windowColor    = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

// Renderer draws a profile as two stacked panels: motion magnitude on top
// and window width below, both against frame number.
type Renderer struct {
	// MotionThreshold is drawn as a horizontal reference line when > 0.
	MotionThreshold float64
}

// WritePNG renders p as PNG to w.
func (r Renderer) WritePNG(w io.Writer, p Profile) error {
	if err := p.validate(); err != nil {
		return err
	}

	top, err := r.motionPlot(p)
	if err != nil {
		return err
	}
	bottom, err := r.windowPlot(p)
	if err != nil {
		return err
	}

	img := vgimg.New(plotWidth, plotHeight)
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: 2, Cols: 1, PadY: vg.Millimeter * 4, PadX: vg.Millimeter * 2}
	plots := [][]*plot.Plot{{top}, {bottom}}
	canvases := plot.Align(plots, tiles, dc)
	for row := range plots {
		plots[row][0].Draw(canvases[row][0])
	}

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// SavePNG renders p to path, creating parent directories as needed.
func (r Renderer) SavePNG(path string, p Profile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.WritePNG(f, p); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func (r Renderer) motionPlot(p Profile) (*plot.Plot, error) {
	pl := plot.New()
	pl.Title.Text = p.Title
	pl.X.Label.Text = "Frame"
	pl.Y.Label.Text = "Mean displacement"
	pl.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(p.Indices))
	for i, idx := range p.Indices {
		pts[i] = plotter.XY{X: float64(idx), Y: p.Motion[i]}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to create motion line: %w", err)
	}
	line.Color = motionColor
	line.Width = vg.Points(1.5)
	pl.Add(line)
	pl.Legend.Add("motion", line)

	if r.MotionThreshold > 0 {
		first, last := float64(p.Indices[0]), float64(p.Indices[len(p.Indices)-1])
		ref, err := plotter.NewLine(plotter.XYs{
			{X: first, Y: r.MotionThreshold},
			{X: last, Y: r.MotionThreshold},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create threshold line: %w", err)
		}
		ref.Color = thresholdColor
		ref.Width = vg.Points(1)
		ref.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		pl.Add(ref)
		pl.Legend.Add("threshold", ref)
	}

	pl.Y.Min = 0
	pl.Legend.Top = true
	pl.Legend.XOffs = -10
	pl.Legend.YOffs = -10
	return pl, nil
}

func (r Renderer) windowPlot(p Profile) (*plot.Plot, error) {
	pl := plot.New()
	pl.X.Label.Text = "Frame"
	pl.Y.Label.Text = "Window width"
	pl.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(p.Indices))
	for i, idx := range p.Indices {
		pts[i] = plotter.XY{X: float64(idx), Y: float64(p.Windows[i])}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to create window line: %w", err)
	}
	line.Color = windowColor
	line.Width = vg.Points(1.5)
	line.StepStyle = plotter.MidStep
	pl.Add(line)

	pl.Y.Min = 0
	pl.Y.Max = denoise.MaxWindowSize + 1
	return pl, nil
}
