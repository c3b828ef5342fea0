package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/meshdenoise/internal/denoise"
	"github.com/Faultbox/meshdenoise/pkg/formats"
)

// Job describes one file-to-file denoise run.
type Job struct {
	Input  string
	Output string
	Range  FrameRange
	Params denoise.Params

	// AutoWindow replaces Params.WindowSize with a size suggested by the
	// input's sample rate, when the input declares one.
	AutoWindow bool

	Workers int
	Logger  *zap.Logger
}

// Timing is the wall-clock breakdown of a run.
type Timing struct {
	Reading        time.Duration
	MotionAnalysis time.Duration
	Filtering      time.Duration
	Writing        time.Duration
	Total          time.Duration
}

// Report describes a finished run.
type Report struct {
	RunID    string
	Params   denoise.Params // Normalized parameters actually used
	Frames   int
	Vertices int
	FPS      float32
	Result   *denoise.Result
	Timing   Timing
}

// DenoiseFile reads job.Input, filters the selected frames and writes
// job.Output. The output file only appears once every frame has been
// written; on error nothing is left behind.
func DenoiseFile(job Job) (*Report, error) {
	log := job.Logger
	if log == nil {
		log = zap.NewNop()
	}
	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID))

	totalStart := time.Now()
	report := &Report{RunID: runID}

	log.Info("reading input", zap.String("path", job.Input), zap.Stringer("range", job.Range))
	start := time.Now()
	src, err := OpenFileSource(job.Input)
	if err != nil {
		return nil, err
	}
	seq, err := Load(src, job.Range)
	if err != nil {
		return nil, err
	}
	report.Timing.Reading = time.Since(start)
	report.FPS = src.File().FPS
	log.Info("input loaded",
		zap.String("mesh", src.File().Name),
		zap.Int("frames", seq.Len()),
		zap.Int("vertices", seq.VertexCount()),
		zap.Int("faces", seq.Topology().FaceCount()),
		zap.Duration("elapsed", report.Timing.Reading),
	)

	params := job.Params
	if job.AutoWindow && report.FPS > 0 {
		params.WindowSize = denoise.SuggestWindowSize(float64(report.FPS))
		log.Info("window size chosen from frame rate",
			zap.Int("window", params.WindowSize),
			zap.Float32("fps", report.FPS),
		)
	}

	engine, err := denoise.New(params, denoise.Options{Workers: job.Workers, Logger: log})
	if err != nil {
		return nil, err
	}
	report.Params = engine.Params()

	res, err := engine.Run(seq)
	if err != nil {
		return nil, err
	}
	report.Result = res
	report.Frames = res.Output.Len()
	report.Vertices = res.Output.VertexCount()
	report.Timing.MotionAnalysis = res.Stats.MotionAnalysis
	report.Timing.Filtering = res.Stats.Filtering

	start = time.Now()
	if err := WriteFileAtomic(job.Output, src.Header(), res.Output); err != nil {
		return nil, err
	}
	report.Timing.Writing = time.Since(start)
	report.Timing.Total = time.Since(totalStart)

	log.Info("output written", zap.String("path", job.Output), zap.Duration("elapsed", report.Timing.Writing))
	report.Log(log)

	return report, nil
}

// WriteFileAtomic writes seq to path through a temporary file in the same
// directory, renaming it into place only on success.
func WriteFileAtomic(path string, header formats.MSEQHeader, seq *denoise.Sequence) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp output: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w, err := formats.NewMSEQWriter(tmp, header)
	if err != nil {
		return err
	}
	if err := Write(w, seq); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Log writes the run summary and timing breakdown.
func (r *Report) Log(log *zap.Logger) {
	fields := []zap.Field{
		zap.Int("vertices", r.Vertices),
		zap.Int("frames", r.Frames),
		zap.Duration("total", r.Timing.Total),
	}
	if r.Result != nil {
		fields = append(fields,
			zap.Float64("mean_motion", r.Result.Stats.MeanMotion),
			zap.Int("min_window", r.Result.Stats.MinWindow),
			zap.Int("max_window", r.Result.Stats.MaxWindow),
		)
	}
	if r.Vertices > 0 && r.Frames > 0 {
		fields = append(fields,
			zap.Float64("ms_per_vertex", r.Timing.Total.Seconds()*1000/float64(r.Vertices)),
			zap.Float64("s_per_frame", r.Timing.Total.Seconds()/float64(r.Frames)),
		)
	}
	log.Info("processing completed", fields...)

	stages := []struct {
		name string
		d    time.Duration
	}{
		{"reading", r.Timing.Reading},
		{"motion_analysis", r.Timing.MotionAnalysis},
		{"filtering", r.Timing.Filtering},
		{"writing", r.Timing.Writing},
	}
	for _, s := range stages {
		if s.d <= 0 || r.Timing.Total <= 0 {
			continue
		}
		log.Debug("stage timing",
			zap.String("stage", s.name),
			zap.Duration("elapsed", s.d),
			zap.Float64("percent", 100*s.d.Seconds()/r.Timing.Total.Seconds()),
		)
	}
}
