package denoise

import (
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/Faultbox/meshdenoise/pkg/math"
)

// Vertices whose accumulated weight does not exceed this keep their
// unfiltered center position.
const degenerateWeight = 1e-8

// Options configures an Engine.
type Options struct {
	Workers int         // Frames filtered concurrently; <= 0 means GOMAXPROCS
	Logger  *zap.Logger // Optional; defaults to a no-op logger
}

// Engine filters a whole sequence. It is parameterized by a WindowPlanner
// and a WeightModel chosen from Params.Mode.
type Engine struct {
	params  Params
	planner WindowPlanner
	model   WeightModel
	workers int
	log     *zap.Logger
}

// Stats summarizes one run.
type Stats struct {
	MeanMotion     float64
	MinWindow      int
	MaxWindow      int
	MotionAnalysis time.Duration
	Filtering      time.Duration
}

// Result is the output of Engine.Run.
type Result struct {
	Output  *Sequence     // Filtered frames, same indices and topology as the input
	Motion  MotionProfile // Per-frame motion magnitude
	Windows WindowPlan    // Per-frame window width
	Stats   Stats
}

// New validates params and builds the planner and weight model for its mode.
func New(params Params, opts Options) (*Engine, error) {
	p, err := params.Normalized()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		params:  p,
		workers: opts.Workers,
		log:     opts.Logger,
	}
	if e.workers <= 0 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}

	switch p.Mode {
	case ModeBilateral:
		planner, err := NewAdaptivePlanner(p.WindowSize, p.MotionThreshold)
		if err != nil {
			return nil, err
		}
		model, err := NewBilateral(p.SigmaTemporal, p.SigmaSpatial, p.EdgeThreshold)
		if err != nil {
			return nil, err
		}
		e.planner, e.model = planner, model
	case ModeFixedKernel:
		kernel, err := NewFixedKernel(p.WeightFunction, p.WindowSize, p.GaussianSigma)
		if err != nil {
			return nil, err
		}
		e.planner, e.model = NewFixedPlanner(p.WindowSize), kernel
		e.log.Debug("fixed kernel",
			zap.String("weight", p.WeightFunction.String()),
			zap.Float64s("coefficients", kernel.Coefficients()),
		)
	}

	return e, nil
}

// Params returns the normalized parameters the engine runs with.
func (e *Engine) Params() Params {
	return e.params
}

// Analyze computes the motion profile of seq and the window width the
// engine would use for each frame, without filtering.
func (e *Engine) Analyze(seq *Sequence) (MotionProfile, WindowPlan, error) {
	profile, err := AnalyzeMotion(seq.Frames())
	if err != nil {
		return nil, nil, err
	}
	return profile, PlanWindows(e.planner, profile), nil
}

// Run filters every frame of seq. The input is only read; the result holds
// freshly allocated frames. Either every frame is produced or an error is
// returned.
func (e *Engine) Run(seq *Sequence) (*Result, error) {
	frames := seq.Frames()

	start := time.Now()
	profile, plan, err := e.Analyze(seq)
	if err != nil {
		return nil, err
	}
	motionTime := time.Since(start)

	lo, hi := plan.Range()
	meanMotion := stat.Mean(profile, nil)
	e.log.Debug("motion analysis complete",
		zap.Float64("mean_motion", meanMotion),
		zap.Int("min_window", lo),
		zap.Int("max_window", hi),
		zap.Duration("elapsed", motionTime),
	)

	start = time.Now()
	out := make([]Frame, len(frames))
	step := max(1, len(frames)/10)
	var done atomic.Int64

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i := range frames {
		g.Go(func() error {
			out[i] = e.filterFrame(frames, profile, plan, i)
			if n := done.Add(1); n%int64(step) == 0 {
				e.log.Debug("filtering progress",
					zap.Int64("processed", n),
					zap.Int("total", len(frames)),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	filterTime := time.Since(start)

	e.log.Info("filtering complete",
		zap.String("mode", e.params.Mode.String()),
		zap.Int("frames", len(frames)),
		zap.Int("vertices", seq.VertexCount()),
		zap.Duration("elapsed", filterTime),
	)

	return &Result{
		Output: &Sequence{
			frames:      out,
			positions:   seq.positions,
			vertexCount: seq.vertexCount,
			topology:    seq.topology,
		},
		Motion:  profile,
		Windows: plan,
		Stats: Stats{
			MeanMotion:     meanMotion,
			MinWindow:      lo,
			MaxWindow:      hi,
			MotionAnalysis: motionTime,
			Filtering:      filterTime,
		},
	}, nil
}

// filterFrame computes the output for the frame at sorted position c. Its
// window is clipped to the sequence, so boundary frames see a shorter,
// asymmetric neighbourhood.
func (e *Engine) filterFrame(frames []Frame, profile MotionProfile, plan WindowPlan, c int) Frame {
	center := frames[c].Positions
	half := plan[c] / 2
	first := max(0, c-half)
	last := min(len(frames)-1, c+half)

	n := len(center)
	accum := make([][3]float64, n)
	sums := make([]float64, n)
	weights := make([]float64, n)

	for i := first; i <= last; i++ {
		neighbor := frames[i].Positions
		e.model.Weights(weights, Neighbor{
			Center:       center,
			Positions:    neighbor,
			Offset:       i - c,
			CenterMotion: profile[c],
		})
		for v, w := range weights {
			p := neighbor[v]
			accum[v][0] += w * float64(p.X)
			accum[v][1] += w * float64(p.Y)
			accum[v][2] += w * float64(p.Z)
			sums[v] += w
		}
	}

	positions := make([]math.Vec3, n)
	for v := range positions {
		if sums[v] > degenerateWeight {
			positions[v] = math.Vec3{
				X: float32(accum[v][0] / sums[v]),
				Y: float32(accum[v][1] / sums[v]),
				Z: float32(accum[v][2] / sums[v]),
			}
		} else {
			positions[v] = center[v]
		}
	}

	return Frame{Index: frames[c].Index, Positions: positions}
}
