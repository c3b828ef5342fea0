// meshdenoise removes temporal jitter from animated mesh sequences.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/meshdenoise/internal/config"
	"github.com/Faultbox/meshdenoise/internal/denoise"
	"github.com/Faultbox/meshdenoise/internal/logger"
	"github.com/Faultbox/meshdenoise/internal/pipeline"
	"github.com/Faultbox/meshdenoise/internal/report"
	"github.com/Faultbox/meshdenoise/internal/synth"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "bilateral":
		cmdDenoise(denoise.ModeBilateral, args)
	case "temporal":
		cmdDenoise(denoise.ModeFixedKernel, args)
	case "info":
		cmdInfo(args)
	case "generate", "gen":
		cmdGenerate(args)
	case "plot":
		cmdPlot(args)
	case "init-config":
		cmdInitConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshdenoise - temporal denoiser for animated meshes

Usage:
  meshdenoise <command> [options]

Commands:
  bilateral <in.mseq> <out.mseq>   Adaptive bilateral filter (motion-aware)
  temporal  <in.mseq> <out.mseq>   Fixed linear/gaussian kernel filter
  info      <file.mseq> [-frame N] Show sequence information and motion summary
  generate  <out.mseq>             Write a synthetic noisy test sequence
  plot      <in.mseq> <out.png>    Plot motion and adaptive window per frame
  init-config [path]               Write the default config file

Examples:
  meshdenoise bilateral scan.mseq clean.mseq -preset medium
  meshdenoise bilateral scan.mseq clean.mseq -dcc-range 1001-1100 -plot
  meshdenoise temporal scan.mseq clean.mseq -weight gaussian -sigma 1.5
  meshdenoise generate noisy.mseq -frames 120 -noise 0.02

Run "meshdenoise <command> -h" for command options.`)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// parseArgs parses fs allowing flags before, between and after positional
// arguments, and returns the positionals.
func parseArgs(fs *flag.FlagSet, args []string) []string {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			fatal(err)
		}
		if fs.NArg() == 0 {
			return positional
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

// rangeFlags selects the frames to process.
type rangeFlags struct {
	start int
	end   int
	dcc   string
}

func registerRangeFlags(fs *flag.FlagSet) *rangeFlags {
	r := &rangeFlags{}
	for _, name := range []string{"sf", "start-frame"} {
		fs.IntVar(&r.start, name, -1, "First sample to process, 0-based (-1 = first)")
	}
	for _, name := range []string{"ef", "end-frame"} {
		fs.IntVar(&r.end, name, -1, "Last sample to process, 0-based inclusive (-1 = last)")
	}
	fs.StringVar(&r.dcc, "dcc-range", "", `1-based inclusive range as shown on a DCC timeline, e.g. "1-120"`)
	return r
}

func (r *rangeFlags) frameRange() (pipeline.FrameRange, error) {
	if r.dcc != "" {
		return pipeline.ParseDCCRange(r.dcc)
	}
	return pipeline.FrameRange{Start: r.start, End: r.end}, nil
}

// setup loads config, applies flags and builds the logger.
func setup(flags *config.Flags, name string) (*config.Config, *zap.Logger) {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		fatal(err)
	}
	if err := flags.Apply(cfg); err != nil {
		fatal(err)
	}
	log, err := logger.ForCLI(cfg.Logging.Level, cfg.Logging.LogFile)
	if err != nil {
		fatal(err)
	}
	return cfg, log.Named(name)
}

func cmdDenoise(mode denoise.Mode, args []string) {
	name := "bilateral"
	if mode == denoise.ModeFixedKernel {
		name = "temporal"
	}

	fs := flag.NewFlagSet(name, flag.ExitOnError)
	flags := config.RegisterFlags(fs, mode)
	rf := registerRangeFlags(fs)
	pos := parseArgs(fs, args)

	if len(pos) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: meshdenoise %s <in.mseq> <out.mseq> [options]\n", name)
		fs.PrintDefaults()
		os.Exit(1)
	}
	in, out := pos[0], pos[1]

	cfg, log := setup(flags, name)
	defer logger.Sync(log)

	params, err := flags.Params(cfg)
	if err != nil {
		fatal(err)
	}
	r, err := rf.frameRange()
	if err != nil {
		fatal(err)
	}

	rep, err := pipeline.DenoiseFile(pipeline.Job{
		Input:      in,
		Output:     out,
		Range:      r,
		Params:     params,
		AutoWindow: mode == denoise.ModeFixedKernel && !cfg.Temporal.WindowSizeSet,
		Workers:    cfg.Runtime.Workers,
		Logger:     log,
	})
	if err != nil {
		log.Error("denoise failed", zap.Error(err))
		logger.Sync(log)
		fatal(err)
	}

	profile := report.FromResult(filepath.Base(in), rep.Result)
	if summary, err := report.Summarize(profile); err == nil {
		summary.Log(log)
	}

	if cfg.Report.Plot {
		path := strings.TrimSuffix(out, filepath.Ext(out)) + "_motion.png"
		renderer := report.Renderer{MotionThreshold: rep.Params.MotionThreshold}
		if err := renderer.SavePNG(path, profile); err != nil {
			fatal(err)
		}
		log.Info("plot written", zap.String("path", path))
	}

	fmt.Printf("Wrote %s (%d frames, %d vertices) in %v\n", out, rep.Frames, rep.Vertices, rep.Timing.Total.Round(time.Millisecond))
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	frame := fs.Int("frame", -1, "Also show details for this frame number")
	args = parseArgs(fs, args)
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshdenoise info <file.mseq> [-frame N]")
		os.Exit(1)
	}

	src, err := pipeline.OpenFileSource(args[0])
	if err != nil {
		fatal(err)
	}
	m := src.File()

	fmt.Printf("File:     %s\n", args[0])
	fmt.Printf("Version:  %s\n", m.Version)
	fmt.Printf("Mesh:     %s\n", m.Name)
	fmt.Printf("Vertices: %d\n", m.VertexCount)
	fmt.Printf("Faces:    %d\n", len(m.FaceCounts))
	fmt.Printf("Frames:   %d\n", len(m.Frames))
	if m.FPS > 0 {
		fmt.Printf("FPS:      %g (%.2fs)\n", m.FPS, float32(len(m.Frames))/m.FPS)
	}
	if len(m.Frames) == 0 {
		return
	}

	first, last := m.Frames[0].Index, m.Frames[len(m.Frames)-1].Index
	fmt.Printf("Range:    %d-%d\n", first, last)
	lo, hi := m.Bounds()
	fmt.Printf("Bounds:   (%.3f, %.3f, %.3f) - (%.3f, %.3f, %.3f)\n", lo.X, lo.Y, lo.Z, hi.X, hi.Y, hi.Z)

	seq, err := pipeline.Load(src, pipeline.AllFrames())
	if err != nil {
		fatal(err)
	}
	engine, err := denoise.New(config.Default().Bilateral.Params(), denoise.Options{})
	if err != nil {
		fatal(err)
	}
	motion, windows, err := engine.Analyze(seq)
	if err != nil {
		fatal(err)
	}
	s, err := report.Summarize(report.Profile{Indices: seq.Indices(), Motion: motion, Windows: windows})
	if err != nil {
		fatal(err)
	}

	fmt.Println()
	fmt.Println("Motion (mean vertex displacement per frame):")
	fmt.Printf("  mean    %.6f\n", s.MeanMotion)
	fmt.Printf("  stddev  %.6f\n", s.StdDevMotion)
	fmt.Printf("  median  %.6f\n", s.MedianMotion)
	fmt.Printf("  max     %.6f (frame %d)\n", s.MaxMotion, s.PeakFrame)
	fmt.Printf("Adaptive window with defaults: %d-%d (mean %.1f)\n", s.MinWindow, s.MaxWindow, s.MeanWindow)
	if m.FPS > 0 {
		fmt.Printf("Suggested temporal window for %g fps: %d\n", m.FPS, denoise.SuggestWindowSize(float64(m.FPS)))
	}

	if *frame < 0 {
		return
	}
	f, ok := m.Frame(*frame)
	if !ok {
		fatal(fmt.Errorf("frame %d not in %s (range %d-%d)", *frame, args[0], first, last))
	}
	pos, _ := seq.Position(*frame)
	flo, fhi := f.Bounds()
	fmt.Println()
	fmt.Printf("Frame %d:\n", *frame)
	fmt.Printf("  bounds  (%.3f, %.3f, %.3f) - (%.3f, %.3f, %.3f)\n", flo.X, flo.Y, flo.Z, fhi.X, fhi.Y, fhi.Z)
	fmt.Printf("  motion  %.6f\n", motion[pos])
	fmt.Printf("  window  %d\n", windows[pos])
}

func cmdGenerate(args []string) {
	def := synth.DefaultOptions()
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	name := fs.String("name", def.Name, "Mesh name stored in the file")
	side := fs.Int("grid", def.GridSide, "Vertices per grid edge")
	frames := fs.Int("frames", def.Frames, "Number of frames")
	firstFrame := fs.Int("first-frame", def.FirstFrame, "Index of the first frame")
	fps := fs.Float64("fps", float64(def.FPS), "Frame rate stored in the file (0 = unknown)")
	spin := fs.Float64("spin", float64(def.SpinDegrees), "Rotation over the clip, degrees")
	wave := fs.Float64("wave", float64(def.WaveAmplitude), "Travelling wave amplitude")
	noise := fs.Float64("noise", float64(def.Noise), "Max per-axis jitter")
	seed := fs.Uint64("seed", def.Seed, "Random seed")
	pos := parseArgs(fs, args)

	if len(pos) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshdenoise generate <out.mseq> [options]")
		fs.PrintDefaults()
		os.Exit(1)
	}

	seq, header, err := synth.Generate(synth.Options{
		Name:          *name,
		GridSide:      *side,
		Frames:        *frames,
		FirstFrame:    *firstFrame,
		FPS:           float32(*fps),
		SpinDegrees:   float32(*spin),
		WaveAmplitude: float32(*wave),
		Noise:         float32(*noise),
		Seed:          *seed,
	})
	if err != nil {
		fatal(err)
	}
	if err := pipeline.WriteFileAtomic(pos[0], header, seq); err != nil {
		fatal(err)
	}

	fmt.Printf("Wrote %s (%d frames, %d vertices, %d faces)\n",
		pos[0], seq.Len(), seq.VertexCount(), seq.Topology().FaceCount())
}

func cmdPlot(args []string) {
	fs := flag.NewFlagSet("plot", flag.ExitOnError)
	flags := config.RegisterFlags(fs, denoise.ModeBilateral)
	rf := registerRangeFlags(fs)
	pos := parseArgs(fs, args)

	if len(pos) != 2 {
		fmt.Fprintln(os.Stderr, "Usage: meshdenoise plot <in.mseq> <out.png> [options]")
		fs.PrintDefaults()
		os.Exit(1)
	}

	cfg, log := setup(flags, "plot")
	defer logger.Sync(log)

	r, err := rf.frameRange()
	if err != nil {
		fatal(err)
	}
	src, err := pipeline.OpenFileSource(pos[0])
	if err != nil {
		fatal(err)
	}
	seq, err := pipeline.Load(src, r)
	if err != nil {
		fatal(err)
	}

	params, err := flags.Params(cfg)
	if err != nil {
		fatal(err)
	}
	engine, err := denoise.New(params, denoise.Options{Logger: log})
	if err != nil {
		fatal(err)
	}
	motion, windows, err := engine.Analyze(seq)
	if err != nil {
		fatal(err)
	}

	title := src.File().Name
	if title == "" {
		title = filepath.Base(pos[0])
	}
	profile := report.Profile{Title: title, Indices: seq.Indices(), Motion: motion, Windows: windows}
	renderer := report.Renderer{MotionThreshold: engine.Params().MotionThreshold}
	if err := renderer.SavePNG(pos[1], profile); err != nil {
		fatal(err)
	}
	if s, err := report.Summarize(profile); err == nil {
		s.Log(log)
	}
	log.Info("plot written", zap.String("path", pos[1]))
}

func cmdInitConfig(args []string) {
	cfg := config.Default()
	if len(args) > 0 {
		if err := cfg.SaveTo(args[0]); err != nil {
			fatal(err)
		}
		fmt.Printf("Wrote %s\n", args[0])
		return
	}
	path, err := cfg.Save()
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Wrote %s\n", path)
}
