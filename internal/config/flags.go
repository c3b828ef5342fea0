package config

import (
	"flag"
	"fmt"
	"strings"

	"github.com/Faultbox/meshdenoise/internal/denoise"
)

// Flags binds the settings of one subcommand to a FlagSet. Only flags the
// user actually passed override the loaded config.
type Flags struct {
	fs   *flag.FlagSet
	mode denoise.Mode

	ConfigPath string
	Preset     string
	Debug      bool
	LogFile    string
	Workers    int
	Plot       bool

	window        int
	sigmaTemporal float64
	sigmaSpatial  float64
	motionThresh  float64
	edgeThresh    float64
	weight        string
	sigma         float64
}

// RegisterFlags registers the shared flags and the filter flags for mode.
func RegisterFlags(fs *flag.FlagSet, mode denoise.Mode) *Flags {
	f := &Flags{fs: fs, mode: mode}
	def := Default()

	fs.StringVar(&f.ConfigPath, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.LogFile, "log-file", "", "Also write logs to this file")
	fs.IntVar(&f.Workers, "workers", 0, "Frames filtered in parallel (0 = one per CPU)")
	fs.BoolVar(&f.Plot, "plot", false, "Write a motion/window PNG next to the output")

	switch mode {
	case denoise.ModeBilateral:
		fs.StringVar(&f.Preset, "preset", "", "Strength preset: "+strings.Join(PresetNames(), ", "))
		fs.IntVar(&f.window, "window", def.Bilateral.WindowSize, "Base temporal window size (odd, 3-15)")
		fs.Float64Var(&f.sigmaTemporal, "sigma-temporal", def.Bilateral.SigmaTemporal, "Temporal weight falloff")
		fs.Float64Var(&f.sigmaSpatial, "sigma-spatial", def.Bilateral.SigmaSpatial, "Spatial weight falloff")
		fs.Float64Var(&f.motionThresh, "motion-thresh", def.Bilateral.MotionThreshold, "Motion threshold for window adaptation")
		fs.Float64Var(&f.edgeThresh, "edge-thresh", def.Bilateral.EdgeThreshold, "Motion above which spatial falloff widens")
	case denoise.ModeFixedKernel:
		fs.IntVar(&f.window, "window", def.Temporal.WindowSize, "Temporal window size (odd, 3-15); default follows the input frame rate")
		fs.StringVar(&f.weight, "weight", def.Temporal.Weight, "Kernel shape: linear or gaussian")
		fs.Float64Var(&f.sigma, "sigma", def.Temporal.GaussianSigma, "Gaussian kernel sigma")
	}
	return f
}

// IsSet reports whether the named flag was passed on the command line.
func (f *Flags) IsSet(name string) bool {
	set := false
	f.fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			set = true
		}
	})
	return set
}

// Apply overrides cfg with the preset and then with explicit flags.
func (f *Flags) Apply(cfg *Config) error {
	if f.Preset != "" {
		if err := cfg.ApplyPreset(f.Preset); err != nil {
			return err
		}
	}

	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.IsSet("workers") {
		cfg.Runtime.Workers = f.Workers
	}
	if f.Plot {
		cfg.Report.Plot = true
	}

	var err error
	f.fs.Visit(func(fl *flag.Flag) {
		switch f.mode {
		case denoise.ModeBilateral:
			switch fl.Name {
			case "window":
				cfg.Bilateral.WindowSize = f.window
			case "sigma-temporal":
				cfg.Bilateral.SigmaTemporal = f.sigmaTemporal
			case "sigma-spatial":
				cfg.Bilateral.SigmaSpatial = f.sigmaSpatial
			case "motion-thresh":
				cfg.Bilateral.MotionThreshold = f.motionThresh
			case "edge-thresh":
				cfg.Bilateral.EdgeThreshold = f.edgeThresh
			}
		case denoise.ModeFixedKernel:
			switch fl.Name {
			case "window":
				cfg.Temporal.WindowSize = f.window
				cfg.Temporal.WindowSizeSet = true
			case "weight":
				if _, perr := denoise.ParseWeightFunction(f.weight); perr != nil && err == nil {
					err = fmt.Errorf("-weight: %w", perr)
				}
				cfg.Temporal.Weight = f.weight
			case "sigma":
				cfg.Temporal.GaussianSigma = f.sigma
			}
		}
	})
	return err
}

// Params returns the engine parameters for the flag set's mode.
func (f *Flags) Params(cfg *Config) (denoise.Params, error) {
	if f.mode == denoise.ModeFixedKernel {
		return cfg.Temporal.Params()
	}
	return cfg.Bilateral.Params(), nil
}
