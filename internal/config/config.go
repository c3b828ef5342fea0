// Package config handles meshdenoise configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Faultbox/meshdenoise/internal/denoise"
)

// ErrUnknownPreset is returned for a preset name not in Presets.
var ErrUnknownPreset = errors.New("unknown preset")

// Config holds all tool settings.
type Config struct {
	Bilateral BilateralConfig `yaml:"bilateral"`
	Temporal  TemporalConfig  `yaml:"temporal"`
	Runtime   RuntimeConfig   `yaml:"runtime"`
	Logging   LoggingConfig   `yaml:"logging"`
	Report    ReportConfig    `yaml:"report"`
}

// BilateralConfig holds adaptive bilateral filter settings.
type BilateralConfig struct {
	WindowSize      int     `yaml:"window_size"`
	SigmaTemporal   float64 `yaml:"sigma_temporal"`
	SigmaSpatial    float64 `yaml:"sigma_spatial"`
	MotionThreshold float64 `yaml:"motion_threshold"`
	EdgeThreshold   float64 `yaml:"edge_threshold"`
}

// TemporalConfig holds fixed-kernel filter settings.
type TemporalConfig struct {
	WindowSize    int     `yaml:"window_size"`
	Weight        string  `yaml:"weight"` // linear or gaussian
	GaussianSigma float64 `yaml:"gaussian_sigma"`

	// WindowSizeSet records that a config file or flag chose WindowSize.
	// Otherwise the window follows the input frame rate when it has one.
	WindowSizeSet bool `yaml:"-"`
}

// RuntimeConfig holds execution settings.
type RuntimeConfig struct {
	Workers int `yaml:"workers"` // 0 means one per CPU
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// ReportConfig holds diagnostic output settings.
type ReportConfig struct {
	Plot bool `yaml:"plot"` // Write a motion/window PNG next to the output
}

// Default returns a Config with the stock filter parameters.
func Default() *Config {
	return &Config{
		Bilateral: BilateralConfig{
			WindowSize:      15,
			SigmaTemporal:   4.0,
			SigmaSpatial:    0.25,
			MotionThreshold: 0.1,
			EdgeThreshold:   0.15,
		},
		Temporal: TemporalConfig{
			WindowSize:    5,
			Weight:        "linear",
			GaussianSigma: 1.0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Params converts the bilateral settings to engine parameters.
func (b BilateralConfig) Params() denoise.Params {
	return denoise.Params{
		Mode:            denoise.ModeBilateral,
		WindowSize:      b.WindowSize,
		SigmaTemporal:   b.SigmaTemporal,
		SigmaSpatial:    b.SigmaSpatial,
		MotionThreshold: b.MotionThreshold,
		EdgeThreshold:   b.EdgeThreshold,
	}
}

// Params converts the fixed-kernel settings to engine parameters.
func (t TemporalConfig) Params() (denoise.Params, error) {
	fn, err := denoise.ParseWeightFunction(t.Weight)
	if err != nil {
		return denoise.Params{}, err
	}
	return denoise.Params{
		Mode:           denoise.ModeFixedKernel,
		WindowSize:     t.WindowSize,
		WeightFunction: fn,
		GaussianSigma:  t.GaussianSigma,
	}, nil
}

// Preset is a named bilateral strength.
type Preset struct {
	WindowSize    int
	SigmaTemporal float64
	SigmaSpatial  float64
}

// Presets by name, weakest first.
var Presets = map[string]Preset{
	"subtle": {WindowSize: 7, SigmaTemporal: 1.5, SigmaSpatial: 0.08},
	"medium": {WindowSize: 9, SigmaTemporal: 2.5, SigmaSpatial: 0.15},
	"strong": {WindowSize: 15, SigmaTemporal: 5.0, SigmaSpatial: 0.35},
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ApplyPreset overwrites the bilateral window and sigmas with a preset.
func (c *Config) ApplyPreset(name string) error {
	p, ok := Presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return fmt.Errorf("%w: %q (have %s)", ErrUnknownPreset, name, strings.Join(PresetNames(), ", "))
	}
	c.Bilateral.WindowSize = p.WindowSize
	c.Bilateral.SigmaTemporal = p.SigmaTemporal
	c.Bilateral.SigmaSpatial = p.SigmaSpatial
	return nil
}
