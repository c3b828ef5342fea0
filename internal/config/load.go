package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in standard locations.
const FileName = "meshdenoise.yaml"

// Load loads configuration with priority: defaults < file. An explicit path
// must exist; otherwise the standard locations are tried.
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := Default()

	configPath := path
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./" + FileName,
		filepath.Join(ConfigDir(), FileName),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "MeshDenoise")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "MeshDenoise")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "meshdenoise")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "meshdenoise")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}

	var present struct {
		Temporal struct {
			WindowSize *int `yaml:"window_size"`
		} `yaml:"temporal"`
	}
	if err := yaml.Unmarshal(data, &present); err != nil {
		return err
	}
	if present.Temporal.WindowSize != nil {
		cfg.Temporal.WindowSizeSet = true
	}
	return nil
}
