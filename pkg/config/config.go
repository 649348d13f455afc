// Package config provides configuration loading and management for spiralgen.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Acquisition parameters for the waveform design
	Acquisition struct {
		// BaseResolution is the number of image samples across the field of view
		BaseResolution int `yaml:"baseResolution"`

		// SpiralArms is the number of interleaves
		SpiralArms int `yaml:"spiralArms"`

		// FieldOfView is the imaging field of view in mm
		FieldOfView float64 `yaml:"fieldOfView"`

		// MaxGradAmpl is the gradient amplitude limit in mT/m
		MaxGradAmpl float64 `yaml:"maxGradAmpl"`

		// MinRiseTime is the time in seconds to ramp from zero to MaxGradAmpl
		MinRiseTime float64 `yaml:"minRiseTime"`

		// DwellTime is the readout sampling interval in seconds
		DwellTime float64 `yaml:"dwellTime"`

		// ReadoutOS is the readout oversampling factor (>= 1)
		ReadoutOS float64 `yaml:"readoutOS"`

		// GradientDelay is the system gradient delay in seconds
		GradientDelay float64 `yaml:"gradientDelay"`

		// LarmorConst is the gyromagnetic ratio in Hz/mT
		LarmorConst float64 `yaml:"larmorConst"`
	} `yaml:"acquisition"`

	// Density parameters for variable-density spirals
	Density struct {
		// Type is the density profile: uniform, linear, quadratic or hanning
		Type string `yaml:"type"`

		// InnerCutoff is the normalized radius where the transition starts
		InnerCutoff float64 `yaml:"innerCutoff"`

		// OuterCutoff is the normalized radius where the transition ends
		OuterCutoff float64 `yaml:"outerCutoff"`

		// OuterDensity is the relative sampling density beyond the outer cutoff
		OuterDensity float64 `yaml:"outerDensity"`
	} `yaml:"density"`

	// Trajectory parameters for the multi-shot expansion
	Trajectory struct {
		// Views is the number of acquired interleaves per phase
		Views int `yaml:"views"`

		// Phases is the number of temporal phases
		Phases int `yaml:"phases"`

		// Ordering is the view ordering: linear, golden, tiny or sorted
		Ordering string `yaml:"ordering"`
	} `yaml:"trajectory"`

	// Output parameters
	Output struct {
		// SavePlots determines whether trajectory and waveform plots are written
		SavePlots bool `yaml:"savePlots"`

		// PlotSize is the width and height of the plots in pixels
		PlotSize int `yaml:"plotSize"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default acquisition parameters: a 256-matrix, 16-arm spiral on a
	// 240 mm field of view with typical whole-body gradient limits and the
	// proton gyromagnetic ratio.
	cfg.Acquisition.BaseResolution = 256
	cfg.Acquisition.SpiralArms = 16
	cfg.Acquisition.FieldOfView = 240.0
	cfg.Acquisition.MaxGradAmpl = 24.0
	cfg.Acquisition.MinRiseTime = 0.0002
	cfg.Acquisition.DwellTime = 4e-6
	cfg.Acquisition.ReadoutOS = 1.0
	cfg.Acquisition.GradientDelay = 0.0
	cfg.Acquisition.LarmorConst = 42577.0

	// Set default density parameters (plain Archimedean spiral)
	cfg.Density.Type = "uniform"
	cfg.Density.InnerCutoff = 0.0
	cfg.Density.OuterCutoff = 1.0
	cfg.Density.OuterDensity = 1.0

	// Set default trajectory parameters: one fully sampled phase
	cfg.Trajectory.Views = 16
	cfg.Trajectory.Phases = 1
	cfg.Trajectory.Ordering = "linear"

	// Set default output parameters
	cfg.Output.SavePlots = true
	cfg.Output.PlotSize = 512
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
