// Package config loads the labelctl YAML configuration and supplies defaults
// for every value a command line flag does not override.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/jpfielding/ctlabels.go/pkg/logging"
	"gopkg.in/yaml.v3"
)

// Config is the application configuration.
type Config struct {
	Window       Window       `yaml:"window"`
	Display      Display      `yaml:"display"`
	Edit         Edit         `yaml:"edit"`
	Export       Export       `yaml:"export"`
	Segmentation Segmentation `yaml:"segmentation"`
	Limits       Limits       `yaml:"limits"`
	Logging      Logging      `yaml:"logging"`
}

// Window is the initial intensity window. A non-empty Preset wins over
// Center and Width. The default leaves Preset empty.
type Window struct {
	Preset string  `yaml:"preset"`
	Center float64 `yaml:"center"`
	Width  float64 `yaml:"width"`
}

type Display struct {
	// Opacity of the mask overlay, 0 to 255.
	Opacity   int     `yaml:"opacity"`
	ShowMasks bool    `yaml:"showMasks"`
	Zoom      float64 `yaml:"zoom"`
	// DragWindowing lets pan gestures adjust the window instead of the view.
	DragWindowing bool `yaml:"dragWindowing"`
}

type Edit struct {
	BrushSize      int    `yaml:"brushSize"`
	BrushShape     string `yaml:"brushShape"`
	AutoFillHoles  bool   `yaml:"autoFillHoles"`
	RemoveOutliers bool   `yaml:"removeOutliers"`
}

type Export struct {
	SaveDir     string `yaml:"saveDir"`
	SaveImages  bool   `yaml:"saveImages"`
	SaveFlipped bool   `yaml:"saveFlipped"`
}

// Segmentation configures the external inference command. Command is run
// once per weight file with --weights, --device and --classes appended.
type Segmentation struct {
	Device  string   `yaml:"device"`
	Command []string `yaml:"command,omitempty"`
}

type Limits struct {
	MaxFiles int `yaml:"maxFiles"`
	Workers  int `yaml:"workers"`
}

type Logging struct {
	Level      string `yaml:"level"`
	JSON       bool   `yaml:"json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
}

// FileConfig adapts the section to the rotating file writer.
func (l Logging) FileConfig() logging.FileConfig {
	return logging.FileConfig{
		Filename:   l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxAgeDays: l.MaxAgeDays,
		MaxBackups: l.MaxBackups,
		Compress:   l.Compress,
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.Window.Center = 50
	cfg.Window.Width = 400

	cfg.Display.Opacity = 128
	cfg.Display.ShowMasks = true
	cfg.Display.Zoom = 1

	cfg.Edit.BrushSize = 7
	cfg.Edit.BrushShape = "circle"

	cfg.Export.SaveImages = true

	cfg.Segmentation.Device = "cuda"

	cfg.Limits.MaxFiles = 1500
	cfg.Limits.Workers = runtime.NumCPU()

	cfg.Logging.Level = "INFO"
	cfg.Logging.MaxSizeMB = 100
	cfg.Logging.MaxAgeDays = 28
	cfg.Logging.MaxBackups = 3
	return cfg
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	if c.Display.Opacity < 0 || c.Display.Opacity > 255 {
		return fmt.Errorf("display.opacity %d outside 0..255", c.Display.Opacity)
	}
	if c.Display.Zoom <= 0 {
		return fmt.Errorf("display.zoom must be positive, got %v", c.Display.Zoom)
	}
	if c.Limits.MaxFiles <= 0 {
		return fmt.Errorf("limits.maxFiles must be positive, got %d", c.Limits.MaxFiles)
	}
	return nil
}

// Save writes cfg as YAML, creating the directory if needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
