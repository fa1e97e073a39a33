//nolint:lll
package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/MeKo-Tech/tarot-scan/internal/detector"
	"github.com/MeKo-Tech/tarot-scan/internal/pipeline"
	"github.com/MeKo-Tech/tarot-scan/internal/preprocess"
	"github.com/MeKo-Tech/tarot-scan/internal/rectify"
)

// Config represents the complete configuration of the tarot-scan tool. It is
// loaded from a config file, TAROT_* environment variables (optionally from
// a .env file) and command-line flags.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// DecksDir holds one directory per deck; Deck selects the active one.
	DecksDir string `mapstructure:"decks_dir" yaml:"decks_dir" json:"decks_dir"`
	Deck     string `mapstructure:"deck" yaml:"deck" json:"deck"`

	Detection  DetectionConfig   `mapstructure:"detection" yaml:"detection" json:"detection"`
	Preprocess preprocess.Config `mapstructure:"preprocess" yaml:"preprocess" json:"preprocess"`
	Output     OutputConfig      `mapstructure:"output" yaml:"output" json:"output"`
	Scan       ScanConfig        `mapstructure:"scan" yaml:"scan" json:"scan"`
	Batch      BatchConfig       `mapstructure:"batch" yaml:"batch" json:"batch"`
	Metrics    MetricsConfig     `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// DetectionConfig contains the card filter and ordering settings.
type DetectionConfig struct {
	MinAreaFraction      float64 `mapstructure:"min_area_fraction" yaml:"min_area_fraction" json:"min_area_fraction"`
	MaxAreaFraction      float64 `mapstructure:"max_area_fraction" yaml:"max_area_fraction" json:"max_area_fraction"`
	EpsilonFraction      float64 `mapstructure:"epsilon_fraction" yaml:"epsilon_fraction" json:"epsilon_fraction"`
	MinAspect            float64 `mapstructure:"min_aspect" yaml:"min_aspect" json:"min_aspect"`
	MaxAspect            float64 `mapstructure:"max_aspect" yaml:"max_aspect" json:"max_aspect"`
	RowThresholdFraction float64 `mapstructure:"row_threshold_fraction" yaml:"row_threshold_fraction" json:"row_threshold_fraction"`
}

// OutputConfig contains crop, debug and report settings.
type OutputConfig struct {
	Format           string `mapstructure:"format" yaml:"format" json:"format"`
	TargetHeight     int    `mapstructure:"target_height" yaml:"target_height" json:"target_height"`
	Debug            bool   `mapstructure:"debug" yaml:"debug" json:"debug"`
	DebugBoxColor    string `mapstructure:"debug_box_color" yaml:"debug_box_color" json:"debug_box_color"`
	DebugCornerColor string `mapstructure:"debug_corner_color" yaml:"debug_corner_color" json:"debug_corner_color"`
	DebugIndexColor  string `mapstructure:"debug_index_color" yaml:"debug_index_color" json:"debug_index_color"`
	DebugLabelColor  string `mapstructure:"debug_label_color" yaml:"debug_label_color" json:"debug_label_color"`
}

// ScanConfig describes the scanner recorded with registered scans.
type ScanConfig struct {
	Device string `mapstructure:"device" yaml:"device" json:"device"`
	DPI    int    `mapstructure:"dpi" yaml:"dpi" json:"dpi"`
}

// BatchConfig contains batch discovery settings.
type BatchConfig struct {
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile" json:"textfile"`
}

const (
	// DefaultDecksDir matches the layout the scanning tools have always used.
	DefaultDecksDir = "./decks"
	DefaultDeck     = "default"
	DefaultDPI      = 600
)

var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{"text", "json", "csv"}
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	det := detector.DefaultConfig()
	colors := pipeline.DefaultDebugColors()
	return Config{
		LogLevel: "info",
		DecksDir: DefaultDecksDir,
		Deck:     DefaultDeck,
		Detection: DetectionConfig{
			MinAreaFraction:      det.Filter.MinAreaFraction,
			MaxAreaFraction:      det.Filter.MaxAreaFraction,
			EpsilonFraction:      det.Filter.EpsilonFraction,
			MinAspect:            det.Filter.MinAspect,
			MaxAspect:            det.Filter.MaxAspect,
			RowThresholdFraction: det.RowThresholdFraction,
		},
		Preprocess: det.Preprocess,
		Output: OutputConfig{
			Format:           "text",
			TargetHeight:     rectify.DefaultTargetHeight,
			DebugBoxColor:    colors.Outline,
			DebugCornerColor: colors.Corner,
			DebugIndexColor:  colors.Index,
			DebugLabelColor:  colors.Label,
		},
		Scan: ScanConfig{DPI: DefaultDPI},
		Batch: BatchConfig{
			Include:         []string{"*.png", "*.jpg", "*.jpeg", "*.bmp", "*.gif"},
			ContinueOnError: true,
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}
	if c.DecksDir == "" {
		return fmt.Errorf("decks_dir must not be empty")
	}
	if c.Deck == "" || strings.ContainsAny(c.Deck, `/\`) {
		return fmt.Errorf("invalid deck name: %q", c.Deck)
	}
	if c.Scan.DPI < 0 {
		return fmt.Errorf("invalid scan dpi: %d (must be >= 0)", c.Scan.DPI)
	}
	for _, p := range append(slices.Clone(c.Batch.Include), c.Batch.Exclude...) {
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("invalid batch pattern %q: %w", p, err)
		}
	}
	pcfg := c.ToPipelineConfig()
	if err := pcfg.Validate(); err != nil {
		return err
	}
	return nil
}

// ToPipelineConfig converts the config to the pipeline configuration.
func (c *Config) ToPipelineConfig() pipeline.Config {
	return pipeline.Config{
		Detector:         c.toDetectorConfig(),
		TargetCropHeight: c.Output.TargetHeight,
		Debug:            c.Output.Debug,
		DebugColors: pipeline.DebugColors{
			Outline: c.Output.DebugBoxColor,
			Corner:  c.Output.DebugCornerColor,
			Index:   c.Output.DebugIndexColor,
			Label:   c.Output.DebugLabelColor,
		},
	}
}

// toDetectorConfig converts to detector.Config.
func (c *Config) toDetectorConfig() detector.Config {
	cfg := detector.DefaultConfig()
	cfg.Preprocess = c.Preprocess
	cfg.Filter.MinAreaFraction = c.Detection.MinAreaFraction
	cfg.Filter.MaxAreaFraction = c.Detection.MaxAreaFraction
	cfg.Filter.EpsilonFraction = c.Detection.EpsilonFraction
	cfg.Filter.MinAspect = c.Detection.MinAspect
	cfg.Filter.MaxAspect = c.Detection.MaxAspect
	cfg.RowThresholdFraction = c.Detection.RowThresholdFraction
	return cfg
}

// DeckDir returns the directory of the active deck.
func (c *Config) DeckDir() string {
	return filepath.Join(c.DecksDir, c.Deck)
}
