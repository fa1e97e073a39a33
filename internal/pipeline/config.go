package pipeline

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/tarot-scan/internal/detector"
	"github.com/MeKo-Tech/tarot-scan/internal/rectify"
	"github.com/lucasb-eyer/go-colorful"
)

// DebugColors holds the annotation colours as hex strings (#rrggbb).
type DebugColors struct {
	Outline string `mapstructure:"outline" yaml:"outline" json:"outline"`
	Corner  string `mapstructure:"corner" yaml:"corner" json:"corner"`
	Index   string `mapstructure:"index" yaml:"index" json:"index"`
	Label   string `mapstructure:"label" yaml:"label" json:"label"`
}

// DefaultDebugColors matches the classic annotation scheme: green outlines,
// red corner dots with white indices and blue card labels.
func DefaultDebugColors() DebugColors {
	return DebugColors{
		Outline: "#00ff00",
		Corner:  "#ff0000",
		Index:   "#ffffff",
		Label:   "#0000ff",
	}
}

func (c DebugColors) validate() error {
	var errs []error
	for _, f := range []struct{ name, hex string }{
		{"outline", c.Outline},
		{"corner", c.Corner},
		{"index", c.Index},
		{"label", c.Label},
	} {
		if _, err := colorful.Hex(f.hex); err != nil {
			errs = append(errs, fmt.Errorf("%s colour %q: %w", f.name, f.hex, err))
		}
	}
	return errors.Join(errs...)
}

// Config is the explicit configuration of one extraction run.
type Config struct {
	Detector detector.Config `mapstructure:"detector" yaml:"detector" json:"detector"`
	// TargetCropHeight is the height of every rectified crop; 0 keeps the measured size.
	TargetCropHeight int         `mapstructure:"target_crop_height" yaml:"target_crop_height" json:"target_crop_height"`
	Debug            bool        `mapstructure:"debug" yaml:"debug" json:"debug"`
	DebugColors      DebugColors `mapstructure:"debug_colors" yaml:"debug_colors" json:"debug_colors"`
}

// DefaultConfig returns the settings for multi-card flatbed scans.
func DefaultConfig() Config {
	return Config{
		Detector:         detector.DefaultConfig(),
		TargetCropHeight: rectify.DefaultTargetHeight,
		DebugColors:      DefaultDebugColors(),
	}
}

// SingleCardConfig returns the settings for an image holding one card.
func SingleCardConfig() Config {
	cfg := DefaultConfig()
	cfg.Detector.Filter = detector.SingleCardFilterConfig()
	return cfg
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Detector.Validate(); err != nil {
		return err
	}
	if c.TargetCropHeight < 0 {
		return fmt.Errorf("target crop height must be >= 0, got %d", c.TargetCropHeight)
	}
	if c.Debug {
		if err := c.DebugColors.validate(); err != nil {
			return fmt.Errorf("debug colours: %w", err)
		}
	}
	return nil
}
