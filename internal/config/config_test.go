package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "decks/default", cfg.DeckDir())
	assert.InDelta(t, 0.01, cfg.Detection.MinAreaFraction, 1e-12)
	assert.InDelta(t, 0.5, cfg.Detection.MaxAreaFraction, 1e-12)
	assert.InDelta(t, 0.02, cfg.Detection.EpsilonFraction, 1e-12)
	assert.InDelta(t, 0.1, cfg.Detection.RowThresholdFraction, 1e-12)
	assert.Equal(t, 1024, cfg.Output.TargetHeight)
	assert.Equal(t, 600, cfg.Scan.DPI)
	assert.Equal(t, 11, cfg.Preprocess.BilateralDiameter)
}

func TestConfig_ToPipelineConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Detection.MinAreaFraction = 0.05
	cfg.Detection.MaxAspect = 2.0
	cfg.Detection.RowThresholdFraction = 0.2
	cfg.Preprocess.CannyHigh = 120
	cfg.Output.TargetHeight = 512
	cfg.Output.Debug = true
	cfg.Output.DebugBoxColor = "#ff00ff"

	p := cfg.ToPipelineConfig()
	require.NoError(t, p.Validate())

	assert.InDelta(t, 0.05, p.Detector.Filter.MinAreaFraction, 1e-12)
	assert.InDelta(t, 2.0, p.Detector.Filter.MaxAspect, 1e-12)
	assert.InDelta(t, 0.2, p.Detector.RowThresholdFraction, 1e-12)
	assert.InDelta(t, 120, p.Detector.Preprocess.CannyHigh, 1e-12)
	assert.Equal(t, 512, p.TargetCropHeight)
	assert.True(t, p.Debug)
	assert.Equal(t, "#ff00ff", p.DebugColors.Outline)
	assert.Equal(t, "#ff0000", p.DebugColors.Corner)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "invalid log level"},
		{"format", func(c *Config) { c.Output.Format = "xml" }, "invalid output format"},
		{"decks dir", func(c *Config) { c.DecksDir = "" }, "decks_dir"},
		{"deck with separator", func(c *Config) { c.Deck = "a/b" }, "invalid deck name"},
		{"empty deck", func(c *Config) { c.Deck = "" }, "invalid deck name"},
		{"dpi", func(c *Config) { c.Scan.DPI = -1 }, "dpi"},
		{"pattern", func(c *Config) { c.Batch.Exclude = []string{"[a-"} }, "invalid batch pattern"},
		{"area", func(c *Config) { c.Detection.MinAreaFraction = 0.7 }, "filter"},
		{"canny", func(c *Config) { c.Preprocess.CannyLow = 200 }, "canny"},
		{"height", func(c *Config) { c.Output.TargetHeight = -1 }, "target crop height"},
		{"debug colour", func(c *Config) {
			c.Output.Debug = true
			c.Output.DebugLabelColor = "blue"
		}, "label"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
