// Package detector finds card-shaped quadrilaterals in a flatbed scan and
// puts them into reading order.
package detector

import (
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/tarot-scan/internal/preprocess"
)

// Config combines the edge pipeline and candidate filter settings.
type Config struct {
	Preprocess           preprocess.Config `mapstructure:"preprocess" yaml:"preprocess" json:"preprocess"`
	Filter               FilterConfig      `mapstructure:"filter" yaml:"filter" json:"filter"`
	RowThresholdFraction float64           `mapstructure:"row_threshold_fraction" yaml:"row_threshold_fraction" json:"row_threshold_fraction"`
}

// DefaultConfig returns the configuration for multi-card scans.
func DefaultConfig() Config {
	return Config{
		Preprocess:           preprocess.DefaultConfig(),
		Filter:               DefaultFilterConfig(),
		RowThresholdFraction: DefaultRowThresholdFraction,
	}
}

// Validate checks every nested configuration.
func (c Config) Validate() error {
	if err := c.Preprocess.Validate(); err != nil {
		return fmt.Errorf("preprocess: %w", err)
	}
	if err := c.Filter.Validate(); err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	if c.RowThresholdFraction <= 0 || c.RowThresholdFraction > 1 {
		return fmt.Errorf("row threshold fraction must be within (0, 1], got %.3f", c.RowThresholdFraction)
	}
	return nil
}

// Result is the outcome of one detection pass.
type Result struct {
	// Cards in detection order (raster order of their outlines).
	Cards []DetectedCard
	// Contours is the number of external outlines examined.
	Contours int
	Stats    FilterStats
	Width    int
	Height   int
	Duration time.Duration
}

// Detector runs edge extraction, outline tracing and card filtering.
// It holds no per-image state and may be shared between goroutines.
type Detector struct {
	cfg    Config
	logger *slog.Logger
}

// Option customises a Detector.
type Option func(*Detector)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Detector with the given configuration.
func New(cfg Config, opts ...Option) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detector config: %w", err)
	}
	d := &Detector{cfg: cfg, logger: slog.Default()}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// Config returns the detector configuration.
func (d *Detector) Config() Config { return d.cfg }

// Detect finds card candidates in img. Cards are returned in detection
// order; use SortReadingOrder or DetectInReadingOrder for layout order.
func (d *Detector) Detect(img image.Image) Result {
	start := time.Now()
	b := img.Bounds()
	edges := preprocess.EdgeMap(img, d.cfg.Preprocess)
	contours := FindExternalContours(edges)
	cards, stats := FilterCards(contours, b.Dx(), b.Dy(), d.cfg.Filter)

	res := Result{
		Cards:    cards,
		Contours: len(contours),
		Stats:    stats,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Duration: time.Since(start),
	}
	d.logger.Debug("card detection finished",
		"contours", res.Contours,
		"accepted", stats.Accepted,
		"rejected", stats.Rejected,
		"duration_ms", res.Duration.Milliseconds())
	return res
}

// DetectInReadingOrder runs Detect and sorts the cards into reading order.
func (d *Detector) DetectInReadingOrder(img image.Image) []DetectedCard {
	res := d.Detect(img)
	return d.Sort(res.Cards, res.Height)
}

// Sort orders cards found in an image of the given height.
func (d *Detector) Sort(cards []DetectedCard, imageHeight int) []DetectedCard {
	return SortReadingOrder(cards, imageHeight, d.cfg.RowThresholdFraction)
}
