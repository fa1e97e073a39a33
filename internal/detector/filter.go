package detector

import (
	"fmt"

	"github.com/MeKo-Tech/tarot-scan/internal/utils"
)

// FilterConfig holds the soft thresholds that decide which outlines count as cards.
type FilterConfig struct {
	// MinAreaFraction and MaxAreaFraction bound the outline area relative to the image area.
	MinAreaFraction float64 `mapstructure:"min_area_fraction" yaml:"min_area_fraction" json:"min_area_fraction"`
	MaxAreaFraction float64 `mapstructure:"max_area_fraction" yaml:"max_area_fraction" json:"max_area_fraction"`
	// EpsilonFraction scales the polygon approximation tolerance by the outline perimeter.
	EpsilonFraction float64 `mapstructure:"epsilon_fraction" yaml:"epsilon_fraction" json:"epsilon_fraction"`
	// MinAspect and MaxAspect bound max(w,h)/min(w,h) of the bounding box.
	MinAspect float64 `mapstructure:"min_aspect" yaml:"min_aspect" json:"min_aspect"`
	MaxAspect float64 `mapstructure:"max_aspect" yaml:"max_aspect" json:"max_aspect"`
}

// DefaultFilterConfig returns thresholds tuned for several tarot cards on one flatbed scan.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinAreaFraction: 0.01,
		MaxAreaFraction: 0.5,
		EpsilonFraction: 0.02,
		MinAspect:       1.2,
		MaxAspect:       2.5,
	}
}

// SingleCardFilterConfig returns thresholds for a photo or scan holding one card.
func SingleCardFilterConfig() FilterConfig {
	cfg := DefaultFilterConfig()
	cfg.MinAreaFraction = 0.3
	cfg.MaxAreaFraction = 0.99
	return cfg
}

// Validate checks the thresholds for internal consistency.
func (c FilterConfig) Validate() error {
	if c.MinAreaFraction < 0 || c.MinAreaFraction > 1 {
		return fmt.Errorf("min area fraction must be within [0, 1], got %.4f", c.MinAreaFraction)
	}
	if c.MaxAreaFraction <= 0 || c.MaxAreaFraction > 1 {
		return fmt.Errorf("max area fraction must be within (0, 1], got %.4f", c.MaxAreaFraction)
	}
	if c.MinAreaFraction > c.MaxAreaFraction {
		return fmt.Errorf("min area fraction %.4f exceeds max area fraction %.4f", c.MinAreaFraction, c.MaxAreaFraction)
	}
	if c.EpsilonFraction <= 0 || c.EpsilonFraction >= 1 {
		return fmt.Errorf("epsilon fraction must be within (0, 1), got %.4f", c.EpsilonFraction)
	}
	if c.MinAspect < 1 || c.MaxAspect < c.MinAspect {
		return fmt.Errorf("aspect bounds must satisfy 1 <= min <= max, got min=%.2f max=%.2f", c.MinAspect, c.MaxAspect)
	}
	return nil
}

// RejectReason names the filter stage that discarded an outline.
type RejectReason string

const (
	RejectArea      RejectReason = "area"
	RejectVertices  RejectReason = "vertices"
	RejectConvexity RejectReason = "convexity"
	RejectAspect    RejectReason = "aspect"
)

// FilterStats counts how outlines fared in FilterCards.
type FilterStats struct {
	Candidates int
	Accepted   int
	Rejected   map[RejectReason]int
}

func (s *FilterStats) reject(r RejectReason) {
	if s.Rejected == nil {
		s.Rejected = make(map[RejectReason]int)
	}
	s.Rejected[r]++
}

// FilterCards keeps the outlines that look like cards in an image of the
// given size, in input order. Each survivor has its corners ordered.
func FilterCards(contours [][]utils.Point, width, height int, cfg FilterConfig) ([]DetectedCard, FilterStats) {
	stats := FilterStats{Candidates: len(contours)}
	imageArea := float64(width) * float64(height)
	minArea := imageArea * cfg.MinAreaFraction
	maxArea := imageArea * cfg.MaxAreaFraction

	var cards []DetectedCard
	for _, contour := range contours {
		area := utils.PolygonArea(contour)
		if area < minArea || area > maxArea {
			stats.reject(RejectArea)
			continue
		}

		eps := cfg.EpsilonFraction * utils.ArcLength(contour, true)
		approx := utils.ApproxPolygon(contour, eps)
		if len(approx) != 4 {
			stats.reject(RejectVertices)
			continue
		}
		if !utils.IsConvex(approx) {
			stats.reject(RejectConvexity)
			continue
		}

		bbox := utils.BoundingRect(approx)
		aspect := bbox.AspectRatio()
		if aspect < cfg.MinAspect || aspect > cfg.MaxAspect {
			stats.reject(RejectAspect)
			continue
		}

		cards = append(cards, DetectedCard{
			Boundary: approx,
			Corners:  OrderCorners([4]utils.Point(approx)),
			BBox:     bbox,
			Area:     area,
			Center:   bbox.Center(),
		})
	}
	stats.Accepted = len(cards)
	return cards, stats
}
