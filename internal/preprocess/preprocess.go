// Package preprocess turns a raw scan into a binary edge map suitable for
// outer-contour extraction: grayscale, edge-preserving smoothing, Canny edges
// and a small dilation that bridges gaps in low-contrast card borders.
package preprocess

import (
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/disintegration/imaging"
)

// Config holds the fixed parameters of the edge pipeline.
type Config struct {
	BilateralDiameter int     `mapstructure:"bilateral_diameter" yaml:"bilateral_diameter" json:"bilateral_diameter"`
	SigmaColor        float64 `mapstructure:"sigma_color" yaml:"sigma_color" json:"sigma_color"`
	SigmaSpace        float64 `mapstructure:"sigma_space" yaml:"sigma_space" json:"sigma_space"`
	CannyLow          float64 `mapstructure:"canny_low" yaml:"canny_low" json:"canny_low"`
	CannyHigh         float64 `mapstructure:"canny_high" yaml:"canny_high" json:"canny_high"`
	DilateKernel      int     `mapstructure:"dilate_kernel" yaml:"dilate_kernel" json:"dilate_kernel"`
	DilateIterations  int     `mapstructure:"dilate_iterations" yaml:"dilate_iterations" json:"dilate_iterations"`
}

// DefaultConfig returns the parameters used for flatbed card scans.
func DefaultConfig() Config {
	return Config{
		BilateralDiameter: 11,
		SigmaColor:        75,
		SigmaSpace:        75,
		CannyLow:          30,
		CannyHigh:         100,
		DilateKernel:      3,
		DilateIterations:  2,
	}
}

// Validate checks that the parameters describe a usable pipeline.
func (c Config) Validate() error {
	if c.BilateralDiameter < 0 {
		return fmt.Errorf("bilateral diameter must be >= 0, got %d", c.BilateralDiameter)
	}
	if c.SigmaColor <= 0 || c.SigmaSpace <= 0 {
		return fmt.Errorf("bilateral sigmas must be positive, got color=%.2f space=%.2f", c.SigmaColor, c.SigmaSpace)
	}
	if c.CannyLow < 0 || c.CannyHigh < c.CannyLow {
		return fmt.Errorf("canny thresholds must satisfy 0 <= low <= high, got low=%.1f high=%.1f", c.CannyLow, c.CannyHigh)
	}
	if c.DilateKernel < 1 || c.DilateKernel%2 == 0 {
		return fmt.Errorf("dilate kernel must be a positive odd size, got %d", c.DilateKernel)
	}
	if c.DilateIterations < 0 {
		return fmt.Errorf("dilate iterations must be >= 0, got %d", c.DilateIterations)
	}
	return nil
}

// Grayscale converts img to a zero-origin 8-bit single-channel image.
// Single-channel inputs are copied without re-weighting.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	if g, ok := img.(*image.Gray); ok {
		for y := range b.Dy() {
			src := g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):]
			copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], src[:b.Dx()])
		}
		return out
	}

	// imaging.Grayscale applies BT.601 luma weights and returns an NRGBA with R=G=B
	nrgba := imaging.Grayscale(img)
	for y := range b.Dy() {
		row := nrgba.Pix[y*nrgba.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := range b.Dx() {
			dst[x] = row[x*4]
		}
	}
	return out
}

// EdgeMap runs the full preprocessing chain and returns a binary (0/255)
// edge map with the same dimensions as img.
func EdgeMap(img image.Image, cfg Config) *image.Gray {
	start := time.Now()
	gray := Grayscale(img)
	smoothed := Bilateral(gray, cfg.BilateralDiameter, cfg.SigmaColor, cfg.SigmaSpace)
	edges := Canny(smoothed, cfg.CannyLow, cfg.CannyHigh)
	dilated := Dilate(edges, cfg.DilateKernel, cfg.DilateIterations)

	slog.Debug("edge map computed",
		"width", gray.Rect.Dx(),
		"height", gray.Rect.Dy(),
		"duration_ms", time.Since(start).Milliseconds())
	return dilated
}
