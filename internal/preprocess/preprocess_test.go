package preprocess

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepImage returns a w x h gray image with value lo left of column edgeX and hi from edgeX on.
func stepImage(w, h, edgeX int, lo, hi uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			v := lo
			if x >= edgeX {
				v = hi
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func uniform(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.Gray{Y: v}}, image.Point{}, draw.Src)
	return img
}

func countNonZero(img *image.Gray) int {
	n := 0
	for _, v := range img.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 11, cfg.BilateralDiameter)
	assert.InDelta(t, 75.0, cfg.SigmaColor, 0)
	assert.InDelta(t, 75.0, cfg.SigmaSpace, 0)
	assert.InDelta(t, 30.0, cfg.CannyLow, 0)
	assert.InDelta(t, 100.0, cfg.CannyHigh, 0)
	assert.Equal(t, 3, cfg.DilateKernel)
	assert.Equal(t, 2, cfg.DilateIterations)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative diameter", func(c *Config) { c.BilateralDiameter = -1 }},
		{"zero sigma", func(c *Config) { c.SigmaColor = 0 }},
		{"inverted thresholds", func(c *Config) { c.CannyLow = 200 }},
		{"even kernel", func(c *Config) { c.DilateKernel = 4 }},
		{"negative iterations", func(c *Config) { c.DilateIterations = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGrayscale(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 3, 1))
	rgba.Set(0, 0, color.RGBA{R: 255, A: 255})
	rgba.Set(1, 0, color.RGBA{G: 255, A: 255})
	rgba.Set(2, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	g := Grayscale(rgba)
	require.Equal(t, image.Rect(0, 0, 3, 1), g.Bounds())
	assert.InDelta(t, 76, int(g.GrayAt(0, 0).Y), 1)
	assert.InDelta(t, 150, int(g.GrayAt(1, 0).Y), 1)
	assert.Equal(t, uint8(255), g.GrayAt(2, 0).Y)
}

func TestGrayscale_GrayInputPassesThrough(t *testing.T) {
	src := image.NewGray(image.Rect(5, 5, 9, 7))
	src.SetGray(5, 5, color.Gray{Y: 42})
	src.SetGray(8, 6, color.Gray{Y: 9})

	g := Grayscale(src)
	assert.Equal(t, image.Rect(0, 0, 4, 2), g.Bounds())
	assert.Equal(t, uint8(42), g.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(9), g.GrayAt(3, 1).Y)
}

func TestEdgeMap_DimensionsAndBinary(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 120, 90))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{30, 30, 30, 255}}, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(30, 20, 90, 70), &image.Uniform{C: color.RGBA{220, 220, 220, 255}}, image.Point{}, draw.Src)

	edges := EdgeMap(img, DefaultConfig())
	require.Equal(t, image.Rect(0, 0, 120, 90), edges.Bounds())
	for _, v := range edges.Pix {
		require.True(t, v == 0 || v == 255)
	}
	assert.Positive(t, countNonZero(edges))
	// far from the rectangle the map stays empty
	assert.Zero(t, edges.GrayAt(5, 5).Y)
	assert.Zero(t, edges.GrayAt(60, 45).Y)
	// the border band is marked
	assert.Equal(t, uint8(255), edges.GrayAt(29, 45).Y)
}

func TestEdgeMap_UniformImageHasNoEdges(t *testing.T) {
	edges := EdgeMap(uniform(64, 48, 128), DefaultConfig())
	assert.Zero(t, countNonZero(edges))
}
