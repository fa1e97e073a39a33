package utils

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

var red = color.RGBA{R: 255, A: 255}

func TestCloneRGBA_OffsetOrigin(t *testing.T) {
	src := image.NewGray(image.Rect(10, 10, 20, 15))
	src.SetGray(10, 10, color.Gray{Y: 77})

	dst := CloneRGBA(src)
	assert.Equal(t, image.Rect(0, 0, 10, 5), dst.Bounds())
	assert.Equal(t, color.RGBA{R: 77, G: 77, B: 77, A: 255}, dst.RGBAAt(0, 0))
}

func TestDrawPolygon(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 50, 50))
	DrawPolygon(dst, rectPoints(10, 10, 20, 20), red, 1)

	assert.Equal(t, red, dst.RGBAAt(10, 10))
	assert.Equal(t, red, dst.RGBAAt(20, 10))
	assert.Equal(t, red, dst.RGBAAt(30, 30))
	assert.Equal(t, red, dst.RGBAAt(10, 25))
	assert.Equal(t, color.RGBA{}, dst.RGBAAt(20, 20), "interior untouched")
}

func TestDrawPolygon_ThicknessAndClipping(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 20, 20))
	// partially outside the canvas must not panic
	DrawPolygon(dst, []Point{{-5, -5}, {25, -5}, {25, 10}, {-5, 10}}, red, 3)
	assert.Equal(t, red, dst.RGBAAt(0, 9))
	assert.Equal(t, red, dst.RGBAAt(0, 11))
}

func TestFillCircle(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 30, 30))
	FillCircle(dst, image.Pt(15, 15), 5, red)

	assert.Equal(t, red, dst.RGBAAt(15, 15))
	assert.Equal(t, red, dst.RGBAAt(20, 15))
	assert.Equal(t, color.RGBA{}, dst.RGBAAt(20, 20), "outside radius")

	// near the edge, clipped
	FillCircle(dst, image.Pt(0, 0), 3, red)
	assert.Equal(t, red, dst.RGBAAt(0, 0))
}

func TestDrawLabel(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 100, 40))
	DrawLabel(dst, image.Pt(5, 20), "Card 1", red, 2)

	painted := 0
	for y := range 40 {
		for x := range 100 {
			if dst.RGBAAt(x, y) == red {
				painted++
			}
		}
	}
	assert.Positive(t, painted)

	empty := image.NewRGBA(image.Rect(0, 0, 10, 10))
	DrawLabel(empty, image.Pt(0, 0), "", red, 1)
	assert.Equal(t, color.RGBA{}, empty.RGBAAt(0, 0))
}
