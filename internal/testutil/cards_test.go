package testutil

import (
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardSpecQuad(t *testing.T) {
	q := CardSpec{X: 100, Y: 50, W: 200, H: 340}.Quad()
	assert.InDelta(t, 100, q[0].X, 1e-9)
	assert.InDelta(t, 50, q[0].Y, 1e-9)
	assert.InDelta(t, 300, q[2].X, 1e-9)
	assert.InDelta(t, 390, q[2].Y, 1e-9)

	rot := CardSpec{X: 0, Y: 0, W: 100, H: 200, Angle: 90}.Quad()
	// rotating 90° clockwise swaps the footprint
	assert.InDelta(t, 150, rot[0].X, 1e-9)
	assert.InDelta(t, 50, rot[0].Y, 1e-9)
}

func TestGenerateScan(t *testing.T) {
	spec := ScanSpec{Width: 300, Height: 200, Cards: []CardSpec{{X: 20, Y: 30, W: 80, H: 130, Caption: "I"}}}
	img := GenerateScan(spec)

	assert.Equal(t, ScanBackground, img.RGBAAt(5, 5))
	assert.Equal(t, CardFace, img.RGBAAt(20, 30))
	assert.Equal(t, CardFace, img.RGBAAt(99, 159))
	assert.Equal(t, ScanBackground, img.RGBAAt(100, 159))
	assert.Equal(t, ScanBackground, img.RGBAAt(20, 160))

	// printed frame sits inside the card
	inset := 10
	assert.Equal(t, CardInk, img.RGBAAt(20+inset, 30+inset+20))
}

func TestGenerateScan_Plain(t *testing.T) {
	img := GenerateScan(ScanSpec{Width: 100, Height: 100, Plain: true, Cards: []CardSpec{{X: 10, Y: 10, W: 50, H: 80}}})
	for y := 10; y < 90; y++ {
		for x := 10; x < 60; x++ {
			require.Equal(t, CardFace, img.RGBAAt(x, y))
		}
	}
}

func TestGridScan(t *testing.T) {
	spec := GridScan(2, 3, 100, 170, 40, 60)
	assert.Equal(t, 2*60+3*100+2*40, spec.Width)
	assert.Equal(t, 2*60+2*170+40, spec.Height)
	require.Len(t, spec.Cards, 6)
	assert.Equal(t, CardSpec{X: 60, Y: 60, W: 100, H: 170}, spec.Cards[0])
	assert.Equal(t, CardSpec{X: 340, Y: 270, W: 100, H: 170}, spec.Cards[5])
}

func TestWriteScanPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scans", "grid.png")
	require.NoError(t, WriteScanPNG(path, GridScan(1, 1, 50, 80, 0, 10)))

	img := LoadImage(t, path)
	assert.Equal(t, 70, img.Bounds().Dx())
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}, ScanBackground)
}
