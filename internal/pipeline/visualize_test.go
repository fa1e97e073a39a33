package pipeline

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/tarot-scan/internal/detector"
	"github.com/MeKo-Tech/tarot-scan/internal/testutil"
	"github.com/MeKo-Tech/tarot-scan/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCard() detector.DetectedCard {
	pts := []utils.Point{{X: 20, Y: 20}, {X: 120, Y: 20}, {X: 120, Y: 200}, {X: 20, Y: 200}}
	var corners [4]utils.Point
	copy(corners[:], pts)
	return detector.DetectedCard{
		Boundary: pts,
		Corners:  corners,
		BBox:     utils.Rect{X: 20, Y: 20, W: 101, H: 181},
		Center:   utils.Point{X: 70, Y: 110},
	}
}

func TestNewDebugAnnotator(t *testing.T) {
	a, err := NewDebugAnnotator(DefaultDebugColors())
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{G: 255, A: 255}, a.Outline)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, a.Corner)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, a.Index)
	assert.Equal(t, color.RGBA{B: 255, A: 255}, a.Label)

	colors := DefaultDebugColors()
	colors.Label = "#12345"
	_, err = NewDebugAnnotator(colors)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "#12345")
}

func TestDebugAnnotator_Render(t *testing.T) {
	a, err := NewDebugAnnotator(DefaultDebugColors())
	require.NoError(t, err)
	src := image.NewRGBA(image.Rect(0, 0, 200, 240))

	out := a.Render(src, []detector.DetectedCard{testCard()})

	require.NotNil(t, out)
	assert.Equal(t, src.Bounds(), out.Bounds())
	assert.Equal(t, a.Outline, out.RGBAAt(70, 20), "top edge")
	assert.Equal(t, a.Outline, out.RGBAAt(20, 110), "left edge")
	assert.Equal(t, a.Corner, out.RGBAAt(20, 20), "corner dot")
	assert.Equal(t, a.Corner, out.RGBAAt(120, 200), "corner dot")
	assert.Equal(t, a.Outline, out.RGBAAt(71, 21), "thickness")

	// the source is left untouched
	assert.Equal(t, color.RGBA{}, src.RGBAAt(70, 20))

	var label int
	for y := 90; y < 115; y++ {
		for x := 25; x < 140; x++ {
			if out.RGBAAt(x, y) == a.Label {
				label++
			}
		}
	}
	assert.Positive(t, label, "card label drawn near the centre")
}

func TestDebugAnnotator_RenderNil(t *testing.T) {
	a, err := NewDebugAnnotator(DefaultDebugColors())
	require.NoError(t, err)
	assert.Nil(t, a.Render(nil, nil))
}

func TestFileDebugSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug", "scan_0001_annotated.png")
	img := image.NewRGBA(image.Rect(0, 0, 30, 20))

	require.NoError(t, FileDebugSink{}.WriteDebug(path, img))

	loaded := testutil.LoadImage(t, path)
	assert.Equal(t, img.Bounds().Size(), loaded.Bounds().Size())
}
