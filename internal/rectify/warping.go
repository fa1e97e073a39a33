package rectify

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// warpPerspective fills a w x h image by mapping every destination pixel
// through inv into src and sampling bilinearly. src must be zero-origin.
// Samples falling outside src are opaque black.
func warpPerspective(src *image.NRGBA, inv Homography, w, h int) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		row := out.Pix[y*out.Stride:]
		for x := range w {
			sx, sy := inv.Apply(float64(x), float64(y))
			px := row[x*4 : x*4+4 : x*4+4]
			bilinearSample(src, sx, sy, px)
		}
	}
	return out
}

// bilinearSample writes the interpolated NRGBA value at (x, y) into px.
func bilinearSample(src *image.NRGBA, x, y float64, px []uint8) {
	b := src.Rect
	if math.IsNaN(x) || math.IsNaN(y) || x < 0 || y < 0 || x > float64(b.Dx()-1) || y > float64(b.Dy()-1) {
		px[0], px[1], px[2], px[3] = 0, 0, 0, 255
		return
	}
	x0, y0 := int(x), int(y)
	x1 := min(x0+1, b.Dx()-1)
	y1 := min(y0+1, b.Dy()-1)
	fx, fy := x-float64(x0), y-float64(y0)

	i00 := y0*src.Stride + x0*4
	i10 := y0*src.Stride + x1*4
	i01 := y1*src.Stride + x0*4
	i11 := y1*src.Stride + x1*4
	for c := range 4 {
		top := lerp(float64(src.Pix[i00+c]), float64(src.Pix[i10+c]), fx)
		bottom := lerp(float64(src.Pix[i01+c]), float64(src.Pix[i11+c]), fx)
		px[c] = uint8(lerp(top, bottom, fy) + 0.5)
	}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

// toNRGBA returns img as a zero-origin NRGBA, copying only when needed.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}
