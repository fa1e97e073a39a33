package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/tarot-scan/internal/utils"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	// ScanBackground is the dark flatbed lid colour behind the cards.
	ScanBackground = color.RGBA{R: 25, G: 25, B: 28, A: 255}
	// CardFace is the light card stock colour.
	CardFace = color.RGBA{R: 232, G: 226, B: 210, A: 255}
	// CardInk is used for the printed frame and caption on each card.
	CardInk = color.RGBA{R: 60, G: 40, B: 90, A: 255}
)

// CardSpec places one card on a synthetic scan. X, Y, W, H describe the
// unrotated card; Angle rotates it clockwise (degrees) about its centre.
type CardSpec struct {
	X, Y, W, H int
	Angle      float64
	Caption    string
}

// ScanSpec describes a synthetic flatbed scan.
type ScanSpec struct {
	Width, Height int
	Cards         []CardSpec
	// Plain omits the printed frame and caption inside each card.
	Plain bool
}

// Quad returns the card corners ordered TL, TR, BR, BL in pixel-edge
// coordinates (an axis-aligned card covers pixels X..X+W-1).
func (c CardSpec) Quad() [4]utils.Point {
	cx := float64(c.X) + float64(c.W)/2
	cy := float64(c.Y) + float64(c.H)/2
	rad := c.Angle * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	rel := [4][2]float64{
		{-float64(c.W) / 2, -float64(c.H) / 2},
		{float64(c.W) / 2, -float64(c.H) / 2},
		{float64(c.W) / 2, float64(c.H) / 2},
		{-float64(c.W) / 2, float64(c.H) / 2},
	}
	var out [4]utils.Point
	for i, r := range rel {
		out[i] = utils.Point{X: cx + r[0]*cos - r[1]*sin, Y: cy + r[0]*sin + r[1]*cos}
	}
	return out
}

// GenerateScan renders the scan described by spec.
func GenerateScan(spec ScanSpec) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, spec.Width, spec.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: ScanBackground}, image.Point{}, draw.Src)
	for _, c := range spec.Cards {
		fillQuad(img, c.Quad(), CardFace)
		if !spec.Plain {
			drawArtwork(img, c)
		}
	}
	return img
}

// GridScan lays out rows x cols cards of size w x h with the given gaps,
// starting at (margin, margin).
func GridScan(rows, cols, w, h, gap, margin int) ScanSpec {
	spec := ScanSpec{
		Width:  2*margin + cols*w + (cols-1)*gap,
		Height: 2*margin + rows*h + (rows-1)*gap,
	}
	for r := range rows {
		for c := range cols {
			spec.Cards = append(spec.Cards, CardSpec{
				X: margin + c*(w+gap),
				Y: margin + r*(h+gap),
				W: w,
				H: h,
			})
		}
	}
	return spec
}

// WriteScanPNG renders spec and writes it to path.
func WriteScanPNG(path string, spec ScanSpec) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	f, err := os.Create(path) //nolint:gosec // G304: test fixture path
	if err != nil {
		return err
	}
	if err := png.Encode(f, GenerateScan(spec)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// fillQuad paints every pixel whose centre lies inside the convex quad.
func fillQuad(img *image.RGBA, q [4]utils.Point, col color.Color) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range q {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	b := img.Bounds()
	for y := max(b.Min.Y, int(math.Floor(minY))); y < min(b.Max.Y, int(math.Ceil(maxY))+1); y++ {
		for x := max(b.Min.X, int(math.Floor(minX))); x < min(b.Max.X, int(math.Ceil(maxX))+1); x++ {
			if insideConvex(q, float64(x)+0.5, float64(y)+0.5) {
				img.Set(x, y, col)
			}
		}
	}
}

func insideConvex(q [4]utils.Point, x, y float64) bool {
	sign := 0.0
	for i := range 4 {
		a, b := q[i], q[(i+1)%4]
		c := (b.X-a.X)*(y-a.Y) - (b.Y-a.Y)*(x-a.X)
		if c == 0 {
			continue
		}
		if sign == 0 {
			sign = c
		} else if (c > 0) != (sign > 0) {
			return false
		}
	}
	return true
}

// drawArtwork prints an inset frame and caption so the card interior has
// edges of its own, like a real card face.
func drawArtwork(img *image.RGBA, c CardSpec) {
	inset := max(4, min(c.W, c.H)/8)
	if c.W <= 2*inset+6 || c.H <= 2*inset+6 {
		return
	}
	inner := CardSpec{X: c.X + inset, Y: c.Y + inset, W: c.W - 2*inset, H: c.H - 2*inset, Angle: c.Angle}
	outer := inner.Quad()
	core := CardSpec{X: inner.X + 3, Y: inner.Y + 3, W: inner.W - 6, H: inner.H - 6, Angle: c.Angle}.Quad()
	fillQuad(img, outer, CardInk)
	fillQuad(img, core, CardFace)

	if c.Caption == "" || c.Angle != 0 {
		return
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(CardInk),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(inner.X+6, inner.Y+inner.H/2),
	}
	d.DrawString(c.Caption)
}
