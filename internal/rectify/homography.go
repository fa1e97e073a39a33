package rectify

import (
	"errors"
	"math"

	"github.com/MeKo-Tech/tarot-scan/internal/utils"
)

var errSingular = errors.New("singular homography system")

// Homography is a row-major 3x3 projective transform with h[8] == 1.
type Homography [9]float64

// ComputeHomography returns the transform mapping src[i] onto dst[i].
func ComputeHomography(src, dst [4]utils.Point) (Homography, error) {
	// eight unknowns h00..h21, two rows per correspondence
	var a [8][8]float64
	var b [8]float64
	for i := range 4 {
		sx, sy := src[i].X, src[i].Y
		dx, dy := dst[i].X, dst[i].Y
		r := 2 * i
		a[r] = [8]float64{sx, sy, 1, 0, 0, 0, -sx * dx, -sy * dx}
		b[r] = dx
		a[r+1] = [8]float64{0, 0, 0, sx, sy, 1, -sx * dy, -sy * dy}
		b[r+1] = dy
	}

	h, err := solve8x8(a, b)
	if err != nil {
		return Homography{}, err
	}
	return Homography{h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], 1}, nil
}

// Apply maps (x, y) through the transform. Points on the line at infinity
// map to NaN.
func (h Homography) Apply(x, y float64) (float64, float64) {
	w := h[6]*x + h[7]*y + h[8]
	if w == 0 {
		return math.NaN(), math.NaN()
	}
	return (h[0]*x + h[1]*y + h[2]) / w, (h[3]*x + h[4]*y + h[5]) / w
}

// ApplyPoint is Apply for a utils.Point.
func (h Homography) ApplyPoint(p utils.Point) utils.Point {
	x, y := h.Apply(p.X, p.Y)
	return utils.Point{X: x, Y: y}
}

// solve8x8 runs Gauss-Jordan elimination with partial pivoting.
func solve8x8(a [8][8]float64, b [8]float64) ([8]float64, error) {
	const eps = 1e-12
	for col := range 8 {
		pivot := col
		for r := col + 1; r < 8; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < eps {
			return [8]float64{}, errSingular
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		div := a[col][col]
		for c := col; c < 8; c++ {
			a[col][c] /= div
		}
		b[col] /= div

		for r := range 8 {
			if r == col || a[r][col] == 0 {
				continue
			}
			f := a[r][col]
			for c := col; c < 8; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}
	return b, nil
}
