// Package rectify maps a card quadrilateral onto an upright rectangle with a
// planar homography.
package rectify

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/MeKo-Tech/tarot-scan/internal/utils"
)

// DefaultTargetHeight is the crop height used by the extraction pipeline.
const DefaultTargetHeight = 1024

// ErrDegenerateQuad is returned when the corners do not span an area, so no
// output size or transform can be derived from them.
var ErrDegenerateQuad = errors.New("degenerate card quadrilateral")

// Rectifier warps ordered card corners into upright crops.
type Rectifier struct {
	// TargetHeight fixes the output height; the width follows the measured
	// aspect ratio. Zero keeps the measured size.
	TargetHeight int
}

// New returns a Rectifier producing crops targetHeight pixels tall.
func New(targetHeight int) *Rectifier {
	return &Rectifier{TargetHeight: targetHeight}
}

// OutputSize returns the crop dimensions for corners ordered TL, TR, BR, BL.
func (r *Rectifier) OutputSize(corners [4]utils.Point) (int, int, error) {
	top := utils.Distance(corners[0], corners[1])
	bottom := utils.Distance(corners[3], corners[2])
	left := utils.Distance(corners[0], corners[3])
	right := utils.Distance(corners[1], corners[2])

	w := int(math.Round((top + bottom) / 2))
	h := int(math.Round((left + right) / 2))
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: measured size %dx%d", ErrDegenerateQuad, w, h)
	}
	if r.TargetHeight > 0 {
		w = int(math.Round(float64(w) * float64(r.TargetHeight) / float64(h)))
		h = r.TargetHeight
		if w <= 0 {
			return 0, 0, fmt.Errorf("%w: scaled width %d", ErrDegenerateQuad, w)
		}
	}
	return w, h, nil
}

// DestinationCorners returns the output rectangle corners in TL, TR, BR, BL order.
func DestinationCorners(w, h int) [4]utils.Point {
	return [4]utils.Point{
		{X: 0, Y: 0},
		{X: float64(w - 1), Y: 0},
		{X: float64(w - 1), Y: float64(h - 1)},
		{X: 0, Y: float64(h - 1)},
	}
}

// Rectify extracts the quadrilateral described by corners (TL, TR, BR, BL,
// in img's local pixel coordinates) as an upright image.
func (r *Rectifier) Rectify(img image.Image, corners [4]utils.Point) (*image.NRGBA, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	w, h, err := r.OutputSize(corners)
	if err != nil {
		return nil, err
	}

	// solve destination -> source directly so resampling needs no inversion
	inv, err := ComputeHomography(DestinationCorners(w, h), corners)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDegenerateQuad, err)
	}
	for _, v := range inv {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite transform", ErrDegenerateQuad)
		}
	}

	return warpPerspective(toNRGBA(img), inv, w, h), nil
}
