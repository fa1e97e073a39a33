package detector

import "github.com/MeKo-Tech/tarot-scan/internal/utils"

// Corner indices of an ordered quadrilateral.
const (
	TopLeft = iota
	TopRight
	BottomRight
	BottomLeft
)

// OrderCorners assigns the four points to TL, TR, BR, BL: the smallest x+y is
// top-left, the largest bottom-right, the smallest y-x top-right and the
// largest bottom-left. Ties go to the earliest point in input order.
//
// Quadrilaterals rotated close to 45°, or near-square ones, can map two
// roles onto the same point; callers get that result unchanged.
func OrderCorners(pts [4]utils.Point) [4]utils.Point {
	minSum, maxSum, minDiff, maxDiff := 0, 0, 0, 0
	for i := 1; i < 4; i++ {
		p := pts[i]
		if s := p.X + p.Y; s < pts[minSum].X+pts[minSum].Y {
			minSum = i
		} else if s > pts[maxSum].X+pts[maxSum].Y {
			maxSum = i
		}
		if d := p.Y - p.X; d < pts[minDiff].Y-pts[minDiff].X {
			minDiff = i
		} else if d > pts[maxDiff].Y-pts[maxDiff].X {
			maxDiff = i
		}
	}

	var out [4]utils.Point
	out[TopLeft] = pts[minSum]
	out[TopRight] = pts[minDiff]
	out[BottomRight] = pts[maxSum]
	out[BottomLeft] = pts[maxDiff]
	return out
}
