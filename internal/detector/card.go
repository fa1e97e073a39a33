package detector

import "github.com/MeKo-Tech/tarot-scan/internal/utils"

// DetectedCard is a card-shaped quadrilateral found in a scan. It lives only
// for the duration of one detection call.
type DetectedCard struct {
	// Boundary is the approximated polygon in contour order (4 vertices).
	Boundary []utils.Point
	// Corners holds the same vertices ordered TL, TR, BR, BL.
	Corners [4]utils.Point
	// BBox is the axis-aligned bounding box of Boundary in source pixels.
	BBox utils.Rect
	// Area is the shoelace area enclosed by the traced outline.
	Area float64
	// Center is the bounding-box centre, used only for ordering.
	Center utils.Point
}

// CornerInts returns the ordered corners rounded to integer pixel pairs.
func (c DetectedCard) CornerInts() [4][2]int {
	var out [4][2]int
	for i, p := range c.Corners {
		r := p.Round()
		out[i] = [2]int{r.X, r.Y}
	}
	return out
}

// Largest returns the card with the greatest area. The first card wins ties.
func Largest(cards []DetectedCard) (DetectedCard, bool) {
	if len(cards) == 0 {
		return DetectedCard{}, false
	}
	best := cards[0]
	for _, c := range cards[1:] {
		if c.Area > best.Area {
			best = c
		}
	}
	return best, true
}
