package utils

import (
	"image"
	"math"
)

// Point represents a 2D coordinate in float space.
type Point struct {
	X float64
	Y float64
}

// Pt is shorthand for constructing a Point from integer pixel coordinates.
func Pt(x, y int) Point {
	return Point{X: float64(x), Y: float64(y)}
}

// Round returns the nearest integer pixel position.
func (p Point) Round() image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

// Rect is an integer axis-aligned bounding box in x, y, width, height form.
type Rect struct {
	X int
	Y int
	W int
	H int
}

// Center returns the floating-point centre of the rectangle.
func (r Rect) Center() Point {
	return Point{X: float64(r.X) + float64(r.W)/2, Y: float64(r.Y) + float64(r.H)/2}
}

// Area returns w*h.
func (r Rect) Area() int { return r.W * r.H }

// AspectRatio returns max(w,h)/min(w,h), or 0 when either side is empty.
func (r Rect) AspectRatio() float64 {
	lo, hi := r.W, r.H
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo <= 0 {
		return 0
	}
	return float64(hi) / float64(lo)
}

// Array returns the rectangle as [x, y, w, h].
func (r Rect) Array() [4]int { return [4]int{r.X, r.Y, r.W, r.H} }

// BoundingRect returns the smallest integer rectangle that contains every
// point. Width and height count pixels, so a single point yields 1x1.
func BoundingRect(pts []Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	minX, minY := math.Floor(pts[0].X), math.Floor(pts[0].Y)
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, math.Floor(p.X))
		minY = math.Min(minY, math.Floor(p.Y))
		maxX = math.Max(maxX, math.Floor(p.X))
		maxY = math.Max(maxY, math.Floor(p.Y))
	}
	return Rect{X: int(minX), Y: int(minY), W: int(maxX-minX) + 1, H: int(maxY-minY) + 1}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// ArcLength returns the perimeter of the polyline; closed adds the segment
// from the last point back to the first.
func ArcLength(pts []Point, closed bool) float64 {
	if len(pts) < 2 {
		return 0
	}
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += Distance(pts[i-1], pts[i])
	}
	if closed {
		total += Distance(pts[len(pts)-1], pts[0])
	}
	return total
}

// PolygonArea returns the absolute shoelace area of a closed polygon.
func PolygonArea(pts []Point) float64 {
	return math.Abs(signedArea(pts))
}

func signedArea(pts []Point) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}
	s := 0.0
	for i := range n {
		a := pts[i]
		b := pts[(i+1)%n]
		s += a.X*b.Y - b.X*a.Y
	}
	return s / 2
}

// IsConvex reports whether the closed polygon turns the same way at every
// vertex. Collinear vertices and polygons with fewer than 3 points are not
// convex.
func IsConvex(pts []Point) bool {
	n := len(pts)
	if n < 3 {
		return false
	}
	sign := 0
	for i := range n {
		c := cross(pts[i], pts[(i+1)%n], pts[(i+2)%n])
		switch {
		case c > 0:
			if sign < 0 {
				return false
			}
			sign = 1
		case c < 0:
			if sign > 0 {
				return false
			}
			sign = -1
		default:
			return false
		}
	}
	return true
}

// cross returns the z component of (b-a) x (c-b).
func cross(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-b.Y) - (b.Y-a.Y)*(c.X-b.X)
}

// ToIntPairs converts points to rounded [x, y] pairs.
func ToIntPairs(pts []Point) [][2]int {
	out := make([][2]int, len(pts))
	for i, p := range pts {
		r := p.Round()
		out[i] = [2]int{r.X, r.Y}
	}
	return out
}
