package utils

import "math"

// ApproxPolygon simplifies a closed contour with the Douglas–Peucker
// algorithm. The contour is split at two mutually distant vertices so the
// result does not depend on where tracing happened to start; both split
// vertices are always kept. Output preserves the input winding.
func ApproxPolygon(pts []Point, epsilon float64) []Point {
	n := len(pts)
	if n <= 3 || epsilon <= 0 {
		return append([]Point(nil), pts...)
	}

	a := 0
	b := farthestFrom(pts, a)
	a = farthestFrom(pts, b)
	b = farthestFrom(pts, a)
	if a == b {
		return []Point{pts[a]}
	}
	if a > b {
		a, b = b, a
	}

	keep := make([]bool, n)
	keep[a] = true
	keep[b] = true

	// first chain a..b, second chain b..a wrapping through index 0
	wrap := func(i int) int { return i % n }
	dpSimplify(pts, a, b, epsilon, keep, wrap)
	dpSimplify(pts, b, a+n, epsilon, keep, wrap)

	out := make([]Point, 0, 8)
	for i := a; i < a+n; i++ {
		if keep[i%n] {
			out = append(out, pts[i%n])
		}
	}
	return out
}

func farthestFrom(pts []Point, from int) int {
	best, bestDist := from, -1.0
	p := pts[from]
	for i, q := range pts {
		dx, dy := q.X-p.X, q.Y-p.Y
		if d := dx*dx + dy*dy; d > bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// dpSimplify runs Douglas–Peucker over the virtual index range
// [start, end]; at maps a virtual index onto pts.
func dpSimplify(pts []Point, start, end int, eps float64, keep []bool, at func(int) int) {
	if end <= start+1 {
		return
	}
	maxDist := -1.0
	index := -1
	a := pts[at(start)]
	b := pts[at(end)]
	for i := start + 1; i < end; i++ {
		d := perpendicularDistance(pts[at(i)], a, b)
		if d > maxDist {
			maxDist = d
			index = i
		}
	}
	if maxDist > eps {
		keep[at(index)] = true
		dpSimplify(pts, start, index, eps, keep, at)
		dpSimplify(pts, index, end, eps, keep, at)
	}
}

func perpendicularDistance(p, a, b Point) float64 {
	vx, vy := b.X-a.X, b.Y-a.Y
	if vx == 0 && vy == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	num := math.Abs((p.X-a.X)*vy - (p.Y-a.Y)*vx)
	return num / math.Hypot(vx, vy)
}
