package detector

import (
	"image"

	"github.com/MeKo-Tech/tarot-scan/internal/utils"
)

// FindExternalContours extracts the outer boundary of every outermost
// 8-connected foreground region of a binary map (any non-zero pixel is
// foreground). Regions nested inside another region's hole are skipped.
// Each contour lists boundary pixel centres clockwise with straight runs
// collapsed to their end points. Contours are returned in raster order of
// their first pixel.
func FindExternalContours(edges *image.Gray) [][]utils.Point {
	b := edges.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	mask := make([]bool, w*h)
	for y := range h {
		row := edges.Pix[edges.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := range w {
			mask[y*w+x] = row[x] != 0
		}
	}

	comps, labels := labelComponents(mask, w, h)
	markExternal(comps, labels, outsideBackground(mask, w, h), w, h)

	var contours [][]utils.Point
	for _, st := range comps {
		if !st.external {
			continue
		}
		chain := traceContourMoore(labels, w, h, st)
		contours = append(contours, compressChain(chain))
	}
	return contours
}

// dirIndex returns the index into dirs8 of the unit offset (dx, dy).
func dirIndex(dx, dy int) int {
	for i, d := range dirs8 {
		if d[0] == dx && d[1] == dy {
			return i
		}
	}
	return -1
}

// traceContourMoore walks the outer boundary of the labelled component with
// Moore-neighbour tracing, starting at its raster-first pixel. Tracing stops
// when the start pixel is about to be left through the same first step again.
func traceContourMoore(labels []int, w, h int, st compStats) []image.Point {
	isLabel := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && labels[y*w+x] == st.label
	}

	start := image.Pt(st.startX, st.startY)
	pts := []image.Point{start}

	// the raster-first pixel has nothing of its component to the west
	next, from, ok := nextBoundaryPixel(isLabel, start, 4)
	if !ok {
		return pts
	}
	first := next
	cur := next
	maxSteps := 4*st.count + 8

	for range maxSteps {
		if cur == start {
			n, f, _ := nextBoundaryPixel(isLabel, cur, from)
			if n == first {
				break
			}
			pts = append(pts, cur)
			cur, from = n, f
			continue
		}
		pts = append(pts, cur)
		cur, from, _ = nextBoundaryPixel(isLabel, cur, from)
	}
	return pts
}

// nextBoundaryPixel scans the 8 neighbours of cur clockwise, beginning just
// after the background neighbour in direction from. It returns the first
// foreground neighbour and the direction, relative to that neighbour, of the
// background pixel examined immediately before it.
func nextBoundaryPixel(isLabel func(x, y int) bool, cur image.Point, from int) (image.Point, int, bool) {
	for k := 1; k <= 8; k++ {
		d := (from + k) % 8
		n := image.Pt(cur.X+dirs8[d][0], cur.Y+dirs8[d][1])
		if !isLabel(n.X, n.Y) {
			continue
		}
		prev := (d + 7) % 8
		bx := cur.X + dirs8[prev][0] - n.X
		by := cur.Y + dirs8[prev][1] - n.Y
		return n, dirIndex(bx, by), true
	}
	return cur, from, false
}

// compressChain drops pixels that continue a straight run, keeping only the
// points where the chain direction changes.
func compressChain(chain []image.Point) []utils.Point {
	n := len(chain)
	if n <= 2 {
		out := make([]utils.Point, n)
		for i, p := range chain {
			out[i] = utils.Pt(p.X, p.Y)
		}
		return out
	}
	out := make([]utils.Point, 0, n/4+4)
	for i := range n {
		prev := chain[(i+n-1)%n]
		cur := chain[i]
		next := chain[(i+1)%n]
		if cur.Sub(prev) == next.Sub(cur) {
			continue
		}
		out = append(out, utils.Pt(cur.X, cur.Y))
	}
	if len(out) == 0 {
		// degenerate straight chain; keep its extremes
		return []utils.Point{utils.Pt(chain[0].X, chain[0].Y), utils.Pt(chain[n-1].X, chain[n-1].Y)}
	}
	return out
}
