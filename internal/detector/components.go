package detector

// compStats represents statistics for an 8-connected edge component.
type compStats struct {
	label  int
	count  int
	startX int // raster-first pixel, always on the outer boundary
	startY int
	minX   int
	minY   int
	maxX   int
	maxY   int
	// external is set when the component touches the image border or the
	// background region connected to it.
	external bool
}

var (
	dirs4 = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	dirs8 = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
)

// labelComponents finds 8-connected foreground components in mask. Labels
// start at 1 and are assigned in raster order of each component's first pixel.
func labelComponents(mask []bool, w, h int) ([]compStats, []int) {
	labels := make([]int, w*h)
	var comps []compStats
	queue := make([]int, 0, 256)

	for y := range h {
		for x := range w {
			idx := y*w + x
			if !mask[idx] || labels[idx] != 0 {
				continue
			}
			label := len(comps) + 1
			st := compStats{label: label, startX: x, startY: y, minX: x, minY: y, maxX: x, maxY: y}
			labels[idx] = label
			queue = append(queue[:0], idx)
			for len(queue) > 0 {
				ci := queue[len(queue)-1]
				queue = queue[:len(queue)-1]
				cx, cy := ci%w, ci/w
				st.count++
				st.minX = min(st.minX, cx)
				st.maxX = max(st.maxX, cx)
				st.minY = min(st.minY, cy)
				st.maxY = max(st.maxY, cy)
				for _, d := range dirs8 {
					nx, ny := cx+d[0], cy+d[1]
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					ni := ny*w + nx
					if mask[ni] && labels[ni] == 0 {
						labels[ni] = label
						queue = append(queue, ni)
					}
				}
			}
			comps = append(comps, st)
		}
	}
	return comps, labels
}

// outsideBackground marks background pixels 4-connected to the image border.
// Background enclosed by an 8-connected ring of foreground is left unmarked.
func outsideBackground(mask []bool, w, h int) []bool {
	outside := make([]bool, w*h)
	queue := make([]int, 0, 2*(w+h))
	seed := func(x, y int) {
		i := y*w + x
		if !mask[i] && !outside[i] {
			outside[i] = true
			queue = append(queue, i)
		}
	}
	for x := range w {
		seed(x, 0)
		seed(x, h-1)
	}
	for y := range h {
		seed(0, y)
		seed(w-1, y)
	}
	for len(queue) > 0 {
		ci := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		cx, cy := ci%w, ci/w
		for _, d := range dirs4 {
			nx, ny := cx+d[0], cy+d[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			seed(nx, ny)
		}
	}
	return outside
}

// markExternal flags components that are not nested inside another
// component's hole.
func markExternal(comps []compStats, labels []int, outside []bool, w, h int) {
	for y := range h {
		for x := range w {
			l := labels[y*w+x]
			if l == 0 || comps[l-1].external {
				continue
			}
			if x == 0 || y == 0 || x == w-1 || y == h-1 {
				comps[l-1].external = true
				continue
			}
			for _, d := range dirs4 {
				if outside[(y+d[1])*w+x+d[0]] {
					comps[l-1].external = true
					break
				}
			}
		}
	}
}
