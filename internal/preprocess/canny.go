package preprocess

import (
	"image"
	"math"
)

const (
	edgeNone   = 0
	edgeWeak   = 1
	edgeStrong = 2

	// tan(22.5°) in Q15 fixed point.
	tg22   = 13573
	qShift = 15
)

// Canny runs a Canny edge detector with a 3x3 Sobel operator and L1
// gradient magnitude. Pixels above high seed edges; pixels above low join
// when 8-connected to a seed. The result holds 255 for edges and 0 elsewhere.
func Canny(src *image.Gray, low, high float64) *image.Gray {
	src = zeroOrigin(src)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}
	if low > high {
		low, high = high, low
	}
	lo := int(math.Floor(low))
	hi := int(math.Floor(high))

	dx, dy := sobel(src)
	mag := make([]int, w*h)
	for i := range mag {
		mag[i] = absInt(dx[i]) + absInt(dy[i])
	}

	magAt := func(x, y int) int {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		return mag[y*w+x]
	}

	state := make([]uint8, w*h)
	stack := make([]int, 0, 1024)

	for y := range h {
		for x := range w {
			i := y*w + x
			m := mag[i]
			if m <= lo {
				continue
			}
			if !isLocalMax(m, dx[i], dy[i], x, y, magAt) {
				continue
			}
			if m > hi {
				state[i] = edgeStrong
				stack = append(stack, i)
			} else {
				state[i] = edgeWeak
			}
		}
	}

	// hysteresis: grow strong edges through 8-connected weak pixels
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out.Pix[(i/w)*out.Stride+i%w] = 255
		cx, cy := i%w, i/w
		for ny := cy - 1; ny <= cy+1; ny++ {
			for nx := cx - 1; nx <= cx+1; nx++ {
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if state[j] == edgeWeak {
					state[j] = edgeStrong
					stack = append(stack, j)
				}
			}
		}
	}
	return out
}

// isLocalMax applies non-maximum suppression along the quantised gradient
// direction. Along the axes a tie keeps the pixel nearer the origin, so a
// two-pixel plateau thins to one pixel; diagonal ties are suppressed.
func isLocalMax(m, gx, gy, x, y int, magAt func(x, y int) int) bool {
	ax := absInt(gx)
	ay := absInt(gy) << qShift
	tg22x := ax * tg22

	if ay < tg22x {
		return m > magAt(x-1, y) && m >= magAt(x+1, y)
	}
	tg67x := tg22x + (ax << (qShift + 1))
	if ay > tg67x {
		return m > magAt(x, y-1) && m >= magAt(x, y+1)
	}
	s := 1
	if (gx < 0) != (gy < 0) {
		s = -1
	}
	return m > magAt(x-s, y-1) && m > magAt(x+s, y+1)
}

// sobel computes 3x3 Sobel derivatives with replicated borders.
func sobel(src *image.Gray) ([]int, []int) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	buf, stride := padded(src, 1, replicate)
	dx := make([]int, w*h)
	dy := make([]int, w*h)
	for y := range h {
		up := buf[y*stride:]
		mid := buf[(y+1)*stride:]
		down := buf[(y+2)*stride:]
		for x := range w {
			l, c, r := x, x+1, x+2
			gx := (int(up[r]) + 2*int(mid[r]) + int(down[r])) -
				(int(up[l]) + 2*int(mid[l]) + int(down[l]))
			gy := (int(down[l]) + 2*int(down[c]) + int(down[r])) -
				(int(up[l]) + 2*int(up[c]) + int(up[r]))
			dx[y*w+x] = gx
			dy[y*w+x] = gy
		}
	}
	return dx, dy
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
