package preprocess

import "image"

// reflect101 maps an out-of-range index onto [0, n) by mirroring without
// repeating the edge sample (gfedcb|abcdefgh|gfedcba).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

func replicate(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// padded returns a copy of src surrounded by r pixels of border generated by
// the index mapping fn, and the stride of the padded buffer.
func padded(src *image.Gray, r int, fn func(i, n int) int) ([]uint8, int) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	pw := w + 2*r
	ph := h + 2*r
	buf := make([]uint8, pw*ph)
	xs := make([]int, pw)
	for x := range pw {
		xs[x] = fn(x-r, w)
	}
	for y := range ph {
		sy := fn(y-r, h)
		srow := src.Pix[sy*src.Stride:]
		drow := buf[y*pw : (y+1)*pw]
		for x := range pw {
			drow[x] = srow[xs[x]]
		}
	}
	return buf, pw
}
