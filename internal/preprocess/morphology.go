package preprocess

import "image"

// Dilate applies a square max filter of size kernel the given number of
// times. Pixels outside the image never contribute, so the border does not
// grow edges inward.
func Dilate(src *image.Gray, kernel, iterations int) *image.Gray {
	src = zeroOrigin(src)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		copy(out.Pix[y*out.Stride:y*out.Stride+w], src.Pix[y*src.Stride:])
	}
	if kernel <= 1 || iterations <= 0 || w == 0 || h == 0 {
		return out
	}

	r := kernel / 2
	tmp := make([]uint8, w*h)
	for range iterations {
		dilateRows(out.Pix, tmp, w, h, out.Stride, r)
		dilateCols(tmp, out.Pix, w, h, out.Stride, r)
	}
	return out
}

// dilateRows writes the horizontal running max of src (stride s) into dst (stride w).
func dilateRows(src, dst []uint8, w, h, s, r int) {
	for y := range h {
		row := src[y*s:]
		for x := range w {
			var m uint8
			for k := max(0, x-r); k <= min(w-1, x+r); k++ {
				if row[k] > m {
					m = row[k]
				}
			}
			dst[y*w+x] = m
		}
	}
}

// dilateCols writes the vertical running max of src (stride w) into dst (stride s).
func dilateCols(src, dst []uint8, w, h, s, r int) {
	for y := range h {
		lo, hi := max(0, y-r), min(h-1, y+r)
		for x := range w {
			var m uint8
			for k := lo; k <= hi; k++ {
				if v := src[k*w+x]; v > m {
					m = v
				}
			}
			dst[y*s+x] = m
		}
	}
}
