package preprocess

import (
	"image"
	"math"
)

// Bilateral applies an edge-preserving bilateral filter. The neighbourhood is
// a disc of the given diameter (derived from sigmaSpace when diameter <= 0);
// borders are mirrored without repeating the edge pixel.
func Bilateral(src *image.Gray, diameter int, sigmaColor, sigmaSpace float64) *image.Gray {
	src = zeroOrigin(src)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}
	if sigmaColor <= 0 {
		sigmaColor = 1
	}
	if sigmaSpace <= 0 {
		sigmaSpace = 1
	}

	radius := diameter / 2
	if diameter <= 0 {
		radius = int(math.Round(sigmaSpace * 1.5))
	}
	if radius < 1 {
		copy(out.Pix, src.Pix)
		return out
	}

	colorCoeff := -0.5 / (sigmaColor * sigmaColor)
	spaceCoeff := -0.5 / (sigmaSpace * sigmaSpace)

	var colorWeight [256]float64
	for d := range colorWeight {
		colorWeight[d] = math.Exp(float64(d*d) * colorCoeff)
	}

	buf, stride := padded(src, radius, reflect101)

	// disc-shaped window: offsets into the padded buffer and their spatial weights
	offsets := make([]int, 0, (2*radius+1)*(2*radius+1))
	spaceWeight := make([]float64, 0, cap(offsets))
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			r := math.Sqrt(float64(dx*dx + dy*dy))
			if r > float64(radius) {
				continue
			}
			offsets = append(offsets, dy*stride+dx)
			spaceWeight = append(spaceWeight, math.Exp(r*r*spaceCoeff))
		}
	}

	for y := range h {
		dst := out.Pix[y*out.Stride:]
		for x := range w {
			center := (y+radius)*stride + x + radius
			v0 := int(buf[center])
			sum, wsum := 0.0, 0.0
			for k, off := range offsets {
				v := int(buf[center+off])
				d := v - v0
				if d < 0 {
					d = -d
				}
				wt := spaceWeight[k] * colorWeight[d]
				sum += wt * float64(v)
				wsum += wt
			}
			dst[x] = uint8(math.Round(sum / wsum))
		}
	}
	return out
}

func zeroOrigin(g *image.Gray) *image.Gray {
	if g.Rect.Min == (image.Point{}) {
		return g
	}
	return Grayscale(g)
}
