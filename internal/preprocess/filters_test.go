package preprocess

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReflect101(t *testing.T) {
	n := 5
	want := map[int]int{-3: 3, -2: 2, -1: 1, 0: 0, 4: 4, 5: 3, 6: 2, 7: 1}
	for in, out := range want {
		assert.Equal(t, out, reflect101(in, n), "index %d", in)
	}
	assert.Equal(t, 0, reflect101(-4, 1))
	// repeated mirroring on tiny images stays in range
	v := reflect101(-9, 3)
	assert.True(t, v >= 0 && v < 3)
}

func TestReplicate(t *testing.T) {
	assert.Equal(t, 0, replicate(-2, 4))
	assert.Equal(t, 3, replicate(9, 4))
	assert.Equal(t, 2, replicate(2, 4))
}

func TestBilateral_UniformUnchanged(t *testing.T) {
	src := uniform(20, 15, 97)
	out := Bilateral(src, 11, 75, 75)
	for _, v := range out.Pix {
		require.Equal(t, uint8(97), v)
	}
}

func TestBilateral_PreservesStrongStep(t *testing.T) {
	src := stepImage(40, 10, 20, 30, 220)
	out := Bilateral(src, 11, 75, 75)

	// far from the step nothing changes
	assert.Equal(t, uint8(30), out.GrayAt(2, 5).Y)
	assert.Equal(t, uint8(220), out.GrayAt(37, 5).Y)
	// near the step the edge survives with most of its contrast
	assert.Less(t, int(out.GrayAt(19, 5).Y), 80)
	assert.Greater(t, int(out.GrayAt(20, 5).Y), 170)
}

func TestBilateral_SmoothsSmallNoise(t *testing.T) {
	src := uniform(15, 15, 100)
	src.SetGray(7, 7, color.Gray{Y: 120})
	out := Bilateral(src, 11, 75, 75)
	assert.Less(t, int(out.GrayAt(7, 7).Y), 120)
	assert.GreaterOrEqual(t, int(out.GrayAt(7, 7).Y), 100)
}

func TestBilateral_ZeroRadiusCopies(t *testing.T) {
	src := stepImage(6, 3, 3, 0, 200)
	out := Bilateral(src, 1, 75, 75)
	assert.Equal(t, src.Pix, out.Pix)
}

func TestCanny_VerticalStepThinsToOnePixel(t *testing.T) {
	src := stepImage(30, 20, 15, 30, 220)
	edges := Canny(src, 30, 100)

	for y := range 20 {
		row := 0
		for x := range 30 {
			if edges.GrayAt(x, y).Y == 255 {
				row++
				assert.Equal(t, 14, x, "edge sits on the dark side of the step")
			}
		}
		assert.Equal(t, 1, row, "row %d", y)
	}
}

func TestCanny_HorizontalStep(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 20, 30))
	for y := 10; y < 30; y++ {
		for x := range 20 {
			src.SetGray(x, y, color.Gray{Y: 200})
		}
	}
	edges := Canny(src, 30, 100)
	for x := range 20 {
		assert.Equal(t, uint8(255), edges.GrayAt(x, 9).Y)
		assert.Zero(t, edges.GrayAt(x, 10).Y)
	}
}

func TestCanny_WeakStepBelowHighIsDropped(t *testing.T) {
	// a step of 10 levels gives an L1 magnitude of 40: above low, below high
	src := stepImage(20, 10, 10, 100, 110)
	edges := Canny(src, 30, 100)
	assert.Zero(t, countNonZero(edges))

	// lowering the high threshold promotes the same pixels
	edges = Canny(src, 30, 35)
	assert.Positive(t, countNonZero(edges))
}

func TestCanny_HysteresisFollowsWeakChain(t *testing.T) {
	// left half strong step, right half weak step on the same column
	src := image.NewGray(image.Rect(0, 0, 20, 20))
	for y := range 20 {
		hi := uint8(200)
		if y >= 10 {
			hi = 112
		}
		for x := range 20 {
			v := uint8(100)
			if x >= 10 {
				v = hi
			}
			src.SetGray(x, y, color.Gray{Y: v})
		}
	}
	edges := Canny(src, 30, 100)
	// weak section connected to the strong one is kept
	assert.Equal(t, uint8(255), edges.GrayAt(9, 15).Y)
}

func TestDilate(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 11, 11))
	src.SetGray(5, 5, color.Gray{Y: 255})

	once := Dilate(src, 3, 1)
	assert.Equal(t, 9, countNonZero(once))

	twice := Dilate(src, 3, 2)
	assert.Equal(t, 25, countNonZero(twice))
	assert.Equal(t, uint8(255), twice.GrayAt(3, 3).Y)
	assert.Equal(t, uint8(255), twice.GrayAt(7, 7).Y)
	assert.Zero(t, twice.GrayAt(2, 5).Y)

	// source untouched
	assert.Equal(t, 1, countNonZero(src))
}

func TestDilate_BorderDoesNotGrowInward(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 8, 8))
	out := Dilate(src, 3, 2)
	assert.Zero(t, countNonZero(out))

	src.SetGray(0, 0, color.Gray{Y: 255})
	out = Dilate(src, 3, 2)
	assert.Equal(t, 9, countNonZero(out))
}

func TestDilate_NoOpParameters(t *testing.T) {
	src := stepImage(5, 5, 2, 0, 255)
	assert.Equal(t, src.Pix, Dilate(src, 1, 3).Pix)
	assert.Equal(t, src.Pix, Dilate(src, 3, 0).Pix)
}
