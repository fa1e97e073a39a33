package detector

import (
	"testing"

	"github.com/MeKo-Tech/tarot-scan/internal/utils"
	"github.com/stretchr/testify/assert"
)

func cardAt(x, y float64) DetectedCard {
	return DetectedCard{Center: utils.Point{X: x, Y: y}}
}

func centres(cards []DetectedCard) []utils.Point {
	out := make([]utils.Point, len(cards))
	for i, c := range cards {
		out[i] = c.Center
	}
	return out
}

func TestSortReadingOrder_Grid(t *testing.T) {
	// two rows of two cards on an 800x1200 scan, given bottom-right first
	in := []DetectedCard{
		cardAt(500, 770),
		cardAt(200, 775),
		cardAt(500, 272),
		cardAt(200, 268),
	}

	got := SortReadingOrder(in, 1200, DefaultRowThresholdFraction)

	assert.Equal(t, []utils.Point{
		{X: 200, Y: 268}, {X: 500, Y: 272},
		{X: 200, Y: 775}, {X: 500, Y: 770},
	}, centres(got))
}

func TestSortReadingOrder_DoesNotModifyInput(t *testing.T) {
	in := []DetectedCard{cardAt(300, 500), cardAt(100, 100)}
	SortReadingOrder(in, 1000, 0.1)
	assert.Equal(t, []utils.Point{{X: 300, Y: 500}, {X: 100, Y: 100}}, centres(in))
}

func TestSortReadingOrder_ThresholdIsInclusive(t *testing.T) {
	// height 400 with fraction 0.25 gives a threshold of exactly 100
	in := []DetectedCard{cardAt(300, 100), cardAt(100, 200)}
	got := SortReadingOrder(in, 400, 0.25)
	assert.Equal(t, []utils.Point{{X: 300, Y: 100}, {X: 100, Y: 200}}, centres(got))

	in = []DetectedCard{cardAt(300, 100), cardAt(100, 199)}
	got = SortReadingOrder(in, 400, 0.25)
	assert.Equal(t, []utils.Point{{X: 100, Y: 199}, {X: 300, Y: 100}}, centres(got))
}

func TestSortReadingOrder_RowDrift(t *testing.T) {
	// each step is below the threshold, so the staircase stays one row even
	// though first and last card are far apart vertically
	in := []DetectedCard{
		cardAt(400, 0),
		cardAt(300, 90),
		cardAt(200, 180),
		cardAt(100, 270),
	}

	got := SortReadingOrder(in, 1000, 0.1)

	assert.Equal(t, []utils.Point{
		{X: 100, Y: 270}, {X: 200, Y: 180}, {X: 300, Y: 90}, {X: 400, Y: 0},
	}, centres(got))
}

func TestSortReadingOrder_StableForEqualCentres(t *testing.T) {
	a := cardAt(100, 100)
	a.Area = 1
	b := cardAt(100, 100)
	b.Area = 2

	got := SortReadingOrder([]DetectedCard{a, b}, 1000, 0.1)

	assert.Equal(t, 1.0, got[0].Area)
	assert.Equal(t, 2.0, got[1].Area)
}

func TestSortReadingOrder_Empty(t *testing.T) {
	assert.Empty(t, SortReadingOrder(nil, 100, 0.1))
}
