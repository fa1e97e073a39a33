package detector

import "sort"

// DefaultRowThresholdFraction is the vertical gap, as a fraction of the
// image height, that starts a new row of cards.
const DefaultRowThresholdFraction = 0.1

// SortReadingOrder returns the cards top-to-bottom, left-to-right. Cards are
// sorted by centre Y and split into rows wherever a card's centre lies at
// least rowFraction*imageHeight below the previous card's centre; each row
// is then sorted by centre X. Because the gap is measured against the
// previous card rather than the row's first card, a row may drift downward
// across a run of small steps. The input slice is not modified.
func SortReadingOrder(cards []DetectedCard, imageHeight int, rowFraction float64) []DetectedCard {
	if len(cards) == 0 {
		return nil
	}
	sorted := append([]DetectedCard(nil), cards...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Center.Y < sorted[j].Center.Y
	})

	threshold := float64(imageHeight) * rowFraction
	out := make([]DetectedCard, 0, len(sorted))
	rowStart := 0
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) && sorted[i].Center.Y-sorted[i-1].Center.Y < threshold {
			continue
		}
		row := sorted[rowStart:i]
		sort.SliceStable(row, func(a, b int) bool {
			return row[a].Center.X < row[b].Center.X
		})
		out = append(out, row...)
		rowStart = i
	}
	return out
}
