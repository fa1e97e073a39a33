package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"strconv"

	"github.com/MeKo-Tech/tarot-scan/internal/detector"
	"github.com/MeKo-Tech/tarot-scan/internal/utils"
	"github.com/lucasb-eyer/go-colorful"
)

// DebugAnnotator draws detected card geometry over a copy of the scan.
type DebugAnnotator struct {
	Outline color.RGBA
	Corner  color.RGBA
	Index   color.RGBA
	Label   color.RGBA

	OutlineThickness int
	CornerRadius     int
	LabelScale       int
}

// NewDebugAnnotator parses the configured colours.
func NewDebugAnnotator(colors DebugColors) (*DebugAnnotator, error) {
	parsed := make([]color.RGBA, 0, 4)
	for _, hex := range []string{colors.Outline, colors.Corner, colors.Index, colors.Label} {
		c, err := parseHexColor(hex)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, c)
	}
	return &DebugAnnotator{
		Outline:          parsed[0],
		Corner:           parsed[1],
		Index:            parsed[2],
		Label:            parsed[3],
		OutlineThickness: 3,
		CornerRadius:     10,
		LabelScale:       2,
	}, nil
}

func parseHexColor(hex string) (color.RGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("parse colour %q: %w", hex, err)
	}
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// Render returns an annotated copy of img: each card outline, its ordered
// corners numbered 0-3 and a "Card N" label near its centre, numbered in
// the order given.
func (a *DebugAnnotator) Render(img image.Image, cards []detector.DetectedCard) *image.RGBA {
	if img == nil {
		return nil
	}
	dst := utils.CloneRGBA(img)
	for i, card := range cards {
		utils.DrawPolygon(dst, card.Boundary, a.Outline, a.OutlineThickness)

		for j, corner := range card.Corners {
			p := corner.Round()
			utils.FillCircle(dst, p, a.CornerRadius, a.Corner)
			utils.DrawLabel(dst, p.Add(image.Pt(5, 5)), strconv.Itoa(j), a.Index, 1)
		}

		c := card.Center.Round()
		utils.DrawLabel(dst, image.Pt(c.X-40, c.Y), fmt.Sprintf("Card %d", i+1), a.Label, a.LabelScale)
	}
	return dst
}

// DebugSink stores annotated debug images.
type DebugSink interface {
	WriteDebug(path string, img image.Image) error
}

// FileDebugSink writes debug images to disk in the format implied by the
// path extension.
type FileDebugSink struct{}

// WriteDebug saves img at path, creating parent directories.
func (FileDebugSink) WriteDebug(path string, img image.Image) error {
	return utils.SaveImage(path, img)
}
