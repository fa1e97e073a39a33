package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/tarot-scan/internal/manifest"
)

// ResultSummary is the serialisable view of an ExtractionResult.
type ResultSummary struct {
	RunID      string                  `json:"run_id"`
	ScanID     string                  `json:"scan_id"`
	Detected   int                     `json:"detected"`
	Skipped    int                     `json:"skipped"`
	DebugPath  string                  `json:"debug_path,omitempty"`
	DurationMs int64                   `json:"duration_ms"`
	Crops      []manifest.CardCropMeta `json:"crops"`
}

// Summary flattens r for output.
func (r *ExtractionResult) Summary() ResultSummary {
	s := ResultSummary{
		RunID:      r.RunID,
		ScanID:     r.ScanID,
		Detected:   r.Detected,
		Skipped:    r.Skipped,
		DebugPath:  r.DebugPath,
		DurationMs: r.Duration.Milliseconds(),
		Crops:      make([]manifest.CardCropMeta, len(r.Cards)),
	}
	for i, c := range r.Cards {
		s.Crops[i] = c.Meta
	}
	return s
}

// ToJSON serializes an extraction result to pretty JSON.
func ToJSON(res *ExtractionResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	b, err := json.MarshalIndent(res.Summary(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToPlainText lists one "crop_id<TAB>file" line per crop in reading order.
func ToPlainText(res *ExtractionResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	lines := make([]string, 0, len(res.Cards))
	for _, c := range res.Cards {
		lines = append(lines, c.Meta.CropID+"\t"+c.Meta.File)
	}
	return strings.Join(lines, "\n"), nil
}

// ToCSV exports crop records as CSV with header.
func ToCSV(crops []manifest.CardCropMeta) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"crop_id", "file", "source_scan_id", "x", "y", "w", "h", "corners"})
	for _, c := range crops {
		pts := make([]string, len(c.Corners))
		for i, p := range c.Corners {
			pts[i] = fmt.Sprintf("%d:%d", p[0], p[1])
		}
		_ = w.Write([]string{
			c.CropID,
			c.File,
			c.SourceScanID,
			strconv.Itoa(c.BBox[0]),
			strconv.Itoa(c.BBox[1]),
			strconv.Itoa(c.BBox[2]),
			strconv.Itoa(c.BBox[3]),
			strings.Join(pts, " "),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ValidateResult checks that every crop lies inside an image of the given size.
func ValidateResult(res *ExtractionResult, imageWidth, imageHeight int) error {
	if res == nil {
		return errors.New("nil result")
	}
	if imageWidth <= 0 || imageHeight <= 0 {
		return fmt.Errorf("invalid image size %dx%d", imageWidth, imageHeight)
	}
	for i, c := range res.Cards {
		for j, p := range c.Card.Corners {
			if p.X < -1 || p.Y < -1 || p.X > float64(imageWidth) || p.Y > float64(imageHeight) {
				return fmt.Errorf("card %d corner %d (%.1f, %.1f) outside %dx%d", i, j, p.X, p.Y, imageWidth, imageHeight)
			}
		}
		if c.Meta.SourceScanID != res.ScanID {
			return fmt.Errorf("card %d belongs to scan %q, want %q", i, c.Meta.SourceScanID, res.ScanID)
		}
	}
	return nil
}
