package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/tarot-scan/internal/detector"
	"github.com/MeKo-Tech/tarot-scan/internal/utils"
)

// ErrNoCardFound is returned by ExtractSingle when no candidate survives filtering.
var ErrNoCardFound = errors.New("no card found")

// ExtractSingle crops the largest card from an image holding a single card
// and writes it to <outDir>/<stem>_crop.png. Nothing is recorded in a
// manifest. With Debug set, <stem>_debug.png is written even when no card
// is found. Use SingleCardConfig for the usual area bounds.
func (e *Extractor) ExtractSingle(ctx context.Context, path, outDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	img, err := e.loadImage(ScanRequest{ScanPath: path})
	if err != nil {
		return "", err
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	det := e.detector.Detect(img)
	e.metrics.observeDetection(det)

	if e.annotator != nil {
		debugPath := filepath.Join(outDir, stem+"_debug.png")
		if err := e.debugSink.WriteDebug(debugPath, e.annotator.Render(img, det.Cards)); err != nil {
			e.logger.Warn("debug image not written", "path", debugPath, "error", err)
		}
	}

	card, ok := detector.Largest(det.Cards)
	if !ok {
		return "", fmt.Errorf("%s: %w", path, ErrNoCardFound)
	}
	warped, err := e.rectifier.Rectify(img, card.Corners)
	if err != nil {
		return "", fmt.Errorf("rectify %s: %w", path, err)
	}

	out := filepath.Join(outDir, stem+"_crop.png")
	if err := utils.SaveImage(out, warped); err != nil {
		return "", fmt.Errorf("save crop: %w", err)
	}
	e.logger.Debug("single card extracted", "input", path, "output", out, "area", card.Area)
	return out, nil
}
