package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/tarot-scan/internal/manifest"
)

// Deck directory layout.
const (
	ManifestFileName = "manifest.jsonl"
	ExtractedDirName = "extracted"
	DebugDirName     = "debug"
	ScansDirName     = "scans"
)

// Deck resolves the files of one deck directory.
type Deck struct {
	Dir string
}

// ManifestPath returns <dir>/manifest.jsonl.
func (d Deck) ManifestPath() string { return filepath.Join(d.Dir, ManifestFileName) }

// Manifest opens the deck's record log.
func (d Deck) Manifest() *manifest.Log { return manifest.Open(d.ManifestPath()) }

// ExtractedDir returns the directory holding card crops.
func (d Deck) ExtractedDir() string { return filepath.Join(d.Dir, ExtractedDirName) }

// CropFile returns the crop path relative to the deck, as stored in the manifest.
func (d Deck) CropFile(cropID string) string {
	return ExtractedDirName + "/" + cropID + ".png"
}

// CropPath returns the absolute location of a crop.
func (d Deck) CropPath(cropID string) string {
	return filepath.Join(d.Dir, filepath.FromSlash(d.CropFile(cropID)))
}

// DebugPath returns the annotated image path for a scan.
func (d Deck) DebugPath(scanID string) string {
	return filepath.Join(d.Dir, DebugDirName, scanID+"_annotated.png")
}

// ScanFile returns the path a scan is recorded under: relative to the deck
// when the scan lives inside it, absolute otherwise.
func (d Deck) ScanFile(scanPath string) string {
	abs, err := filepath.Abs(scanPath)
	if err != nil {
		return scanPath
	}
	deckAbs, err := filepath.Abs(d.Dir)
	if err != nil {
		return abs
	}
	rel, err := filepath.Rel(deckAbs, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return abs
	}
	return filepath.ToSlash(rel)
}

// RegisterScan records a ScanMeta for scanPath. An empty scanID is
// allocated from the manifest.
func (d Deck) RegisterScan(scanPath, scanID string, dpi int, device string, at time.Time) (manifest.ScanMeta, error) {
	log := d.Manifest()
	if scanID == "" {
		id, err := log.NextScanID()
		if err != nil {
			return manifest.ScanMeta{}, fmt.Errorf("allocate scan id: %w", err)
		}
		scanID = id
	}
	meta := manifest.ScanMeta{
		ScanID:    scanID,
		File:      d.ScanFile(scanPath),
		Timestamp: manifest.NewTimestamp(at),
		DPI:       dpi,
		Device:    device,
	}
	if err := log.Append(meta); err != nil {
		return manifest.ScanMeta{}, fmt.Errorf("record scan %s: %w", scanID, err)
	}
	return meta, nil
}
