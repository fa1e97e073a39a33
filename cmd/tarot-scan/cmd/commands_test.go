package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MeKo-Tech/tarot-scan/internal/batch"
	"github.com/MeKo-Tech/tarot-scan/internal/manifest"
	"github.com/MeKo-Tech/tarot-scan/internal/pipeline"
	"github.com/MeKo-Tech/tarot-scan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writePairScan writes a scan with two cards side by side.
func writePairScan(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, testutil.WriteScanPNG(path, testutil.GridScan(1, 2, 100, 170, 40, 60)))
}

func deckLog(dir, deck string) *manifest.Log {
	return pipeline.Deck{Dir: filepath.Join(dir, "decks", deck)}.Manifest()
}

func TestDetectCommand(t *testing.T) {
	dir := isolate(t)
	writePairScan(t, filepath.Join(dir, "scan.png"))

	stdout, stderr, err := execute(t, "detect", "scan.png", "--register-scan", "--device", "epson:001")
	require.NoError(t, err)

	assert.Equal(t, "card_0001\textracted/card_0001.png\ncard_0002\textracted/card_0002.png\n", stdout)
	assert.Contains(t, stderr, "Loading scan: scan.png")
	assert.Contains(t, stderr, "Found 2 cards")
	assert.Contains(t, stderr, "Extracted 2 cards")

	log := deckLog(dir, "default")
	scans, err := log.Scans()
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, "scan_0001", scans[0].ScanID)
	assert.Equal(t, 600, scans[0].DPI)
	assert.Equal(t, "epson:001", scans[0].Device)

	crops, err := log.CropsForScan("scan_0001")
	require.NoError(t, err)
	assert.Len(t, crops, 2)
	assert.FileExists(t, filepath.Join(dir, "decks", "default", "extracted", "card_0002.png"))
}

func TestDetectCommand_JSONWithFlags(t *testing.T) {
	dir := isolate(t)
	writePairScan(t, filepath.Join(dir, "scan.png"))

	stdout, _, err := execute(t, "--deck", "rws", "detect", "scan.png",
		"--format", "json", "--scan-id", "scan_0042", "--height", "0", "--debug")
	require.NoError(t, err)

	var summary pipeline.ResultSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, "scan_0042", summary.ScanID)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.Detected)
	require.Len(t, summary.Crops, 2)
	assert.Equal(t, "scan_0042", summary.Crops[1].SourceScanID)

	deckDir := filepath.Join(dir, "decks", "rws")
	assert.FileExists(t, filepath.Join(deckDir, "debug", "scan_0042_annotated.png"))
	crop := testutil.LoadImage(t, filepath.Join(deckDir, "extracted", "card_0001.png"))
	assert.InDelta(t, 170, crop.Bounds().Dy(), 8)
}

func TestDetectCommand_ConfigFileAndEnv(t *testing.T) {
	dir := isolate(t)
	writePairScan(t, filepath.Join(dir, "scan.png"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tarot-scan.yaml"),
		[]byte("decks_dir: library\ndeck: thoth\noutput:\n  format: csv\n"), 0o600))
	t.Setenv("TAROT_DECK", "marseille")

	stdout, _, err := execute(t, "detect", "scan.png")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "crop_id,file,source_scan_id,x,y,w,h,corners", lines[0])
	assert.FileExists(t, filepath.Join(dir, "library", "marseille", pipeline.ManifestFileName))
}

func TestDetectCommand_VerboseLogsEvents(t *testing.T) {
	dir := isolate(t)
	writePairScan(t, filepath.Join(dir, "scan.png"))

	_, stderr, err := execute(t, "--verbose", "detect", "scan.png")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"Detecting cards..."`)
	assert.Contains(t, stderr, `"run_id":`)
}

func TestDetectCommand_MetricsTextfile(t *testing.T) {
	dir := isolate(t)
	writePairScan(t, filepath.Join(dir, "scan.png"))

	_, _, err := execute(t, "--metrics-textfile", "tarot.prom", "detect", "scan.png")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "tarot.prom")) //nolint:gosec // G304: test temp file
	require.NoError(t, err)
	assert.Contains(t, string(data), "tarot_scan_crops_extracted_total 2")
}

func TestDetectCommand_Errors(t *testing.T) {
	dir := isolate(t)

	_, _, err := execute(t, "detect", "missing.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan not found")

	_, _, err = execute(t, "detect")
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0o600))
	_, _, err = execute(t, "detect", "broken.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction failed")
	assert.NoFileExists(t, filepath.Join(dir, "decks", "default", pipeline.ManifestFileName))

	_, _, err = execute(t, "detect", "broken.png", "--min-area", "0.9", "--max-area", "0.1")
	require.Error(t, err)
}

func TestDetectSingleCommand(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, testutil.WriteScanPNG(filepath.Join(dir, "star.png"), testutil.ScanSpec{
		Width: 180, Height: 280, Cards: []testutil.CardSpec{{X: 30, Y: 40, W: 120, H: 200, Caption: "XVII"}},
	}))

	stdout, _, err := execute(t, "detect-single", "star.png", "--outdir", "out", "--debug")
	require.NoError(t, err)

	out := filepath.Join("out", "star_crop.png")
	assert.Equal(t, out+"\n", stdout)
	crop := testutil.LoadImage(t, filepath.Join(dir, out))
	assert.Equal(t, 1024, crop.Bounds().Dy())
	assert.FileExists(t, filepath.Join(dir, "out", "star_debug.png"))
	assert.NoDirExists(t, filepath.Join(dir, "decks"))
}

func TestDetectSingleCommand_NoCard(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, testutil.WriteScanPNG(filepath.Join(dir, "blank.png"), testutil.ScanSpec{Width: 200, Height: 200}))

	_, stderr, err := execute(t, "detect-single", "blank.png")
	require.ErrorIs(t, err, pipeline.ErrNoCardFound)
	assert.Contains(t, stderr, "No card found in blank.png")
}

func TestBatchCommand(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, testutil.WriteScanPNG(filepath.Join(dir, "scans", "scan_1.png"), testutil.GridScan(1, 1, 100, 170, 40, 60)))
	writePairScan(t, filepath.Join(dir, "scans", "scan_2.png"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scans", "notes.txt"), []byte("x"), 0o600))

	stdout, stderr, err := execute(t, "batch", "scans", "--register-scans", "--format", "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[3], filepath.Join("scans", "scan_2.png")+",scan_0002,2,card_0003,"))
	assert.Contains(t, stderr, "[1/2] "+filepath.Join("scans", "scan_1.png"))
	assert.Contains(t, stderr, "Cards extracted: 3")

	scans, err := deckLog(dir, "default").Scans()
	require.NoError(t, err)
	assert.Len(t, scans, 2)
}

func TestBatchCommand_ReportFile(t *testing.T) {
	dir := isolate(t)
	writePairScan(t, filepath.Join(dir, "scans", "a.png"))

	stdout, _, err := execute(t, "batch", "scans", "--format", "json", "-o", "report.json")
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(filepath.Join(dir, "report.json")) //nolint:gosec // G304: test temp file
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scan_id": "scan_0001"`)
}

func TestBatchCommand_NoScans(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "empty"), 0o750))

	_, stderr, err := execute(t, "batch", "empty")
	require.ErrorIs(t, err, batch.ErrNoScans)
	assert.Contains(t, stderr, "No scan images found")
}

func TestCropsCommand(t *testing.T) {
	dir := isolate(t)
	writePairScan(t, filepath.Join(dir, "scan.png"))
	_, _, err := execute(t, "detect", "scan.png")
	require.NoError(t, err)

	stdout, _, err := execute(t, "crops")
	require.NoError(t, err)
	assert.Contains(t, stdout, "CROP")
	assert.Contains(t, stdout, "card_0001")
	assert.Contains(t, stdout, "extracted/card_0002.png")

	require.NoError(t, deckLog(dir, "default").Append(manifest.ClassRecord{
		CropID:    "card_0001",
		Model:     "vision-model",
		Timestamp: manifest.NewTimestamp(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)),
		Result: manifest.CardClassification{
			CardName:    "The Fool",
			Arcana:      manifest.ArcanaMajor,
			Orientation: manifest.OrientationUpright,
			Confidence:  0.9,
		},
	}))

	stdout, _, err = execute(t, "crops", "--pending", "--format", "json")
	require.NoError(t, err)
	var pending []manifest.CardCropMeta
	require.NoError(t, json.Unmarshal([]byte(stdout), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, "card_0002", pending[0].CropID)

	stdout, _, err = execute(t, "crops", "--scan", "scan_0009", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", stdout)
}

func TestCropsCommand_EmptyDeck(t *testing.T) {
	isolate(t)
	stdout, stderr, err := execute(t, "crops")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "No crops")
}

func TestConfigCommands(t *testing.T) {
	dir := isolate(t)

	stdout, _, err := execute(t, "--deck", "rws", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "deck: rws")
	assert.Contains(t, stdout, "decks_dir: ./decks")
	assert.Contains(t, stdout, "target_height: 1024")

	_, _, err = execute(t, "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "tarot-scan.yaml"))

	_, _, err = execute(t, "config", "init")
	require.Error(t, err)

	stdout, _, err = execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# config file: ")
}
