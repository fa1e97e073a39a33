package pipeline

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/tarot-scan/internal/manifest"
	"github.com/MeKo-Tech/tarot-scan/internal/testutil"
	"github.com/MeKo-Tech/tarot-scan/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	paths []string
	err   error
}

func (s *recordingSink) WriteDebug(path string, _ image.Image) error {
	s.paths = append(s.paths, path)
	return s.err
}

func recordEvents(events *[]Event) Observer {
	return ObserverFunc(func(e Event) { *events = append(*events, e) })
}

func newTestExtractor(t *testing.T, cfg Config, opts ...ExtractorOption) *Extractor {
	t.Helper()
	e, err := NewExtractor(cfg, opts...)
	require.NoError(t, err)
	return e
}

func singleCardScan() testutil.ScanSpec {
	return testutil.ScanSpec{Width: 400, Height: 300, Cards: []testutil.CardSpec{
		{X: 140, Y: 50, W: 120, H: 200, Caption: "0"},
	}}
}

func TestNewExtractor_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetCropHeight = -1
	_, err := NewExtractor(cfg)
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.Debug = true
	cfg.DebugColors.Outline = "green"
	_, err = NewExtractor(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outline")
}

func TestExtract_GridInReadingOrder(t *testing.T) {
	deck := t.TempDir()
	spec := testutil.GridScan(2, 3, 100, 170, 40, 60)
	e := newTestExtractor(t, DefaultConfig())

	res, err := e.Extract(context.Background(), ScanRequest{
		Image:   testutil.GenerateScan(spec),
		ScanID:  "scan_0007",
		DeckDir: deck,
	})
	require.NoError(t, err)

	require.Len(t, res.Cards, 6)
	assert.Equal(t, 6, res.Detected)
	assert.Zero(t, res.Skipped)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "scan_0007", res.ScanID)
	assert.Equal(t, []string{
		"card_0001", "card_0002", "card_0003", "card_0004", "card_0005", "card_0006",
	}, res.CropIDs())

	for i, c := range res.Cards {
		want := spec.Cards[i]
		assert.InDelta(t, float64(want.X)+float64(want.W)/2, c.Card.Center.X, 2, "card %d", i)
		assert.InDelta(t, float64(want.Y)+float64(want.H)/2, c.Card.Center.Y, 2, "card %d", i)

		assert.Equal(t, "extracted/"+c.Meta.CropID+".png", c.Meta.File)
		assert.Equal(t, "scan_0007", c.Meta.SourceScanID)
		assert.Equal(t, c.Card.BBox.Array(), c.Meta.BBox)
		assert.Equal(t, 1024, c.Image.Bounds().Dy())
		assert.InDelta(t, 105.0/175.0, float64(c.Image.Bounds().Dx())/1024, 0.03)

		saved := testutil.LoadImage(t, filepath.Join(deck, filepath.FromSlash(c.Meta.File)))
		assert.Equal(t, c.Image.Bounds().Size(), saved.Bounds().Size())
	}

	crops, err := manifest.Open(filepath.Join(deck, ManifestFileName)).Crops()
	require.NoError(t, err)
	require.Len(t, crops, 6)
	for i, c := range crops {
		assert.Equal(t, res.Cards[i].Meta, c)
	}
}

func TestExtract_ContinuesCropNumbering(t *testing.T) {
	deck := t.TempDir()
	log := manifest.Open(filepath.Join(deck, ManifestFileName))
	require.NoError(t, log.Append(manifest.CardCropMeta{CropID: "card_0004", File: "extracted/card_0004.png", SourceScanID: "scan_0001"}))

	res, err := newTestExtractor(t, DefaultConfig()).Extract(context.Background(), ScanRequest{
		Image:   testutil.GenerateScan(singleCardScan()),
		ScanID:  "scan_0002",
		DeckDir: deck,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"card_0005"}, res.CropIDs())
}

func TestExtract_AllocatesScanID(t *testing.T) {
	deck := t.TempDir()
	log := manifest.Open(filepath.Join(deck, ManifestFileName))
	require.NoError(t, log.Append(manifest.ScanMeta{ScanID: "scan_0003", File: "scans/a.png"}))

	res, err := newTestExtractor(t, DefaultConfig()).Extract(context.Background(), ScanRequest{
		Image:   testutil.GenerateScan(singleCardScan()),
		DeckDir: deck,
	})
	require.NoError(t, err)
	assert.Equal(t, "scan_0004", res.ScanID)
	require.Len(t, res.Cards, 1)
	assert.Equal(t, "scan_0004", res.Cards[0].Meta.SourceScanID)
}

func TestExtract_FromFile(t *testing.T) {
	deck := t.TempDir()
	scan := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, testutil.WriteScanPNG(scan, singleCardScan()))

	var events []Event
	e := newTestExtractor(t, DefaultConfig(), WithObserver(recordEvents(&events)))
	res, err := e.Extract(context.Background(), ScanRequest{ScanPath: scan, ScanID: "scan_0001", DeckDir: deck})
	require.NoError(t, err)
	require.Len(t, res.Cards, 1)

	stages := make([]Stage, len(events))
	for i, ev := range events {
		stages[i] = ev.Stage
		assert.Equal(t, res.RunID, ev.RunID)
		assert.Equal(t, "scan_0001", ev.ScanID)
	}
	assert.Equal(t, []Stage{
		StageLoading, StageDetecting, StageCandidatesFound, StageExtracting, StageCardExtracted, StageCompleted,
	}, stages)
	assert.Equal(t, "Loading scan: scan.png", events[0].Message())
	assert.Equal(t, "Found 1 cards", events[2].Message())
	assert.Equal(t, "Extracting card 1/1", events[3].Message())
	assert.Equal(t, "Saved card_0001", events[4].Message())
	assert.Equal(t, "Extracted 1 cards", events[5].Message())
}

func TestExtract_BlankScanPersistsNothing(t *testing.T) {
	deck := t.TempDir()
	res, err := newTestExtractor(t, DefaultConfig()).Extract(context.Background(), ScanRequest{
		Image:   testutil.GenerateScan(testutil.ScanSpec{Width: 300, Height: 200}),
		ScanID:  "scan_0001",
		DeckDir: deck,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Cards)
	assert.Zero(t, res.Detected)
	assert.NoFileExists(t, filepath.Join(deck, ManifestFileName))
}

func TestExtract_UnreadableScan(t *testing.T) {
	deck := t.TempDir()
	bad := filepath.Join(t.TempDir(), "broken.png")
	require.NoError(t, os.WriteFile(bad, []byte("not a png"), 0o600))

	for _, path := range []string{bad, filepath.Join(deck, "missing.png")} {
		_, err := newTestExtractor(t, DefaultConfig()).Extract(context.Background(), ScanRequest{
			ScanPath: path,
			ScanID:   "scan_0001",
			DeckDir:  deck,
		})
		require.Error(t, err, path)
		var ipe *utils.ImageProcessingError
		assert.True(t, errors.As(err, &ipe), path)
	}
	assert.NoFileExists(t, filepath.Join(deck, ManifestFileName))
	assert.NoDirExists(t, filepath.Join(deck, ExtractedDirName))
}

func TestExtract_CancelledContext(t *testing.T) {
	deck := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestExtractor(t, DefaultConfig()).Extract(ctx, ScanRequest{
		Image:   testutil.GenerateScan(singleCardScan()),
		ScanID:  "scan_0001",
		DeckDir: deck,
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(deck, ManifestFileName))
}

func TestExtract_CancelBetweenCards(t *testing.T) {
	deck := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	obs := ObserverFunc(func(e Event) {
		if e.Stage == StageCardExtracted {
			cancel()
		}
	})

	res, err := newTestExtractor(t, DefaultConfig(), WithObserver(obs)).Extract(ctx, ScanRequest{
		Image:   testutil.GenerateScan(testutil.GridScan(1, 3, 100, 170, 40, 60)),
		ScanID:  "scan_0001",
		DeckDir: deck,
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, res.Cards, 1)

	crops, err := manifest.Open(filepath.Join(deck, ManifestFileName)).Crops()
	require.NoError(t, err)
	assert.Len(t, crops, 1)
}

func TestExtract_PersistenceFailure(t *testing.T) {
	// a regular file where the deck directory should be
	deck := filepath.Join(t.TempDir(), "deck")
	require.NoError(t, os.WriteFile(deck, nil, 0o600))

	m := NewMetrics()
	res, err := newTestExtractor(t, DefaultConfig(), WithMetrics(m)).Extract(context.Background(), ScanRequest{
		Image:   testutil.GenerateScan(singleCardScan()),
		ScanID:  "scan_0001",
		DeckDir: deck,
	})
	require.Error(t, err)
	assert.Empty(t, res.Cards)
}

func TestExtract_DebugImage(t *testing.T) {
	deck := t.TempDir()
	cfg := DefaultConfig()
	cfg.Debug = true
	sink := &recordingSink{}
	var events []Event

	res, err := newTestExtractor(t, cfg, WithDebugSink(sink), WithObserver(recordEvents(&events))).
		Extract(context.Background(), ScanRequest{
			Image:   testutil.GenerateScan(singleCardScan()),
			ScanID:  "scan_0009",
			DeckDir: deck,
		})
	require.NoError(t, err)

	want := filepath.Join(deck, DebugDirName, "scan_0009_annotated.png")
	assert.Equal(t, []string{want}, sink.paths)
	assert.Equal(t, want, res.DebugPath)
	require.GreaterOrEqual(t, len(events), 4)
	assert.Equal(t, StageDebugSaved, events[3].Stage)
	assert.Equal(t, "Debug image saved: scan_0009_annotated.png", events[3].Message())
}

func TestExtract_DebugFailureIsNotFatal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Debug = true
	sink := &recordingSink{err: errors.New("disk full")}
	var events []Event

	res, err := newTestExtractor(t, cfg, WithDebugSink(sink), WithObserver(recordEvents(&events))).
		Extract(context.Background(), ScanRequest{
			Image:   testutil.GenerateScan(singleCardScan()),
			ScanID:  "scan_0001",
			DeckDir: t.TempDir(),
		})
	require.NoError(t, err)
	assert.Len(t, res.Cards, 1)
	assert.Empty(t, res.DebugPath)
	for _, ev := range events {
		assert.NotEqual(t, StageDebugSaved, ev.Stage)
	}
}

func TestExtract_DebugFileWritten(t *testing.T) {
	deck := t.TempDir()
	cfg := DefaultConfig()
	cfg.Debug = true

	res, err := newTestExtractor(t, cfg).Extract(context.Background(), ScanRequest{
		Image:   testutil.GenerateScan(singleCardScan()),
		ScanID:  "scan_0001",
		DeckDir: deck,
	})
	require.NoError(t, err)

	debug := testutil.LoadImage(t, res.DebugPath)
	assert.Equal(t, image.Pt(400, 300), debug.Bounds().Size())
}

func TestDetectCards_WritesNothing(t *testing.T) {
	spec := testutil.GridScan(2, 2, 100, 170, 40, 60)
	e := newTestExtractor(t, DefaultConfig())

	cards := e.DetectCards(testutil.GenerateScan(spec))

	require.Len(t, cards, 4)
	for i, c := range cards {
		want := spec.Cards[i]
		assert.InDelta(t, float64(want.X)+float64(want.W)/2, c.Center.X, 2, "card %d", i)
	}
}
