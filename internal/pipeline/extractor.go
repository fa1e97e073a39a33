// Package pipeline turns flatbed scans into rectified, ordered card crops
// and records them in a deck's manifest.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/tarot-scan/internal/detector"
	"github.com/MeKo-Tech/tarot-scan/internal/manifest"
	"github.com/MeKo-Tech/tarot-scan/internal/rectify"
	"github.com/MeKo-Tech/tarot-scan/internal/utils"
	"github.com/google/uuid"
)

// ScanRequest describes one scan to extract. Image takes precedence over
// ScanPath; an empty ScanID is allocated from the deck manifest.
type ScanRequest struct {
	ScanPath string
	Image    image.Image
	ScanID   string
	DeckDir  string
}

// ExtractedCard is a rectified crop together with its persisted metadata.
type ExtractedCard struct {
	Image *image.NRGBA
	Meta  manifest.CardCropMeta
	Card  detector.DetectedCard
}

// ExtractionResult summarises one Extract call. Cards are in reading order.
type ExtractionResult struct {
	RunID     string
	ScanID    string
	Cards     []ExtractedCard
	Detected  int
	Skipped   int
	DebugPath string
	Duration  time.Duration
}

// CropIDs lists the identifiers of the extracted cards in order.
func (r *ExtractionResult) CropIDs() []string {
	ids := make([]string, len(r.Cards))
	for i, c := range r.Cards {
		ids[i] = c.Meta.CropID
	}
	return ids
}

// Extractor runs detection, rectification and persistence for scans.
// It keeps no per-scan state; concurrent calls against the same deck are
// serialised only by the manifest's append lock.
type Extractor struct {
	cfg       Config
	detector  *detector.Detector
	rectifier *rectify.Rectifier
	annotator *DebugAnnotator
	debugSink DebugSink
	observer  Observer
	metrics   *Metrics
	logger    *slog.Logger
}

// ExtractorOption customises an Extractor.
type ExtractorOption func(*Extractor)

// WithObserver sets the progress observer.
func WithObserver(o Observer) ExtractorOption {
	return func(e *Extractor) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithMetrics records run metrics into m.
func WithMetrics(m *Metrics) ExtractorOption {
	return func(e *Extractor) { e.metrics = m }
}

// WithLogger sets the logger for the extractor and its detector.
func WithLogger(l *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithDebugSink replaces the file sink used for annotated images.
func WithDebugSink(s DebugSink) ExtractorOption {
	return func(e *Extractor) {
		if s != nil {
			e.debugSink = s
		}
	}
}

// NewExtractor validates cfg and builds an Extractor.
func NewExtractor(cfg Config, opts ...ExtractorOption) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	e := &Extractor{
		cfg:       cfg,
		rectifier: rectify.New(cfg.TargetCropHeight),
		debugSink: FileDebugSink{},
		observer:  NoOpObserver{},
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}

	det, err := detector.New(cfg.Detector, detector.WithLogger(e.logger))
	if err != nil {
		return nil, err
	}
	e.detector = det

	if cfg.Debug {
		ann, err := NewDebugAnnotator(cfg.DebugColors)
		if err != nil {
			return nil, err
		}
		e.annotator = ann
	}
	return e, nil
}

// Config returns the extractor configuration.
func (e *Extractor) Config() Config { return e.cfg }

// DetectCards finds cards in img and returns them in reading order without
// writing anything.
func (e *Extractor) DetectCards(img image.Image) []detector.DetectedCard {
	return e.detector.DetectInReadingOrder(img)
}

// Extract processes one scan. A load failure returns before anything is
// persisted; cards whose corners cannot be rectified are skipped. ctx is
// checked between cards, and crops written before a cancellation or a
// persistence error remain recorded in the manifest.
func (e *Extractor) Extract(ctx context.Context, req ScanRequest) (*ExtractionResult, error) {
	start := time.Now()
	res := &ExtractionResult{RunID: uuid.NewString(), ScanID: req.ScanID}
	err := e.extract(ctx, req, res)
	res.Duration = time.Since(start)
	e.metrics.observeScan(err, len(res.Cards), res.Skipped, res.Duration)
	if err != nil {
		return res, err
	}
	e.logger.Info("scan extracted",
		"run_id", res.RunID,
		"scan_id", res.ScanID,
		"detected", res.Detected,
		"extracted", len(res.Cards),
		"skipped", res.Skipped,
		"duration_ms", res.Duration.Milliseconds())
	return res, nil
}

func (e *Extractor) extract(ctx context.Context, req ScanRequest, res *ExtractionResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deck := Deck{Dir: req.DeckDir}
	log := deck.Manifest()

	e.emit(res, Event{Stage: StageLoading, Path: req.ScanPath})
	img, err := e.loadImage(req)
	if err != nil {
		return err
	}

	if res.ScanID == "" {
		id, err := log.NextScanID()
		if err != nil {
			return fmt.Errorf("allocate scan id: %w", err)
		}
		res.ScanID = id
	}

	e.emit(res, Event{Stage: StageDetecting})
	det := e.detector.Detect(img)
	e.metrics.observeDetection(det)
	res.Detected = len(det.Cards)
	e.emit(res, Event{Stage: StageCandidatesFound, Count: res.Detected})

	if e.annotator != nil {
		e.writeDebug(res, deck, img, det.Cards)
	}

	cards := e.detector.Sort(det.Cards, det.Height)
	extractStart := time.Now()
	for i, card := range cards {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev := Event{Stage: StageExtracting, Index: i + 1, Total: len(cards)}
		e.emit(res, ev)

		warped, err := e.rectifier.Rectify(img, card.Corners)
		if errors.Is(err, rectify.ErrDegenerateQuad) {
			res.Skipped++
			ev.Stage, ev.Err = StageCardSkipped, err
			e.emit(res, ev)
			continue
		}
		if err != nil {
			return fmt.Errorf("rectify card %d: %w", i+1, err)
		}

		extracted, err := e.persist(deck, log, res.ScanID, card, warped)
		if err != nil {
			return err
		}
		res.Cards = append(res.Cards, extracted)
		ev.Stage, ev.CropID, ev.Path = StageCardExtracted, extracted.Meta.CropID, extracted.Meta.File
		e.emit(res, ev)
	}
	e.metrics.observeStage("extract", time.Since(extractStart))

	e.emit(res, Event{Stage: StageCompleted, Count: len(res.Cards)})
	return nil
}

func (e *Extractor) loadImage(req ScanRequest) (image.Image, error) {
	if req.Image != nil {
		if req.Image.Bounds().Empty() {
			return nil, &utils.ImageProcessingError{Operation: "load", Err: errors.New("image has no pixels")}
		}
		return req.Image, nil
	}
	img, _, err := utils.LoadImage(req.ScanPath)
	if err != nil {
		return nil, fmt.Errorf("load scan %s: %w", req.ScanPath, err)
	}
	return img, nil
}

func (e *Extractor) persist(deck Deck, log *manifest.Log, scanID string, card detector.DetectedCard, warped *image.NRGBA) (ExtractedCard, error) {
	cropID, err := log.NextCropID()
	if err != nil {
		return ExtractedCard{}, fmt.Errorf("allocate crop id: %w", err)
	}
	if err := utils.SaveImage(deck.CropPath(cropID), warped); err != nil {
		return ExtractedCard{}, fmt.Errorf("save crop %s: %w", cropID, err)
	}
	meta := manifest.CardCropMeta{
		CropID:       cropID,
		File:         deck.CropFile(cropID),
		SourceScanID: scanID,
		BBox:         card.BBox.Array(),
		Corners:      card.CornerInts(),
	}
	if err := log.Append(meta); err != nil {
		return ExtractedCard{}, fmt.Errorf("record crop %s: %w", cropID, err)
	}
	return ExtractedCard{Image: warped, Meta: meta, Card: card}, nil
}

func (e *Extractor) writeDebug(res *ExtractionResult, deck Deck, img image.Image, cards []detector.DetectedCard) {
	path := deck.DebugPath(res.ScanID)
	if err := e.debugSink.WriteDebug(path, e.annotator.Render(img, cards)); err != nil {
		e.logger.Warn("debug image not written", "run_id", res.RunID, "path", path, "error", err)
		return
	}
	res.DebugPath = path
	e.emit(res, Event{Stage: StageDebugSaved, Path: path})
}

func (e *Extractor) emit(res *ExtractionResult, ev Event) {
	ev.RunID = res.RunID
	ev.ScanID = res.ScanID
	e.observer.OnEvent(ev)
}
