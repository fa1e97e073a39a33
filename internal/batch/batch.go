// Package batch runs card extraction over many scans, one after another,
// into a single deck.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/tarot-scan/internal/pipeline"
)

// ErrNoScans is returned when discovery finds nothing to process.
var ErrNoScans = errors.New("no scan images found")

// ScanOutcome is the result of one scan in a batch.
type ScanOutcome struct {
	Path   string
	ScanID string
	Result *pipeline.ExtractionResult
	Err    error
}

// ProgressFunc is called before each scan with its 1-based index.
type ProgressFunc func(index, total int, path string)

// Runner extracts cards from a sequence of scans.
type Runner struct {
	cfg       Config
	extractor *pipeline.Extractor
	progress  ProgressFunc
	logger    *slog.Logger
	now       func() time.Time
}

// RunnerOption customises a Runner.
type RunnerOption func(*Runner)

// WithProgress sets a callback invoked before each scan.
func WithProgress(fn ProgressFunc) RunnerOption {
	return func(r *Runner) { r.progress = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner validates cfg and returns a Runner using extractor.
func NewRunner(cfg Config, extractor *pipeline.Extractor, opts ...RunnerOption) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch config: %w", err)
	}
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	r := &Runner{cfg: cfg, extractor: extractor, logger: slog.Default(), now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// ProcessBatch discovers scans under paths and extracts them sequentially.
// Scan identifiers are allocated from the deck manifest as each scan starts.
// Unless ContinueOnError is set the first failure stops the run and is
// returned along with the outcomes so far.
func (r *Runner) ProcessBatch(ctx context.Context, paths []string) (*Result, error) {
	files, err := DiscoverScans(paths, r.cfg.Recursive, r.cfg.IncludePatterns, r.cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover scans: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoScans
	}

	start := time.Now()
	res := &Result{Scans: make([]ScanOutcome, 0, len(files))}
	defer func() { res.Duration = time.Since(start) }()

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if r.progress != nil {
			r.progress(i+1, len(files), path)
		}

		out := r.processScan(ctx, path)
		res.Scans = append(res.Scans, out)
		if out.Err == nil {
			continue
		}
		r.logger.Warn("scan failed", "file", path, "scan_id", out.ScanID, "error", out.Err)
		if errors.Is(out.Err, context.Canceled) || errors.Is(out.Err, context.DeadlineExceeded) || !r.cfg.ContinueOnError {
			return res, fmt.Errorf("%s: %w", path, out.Err)
		}
	}
	return res, nil
}

func (r *Runner) processScan(ctx context.Context, path string) ScanOutcome {
	out := ScanOutcome{Path: path}
	if r.cfg.RegisterScans {
		deck := pipeline.Deck{Dir: r.cfg.DeckDir}
		meta, err := deck.RegisterScan(path, "", r.cfg.DPI, r.cfg.Device, r.now())
		if err != nil {
			out.Err = err
			return out
		}
		out.ScanID = meta.ScanID
	}

	res, err := r.extractor.Extract(ctx, pipeline.ScanRequest{
		ScanPath: path,
		ScanID:   out.ScanID,
		DeckDir:  r.cfg.DeckDir,
	})
	if res != nil {
		out.ScanID = res.ScanID
	}
	out.Result, out.Err = res, err
	return out
}
