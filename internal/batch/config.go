package batch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Config holds all configuration for batch processing.
type Config struct {
	// DeckDir receives crops, debug images and manifest records.
	DeckDir string

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// ContinueOnError keeps going after a scan fails; the failure is reported
	// in the result instead of aborting the run.
	ContinueOnError bool

	// RegisterScans appends a ScanMeta record before each scan is extracted.
	RegisterScans bool
	DPI           int
	Device        string
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.DeckDir == "" {
		return fmt.Errorf("deck directory must be set")
	}
	for _, p := range append(append([]string{}, c.IncludePatterns...), c.ExcludePatterns...) {
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", p, err)
		}
	}
	if c.DPI < 0 {
		return fmt.Errorf("dpi must be >= 0, got %d", c.DPI)
	}
	return nil
}

// Result holds the result of batch processing in discovery order.
type Result struct {
	Scans    []ScanOutcome
	Duration time.Duration
}

// Extracted returns the number of crops written over all scans.
func (r *Result) Extracted() int {
	n := 0
	for _, s := range r.Scans {
		if s.Result != nil {
			n += len(s.Result.Cards)
		}
	}
	return n
}

// Failed returns the number of scans that ended with an error.
func (r *Result) Failed() int {
	n := 0
	for _, s := range r.Scans {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r.Scans, format)
}

// SaveResults writes the formatted results to outputFile, or to w when no
// file is given.
func (r *Result) SaveResults(w io.Writer, format, outputFile string) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}
	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		return nil
	}
	_, err = fmt.Fprint(w, output)
	return err
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer) {
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Scans: %d\n", len(r.Scans))
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", r.Failed())
	_, _ = fmt.Fprintf(w, "  Cards extracted: %d\n", r.Extracted())
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
	if n := len(r.Scans); n > 0 {
		_, _ = fmt.Fprintf(w, "  Avg per scan: %v\n", (r.Duration / time.Duration(n)).Round(time.Millisecond))
	}
}
