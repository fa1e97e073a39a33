package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/tarot-scan/internal/pipeline"
	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

var (
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	errorColor   = color.New(color.FgRed)
)

// isInteractive reports whether w is a colour-capable console. Animated
// output (spinner, progress bar) is only used there; everything else gets
// one line per event.
func isInteractive(w io.Writer) bool {
	_, ok := w.(*os.File)
	return ok && !color.NoColor
}

// consoleObserver renders extraction events for a person watching the
// terminal.
type consoleObserver struct {
	w           io.Writer
	interactive bool
	spinner     *spinner.Spinner
	bar         *progressbar.ProgressBar
}

func newConsoleObserver(w io.Writer) *consoleObserver {
	c := &consoleObserver{w: w, interactive: isInteractive(w)}
	if c.interactive {
		c.spinner = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	}
	return c
}

// OnEvent implements pipeline.Observer.
func (c *consoleObserver) OnEvent(e pipeline.Event) {
	switch e.Stage {
	case pipeline.StageLoading:
		fmt.Fprintf(c.w, "%s\n", e.Message())
	case pipeline.StageDetecting:
		if c.spinner != nil {
			c.spinner.Suffix = " " + e.Message()
			c.spinner.Start()
			return
		}
		fmt.Fprintf(c.w, "%s\n", e.Message())
	case pipeline.StageCandidatesFound:
		c.stopSpinner()
		infoColor.Fprintf(c.w, "ℹ %s\n", e.Message())
		if c.interactive && e.Count > 0 {
			c.bar = progressbar.NewOptions(e.Count,
				progressbar.OptionSetWriter(c.w),
				progressbar.OptionSetDescription("Extracting"),
				progressbar.OptionSetWidth(30),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
	case pipeline.StageDebugSaved:
		fmt.Fprintf(c.w, "%s\n", e.Message())
	case pipeline.StageExtracting:
		if c.bar != nil {
			c.bar.Describe(e.Message())
		}
	case pipeline.StageCardExtracted:
		if c.bar != nil {
			_ = c.bar.Add(1)
			return
		}
		successColor.Fprintf(c.w, "✓ %s\n", e.Message())
	case pipeline.StageCardSkipped:
		if c.bar != nil {
			_ = c.bar.Add(1)
		}
		warnColor.Fprintf(c.w, "⚠ %s\n", e.Message())
	case pipeline.StageCompleted:
		c.finish()
		successColor.Fprintf(c.w, "✓ %s\n", e.Message())
	}
}

// finish clears any animation left by an interrupted run.
func (c *consoleObserver) finish() {
	c.stopSpinner()
	if c.bar != nil {
		_ = c.bar.Finish()
		c.bar = nil
	}
}

func (c *consoleObserver) stopSpinner() {
	if c.spinner != nil {
		c.spinner.Stop()
	}
}

// batchProgress reports the position within a batch run.
type batchProgress struct {
	w           io.Writer
	interactive bool
	bar         *progressbar.ProgressBar
}

func newBatchProgress(w io.Writer) *batchProgress {
	return &batchProgress{w: w, interactive: isInteractive(w)}
}

func (p *batchProgress) update(index, total int, path string) {
	if !p.interactive {
		fmt.Fprintf(p.w, "[%d/%d] %s\n", index, total, path)
		return
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("scans"),
			progressbar.OptionShowIts(),
			progressbar.OptionOnCompletion(func() { fmt.Fprint(p.w, "\n") }),
		)
	}
	p.bar.Describe(filepath.Base(path))
	_ = p.bar.Set(index - 1)
}

func (p *batchProgress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

func printError(w io.Writer, format string, args ...any) {
	errorColor.Fprintf(w, "✗ %s\n", fmt.Sprintf(format, args...))
}
