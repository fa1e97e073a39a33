package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
)

// Stage identifies a point in the extraction of one scan.
type Stage int

const (
	StageLoading Stage = iota
	StageDetecting
	StageCandidatesFound
	StageDebugSaved
	StageExtracting
	StageCardExtracted
	StageCardSkipped
	StageCompleted
)

var stageNames = map[Stage]string{
	StageLoading:         "loading",
	StageDetecting:       "detecting",
	StageCandidatesFound: "candidates_found",
	StageDebugSaved:      "debug_saved",
	StageExtracting:      "extracting",
	StageCardExtracted:   "card_extracted",
	StageCardSkipped:     "card_skipped",
	StageCompleted:       "completed",
}

func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Event reports progress. Index is 1-based and, with Total, only set for
// per-card stages; Count is set for StageCandidatesFound and StageCompleted.
type Event struct {
	Stage  Stage
	RunID  string
	ScanID string
	Path   string
	Count  int
	Index  int
	Total  int
	CropID string
	Err    error
}

// Message renders the event as a one-line human readable status.
func (e Event) Message() string {
	switch e.Stage {
	case StageLoading:
		if e.Path == "" {
			return "Loading scan: <in-memory image>"
		}
		return "Loading scan: " + filepath.Base(e.Path)
	case StageDetecting:
		return "Detecting cards..."
	case StageCandidatesFound:
		return fmt.Sprintf("Found %d cards", e.Count)
	case StageDebugSaved:
		return "Debug image saved: " + filepath.Base(e.Path)
	case StageExtracting:
		return fmt.Sprintf("Extracting card %d/%d", e.Index, e.Total)
	case StageCardExtracted:
		return fmt.Sprintf("Saved %s", e.CropID)
	case StageCardSkipped:
		return fmt.Sprintf("Skipped card %d/%d: %v", e.Index, e.Total, e.Err)
	case StageCompleted:
		return fmt.Sprintf("Extracted %d cards", e.Count)
	default:
		return e.Stage.String()
	}
}

// Observer receives extraction events. Calls happen on the extracting goroutine.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent calls f.
func (f ObserverFunc) OnEvent(e Event) { f(e) }

// NoOpObserver discards all events.
type NoOpObserver struct{}

// OnEvent does nothing.
func (NoOpObserver) OnEvent(Event) {}

// LogObserver writes events to a slog logger.
type LogObserver struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogObserver logs events at level; skipped cards are always logged at warn.
func NewLogObserver(logger *slog.Logger, level slog.Level) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger, level: level}
}

// OnEvent logs e.
func (l *LogObserver) OnEvent(e Event) {
	level := l.level
	attrs := []any{"stage", e.Stage.String(), "run_id", e.RunID}
	if e.ScanID != "" {
		attrs = append(attrs, "scan_id", e.ScanID)
	}
	switch e.Stage {
	case StageExtracting:
		attrs = append(attrs, "index", e.Index, "total", e.Total)
	case StageCardExtracted:
		attrs = append(attrs, "crop_id", e.CropID, "file", e.Path)
	case StageCardSkipped:
		level = slog.LevelWarn
		attrs = append(attrs, "index", e.Index, "error", e.Err)
	case StageCandidatesFound, StageCompleted:
		attrs = append(attrs, "count", e.Count)
	}
	l.logger.Log(context.Background(), level, e.Message(), attrs...)
}

// MultiObserver fans events out to several observers in order.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver combines observers; nil entries are ignored.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	m := &MultiObserver{}
	for _, o := range observers {
		m.Add(o)
	}
	return m
}

// Add appends another observer.
func (m *MultiObserver) Add(o Observer) {
	if o != nil {
		m.observers = append(m.observers, o)
	}
}

// OnEvent forwards e to every observer.
func (m *MultiObserver) OnEvent(e Event) {
	for _, o := range m.observers {
		o.OnEvent(e)
	}
}
