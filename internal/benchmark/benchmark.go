// Package benchmark times the stages of card extraction on a scan.
package benchmark

import (
	"errors"
	"fmt"
	"image"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/MeKo-Tech/tarot-scan/internal/detector"
	"github.com/MeKo-Tech/tarot-scan/internal/pipeline"
	"github.com/MeKo-Tech/tarot-scan/internal/preprocess"
	"github.com/MeKo-Tech/tarot-scan/internal/rectify"
)

// Timer measures one elapsed interval.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer starts a named timer.
func NewTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop records and returns the elapsed time.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration { return t.duration }

func (t *Timer) String() string {
	return fmt.Sprintf("%s: %v", t.name, t.duration)
}

// MemoryStats is a snapshot of the Go heap.
type MemoryStats struct {
	AllocBytes      uint64
	TotalAllocBytes uint64
	Mallocs         uint64
	NumGC           uint32
}

// ReadMemoryStats returns the current heap statistics.
func ReadMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocBytes:      m.Alloc,
		TotalAllocBytes: m.TotalAlloc,
		Mallocs:         m.Mallocs,
		NumGC:           m.NumGC,
	}
}

// Result holds the measurements of one benchmark.
type Result struct {
	Name         string
	Iterations   int
	Duration     time.Duration
	MemoryBefore MemoryStats
	MemoryAfter  MemoryStats
	Error        error
}

// PerOp returns the mean duration of one iteration.
func (r Result) PerOp() time.Duration {
	if r.Iterations <= 0 {
		return 0
	}
	return r.Duration / time.Duration(r.Iterations)
}

// AllocatedPerOp returns the mean bytes allocated by one iteration.
func (r Result) AllocatedPerOp() uint64 {
	if r.Iterations <= 0 || r.MemoryAfter.TotalAllocBytes < r.MemoryBefore.TotalAllocBytes {
		return 0
	}
	return (r.MemoryAfter.TotalAllocBytes - r.MemoryBefore.TotalAllocBytes) / uint64(r.Iterations) //nolint:gosec // G115: iterations checked above
}

func (r Result) String() string {
	if r.Error != nil {
		return fmt.Sprintf("%s: ERROR - %v", r.Name, r.Error)
	}
	return fmt.Sprintf("%s: %d iterations, avg: %v, total: %v, alloc: %d KB/op",
		r.Name, r.Iterations, r.PerOp(), r.Duration, r.AllocatedPerOp()/1024)
}

type entry struct {
	name string
	fn   func() error
}

// Suite runs named benchmark functions.
type Suite struct {
	entries []entry
	results []Result
	mu      sync.Mutex
}

// NewSuite creates an empty suite.
func NewSuite() *Suite {
	return &Suite{}
}

// Add registers fn under name.
func (s *Suite) Add(name string, fn func() error) {
	s.entries = append(s.entries, entry{name: name, fn: fn})
}

// Names lists the registered benchmarks in insertion order.
func (s *Suite) Names() []string {
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.name
	}
	return names
}

// Run runs one benchmark for the given number of iterations.
func (s *Suite) Run(name string, iterations int) Result {
	for _, e := range s.entries {
		if e.name == name {
			return run(e, iterations)
		}
	}
	return Result{Name: name, Error: fmt.Errorf("benchmark '%s' not found", name)}
}

// RunAll runs every benchmark and keeps the results.
func (s *Suite) RunAll(iterations int) []Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = make([]Result, 0, len(s.entries))
	for _, e := range s.entries {
		s.results = append(s.results, run(e, iterations))
	}
	return s.results
}

// Results returns the results of the last RunAll.
func (s *Suite) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// WriteResults prints the results of the last RunAll to w.
func (s *Suite) WriteResults(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Benchmark Results:")
	_, _ = fmt.Fprintln(w, "==================")
	for _, r := range s.Results() {
		_, _ = fmt.Fprintln(w, r.String())
	}
}

func run(e entry, iterations int) Result {
	if iterations <= 0 {
		return Result{Name: e.name, Error: errors.New("iterations must be positive")}
	}

	runtime.GC()
	before := ReadMemoryStats()
	timer := NewTimer(e.name)

	var err error
	for range iterations {
		if err = e.fn(); err != nil {
			break
		}
	}

	return Result{
		Name:         e.name,
		Iterations:   iterations,
		Duration:     timer.Stop(),
		MemoryBefore: before,
		MemoryAfter:  ReadMemoryStats(),
		Error:        err,
	}
}

// ErrNoCards is returned by the rectify stage when the scan yields no cards.
var ErrNoCards = errors.New("no cards detected in benchmark scan")

// AddScanStages registers the extraction stages for img under the given
// label: edge map, detection, rectification of the detected cards and the
// full detect-and-rectify pass. Nothing is written to disk.
func AddScanStages(s *Suite, label string, img image.Image, cfg pipeline.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	det, err := detector.New(cfg.Detector)
	if err != nil {
		return err
	}
	rect := rectify.New(cfg.TargetCropHeight)
	cards := det.DetectInReadingOrder(img)

	s.Add("Preprocess_"+label, func() error {
		preprocess.EdgeMap(img, cfg.Detector.Preprocess)
		return nil
	})
	s.Add("Detect_"+label, func() error {
		det.Detect(img)
		return nil
	})
	s.Add("Rectify_"+label, func() error {
		if len(cards) == 0 {
			return ErrNoCards
		}
		return rectifyAll(rect, img, cards)
	})
	s.Add("Extract_"+label, func() error {
		return rectifyAll(rect, img, det.DetectInReadingOrder(img))
	})
	return nil
}

func rectifyAll(rect *rectify.Rectifier, img image.Image, cards []detector.DetectedCard) error {
	for _, c := range cards {
		if _, err := rect.Rectify(img, c.Corners); err != nil {
			return err
		}
	}
	return nil
}
