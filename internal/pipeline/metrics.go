package pipeline

import (
	"time"

	"github.com/MeKo-Tech/tarot-scan/internal/detector"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects extraction counters on a private registry so a CLI run
// can dump them for the node-exporter textfile collector.
type Metrics struct {
	registry *prometheus.Registry

	scansTotal      *prometheus.CounterVec
	candidates      prometheus.Histogram
	rejectionsTotal *prometheus.CounterVec
	cropsTotal      prometheus.Counter
	skippedTotal    prometheus.Counter
	stageDuration   *prometheus.HistogramVec
}

// NewMetrics registers the extraction metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		scansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tarot_scan_scans_total",
				Help: "Total number of scans processed",
			},
			[]string{"status"}, // status: success, error
		),
		candidates: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tarot_scan_candidates",
				Help:    "Number of card candidates accepted per scan",
				Buckets: []float64{0, 1, 2, 4, 6, 8, 10, 12, 16, 24},
			},
		),
		rejectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tarot_scan_rejections_total",
				Help: "Outlines rejected by the card filter",
			},
			[]string{"reason"},
		),
		cropsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tarot_scan_crops_extracted_total",
				Help: "Total number of card crops written",
			},
		),
		skippedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tarot_scan_cards_skipped_total",
				Help: "Cards skipped because their corners were degenerate",
			},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tarot_scan_stage_duration_seconds",
				Help:    "Duration of extraction stages in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"}, // stage: detect, extract, total
		),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes all metrics in the text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) observeDetection(res detector.Result) {
	if m == nil {
		return
	}
	m.candidates.Observe(float64(len(res.Cards)))
	for reason, n := range res.Stats.Rejected {
		m.rejectionsTotal.WithLabelValues(string(reason)).Add(float64(n))
	}
	m.stageDuration.WithLabelValues("detect").Observe(res.Duration.Seconds())
}

func (m *Metrics) observeScan(err error, extracted, skipped int, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.scansTotal.WithLabelValues(status).Inc()
	m.cropsTotal.Add(float64(extracted))
	m.skippedTotal.Add(float64(skipped))
	m.stageDuration.WithLabelValues("total").Observe(elapsed.Seconds())
}

func (m *Metrics) observeStage(stage string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}
