// Package metrics exposes Prometheus collectors for the scrape pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/transparencia-pba/boletin-crawler/internal/boletin"
)

// Metrics holds the pipeline's collectors. A batch run registers them
// on its own registry; tests can read them back with testutil.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	PagesFetched     prometheus.Counter
	NoticesParsed    prometheus.Counter
	NoticesSkipped   prometheus.Counter
	NoticesNew       prometheus.Counter
	NoticesKnown     prometheus.Counter
	SummariesTotal   *prometheus.CounterVec
	DatasetSize      prometheus.Gauge
	PendingSummaries prometheus.Gauge
}

// New builds and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boletin_runs_total",
				Help: "Pipeline runs, labeled by outcome.",
			},
			[]string{"outcome"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "boletin_run_duration_seconds",
				Help:    "End-to-end duration of a pipeline run.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		PagesFetched: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "boletin_pages_fetched_total",
				Help: "Gazette pages fetched, detail pages included.",
			},
		),
		NoticesParsed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "boletin_notices_parsed_total",
				Help: "Listing entries successfully parsed into notices.",
			},
		),
		NoticesSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "boletin_notices_skipped_total",
				Help: "Listing entries skipped as malformed.",
			},
		),
		NoticesNew: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "boletin_notices_new_total",
				Help: "Notices first observed this run.",
			},
		),
		NoticesKnown: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "boletin_notices_known_total",
				Help: "Parsed notices dropped as already persisted.",
			},
		),
		SummariesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boletin_summaries_total",
				Help: "Summarization attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		),
		DatasetSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "boletin_dataset_notices",
				Help: "Notices in the persisted dataset after the run.",
			},
		),
		PendingSummaries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "boletin_dataset_pending_summaries",
				Help: "Persisted notices still waiting on a summary.",
			},
		),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.PagesFetched,
		m.NoticesParsed,
		m.NoticesSkipped,
		m.NoticesNew,
		m.NoticesKnown,
		m.SummariesTotal,
		m.DatasetSize,
		m.PendingSummaries,
	)
	return m
}

// ObserveCounters folds one run's counters into the collectors.
func (m *Metrics) ObserveCounters(c boletin.RunCounters) {
	m.PagesFetched.Add(float64(c.PagesFetched))
	m.NoticesParsed.Add(float64(c.RecordsParsed))
	m.NoticesSkipped.Add(float64(c.RecordsSkipped))
	m.NoticesNew.Add(float64(c.NoticesNew))
	m.NoticesKnown.Add(float64(c.NoticesKnown))
	m.SummariesTotal.WithLabelValues("ok").Add(float64(c.SummariesWritten))
	m.SummariesTotal.WithLabelValues("deferred").Add(float64(c.SummariesDeferred))
}
