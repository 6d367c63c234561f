package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jonesrussell/north-cloud/reader/internal/feed"
)

const (
	// MetricsNamespace is the namespace for all reader metrics.
	MetricsNamespace = "reader"

	// MetricsSubsystem is the subsystem for ingestion metrics.
	MetricsSubsystem = "ingest"
)

// Run statuses recorded by RunsTotal.
const (
	StatusSuccess     = "success"
	StatusNotModified = "not_modified"
	StatusInProgress  = "in_progress"
	StatusFailed      = "failed"
)

// Metrics holds the Prometheus collectors for ingestion runs.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	ArticlesAdded   prometheus.Counter
	EntriesSkipped  *prometheus.CounterVec
	DurationSeconds prometheus.Histogram
}

// NewMetrics creates and registers the ingestion metrics on reg.
// A nil reg registers on prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	m := &Metrics{}

	m.initRunMetrics(factory)
	m.initEntryMetrics(factory)

	return m
}

func (m *Metrics) initRunMetrics(factory promauto.Factory) {
	m.RunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "runs_total",
			Help:      "Total number of source ingestion runs by status",
		},
		[]string{"status"},
	)

	m.DurationSeconds = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "duration_seconds",
			Help:      "Duration of source ingestion runs",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)
}

func (m *Metrics) initEntryMetrics(factory promauto.Factory) {
	m.ArticlesAdded = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "articles_added_total",
			Help:      "Total number of new articles persisted",
		},
	)

	m.EntriesSkipped = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "entries_skipped_total",
			Help:      "Total number of feed entries not persisted, by reason",
		},
		[]string{"reason"},
	)
}

// ReasonDuplicate labels entries whose link is already stored.
const ReasonDuplicate = "duplicate"

func (m *Metrics) observeRun(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.DurationSeconds.Observe(elapsed.Seconds())
}

func (m *Metrics) observeEntries(added, duplicates int, skipped map[feed.SkipReason]int) {
	if m == nil {
		return
	}
	m.ArticlesAdded.Add(float64(added))
	if duplicates > 0 {
		m.EntriesSkipped.WithLabelValues(ReasonDuplicate).Add(float64(duplicates))
	}
	for reason, n := range skipped {
		m.EntriesSkipped.WithLabelValues(string(reason)).Add(float64(n))
	}
}
