package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "barchart"

// Label values for IngestErrors.
const (
	ReasonRead     = "read"
	ReasonFilename = "filename"
	ReasonBody     = "body"
	ReasonName     = "name"
	ReasonOther    = "other"
)

// Label values for NameLookups.
const (
	SourceMemory = "memory"
	SourceDisk   = "disk"
	SourceEBird  = "ebird"

	OutcomeHit     = "hit"
	OutcomeMiss    = "miss"
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds the Prometheus counters and histograms for bar chart ingestion.
// They are registered on a dedicated registry because the CLI is a batch job:
// the registry is written to a textfile at the end of a run instead of being
// scraped.
type Metrics struct {
	FilesRead      prometheus.Counter
	IngestErrors   *prometheus.CounterVec // labels: reason={read,filename,body,name,other}
	TaxaIngested   prometheus.Histogram
	IngestDuration prometheus.Histogram

	// Hotspot name lookups.
	NameLookups       *prometheus.CounterVec // labels: source={memory,disk,ebird}, outcome={hit,miss,success,error}
	NameFetchDuration prometheus.Histogram

	registry *prometheus.Registry
}

// NewMetrics creates all ingestion metrics and registers them with a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FilesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_read_total",
			Help:      "Total bar chart exports read from disk.",
		}),
		IngestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_errors_total",
			Help:      "Bar chart exports that failed to ingest, by reason.",
		}, []string{"reason"}),
		TaxaIngested: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "taxa_ingested",
			Help:      "Number of taxon rows per ingested export.",
			Buckets:   []float64{10, 50, 100, 200, 300, 400, 500, 750},
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Duration of a complete ingestion batch.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		NameLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "name_lookups_total",
			Help:      "Hotspot name lookups by source and outcome.",
		}, []string{"source", "outcome"}),
		NameFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "name_fetch_duration_seconds",
			Help:      "eBird hotspot page request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.FilesRead,
		m.IngestErrors,
		m.TaxaIngested,
		m.IngestDuration,
		m.NameLookups,
		m.NameFetchDuration,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics. WriteTextfile fails on them.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FilesRead:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "files_read_total"}),
		IngestErrors:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "ingest_errors_total"}, []string{"reason"}),
		TaxaIngested:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "taxa_ingested"}),
		IngestDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "ingest_duration_seconds"}),
		NameLookups:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "name_lookups_total"}, []string{"source", "outcome"}),
		NameFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "name_fetch_duration_seconds"}),
	}
}

// Gatherer returns the registry the metrics are registered on, or nil for
// test metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m.registry == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes the current metric values in the Prometheus text format,
// for pickup by the node exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m.registry == nil {
		return errors.New("metrics are not registered")
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
