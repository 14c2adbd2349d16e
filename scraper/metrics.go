package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry              *prometheus.Registry
	RequestsTotal         *prometheus.CounterVec
	RequestDuration       prometheus.Histogram
	RecordsExtractedTotal prometheus.Counter
	ChunksTotal           prometheus.Counter
	RetriesTotal          prometheus.Counter
	DuplicateURLsTotal    prometheus.Counter
	ErrorsTotal           *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_requests_total",
			Help: "Total HTTP requests issued by the scraper.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_request_duration_seconds",
			Help:    "HTTP request latency for scraper requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	records := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_records_extracted_total",
			Help: "Total number of price records extracted from archive pages.",
		},
	)
	chunks := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_chunks_total",
			Help: "Total number of URL chunks processed in the main pass.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_retries_total",
			Help: "Total number of URLs revisited by the retry pass.",
		},
	)
	duplicates := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_duplicate_urls_total",
			Help: "URLs skipped because they were already visited in the same pass.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, records, chunks, retries, duplicates, errorsTotal)

	return &Metrics{
		Registry:              registry,
		RequestsTotal:         requests,
		RequestDuration:       requestDuration,
		RecordsExtractedTotal: records,
		ChunksTotal:           chunks,
		RetriesTotal:          retries,
		DuplicateURLsTotal:    duplicates,
		ErrorsTotal:           errorsTotal,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// AddRecords adds n to the extracted records counter.
func (m *Metrics) AddRecords(n int) {
	if m == nil {
		return
	}
	m.RecordsExtractedTotal.Add(float64(n))
}

// IncChunks increments the chunk counter.
func (m *Metrics) IncChunks() {
	if m == nil {
		return
	}
	m.ChunksTotal.Inc()
}

// AddRetries adds n to the retries counter.
func (m *Metrics) AddRetries(n int) {
	if m == nil {
		return
	}
	m.RetriesTotal.Add(float64(n))
}

// IncDuplicates increments the duplicate URL counter.
func (m *Metrics) IncDuplicates() {
	if m == nil {
		return
	}
	m.DuplicateURLsTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
