// Package metrics exposes Prometheus collectors for the document crawler.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Document outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Extraction stages that can fail without failing the document.
const (
	StageTextLayer = "text_layer"
	StageOCR       = "ocr"
	StageLanguage  = "language"
	StageTables    = "tables"
)

// Fetch kinds.
const (
	FetchListing  = "listing"
	FetchDocument = "document"
	FetchPDF      = "pdf"
)

var (
	documentsTotal             *prometheus.CounterVec
	listingPagesTotal          *prometheus.CounterVec
	extractionStrategyTotal    *prometheus.CounterVec
	stageFailuresTotal         *prometheus.CounterVec
	fetchBytesTotal            *prometheus.CounterVec
	documentDurationSeconds    prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		documentsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_documents_total",
				Help: "Total number of documents processed, labeled by category and outcome.",
			},
			[]string{"category", "outcome"},
		)

		listingPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_listing_pages_total",
				Help: "Total number of search listing pages fetched, labeled by category.",
			},
			[]string{"category"},
		)

		extractionStrategyTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_extraction_strategy_total",
				Help: "Total number of PDFs extracted, labeled by strategy.",
			},
			[]string{"strategy"},
		)

		stageFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_stage_failures_total",
				Help: "Total number of absorbed extraction failures, labeled by stage.",
			},
			[]string{"stage"},
		)

		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_fetch_bytes_total",
				Help: "Total number of bytes fetched, labeled by kind.",
			},
			[]string{"kind"},
		)

		documentDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawler_document_duration_seconds",
				Help:    "Histogram of per-document processing time.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDocument records the outcome and duration of one document.
func ObserveDocument(category, outcome string, duration time.Duration) {
	Init()
	documentsTotal.WithLabelValues(category, outcome).Inc()
	documentDurationSeconds.Observe(duration.Seconds())
}

// ObserveListingPage counts one fetched listing page.
func ObserveListingPage(category string) {
	Init()
	listingPagesTotal.WithLabelValues(category).Inc()
}

// ObserveStrategy counts the extraction strategy chosen for a PDF.
func ObserveStrategy(strategy string) {
	Init()
	extractionStrategyTotal.WithLabelValues(strategy).Inc()
}

// ObserveStageFailure counts an extraction failure that degraded to an empty field.
func ObserveStageFailure(stage string) {
	Init()
	stageFailuresTotal.WithLabelValues(stage).Inc()
}

// ObserveFetch adds fetched body bytes for the given kind.
func ObserveFetch(kind string, bytesFetched int) {
	Init()
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(kind).Add(float64(bytesFetched))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
