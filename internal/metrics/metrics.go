package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service collectors. Build one with New per registry.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	QueriesTotal        *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec
	PagesTotal          *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		// outcome: answered, no_pages, no_info, unavailable, model_error
		QueriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queries_total",
				Help: "Total number of queries by outcome.",
			},
			[]string{"outcome"},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "query_stage_duration_seconds",
				Help:    "Duration of query pipeline stages.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15, 30, 60},
			},
			[]string{"stage"},
		),
		// status: ok, cached, failed
		PagesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pages_total",
				Help: "Total number of candidate pages by status.",
			},
			[]string{"status"},
		),
	}
}
