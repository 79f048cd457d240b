// Package metrics
package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caselaw_fetch_attempts_total",
			Help: "Total number of HTTP fetch attempts, labeled by outcome.",
		},
		[]string{"outcome"},
	)
	FetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "caselaw_fetch_duration_seconds",
			Help:    "Duration of a fetch including retries and backoff sleeps.",
			Buckets: prometheus.DefBuckets,
		},
	)
	RecordsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caselaw_records_written_total",
			Help: "Total number of records written to a store, labeled by workflow.",
		},
		[]string{"workflow"},
	)
	URLsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caselaw_urls_skipped_total",
			Help: "Total number of URLs that produced no record, labeled by workflow.",
		},
		[]string{"workflow"},
	)
)

func init() {
	prometheus.MustRegister(FetchAttempts)
	prometheus.MustRegister(FetchDuration)
	prometheus.MustRegister(RecordsWritten)
	prometheus.MustRegister(URLsSkipped)
}

// ExposeMetrics blocks serving /metrics on addr.
func ExposeMetrics(addr string) {
	slog.Info("Exposing Prometheus metrics", "address", addr)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("Failed to start Prometheus metrics server", "error", err)
	}
}
