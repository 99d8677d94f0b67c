// Package metrics exposes Prometheus collectors for the booth pipeline.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchRequestsTotal         *prometheus.CounterVec
	fetchDurationSeconds       *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	recordsValidatedTotal      *prometheus.CounterVec
	boothUpsertsTotal          *prometheus.CounterVec
	crawlRunsTotal             *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boothcrawl_fetch_requests_total",
				Help: "Total page-fetch calls, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "boothcrawl_fetch_duration_seconds",
				Help:    "Histogram of page-fetch call latencies, labeled by site.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"site"},
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

		recordsValidatedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boothcrawl_records_validated_total",
				Help: "Total extracted records through validation, labeled by result.",
			},
			[]string{"result"},
		)

		boothUpsertsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boothcrawl_booth_upserts_total",
				Help: "Total booth writes, labeled by operation (insert or update).",
			},
			[]string{"operation"},
		)

		crawlRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boothcrawl_runs_total",
				Help: "Total pipeline runs, labeled by outcome.",
			},
			[]string{"outcome"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one page-fetch call against a source site.
func ObserveFetch(site, outcome string, duration time.Duration) {
	sanitizedSite := SanitizeSite(site)
	fetchRequestsTotal.WithLabelValues(sanitizedSite, outcome).Inc()
	fetchDurationSeconds.WithLabelValues(sanitizedSite).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveValidation counts one record through validation. Result is
// "accepted" or the rejection reason.
func ObserveValidation(result string) {
	recordsValidatedTotal.WithLabelValues(result).Inc()
}

// ObserveUpsert counts one booth write by operation.
func ObserveUpsert(operation string) {
	boothUpsertsTotal.WithLabelValues(operation).Inc()
}

// ObserveRun counts one completed pipeline run by outcome.
func ObserveRun(outcome string) {
	crawlRunsTotal.WithLabelValues(outcome).Inc()
}
