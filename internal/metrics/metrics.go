// Package metrics exposes Prometheus collectors for the embed service.
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

var (
	scrapesTotal               *prometheus.CounterVec
	fetchesTotal               *prometheus.CounterVec
	cacheLookupsTotal          *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	redirectChainLength        prometheus.Histogram
	rateLimitDelaySeconds      prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrapesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "embed_scrapes_total",
				Help: "Total number of scrapes, labeled by platform and outcome.",
			},
			[]string{"platform", "outcome"},
		)

		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "embed_fetches_total",
				Help: "Total number of outbound fetches, labeled by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		cacheLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "embed_cache_lookups_total",
				Help: "Response cache lookups, labeled by backend and result.",
			},
			[]string{"backend", "result"},
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route"},
		)

		redirectChainLength = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "embed_redirect_chain_length",
				Help:    "Number of URLs visited while tracking redirects.",
				Buckets: []float64{1, 2, 3, 4, 6, 10, 20},
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "embed_rate_limit_delay_seconds",
				Help:    "Time outbound requests spent waiting on the per-host rate limiter.",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveScrape counts a finished scrape.
func ObserveScrape(platform, outcome string) {
	if scrapesTotal == nil {
		return
	}
	scrapesTotal.WithLabelValues(platform, outcome).Inc()
}

// ObserveFetch counts an outbound request. kind is one of page, oembed,
// robots, head, redirect or thumbhash. Target hosts are caller supplied, so
// they are never used as labels.
func ObserveFetch(kind, outcome string) {
	if fetchesTotal == nil {
		return
	}
	fetchesTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveCacheLookup counts a cache hit, miss or error.
func ObserveCacheLookup(backend, result string) {
	if cacheLookupsTotal == nil {
		return
	}
	cacheLookupsTotal.WithLabelValues(backend, result).Inc()
}

// ObserveRedirectChain records the length of a tracked redirect chain.
func ObserveRedirectChain(length int) {
	if redirectChainLength == nil {
		return
	}
	redirectChainLength.Observe(float64(length))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records time spent waiting for a host's token.
func ObserveRateLimitDelay(delay time.Duration) {
	if rateLimitDelaySeconds == nil {
		return
	}
	rateLimitDelaySeconds.Observe(delay.Seconds())
}
