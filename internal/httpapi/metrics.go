package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal counts handled requests.
	// Labels: route, status (HTTP status code)
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qacbox",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests by route and status",
	}, []string{"route", "status"})

	// requestLatency measures handler time.
	// Labels: route
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "qacbox",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
	}, []string{"route"})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qacbox",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter",
	})

	// completionResults tracks how many results a completion returned.
	completionResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "qacbox",
		Subsystem: "qac",
		Name:      "results",
		Help:      "Number of results per completion request",
		Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
	})
)
