package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// evaluationsTotal counts evaluations by outcome class and source
	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exprcalc_evaluations_total",
		Help: "Total evaluations by outcome class and source",
	}, []string{"class", "source"})

	// evaluationDuration tracks end-to-end evaluation latency
	evaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "exprcalc_evaluation_duration_seconds",
		Help:    "Evaluation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10), // 1us to ~260ms
	})

	// expressionBytes tracks the size of evaluated expressions
	expressionBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "exprcalc_expression_bytes",
		Help:    "Size of evaluated expressions in bytes",
		Buckets: []float64{8, 32, 128, 512, 2048, 8192},
	})

	// httpRequestsTotal counts API requests by route and status code
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exprcalc_http_requests_total",
		Help: "Total HTTP requests by route and status code",
	}, []string{"route", "code"})

	// rateLimitedTotal counts rejected requests
	rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exprcalc_rate_limited_total",
		Help: "Total requests rejected by the rate limiter",
	})

	// suiteCasesTotal counts suite case outcomes
	suiteCasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exprcalc_suite_cases_total",
		Help: "Total suite cases by suite and result",
	}, []string{"suite", "result"})

	// websocketSessions tracks open websocket sessions
	websocketSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "exprcalc_websocket_sessions",
		Help: "Number of open websocket sessions",
	})
)
