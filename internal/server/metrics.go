package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// analysesTotal counts report computations by input source and result
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "absim_analyses_total",
		Help: "Total analyses by source and result",
	}, []string{"source", "result"})

	// analysisDuration tracks how long building a report takes
	analysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "absim_analysis_duration_seconds",
		Help:    "Analysis duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
	}, []string{"source"})

	// httpRequestsTotal counts HTTP requests by method, route and status
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "absim_http_requests_total",
		Help: "Total HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})
)
