package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ModuleRuns counts analysis module executions by outcome
	ModuleRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "velolab_module_runs_total",
			Help: "Total number of analysis module runs",
		},
		[]string{"module", "status"},
	)

	// ModuleDuration measures how long each analysis module takes
	ModuleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "velolab_module_duration_seconds",
			Help:    "Analysis module duration in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"module"},
	)

	// HTTPRequests counts API requests
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "velolab_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "code"},
	)

	// HTTPDuration measures API request latency
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "velolab_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	// FITFiles counts generated activity files by generator
	FITFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "velolab_fit_files_total",
			Help: "Total number of generated activity files",
		},
		[]string{"generator"},
	)

	// CacheRequests counts result cache lookups
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "velolab_cache_requests_total",
			Help: "Total number of result cache lookups",
		},
		[]string{"result"},
	)

	// CurrentTSB tracks the latest training stress balance per athlete
	CurrentTSB = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "velolab_pmc_tsb",
			Help: "Latest training stress balance",
		},
		[]string{"athlete"},
	)
)
