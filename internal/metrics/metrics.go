package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "archivist_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	HttpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "archivist_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	LibrarySearchResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "archivist_library_search_results",
		Help:    "Total matches reported by library searches",
		Buckets: []float64{0, 1, 10, 100, 1000, 10000, 100000},
	})

	ImportArchivesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "archivist_import_archives_total",
		Help: "Archives processed by the importer",
	}, []string{"status"})
)
