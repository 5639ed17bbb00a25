package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Store metrics
	StoreState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hikibiki_store_state",
			Help: "Current Store lifecycle state (1 = active) by state name",
		},
		[]string{"state"},
	)

	SeriesRecordsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hikibiki_series_records_total",
			Help: "Number of records last written to a series table",
		},
		[]string{"series"},
	)

	// Downloader metrics
	DownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hikibiki_downloads_total",
			Help: "Total number of data files downloaded by series and file type",
		},
		[]string{"series", "file_type", "status"},
	)

	DownloadBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hikibiki_download_bytes_total",
			Help: "Total bytes read from data files by series",
		},
		[]string{"series"},
	)

	DownloadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hikibiki_download_duration_seconds",
			Help:    "Time taken to stream one data file to completion",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"series", "file_type"},
	)

	// Applier / bulk-update metrics
	BulkUpdateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hikibiki_bulk_update_duration_seconds",
			Help:    "Time taken for a single bulkUpdateTable transaction",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"series"},
	)

	BulkUpdateFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hikibiki_bulk_update_failures_total",
			Help: "Total number of bulkUpdateTable transactions that failed",
		},
		[]string{"series"},
	)

	// Update-state-reducer metrics
	UpdateStateTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hikibiki_update_state",
			Help: "Current per-series update state (1 = active) by series and state name",
		},
		[]string{"series", "state"},
	)

	// Retry controller metrics
	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hikibiki_retry_attempts_total",
			Help: "Total number of retry attempts by series and error class",
		},
		[]string{"series", "class"},
	)

	RetryBackoffSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hikibiki_retry_backoff_seconds",
			Help:    "Scheduled backoff delay before the next retry attempt",
			Buckets: []float64{3, 6, 12, 24, 48, 96, 300, 900, 3600, 14400, 43200},
		},
		[]string{"series"},
	)

	// Query metrics
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hikibiki_query_duration_seconds",
			Help:    "Time taken to serve a getKanji/getNames query",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(StoreState)
	prometheus.MustRegister(SeriesRecordsTotal)
	prometheus.MustRegister(DownloadsTotal)
	prometheus.MustRegister(DownloadBytesTotal)
	prometheus.MustRegister(DownloadDuration)
	prometheus.MustRegister(BulkUpdateDuration)
	prometheus.MustRegister(BulkUpdateFailuresTotal)
	prometheus.MustRegister(UpdateStateTotal)
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(RetryBackoffSeconds)
	prometheus.MustRegister(QueryDuration)
}

// Handler returns the Prometheus HTTP handler, for hosts that want to
// expose these metrics alongside their own server.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations against a histogram.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer, started now.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed duration to a histogram vec
// with the given label values.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
