/*
Package metrics provides Prometheus metrics collection and exposition for
the sync engine.

The metrics package defines and registers every metric using the
Prometheus client library, providing observability into store state,
download throughput, bulk-update latency, per-series update state and
retry behavior. Metrics are exposed via an HTTP handler for scraping.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Metric Groups                   │          │
	│  │                                              │          │
	│  │  store_state, series_records_total          │          │
	│  │  downloads_total, download_bytes_total      │          │
	│  │  download_duration_seconds                  │          │
	│  │  bulk_update_duration_seconds               │          │
	│  │  bulk_update_failures_total                 │          │
	│  │  update_state (idle/checking/...)           │          │
	│  │  retry_attempts_total, retry_backoff_seconds│          │
	│  │  query_duration_seconds                      │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          Collector (collector.go)           │          │
	│  │  - Polls a StateSource every 15s            │          │
	│  │  - Projects store/series state into gauges  │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

Component-level readiness is handled separately (health.go):
RegisterComponent/GetHealth/GetReadiness back the liveness/readiness HTTP
handlers a consumer CLI can expose, independent of the Prometheus
exposition above.
*/
package metrics
