// Package metrics provides Prometheus instrumentation for the sync engine.
//
// All metrics are prefixed with "tagify_" to avoid naming collisions with
// other applications.
//
// # Sync Engine Metrics
//
// Track queued operation throughput and membership churn:
//   - SyncOperationsTotal: Counter of operations by kind and status
//   - SyncOperationDuration: Histogram of operation duration by kind
//   - QueueDepth: Gauge of operations waiting in the queue
//   - MembersAddedTotal / MembersRemovedTotal: Counters of remote writes
//   - DuplicatesRemovedTotal: Counter of repaired duplicate entries
//   - DataLossEventsTotal: Counter of duplicate repairs whose re-add failed
//
// # Remote API Metrics
//
// Track Spotify client traffic:
//   - RemoteCallsTotal: Counter of API calls by call and HTTP status
//   - RemoteCallDuration: Histogram of API call duration by call
//
// # Usage
//
// Metrics are automatically registered with the default Prometheus registry
// using promauto. To expose them, mount promhttp.Handler() on the metrics
// endpoint:
//
//	import "github.com/prometheus/client_golang/prometheus/promhttp"
//
//	mux.Handle("/metrics", promhttp.Handler())
//
// To record from other packages, use the exported variables:
//
//	metrics.SyncOperationsTotal.WithLabelValues("full_reconcile", "completed").Inc()
//	metrics.QueueDepth.Set(3)
package metrics
