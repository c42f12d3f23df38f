package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sync engine metrics
var (
	SyncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagify_sync_operations_total",
			Help: "Total number of sync operations by kind and status",
		},
		[]string{"kind", "status"},
	)

	SyncOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tagify_sync_operation_duration_seconds",
			Help:    "Sync operation duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tagify_sync_queue_depth",
			Help: "Number of operations waiting in the sync queue",
		},
	)

	MembersAddedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tagify_members_added_total",
			Help: "Total number of items added to remote playlists",
		},
	)

	MembersRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tagify_members_removed_total",
			Help: "Total number of items removed from remote playlists",
		},
	)

	DuplicatesRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tagify_duplicates_removed_total",
			Help: "Total number of duplicate playlist entries repaired",
		},
	)

	DataLossEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tagify_data_loss_events_total",
			Help: "Total number of duplicate repairs that lost the re-added entry",
		},
	)
)

// Remote API metrics
var (
	RemoteCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagify_remote_calls_total",
			Help: "Total number of remote API calls by call and status",
		},
		[]string{"call", "status"},
	)

	RemoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tagify_remote_call_duration_seconds",
			Help:    "Remote API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"call"},
	)
)
