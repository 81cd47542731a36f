// Package metrics defines the Prometheus instruments used across the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Key-value store metrics
var (
	// KVOpsTotal tracks key-value operations by command name and status.
	KVOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kv_operations_total",
			Help: "Total key-value store operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// KVOpDuration tracks key-value operation latency in seconds.
	KVOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kv_operation_duration_seconds",
			Help:    "Key-value operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// KVConnectionErrors tracks failed connection attempts to the key-value store.
	KVConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kv_connection_errors_total",
			Help: "Total key-value store connection errors",
		},
	)

	// KVConnectionBroken reports the watchdog's view of the connection
	// (0=healthy, 1=broken).
	KVConnectionBroken = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kv_connection_broken",
			Help: "Whether the key-value store connection is currently considered broken",
		},
	)

	// CircuitBreakerStateChanges tracks breaker transitions by new state.
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)

	// CircuitBreakerState reports the current breaker state
	// (0=closed, 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)

	// DistributedLockAcquisitions tracks distributed lock attempts by outcome.
	DistributedLockAcquisitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distributed_lock_acquisitions_total",
			Help: "Distributed lock acquisition attempts by outcome (acquired/contended/error)",
		},
		[]string{"outcome"},
	)

	// PubSubMessagesPublished tracks envelope messages published by action.
	PubSubMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pubsub_messages_published_total",
			Help: "Pub/sub envelope messages published by action",
		},
		[]string{"action"},
	)

	// PubSubMessagesReceived tracks envelope messages received by action.
	PubSubMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pubsub_messages_received_total",
			Help: "Pub/sub envelope messages received by action",
		},
		[]string{"action"},
	)
)

// Reconciliation cycle metrics
var (
	// CyclesTotal tracks completed cycles by task and status.
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciliation_cycles_total",
			Help: "Completed reconciliation cycles by task and status",
		},
		[]string{"task", "status"},
	)

	// CycleDuration tracks cycle wall time by task.
	CycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reconciliation_cycle_duration_seconds",
			Help:    "Reconciliation cycle duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"task"},
	)

	// LiveSessionsCreated counts notification messages posted by the tracker.
	LiveSessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "live_sessions_created_total",
			Help: "Live sessions created by the tracker",
		},
	)

	// LiveSessionsRemoved counts sessions removed by the reconciler.
	LiveSessionsRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "live_sessions_removed_total",
			Help: "Live sessions removed by the reconciler",
		},
	)

	// MessagesRecreated counts notification messages reposted after a failed edit.
	MessagesRecreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messages_recreated_total",
			Help: "Notification messages recreated after an edit failure",
		},
	)

	// NameCacheRebuildSize reports the entry count of the last cache rebuild.
	NameCacheRebuildSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "name_cache_rebuild_size",
			Help: "Number of entries written by the last name cache rebuild",
		},
	)
)
