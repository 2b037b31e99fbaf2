package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APILatency measures HTTP request latencies by route template.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notifications_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// AuthFailures counts rejected credentials by reason (missing|invalid).
	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_auth_failures_total",
			Help: "Total number of rejected credentials",
		},
		[]string{"reason"},
	)

	// NotificationsCreated counts creation requests by type and result (created|skipped).
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Total number of notification creation requests",
		},
		[]string{"type", "result"},
	)

	// StorageCalls measures stored procedure latency by procedure and result (ok|error|timeout).
	StorageCalls = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notifications_storage_call_seconds",
			Help:    "Stored procedure call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"procedure", "result"},
	)

	// CountCacheLookups counts unread-count cache lookups (hit|miss).
	CountCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_unread_cache_lookups_total",
			Help: "Unread count cache lookups",
		},
		[]string{"result"},
	)

	// EventsConsumed counts Kafka records by topic and outcome (created|skipped|ignored|failed).
	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_events_consumed_total",
			Help: "Kafka records processed",
		},
		[]string{"topic", "outcome"},
	)
)
