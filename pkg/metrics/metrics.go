package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsCreated counts persisted notification records by type.
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_notifications_created_total",
			Help: "Total number of notification records persisted",
		},
		[]string{"type"},
	)

	// Deliveries records delivery attempts by path (live|queued|drained|summary) and result (success|failure).
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_notification_deliveries_total",
			Help: "Total number of notification delivery attempts",
		},
		[]string{"path", "result"},
	)

	// EmailSends records best-effort email delivery by result (sent|failed|skipped).
	EmailSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_notification_emails_total",
			Help: "Total number of notification emails attempted",
		},
		[]string{"result"},
	)

	// ConnectedUsers tracks users with at least one live channel.
	ConnectedUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nexus_connected_users",
			Help: "Number of users with an open realtime connection",
		},
	)

	// PendingDeliveries tracks queued notifications waiting for their user to connect.
	PendingDeliveries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nexus_pending_deliveries",
			Help: "Number of queued notifications awaiting delivery",
		},
	)

	// AuthAttempts records realtime and API authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"surface", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nexus_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
