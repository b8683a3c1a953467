package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActionsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actionhub_actions_total",
		Help: "Actions executed, labelled by action key and result code (OK on success).",
	}, []string{"action", "code"})

	ActionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "actionhub_action_duration_ms",
		Help:    "Action latency from lookup to result, in milliseconds.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	}, []string{"action"})

	NotificationsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actionhub_notifications_dispatched_total",
		Help: "Notification jobs handed off, labelled by dispatch mode.",
	}, []string{"mode"})

	NotificationSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actionhub_notification_sends_total",
		Help: "Per-target channel sends, labelled by channel and outcome (sent, skipped, failed).",
	}, []string{"channel", "outcome"})

	MembershipLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "actionhub_membership_lookups_total",
		Help: "Membership resolutions, labelled by source (cache, backend).",
	}, []string{"source"})

	SocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "actionhub_socket_connections",
		Help: "Currently open notification websocket connections.",
	})

	CacheSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "actionhub_membership_cache_swept_total",
		Help: "Expired membership cache entries removed by the sweeper.",
	})
)
