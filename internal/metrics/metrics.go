// Package metrics declares the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gauges
var (
	ConnectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "civicwatch_ws_connected_clients",
		Help: "Number of websocket clients connected to this instance",
	})
	ActiveLiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "civicwatch_live_sessions_active",
		Help: "Active live sessions across all instances",
	})
	PendingReplayQueue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "civicwatch_offline_queue_length",
		Help: "Complaint submissions waiting for replay",
	})
)

// Counters
var (
	ComplaintsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "civicwatch_complaints_submitted_total",
		Help: "Complaints accepted",
	})
	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civicwatch_status_transitions_total",
		Help: "Complaint status transitions by target status",
	}, []string{"to"})
	ReportsFiled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civicwatch_reports_filed_total",
		Help: "Reports filed against complaints by reason",
	}, []string{"reason"})
	SignalsRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civicwatch_signals_relayed_total",
		Help: "Signaling messages relayed by type and route (local, remote, dropped)",
	}, []string{"type", "route"})
	ReplayOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civicwatch_offline_replay_total",
		Help: "Offline replay attempts by outcome",
	}, []string{"outcome"})
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civicwatch_notifications_total",
		Help: "Telegram notifications by outcome",
	}, []string{"outcome"})
)
