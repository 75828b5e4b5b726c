// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

// Package metrics holds the Prometheus collectors for the real-time client.
//
// Collectors are registered on the default registry through promauto and
// exposed by the status server at /metrics. Namespace labels use "/" for the
// main namespace.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection lifecycle

	ConnectionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "telesync_connection_state",
			Help: "Current connection state per namespace (0=disconnected, 1=connecting, 2=connected, 3=error)",
		},
		[]string{"namespace"},
	)

	ConnectionAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telesync_connection_attempts_total",
			Help: "Dial attempts by namespace and result",
		},
		[]string{"namespace", "result"}, // "success", "failure"
	)

	ReconnectsScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telesync_reconnects_scheduled_total",
			Help: "Automatic reconnects scheduled after an abnormal close",
		},
		[]string{"namespace"},
	)

	ReconnectsExhausted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telesync_reconnects_exhausted_total",
			Help: "Times a connection entered the terminal error state",
		},
		[]string{"namespace"},
	)

	// Frames

	FramesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telesync_frames_received_total",
			Help: "Inbound frames by namespace and wire type",
		},
		[]string{"namespace", "type"},
	)

	FramesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telesync_frames_sent_total",
			Help: "Outbound frames by namespace and wire type",
		},
		[]string{"namespace", "type"},
	)

	FramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telesync_frames_dropped_total",
			Help: "Inbound frames dropped before dispatch",
		},
		[]string{"namespace", "reason"}, // "malformed", "unknown_type", "invalid_payload"
	)

	SendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telesync_send_failures_total",
			Help: "Outbound sends rejected or failed",
		},
		[]string{"namespace", "reason"}, // "not_connected", "encode", "write"
	)

	HeartbeatRTT = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "telesync_heartbeat_rtt_seconds",
			Help:    "Time between a heartbeat and its echo",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"namespace"},
	)

	// Dispatch and reconciliation

	EventsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telesync_events_dispatched_total",
			Help: "Canonical events dispatched by type",
		},
		[]string{"event_type"},
	)

	HandlerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telesync_handler_failures_total",
			Help: "Handler errors and recovered panics by event type",
		},
		[]string{"event_type"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "telesync_dispatch_duration_seconds",
			Help:    "Time spent running all handlers for one event",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
		[]string{"event_type"},
	)

	ReducerApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telesync_reducer_applied_total",
			Help: "Reducer outcomes by event type",
		},
		[]string{"event_type", "outcome"}, // "applied", "noop", "skipped"
	)

	NotificationsSurfaced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telesync_notifications_surfaced_total",
			Help: "User-facing interruptions raised",
		},
		[]string{"kind"}, // "toast", "system"
	)

	// Subscriptions and presence

	ActiveSubscriptions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "telesync_active_subscriptions",
			Help: "Channels with a positive reference count",
		},
		[]string{"namespace"},
	)

	TypingIndicators = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "telesync_typing_indicators",
			Help: "Typing indicators currently tracked",
		},
	)

	TypingExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telesync_typing_expired_total",
			Help: "Typing indicators removed by the sweeper",
		},
	)

	OnlineUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "telesync_online_users",
			Help: "Users currently marked online",
		},
	)

	// Token accessor

	TokenFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telesync_token_fetches_total",
			Help: "Bearer token fetches by result",
		},
		[]string{"result"}, // "success", "failure", "circuit_open"
	)
)

// namespaceLabel renders the main namespace as "/".
func namespaceLabel(ns string) string {
	if ns == "" {
		return "/"
	}
	return ns
}

// SetConnectionState records the numeric state of a namespace connection.
func SetConnectionState(namespace string, state int) {
	ConnectionState.WithLabelValues(namespaceLabel(namespace)).Set(float64(state))
}

// RecordDial records the outcome of one dial attempt.
func RecordDial(namespace string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	ConnectionAttempts.WithLabelValues(namespaceLabel(namespace), result).Inc()
}

// RecordReconnectScheduled counts an automatic reconnect.
func RecordReconnectScheduled(namespace string) {
	ReconnectsScheduled.WithLabelValues(namespaceLabel(namespace)).Inc()
}

// RecordReconnectExhausted counts a transition to the terminal error state.
func RecordReconnectExhausted(namespace string) {
	ReconnectsExhausted.WithLabelValues(namespaceLabel(namespace)).Inc()
}

// RecordFrameReceived counts an inbound frame.
func RecordFrameReceived(namespace, frameType string) {
	FramesReceived.WithLabelValues(namespaceLabel(namespace), frameType).Inc()
}

// RecordFrameSent counts an outbound frame.
func RecordFrameSent(namespace, frameType string) {
	FramesSent.WithLabelValues(namespaceLabel(namespace), frameType).Inc()
}

// RecordFrameDropped counts an inbound frame discarded before dispatch.
func RecordFrameDropped(namespace, reason string) {
	FramesDropped.WithLabelValues(namespaceLabel(namespace), reason).Inc()
}

// RecordSendFailure counts a rejected or failed send.
func RecordSendFailure(namespace, reason string) {
	SendFailures.WithLabelValues(namespaceLabel(namespace), reason).Inc()
}

// RecordHeartbeatRTT observes heartbeat round trip time.
func RecordHeartbeatRTT(namespace string, rtt time.Duration) {
	HeartbeatRTT.WithLabelValues(namespaceLabel(namespace)).Observe(rtt.Seconds())
}

// RecordDispatch records one dispatched event and its handler run time.
func RecordDispatch(eventType string, duration time.Duration) {
	EventsDispatched.WithLabelValues(eventType).Inc()
	DispatchDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

// RecordHandlerFailure counts a handler error or recovered panic.
func RecordHandlerFailure(eventType string) {
	HandlerFailures.WithLabelValues(eventType).Inc()
}

// RecordReducer records a reducer outcome.
func RecordReducer(eventType, outcome string) {
	ReducerApplied.WithLabelValues(eventType, outcome).Inc()
}

// RecordNotificationSurfaced counts a toast or system notification.
func RecordNotificationSurfaced(kind string) {
	NotificationsSurfaced.WithLabelValues(kind).Inc()
}

// SetActiveSubscriptions sets the live channel count for a namespace.
func SetActiveSubscriptions(namespace string, n int) {
	ActiveSubscriptions.WithLabelValues(namespaceLabel(namespace)).Set(float64(n))
}

// SetPresence updates typing and online gauges.
func SetPresence(typing, online int) {
	TypingIndicators.Set(float64(typing))
	OnlineUsers.Set(float64(online))
}

// RecordTypingExpired counts indicators removed by the sweeper.
func RecordTypingExpired(n int) {
	TypingExpired.Add(float64(n))
}

// RecordTokenFetch counts a token fetch outcome.
func RecordTokenFetch(result string) {
	TokenFetches.WithLabelValues(result).Inc()
}
