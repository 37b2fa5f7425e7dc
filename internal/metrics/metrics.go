package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Producer side
	ReadingsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_readings_received_total",
			Help: "Total number of readings received by the alerting pipeline",
		},
		[]string{"kind"}, // bp, hr
	)

	ReadingsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_readings_rejected_total",
			Help: "Total number of readings rejected at the producer boundary",
		},
		[]string{"kind"},
	)

	DeviceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_device_errors_total",
			Help: "Total number of wearable polling errors",
		},
		[]string{"device_id"},
	)

	// Pipeline
	DebounceEvaluations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulse_debounce_evaluations_total",
			Help: "Total number of debounced BP evaluations dispatched",
		},
	)

	AlertsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_alerts_fired_total",
			Help: "Total number of alert notifications created",
		},
		[]string{"title"},
	)

	AlertsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_alerts_suppressed_total",
			Help: "Total number of alerts dropped by the suppression cool-down",
		},
		[]string{"title"},
	)

	NotifierErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_notifier_errors_total",
			Help: "Total number of failed outbound alert deliveries",
		},
		[]string{"notifier"},
	)

	// Feeds
	UnreadNotifications = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pulse_notifications_unread",
			Help: "Number of unread notifications in each user's feed",
		},
		[]string{"user"},
	)

	// Persistence
	PersistenceDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_persistence_degraded_total",
			Help: "Total number of mutations applied in memory only because persistence failed",
		},
		[]string{"op"},
	)
)

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
