// Package metrics exposes the bot's Prometheus instrumentation. Counters are
// registered on a caller-provided registry so tests can use isolated ones.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the counters incremented by the engine and the notifier.
type Metrics struct {
	EventsProcessed   *prometheus.CounterVec
	ValidationRetries prometheus.Counter
	Activations       *prometheus.CounterVec
	NotificationsSent *prometheus.CounterVec
}

// New registers the bot metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		EventsProcessed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "bot_events_processed_total",
			Help: "Incoming chat events handled, by kind (message, callback).",
		}, []string{"kind"}),
		ValidationRetries: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "bot_validation_retries_total",
			Help: "User inputs rejected by a validator and re-prompted.",
		}),
		Activations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "bot_warranty_activations_total",
			Help: "Warranties activated, by tier.",
		}, []string{"tier"}),
		NotificationsSent: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "bot_notifications_sent_total",
			Help: "Scheduled notifications delivered, by message type.",
		}, []string{"type"}),
	}
}
