package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Bot commands received, by command and outcome (ok/error/rate_limited).",
		},
		[]string{"command", "outcome"},
	)

	flowEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_flow_events_total",
			Help: "Conversation flow lifecycle events (started/completed/cancelled/replaced).",
		},
		[]string{"flow", "event"},
	)

	remindersSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_sent_total",
			Help: "Reminder messages sent, by kind (diary/survey).",
		},
		[]string{"kind"},
	)

	cryptoFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payload_crypto_failures_total",
			Help: "Encrypt/decrypt failures on stored payloads, by operation.",
		},
		[]string{"op"},
	)

	dbQueryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_latency_ms",
			Help:    "Repository query latency distribution in milliseconds.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"repo", "method"},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			commandsTotal, flowEvents, remindersSent, cryptoFailures, dbQueryLatency,
		)
	})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncCommand(command, outcome string) {
	commandsTotal.WithLabelValues(norm(command), norm(outcome)).Inc()
}

func IncFlowEvent(flow, event string) {
	flowEvents.WithLabelValues(norm(flow), norm(event)).Inc()
}

func IncReminder(kind string) {
	remindersSent.WithLabelValues(norm(kind)).Inc()
}

func IncCryptoFailure(op string) {
	cryptoFailures.WithLabelValues(norm(op)).Inc()
}

func ObserveDBQuery(repo, method string, latencyMs float64) {
	dbQueryLatency.WithLabelValues(norm(repo), norm(method)).Observe(latencyMs)
}
