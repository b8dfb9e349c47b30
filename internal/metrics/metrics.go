package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "trivia"

// Answer outcomes
const (
	AnswerRecorded = "recorded"
	AnswerIgnored  = "ignored"
)

// Connection rejection reasons
const (
	RejectLobbyFull   = "lobby_full"
	RejectInvalidJoin = "invalid_join"
)

// Metrics holds the game's prometheus collectors on a dedicated registry
type Metrics struct {
	registry *prometheus.Registry

	playersConnected    prometheus.Gauge
	connectionsRejected *prometheus.CounterVec
	answers             *prometheus.CounterVec
	malformedMessages   prometheus.Counter
	broadcastFailures   *prometheus.CounterVec
	roundsCompleted     prometheus.Counter
	roundDuration       prometheus.Histogram
	sessionsCompleted   prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		playersConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "players_connected",
			Help:      "Number of players currently registered.",
		}),
		connectionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_rejected_total",
			Help:      "Connections closed before registration, by reason.",
		}, []string{"reason"}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Answer messages received, by outcome.",
		}, []string{"outcome"}),
		malformedMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_messages_total",
			Help:      "Inbound lines dropped because they failed to decode.",
		}),
		broadcastFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_failures_total",
			Help:      "Failed sends to individual players, by message kind.",
		}, []string{"kind"}),
		roundsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_completed_total",
			Help:      "Rounds that reached result broadcast.",
		}),
		roundDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_duration_seconds",
			Help:      "Time from question broadcast to result broadcast.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		}),
		sessionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Sessions that broadcast final standings.",
		}),
	}

	m.registry.MustRegister(
		m.playersConnected,
		m.connectionsRejected,
		m.answers,
		m.malformedMessages,
		m.broadcastFailures,
		m.roundsCompleted,
		m.roundDuration,
		m.sessionsCompleted,
	)
	return m
}

// Registry returns the registry backing these collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format for this registry only
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) PlayerJoined() {
	m.playersConnected.Inc()
}

func (m *Metrics) PlayerLeft() {
	m.playersConnected.Dec()
}

func (m *Metrics) ConnectionRejected(reason string) {
	m.connectionsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) AnswerReceived(outcome string) {
	m.answers.WithLabelValues(outcome).Inc()
}

func (m *Metrics) MalformedMessage() {
	m.malformedMessages.Inc()
}

func (m *Metrics) BroadcastFailed(kind string) {
	m.broadcastFailures.WithLabelValues(kind).Inc()
}

// RoundCompleted counts a finished round and observes its duration
func (m *Metrics) RoundCompleted(duration time.Duration) {
	m.roundsCompleted.Inc()
	m.roundDuration.Observe(duration.Seconds())
}

func (m *Metrics) SessionCompleted() {
	m.sessionsCompleted.Inc()
}
