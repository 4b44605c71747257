package metrics

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "devquest"

// Metrics holds the Prometheus collectors of the contest worker. It satisfies
// the contest engine Metrics port, the outbox relay metrics and the bus
// delivery metrics.
type Metrics struct {
	registry *prometheus.Registry

	Transitions     *prometheus.CounterVec
	Reactions       *prometheus.CounterVec
	BadgeAwards     *prometheus.CounterVec
	Deliveries      *prometheus.CounterVec
	OutboxPublished *prometheus.CounterVec
	OutboxFailures  *prometheus.CounterVec
	LoopDuration    *prometheus.HistogramVec
	DBConnPoolStats *prometheus.GaugeVec
}

// New registers every collector on a private registry so several instances
// can coexist in one process.
func New(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: serviceName,
				Name:      "challenge_transitions_total",
				Help:      "Challenge status transitions applied",
			},
			[]string{"from", "to"},
		),
		Reactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: serviceName,
				Name:      "submission_reactions_total",
				Help:      "Like, unlike and vote requests by outcome",
			},
			[]string{"kind", "outcome"},
		),
		BadgeAwards: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: serviceName,
				Name:      "badge_awards_total",
				Help:      "Badge award attempts by outcome",
			},
			[]string{"badge_slug", "outcome"},
		),
		Deliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: serviceName,
				Name:      "bus_deliveries_total",
				Help:      "Event deliveries to consumers by outcome",
			},
			[]string{"topic", "consumer_group", "outcome"},
		),
		OutboxPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: serviceName,
				Name:      "outbox_published_total",
				Help:      "Outbox rows published to the bus",
			},
			[]string{"event_type"},
		),
		OutboxFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: serviceName,
				Name:      "outbox_failures_total",
				Help:      "Outbox relay failures by stage",
			},
			[]string{"stage"},
		),
		LoopDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: serviceName,
				Name:      "worker_loop_duration_seconds",
				Help:      "Duration of one worker loop iteration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"loop"},
		),
		DBConnPoolStats: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: serviceName,
				Name:      "db_connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"stat"},
		),
	}
}

func (m *Metrics) ObserveTransition(from string, to string) {
	m.Transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveReaction(kind string, outcome string) {
	m.Reactions.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveBadgeAward(slug string, outcome string) {
	m.BadgeAwards.WithLabelValues(slug, outcome).Inc()
}

func (m *Metrics) ObserveDelivery(topic string, consumerGroup string, outcome string) {
	m.Deliveries.WithLabelValues(topic, consumerGroup, outcome).Inc()
}

func (m *Metrics) ObserveOutboxPublished(eventType string) {
	m.OutboxPublished.WithLabelValues(eventType).Inc()
}

func (m *Metrics) ObserveOutboxFailure(stage string) {
	m.OutboxFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveLoop(loop string, elapsed time.Duration) {
	m.LoopDuration.WithLabelValues(loop).Observe(elapsed.Seconds())
}

// RecordDBPoolStats records database connection pool statistics.
func (m *Metrics) RecordDBPoolStats(stats sql.DBStats) {
	m.DBConnPoolStats.WithLabelValues("open").Set(float64(stats.OpenConnections))
	m.DBConnPoolStats.WithLabelValues("in_use").Set(float64(stats.InUse))
	m.DBConnPoolStats.WithLabelValues("idle").Set(float64(stats.Idle))
	m.DBConnPoolStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
	m.DBConnPoolStats.WithLabelValues("wait_duration_ms").Set(float64(stats.WaitDuration.Milliseconds()))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
