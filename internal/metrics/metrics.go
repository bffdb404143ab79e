package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Turn metrics
	TurnsTotal          *prometheus.CounterVec
	TurnDurationSeconds *prometheus.HistogramVec
	RetrievalScore      prometheus.Histogram

	// Encoder metrics
	EncoderRequestsTotal   *prometheus.CounterVec
	EncoderDurationSeconds *prometheus.HistogramVec

	// Query log metrics
	QueryLogRecordsTotal *prometheus.CounterVec

	// State gauges
	SessionsActive   prometheus.Gauge
	KnowledgeEntries *prometheus.GaugeVec

	// Webhook metrics
	WebhookEventsTotal     *prometheus.CounterVec
	WebhookDurationSeconds *prometheus.HistogramVec

	// Rate limiter metrics
	RateLimitDropped *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		TurnsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "unibot_turns_total",
				Help: "Total number of dialogue turns by intent and outcome",
			},
			[]string{"intent", "outcome"}, // outcome: answered, no_match, error
		),

		TurnDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "unibot_turn_duration_seconds",
				Help:    "Turn processing duration in seconds by intent",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"intent"},
		),

		RetrievalScore: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "unibot_retrieval_score",
				Help:    "Best cosine score of semantic retrieval turns",
				Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.45, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
			},
		),

		EncoderRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "unibot_encoder_requests_total",
				Help: "Total number of embedding requests by provider and status",
			},
			[]string{"provider", "status"}, // status: success, error
		),

		EncoderDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "unibot_encoder_duration_seconds",
				Help:    "Embedding request duration in seconds by provider",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8}, // Matches the 8s encoder timeout
			},
			[]string{"provider"},
		),

		QueryLogRecordsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "unibot_querylog_records_total",
				Help: "Total number of query-log records by sink and status",
			},
			[]string{"sink", "status"}, // status: written, error, dropped
		),

		SessionsActive: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "unibot_sessions_active",
				Help: "Number of sessions currently held in memory",
			},
		),

		KnowledgeEntries: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "unibot_knowledge_entries",
				Help: "Number of loaded knowledge-base entries by kind",
			},
			[]string{"kind"}, // kind: qa, course
		),

		WebhookEventsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "unibot_webhook_events_total",
				Help: "Total number of LINE webhook events by type and status",
			},
			[]string{"type", "status"},
		),

		WebhookDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "unibot_webhook_duration_seconds",
				Help:    "Webhook event processing duration in seconds by event type",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"type"},
		),

		RateLimitDropped: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "unibot_rate_limit_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter"}, // limiter: client, webhook
		),
	}

	return m
}

// RecordTurn records one completed turn.
func (m *Metrics) RecordTurn(intent, outcome string, duration float64) {
	m.TurnsTotal.WithLabelValues(intent, outcome).Inc()
	m.TurnDurationSeconds.WithLabelValues(intent).Observe(duration)
}

// RecordRetrievalScore records the best cosine score of a semantic turn
func (m *Metrics) RecordRetrievalScore(score float64) {
	m.RetrievalScore.Observe(score)
}

// RecordEncoderRequest records an embedding request with status
func (m *Metrics) RecordEncoderRequest(provider, status string, duration float64) {
	m.EncoderRequestsTotal.WithLabelValues(provider, status).Inc()
	m.EncoderDurationSeconds.WithLabelValues(provider).Observe(duration)
}

// RecordQueryLog records n query-log records handled by a sink
func (m *Metrics) RecordQueryLog(sink, status string, n int) {
	m.QueryLogRecordsTotal.WithLabelValues(sink, status).Add(float64(n))
}

// SetSessionsActive sets the in-memory session gauge
func (m *Metrics) SetSessionsActive(n int) {
	m.SessionsActive.Set(float64(n))
}

// SetKnowledgeEntries sets the loaded entry gauge for a kind
func (m *Metrics) SetKnowledgeEntries(kind string, n int) {
	m.KnowledgeEntries.WithLabelValues(kind).Set(float64(n))
}

// RecordWebhook records a webhook event with status
func (m *Metrics) RecordWebhook(eventType, status string, duration float64) {
	m.WebhookEventsTotal.WithLabelValues(eventType, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(duration)
}

// RecordRateLimiterDrop records a dropped request
func (m *Metrics) RecordRateLimiterDrop(limiter string) {
	m.RateLimitDropped.WithLabelValues(limiter).Inc()
}
