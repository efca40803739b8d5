// Package middleware provides cross-cutting infrastructure for the contest
// engine, currently the Prometheus-backed metrics collector.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-quorum/internal/ports"
)

// PrometheusMetrics implements ports.MetricsCollector on the global
// Prometheus registry. It maps the engine's well-known metric names onto
// typed vectors and routes anything else to generic catch-all vectors so
// new call sites never drop data silently.
type PrometheusMetrics struct {
	roundLatency       *prometheus.HistogramVec
	roundAbstentions   *prometheus.CounterVec
	roundProducers     *prometheus.GaugeVec
	agentWeight        *prometheus.GaugeVec
	decisionsPublished *prometheus.CounterVec
	llmLatency         *prometheus.HistogramVec
	llmRequests        *prometheus.CounterVec
	llmTokens          *prometheus.CounterVec

	genericCounters   *prometheus.CounterVec
	genericGauges     *prometheus.GaugeVec
	genericHistograms *prometheus.HistogramVec
	genericLatency    *prometheus.HistogramVec
}

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics registers the contest engine's metrics with the
// default registry. Call it once per process.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		roundLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "contest_round_duration_seconds",
				Help:    "Wall time of a contest round from dispatch to barrier settle.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		roundAbstentions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contest_round_abstentions_total",
				Help: "Abstentions recorded per round, by stage and reason.",
			},
			[]string{"stage", "reason"},
		),
		roundProducers: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "contest_round_producers",
				Help: "Agents that produced a candidate output in the latest round.",
			},
			[]string{"stage"},
		),
		agentWeight: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "contest_agent_weight",
				Help: "Weight allocated to an agent after the latest round.",
			},
			[]string{"stage", "agent"},
		),
		decisionsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contest_decisions_published_total",
				Help: "Portfolio decisions emitted by the aggregator.",
			},
			[]string{},
		),
		llmLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "Latency of individual LLM provider requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "model", "status"},
		),
		llmRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "LLM provider requests, by outcome.",
			},
			[]string{"provider", "model", "status"},
		),
		llmTokens: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Tokens consumed by LLM requests, by direction.",
			},
			[]string{"provider", "direction"},
		),

		genericCounters: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contest_events_total",
				Help: "Counter events without a dedicated metric.",
			},
			[]string{"metric"},
		),
		genericGauges: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "contest_state",
				Help: "Gauge values without a dedicated metric.",
			},
			[]string{"metric"},
		),
		genericHistograms: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "contest_values",
				Help:    "Histogram values without a dedicated metric.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"metric"},
		),
		genericLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "contest_operation_duration_seconds",
				Help:    "Latency of operations without a dedicated metric.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordLatency records operation wall time.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	switch operation {
	case "round_execution":
		pm.roundLatency.WithLabelValues(labels["stage"]).Observe(duration.Seconds())
	default:
		pm.genericLatency.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// RecordCounter increments the counter backing the named metric.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case "round_abstentions":
		pm.roundAbstentions.WithLabelValues(labels["stage"], labels["reason"]).Add(value)
	case "decisions_published":
		pm.decisionsPublished.WithLabelValues().Add(value)
	case "llm_requests_total":
		pm.llmRequests.WithLabelValues(labels["provider"], labels["model"], labels["status"]).Add(value)
	case "llm_tokens_total":
		pm.llmTokens.WithLabelValues(labels["provider"], labels["direction"]).Add(value)
	default:
		pm.genericCounters.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge sets the gauge backing the named metric.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	switch metric {
	case "round_producers":
		pm.roundProducers.WithLabelValues(labels["stage"]).Set(value)
	case "agent_weight":
		pm.agentWeight.WithLabelValues(labels["stage"], labels["agent"]).Set(value)
	default:
		pm.genericGauges.WithLabelValues(metric).Set(value)
	}
}

// RecordHistogram records a distribution sample for the named metric.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	switch metric {
	case "llm_request_seconds":
		pm.llmLatency.WithLabelValues(labels["provider"], labels["model"], labels["status"]).Observe(value)
	default:
		pm.genericHistograms.WithLabelValues(metric).Observe(value)
	}
}
