package middleware

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// A single shared instance: promauto registers with the global registry,
// and a second NewPrometheusMetrics in the same process would panic on
// duplicate registration.
var testMetrics = NewPrometheusMetrics()

func TestPrometheusMetrics_RoundMetrics(t *testing.T) {
	pm := testMetrics

	pm.RecordLatency("round_execution", 250*time.Millisecond, map[string]string{"stage": "data"})
	pm.RecordCounter("round_abstentions", 2, map[string]string{"stage": "data", "reason": "timeout"})
	pm.RecordGauge("round_producers", 3, map[string]string{"stage": "data"})
	pm.RecordGauge("agent_weight", 0.4, map[string]string{"stage": "research", "agent": "momentum"})
	pm.RecordCounter("decisions_published", 1, nil)

	assert.InDelta(t, 2, testutil.ToFloat64(
		pm.roundAbstentions.WithLabelValues("data", "timeout")), 1e-9)
	assert.InDelta(t, 3, testutil.ToFloat64(
		pm.roundProducers.WithLabelValues("data")), 1e-9)
	assert.InDelta(t, 0.4, testutil.ToFloat64(
		pm.agentWeight.WithLabelValues("research", "momentum")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(
		pm.decisionsPublished.WithLabelValues()), 1e-9)
}

func TestPrometheusMetrics_LLMMetrics(t *testing.T) {
	pm := testMetrics

	pm.RecordHistogram("llm_request_seconds", 0.8,
		map[string]string{"provider": "anthropic", "model": "m", "status": "success"})
	pm.RecordCounter("llm_requests_total", 1,
		map[string]string{"provider": "anthropic", "model": "m", "status": "success"})
	pm.RecordCounter("llm_tokens_total", 120,
		map[string]string{"provider": "anthropic", "direction": "input"})

	assert.InDelta(t, 1, testutil.ToFloat64(
		pm.llmRequests.WithLabelValues("anthropic", "m", "success")), 1e-9)
	assert.InDelta(t, 120, testutil.ToFloat64(
		pm.llmTokens.WithLabelValues("anthropic", "input")), 1e-9)
}

func TestPrometheusMetrics_UnknownMetricsFallThrough(t *testing.T) {
	pm := testMetrics

	pm.RecordCounter("some_new_event", 5, nil)
	pm.RecordGauge("queue_depth", 7, nil)
	pm.RecordHistogram("score_spread", 0.3, nil)
	pm.RecordLatency("ledger_resolve", 10*time.Millisecond, nil)

	assert.InDelta(t, 5, testutil.ToFloat64(
		pm.genericCounters.WithLabelValues("some_new_event")), 1e-9)
	assert.InDelta(t, 7, testutil.ToFloat64(
		pm.genericGauges.WithLabelValues("queue_depth")), 1e-9)
}
