package llm

import (
	"context"
	"errors"
	"time"

	"github.com/ahrav/go-quorum/internal/ports"
)

// MetricsMiddleware records latency, request counts, and token usage for
// every provider call through the given collector.
func MetricsMiddleware(provider string, collector ports.MetricsCollector) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &metricsLLM{passthrough{next}, provider, collector}
	}
}

type metricsLLM struct {
	passthrough
	provider  string
	collector ports.MetricsCollector
}

func (m *metricsLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	start := time.Now()
	response, tokensIn, tokensOut, err := m.next.DoRequest(ctx, prompt, opts)
	if m.collector == nil {
		return response, tokensIn, tokensOut, err
	}

	labels := map[string]string{
		"provider": m.provider,
		"model":    m.next.GetModel(),
		"status":   requestStatus(ctx, err),
	}
	m.collector.RecordHistogram("llm_request_seconds", time.Since(start).Seconds(), labels)
	m.collector.RecordCounter("llm_requests_total", 1, labels)
	if err == nil {
		m.collector.RecordCounter("llm_tokens_total", float64(tokensIn),
			map[string]string{"provider": m.provider, "direction": "input"})
		m.collector.RecordCounter("llm_tokens_total", float64(tokensOut),
			map[string]string{"provider": m.provider, "direction": "output"})
	}
	return response, tokensIn, tokensOut, err
}

func requestStatus(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case ctx.Err() != nil:
		return "timeout"
	default:
		return "error"
	}
}
