// Package report provides presentation sinks for the contest engine's
// structured output.
package report

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

// JSONSink writes decisions and round summaries as a stream of
// newline-delimited JSON envelopes to a writer, typically a report file
// or stdout. Each envelope carries a kind tag and an emission timestamp
// so a single stream can interleave both record types.
type JSONSink struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

var _ ports.PresentationSink = (*JSONSink)(nil)

// NewJSONSink builds a sink writing to out.
func NewJSONSink(out io.Writer) *JSONSink {
	return &JSONSink{out: out, now: time.Now}
}

type envelope struct {
	Kind      string                     `json:"kind"`
	EmittedAt time.Time                  `json:"emitted_at"`
	Decisions []domain.PortfolioDecision `json:"decisions,omitempty"`
	Summary   *domain.RoundSummary       `json:"summary,omitempty"`
}

// PublishDecisions writes the decision list as one envelope. An empty
// list still writes an envelope, so downstream consumers can tell "no
// opportunities" apart from "engine never ran".
func (s *JSONSink) PublishDecisions(_ context.Context, decisions []domain.PortfolioDecision) error {
	return s.write(envelope{
		Kind:      "decisions",
		EmittedAt: s.now(),
		Decisions: decisions,
	}, "publish_decisions")
}

// PublishRoundSummary writes one round's diagnostics as an envelope.
func (s *JSONSink) PublishRoundSummary(_ context.Context, summary domain.RoundSummary) error {
	return s.write(envelope{
		Kind:      "round_summary",
		EmittedAt: s.now(),
		Summary:   &summary,
	}, "publish_round_summary")
}

func (s *JSONSink) write(env envelope, operation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	enc := json.NewEncoder(s.out)
	if err := enc.Encode(env); err != nil {
		return ports.NewSinkError("json", operation, err)
	}
	return nil
}
