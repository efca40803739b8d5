// Package ports defines the core interfaces that form the contract between
// the domain/engine layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-quorum/internal/domain"
)

// TaskExecutor performs the opaque work of one task: the agent's reasoning
// and tool use. The engine never inspects its internals; it only demands a
// candidate output or a typed failure.
//
// Implementations must respect context cancellation and return promptly
// once the deadline passes; the runner cancels timed-out executions
// best-effort and treats them as terminal abstentions. Implementations
// should be stateless between calls and safe for concurrent use.
type TaskExecutor interface {
	// Execute produces the candidate output for one task. A schema-invalid
	// result should be reported as a *domain.ValidationError and a
	// dependency failure as a *ToolError; the runner converts both to
	// abstentions rather than failing the round.
	Execute(ctx context.Context, task domain.Task) (domain.CandidateOutput, error)
}

// Comparator turns a (prediction, realized outcome) pair into a per-record
// correctness score. Implementations know the deployment's domain; the
// engine only requires the score to be bounded to [0,1] and monotonic:
// a strictly better outcome for the same prediction never scores lower.
type Comparator interface {
	// Compare scores one prediction against one realized outcome.
	Compare(pred domain.Prediction, outcome domain.RealizedOutcome) (float64, error)
}

// OutcomeSource asynchronously supplies realized outcomes for previously
// recorded predictions, typically from later market observations. The
// engine polls it outside any round's critical path and feeds results to
// the performance ledger.
type OutcomeSource interface {
	// Outcomes returns the realized outcomes that became known up to asOf.
	Outcomes(ctx context.Context, asOf time.Time) ([]domain.RealizedOutcome, error)
}

// PresentationSink receives the engine's structured output: the final
// decision list and per-round diagnostic summaries. The engine never
// formats; sinks own display concerns entirely.
type PresentationSink interface {
	// PublishDecisions delivers the final per-instrument decisions.
	PublishDecisions(ctx context.Context, decisions []domain.PortfolioDecision) error

	// PublishRoundSummary delivers one round's weights and abstentions.
	PublishRoundSummary(ctx context.Context, summary domain.RoundSummary) error
}

// ContextBuilder renders the admitted stage-one factors into the opaque
// context blob for one stage-two task. It runs only after the stage-one
// round has fully settled and weights are allocated.
type ContextBuilder func(trigger time.Time, belief domain.Belief, factors []domain.Factor) string
