package domain

import "time"

// PortfolioDecision is the final per-instrument decision the aggregator
// emits: one per instrument appearing in any admitted proposal of the
// final round, exactly once.
type PortfolioDecision struct {
	// Symbol is the decided instrument's code.
	Symbol string `json:"symbol"`

	// SymbolName is the instrument's display name, taken from the winning
	// contribution.
	SymbolName string `json:"symbol_name,omitempty"`

	// Action is the winning action class. Exact ties resolve to ActionHold.
	Action Action `json:"action"`

	// Confidence is the normalized margin between the winning and runner-up
	// weighted sums, in [0,1]. A single uncontested proposal yields its own
	// confidence scaled by its weight.
	Confidence float64 `json:"confidence"`

	// Ambiguous flags an exact weighted tie between opposing actions. The
	// tie is surfaced, never resolved arbitrarily.
	Ambiguous bool `json:"ambiguous,omitempty"`

	// Evidence concatenates the winning contributions' evidence in original
	// order, deduplicated by (description, source) identity.
	Evidence []Evidence `json:"evidence,omitempty"`

	// Contributors lists the agents whose proposals backed the winning
	// action, in contribution order.
	Contributors []AgentID `json:"contributors,omitempty"`
}

// RoundSummary is the per-round diagnostic record handed to the
// presentation sink: allocated weights and abstentions, structured only.
type RoundSummary struct {
	// Stage is the contest pool the round ran in.
	Stage Stage `json:"stage"`

	// Round is the round's sequence number.
	Round int `json:"round"`

	// SettledAt is when the round closed.
	SettledAt time.Time `json:"settled_at"`

	// Weights holds the allocated weight per agent, admitted or not.
	Weights map[AgentID]float64 `json:"weights"`

	// Abstentions tallies abstentions by code.
	Abstentions map[AbstainCode]int `json:"abstentions,omitempty"`
}
