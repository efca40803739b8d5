package domain

import "time"

// TaskOutcome is the terminal result of one dispatched task: exactly one of
// Output or Abstention is set. Every dispatched task settles into exactly
// one TaskOutcome; there is no partial or duplicate emission.
type TaskOutcome struct {
	// Agent identifies whose task this outcome settles.
	Agent AgentID `json:"agent"`

	// Output is the validated candidate output, nil when the task abstained.
	Output *CandidateOutput `json:"output,omitempty"`

	// Abstention explains a missing output, nil when the task produced one.
	Abstention *Abstention `json:"abstention,omitempty"`
}

// Produced reports whether the task settled with a candidate output.
func (o TaskOutcome) Produced() bool { return o.Output != nil }

// RoundResult is the frozen outcome set of one contest round. It is built
// behind the round barrier and exposed only once every dispatched task has
// settled, so readers never observe a partially filled result.
type RoundResult struct {
	// Stage is the contest pool this round ran in.
	Stage Stage `json:"stage"`

	// Round is the round's sequence number.
	Round int `json:"round"`

	// StartedAt is when dispatch began.
	StartedAt time.Time `json:"started_at"`

	// SettledAt is when the last task settled or the deadline closed,
	// whichever came first.
	SettledAt time.Time `json:"settled_at"`

	// Outcomes holds one entry per dispatched task, in dispatch order.
	// Completion order never affects this slice.
	Outcomes []TaskOutcome `json:"outcomes"`
}

// Outcome returns the settled outcome for the given agent.
func (r RoundResult) Outcome(id AgentID) (TaskOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.Agent == id {
			return o, true
		}
	}
	return TaskOutcome{}, false
}

// Producers returns the agents that settled with a candidate output, in
// dispatch order. Only these are eligible for weight allocation.
func (r RoundResult) Producers() []TaskOutcome {
	produced := make([]TaskOutcome, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Produced() {
			produced = append(produced, o)
		}
	}
	return produced
}

// AllAbstained reports whether every task in the round abstained. This is a
// valid terminal state, not an error: the pipeline proceeds with an empty
// admitted set.
func (r RoundResult) AllAbstained() bool {
	for _, o := range r.Outcomes {
		if o.Produced() {
			return false
		}
	}
	return true
}

// AbstentionCounts tallies abstentions by code, for round summaries and
// metrics.
func (r RoundResult) AbstentionCounts() map[AbstainCode]int {
	counts := make(map[AbstainCode]int)
	for _, o := range r.Outcomes {
		if o.Abstention != nil {
			counts[o.Abstention.Code]++
		}
	}
	return counts
}
