package domain

import "time"

// Prediction is the checkable claim a proposal declared: an instrument, a
// directional action, and a confidence. Performance records are created
// only from outputs that declared one.
type Prediction struct {
	// Symbol is the instrument the prediction is about.
	Symbol string `json:"symbol"`

	// Action is the declared directional call.
	Action Action `json:"action"`

	// Confidence is the declared probability in [0,1].
	Confidence float64 `json:"confidence"`
}

// RealizedOutcome is the externally supplied observation a prediction is
// scored against. It typically arrives long after the round that produced
// the prediction.
type RealizedOutcome struct {
	// Symbol is the instrument the observation is about.
	Symbol string `json:"symbol"`

	// Return is the realized relative move over the holding period, signed.
	Return float64 `json:"return"`

	// ObservedAt is when the outcome became known.
	ObservedAt time.Time `json:"observed_at"`
}

// PerformanceRecord pairs one agent's prediction at a round with its
// later-observed outcome and the correctness the comparator assigned.
// Records are immutable once created and are retained until they fall
// outside the scoring window.
type PerformanceRecord struct {
	// Agent is the identity the record accrues to.
	Agent AgentID `json:"agent"`

	// Round is the round the prediction was made in.
	Round int `json:"round"`

	// Prediction is the claim as declared at round close.
	Prediction Prediction `json:"prediction"`

	// Outcome is the realized observation the prediction was scored against.
	Outcome RealizedOutcome `json:"outcome"`

	// Correctness is the comparator's per-record score in [0,1].
	Correctness float64 `json:"correctness"`

	// RecordedAt is when the outcome was resolved into this record.
	RecordedAt time.Time `json:"recorded_at"`
}
