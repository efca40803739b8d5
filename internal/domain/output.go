package domain

import (
	"fmt"
	"time"
)

// Action is the directional call a Proposal makes on an instrument.
type Action string

const (
	// ActionBuy proposes opening or increasing a long position.
	ActionBuy Action = "buy"

	// ActionSell proposes closing a position or going short.
	ActionSell Action = "sell"

	// ActionHold proposes no action. Aggregation ties resolve to it.
	ActionHold Action = "hold"
)

// Valid reports whether the action is one of the defined action classes.
func (a Action) Valid() bool {
	return a == ActionBuy || a == ActionSell || a == ActionHold
}

// Evidence is a supporting observation attached to a candidate output.
// The engine carries it through unchanged and never interprets it; identity
// for deduplication purposes is the (Description, Source) pair.
type Evidence struct {
	// Description is the evidence text as the agent stated it.
	Description string `json:"description"`

	// Time is when the underlying observation was made, as reported by the
	// agent's source. Zero when the source did not supply one.
	Time time.Time `json:"time,omitempty"`

	// Source tags where the observation came from (news feed, filing, ...).
	Source string `json:"source,omitempty"`
}

// Factor is a stage-one candidate output: a structured summary of what an
// agent observed in its data sources, not yet a trading action.
type Factor struct {
	// Summary is the agent's distilled view of its sources.
	Summary string `json:"summary"`

	// Evidence lists the observations backing the summary.
	Evidence []Evidence `json:"evidence,omitempty"`

	// Predictions are the checkable claims the factor declared, if any.
	// Only these accrue performance history for the producing agent;
	// a factor without them is carried but earns no records.
	Predictions []Prediction `json:"predictions,omitempty"`
}

// Proposal is a stage-two candidate output naming an instrument, a
// directional action, and the agent's confidence in it.
type Proposal struct {
	// Symbol is the target instrument's code.
	Symbol string `json:"symbol"`

	// SymbolName is the instrument's display name, carried for reporting.
	SymbolName string `json:"symbol_name,omitempty"`

	// Action is the proposed directional call.
	Action Action `json:"action"`

	// Confidence is the agent's declared probability in [0,1] that the
	// call plays out.
	Confidence float64 `json:"confidence"`

	// Evidence lists the observations backing the proposal.
	Evidence []Evidence `json:"evidence,omitempty"`

	// Limitations are caveats the agent declared alongside the call.
	Limitations []string `json:"limitations,omitempty"`
}

// CandidateOutput is the raw result of a task: a Factor for data-stage tasks
// or a Proposal for research-stage tasks. The Stage tag dispatches the
// aggregator's merge rules; exactly one of Factor/Proposal is set and it
// must match the tag.
type CandidateOutput struct {
	// Stage tags which variant this output carries.
	Stage Stage `json:"stage"`

	// Factor is set iff Stage == StageData.
	Factor *Factor `json:"factor,omitempty"`

	// Proposal is set iff Stage == StageResearch.
	Proposal *Proposal `json:"proposal,omitempty"`
}

// Validate checks the tagged-union shape and the variant's required fields.
// A failure here means the producing agent submitted a malformed result and
// must be converted to an abstention, never propagated as success.
func (o CandidateOutput) Validate() error {
	switch o.Stage {
	case StageData:
		if o.Factor == nil || o.Proposal != nil {
			return NewValidationError("candidate output").
				WithError("data-stage output must carry exactly a factor")
		}
		if o.Factor.Summary == "" {
			return NewValidationError("factor").WithError("summary is empty")
		}
	case StageResearch:
		if o.Proposal == nil || o.Factor != nil {
			return NewValidationError("candidate output").
				WithError("research-stage output must carry exactly a proposal")
		}
		return o.Proposal.Validate()
	default:
		return NewValidationError("candidate output").
			WithError(fmt.Sprintf("unknown stage %q", o.Stage))
	}
	return nil
}

// Validate checks the proposal's required fields and value ranges.
func (p Proposal) Validate() error {
	verr := NewValidationError("proposal")
	if p.Symbol == "" {
		verr.AddError("symbol is empty")
	}
	if !p.Action.Valid() {
		verr.AddError(fmt.Sprintf("unknown action %q", p.Action))
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		verr.AddError(fmt.Sprintf("confidence %.3f outside [0,1]", p.Confidence))
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// AbstainCode classifies why a task ended without a candidate output.
type AbstainCode string

const (
	// AbstainTimeout marks a task still outstanding at the round deadline.
	// The outcome is terminal for the round; a late completion is never
	// resurrected.
	AbstainTimeout AbstainCode = "timeout"

	// AbstainMalformed marks an executor result that failed schema checks.
	AbstainMalformed AbstainCode = "malformed"

	// AbstainToolFailure marks a failure inside the executor or one of its
	// dependencies.
	AbstainToolFailure AbstainCode = "tool_failure"

	// AbstainDeclined marks an executor that ran to completion and chose
	// not to submit (no opportunity found).
	AbstainDeclined AbstainCode = "declined"
)

// Abstention is the terminal non-output result of a task. An abstaining
// agent keeps its history but contributes nothing to the current round.
type Abstention struct {
	// Code classifies the abstention.
	Code AbstainCode `json:"code"`

	// Detail preserves the underlying failure text for diagnostics.
	Detail string `json:"detail,omitempty"`
}

func (a Abstention) String() string {
	if a.Detail == "" {
		return string(a.Code)
	}
	return fmt.Sprintf("%s: %s", a.Code, a.Detail)
}
