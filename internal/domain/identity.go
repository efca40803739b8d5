// Package domain contains pure, dependency-free domain models and types
// for the contest engine.
package domain

import (
	"fmt"
	"strings"
)

// Stage identifies which contest pool a task, output, or record belongs to.
// The two stages run as distinct contests with separate performance history;
// the tag makes merge-rule selection in the aggregator exhaustive instead of
// relying on open-ended payload inspection.
type Stage string

const (
	// StageData is the first contest stage. Its agents analyze raw data
	// sources and produce Factors.
	StageData Stage = "data"

	// StageResearch is the second contest stage. Its agents consume the
	// admitted Factors and produce Proposals.
	StageResearch Stage = "research"
)

// Valid reports whether the stage is one of the two defined contest stages.
func (s Stage) Valid() bool { return s == StageData || s == StageResearch }

// AgentID is the stable identity of one agent across many contest rounds.
// It is the key under which performance history accumulates; rounds hold
// only this key, never the history itself.
type AgentID struct {
	// Stage is the contest pool the agent competes in. The same name may
	// appear in both pools without sharing history.
	Stage Stage `json:"stage" yaml:"stage"`

	// Name is the configured agent name, unique within its stage.
	Name string `json:"name" yaml:"name"`
}

// String returns the canonical "stage/name" form used in logs and metrics.
func (id AgentID) String() string { return fmt.Sprintf("%s/%s", id.Stage, id.Name) }

// MarshalText encodes the identity in its canonical "stage/name" form so it
// can serve as a JSON map key in summaries and reports.
func (id AgentID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses the canonical "stage/name" form.
func (id *AgentID) UnmarshalText(text []byte) error {
	stage, name, ok := strings.Cut(string(text), "/")
	if !ok {
		return fmt.Errorf("agent identity %q: want stage/name", text)
	}
	id.Stage = Stage(stage)
	id.Name = name
	return nil
}

// Belief is the configuration fragment that parameterizes one agent's focus.
// The engine treats it as opaque text; only the task executors interpret it.
type Belief string
