package domain

import "time"

// Task is one unit of work assigned to an agent for a given round.
// The Context blob is opaque to the engine; only the task executor
// interprets it.
type Task struct {
	// Agent identifies who this task is assigned to. No two tasks in the
	// same round may share an agent identity.
	Agent AgentID `json:"agent"`

	// Round is the sequence number of the contest round the task belongs to.
	Round int `json:"round"`

	// TriggerTime anchors the task to the observation time it should reason
	// about. Executors pass it through to their data sources.
	TriggerTime time.Time `json:"trigger_time"`

	// Belief is the agent's configured focus, carried verbatim to the
	// executor.
	Belief Belief `json:"belief,omitempty"`

	// Context is the opaque input blob for the executor. For research-stage
	// tasks it carries the admitted stage-one factors rendered by the
	// pipeline's context builder.
	Context string `json:"context,omitempty"`
}
