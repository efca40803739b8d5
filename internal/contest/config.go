// Package contest implements the performance-gated fan-out/fan-in contest
// engine: agent dispatch with bounded concurrency and deadlines, a
// performance ledger that turns realized outcomes into scores, a weight
// allocator that turns scores into admission weights, and an aggregator
// that merges weighted proposals into one conflict-resolved decision set.
package contest

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-quorum/internal/domain"
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()

// CutoffConfig defines the admission cutoff: the rule that zeroes out
// low-score agents entirely before weight normalization, so their outputs
// are never forwarded to the next stage or into final aggregation.
// TopK and MinScore may be combined; zero values disable each rule.
type CutoffConfig struct {
	// TopK admits only the K highest-scoring producers. Zero disables the
	// rule.
	TopK int `yaml:"top_k" validate:"min=0,max=1000"`

	// MinScore excludes producers scoring strictly below the threshold.
	// Zero disables the rule.
	MinScore float64 `yaml:"min_score" validate:"min=0,max=1"`
}

// AgentConfig declares one agent identity participating in a stage.
// Identities persist across rounds; the ledger accrues history under them.
type AgentConfig struct {
	// Name is the agent's identity key within its stage.
	Name string `yaml:"name" validate:"required,min=1,max=100"`

	// Belief parameterizes the agent's focus. The engine carries it as
	// opaque text to the task executor.
	Belief string `yaml:"belief" validate:"max=4000"`

	// Sources lists the data sources a data-stage agent reads. Opaque to
	// the engine.
	Sources []string `yaml:"sources" validate:"max=20,dive,min=1,max=200"`
}

// StageConfig groups the agent roster and admission cutoff of one contest
// pool. The two stages are configured independently.
type StageConfig struct {
	// Agents is the stage's roster. Names must be unique within the stage.
	Agents []AgentConfig `yaml:"agents" validate:"required,min=1,max=100,unique=Name,dive"`

	// Cutoff is the stage's admission rule.
	Cutoff CutoffConfig `yaml:"cutoff"`
}

// Config holds the static parameters the engine consumes at
// initialization. A contract violation here is the engine's only
// unrecoverable condition and is rejected before any round starts.
type Config struct {
	// MaxConcurrency bounds how many tasks a round dispatches at once.
	MaxConcurrency int `yaml:"max_concurrency" validate:"required,min=1,max=256"`

	// RoundDeadlineSeconds is the wall-clock budget of one round. Tasks
	// still outstanding when it expires settle as timeout abstentions.
	RoundDeadlineSeconds int `yaml:"round_deadline_seconds" validate:"required,min=1,max=3600"`

	// ScoreWindow is W, the number of most recent records per agent that
	// contribute to its rolling score. Older records are evicted.
	ScoreWindow int `yaml:"score_window" validate:"required,min=1,max=365"`

	// ColdStartScore is the fixed default score for an agent with no
	// qualifying history. It keeps new agents from being starved of weight
	// without granting unearned dominance.
	ColdStartScore float64 `yaml:"cold_start_score" validate:"min=0,max=1"`

	// Decay is the per-step exponential decay applied to older records
	// when computing the rolling score. 1 means no decay.
	Decay float64 `yaml:"decay" validate:"required,gt=0,max=1"`

	// DataStage configures the first contest pool.
	DataStage StageConfig `yaml:"data_stage" validate:"required"`

	// ResearchStage configures the second contest pool.
	ResearchStage StageConfig `yaml:"research_stage" validate:"required"`
}

// RoundDeadline returns the round budget as a duration.
func (c Config) RoundDeadline() time.Duration {
	return time.Duration(c.RoundDeadlineSeconds) * time.Second
}

// Validate checks the configuration contract. It wraps
// domain.ErrInvalidConfiguration so callers can classify the failure.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}
	return nil
}

// ParseConfig decodes and validates a YAML configuration document.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// Roster builds the stage's agent identities in configuration order.
func (s StageConfig) Roster(stage domain.Stage) []domain.AgentID {
	ids := make([]domain.AgentID, 0, len(s.Agents))
	for _, a := range s.Agents {
		ids = append(ids, domain.AgentID{Stage: stage, Name: a.Name})
	}
	return ids
}
