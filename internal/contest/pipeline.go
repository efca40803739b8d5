package contest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

// Deps collects the external collaborators a Pipeline needs. Executors are
// required; the rest default to engine-provided implementations or are
// omitted when nil.
type Deps struct {
	// DataExecutor runs stage-one tasks.
	DataExecutor ports.TaskExecutor

	// ResearchExecutor runs stage-two tasks.
	ResearchExecutor ports.TaskExecutor

	// Comparator scores (prediction, outcome) pairs. Nil selects the
	// directional default.
	Comparator ports.Comparator

	// ContextBuilder renders admitted factors into stage-two task context.
	// Nil selects DefaultContextBuilder.
	ContextBuilder ports.ContextBuilder

	// Sink receives decisions and round summaries. Optional.
	Sink ports.PresentationSink

	// Metrics receives engine metrics. Optional.
	Metrics ports.MetricsCollector
}

// Pipeline sequences the two contest stages: the data round settles, its
// weights gate which factors reach the research round, and the research
// round's weighted proposals are aggregated into the final decision set.
// The two stages keep separate ledgers; they are distinct contest pools.
type Pipeline struct {
	cfg Config

	dataController     *Controller
	researchController *Controller
	dataLedger         *Ledger
	researchLedger     *Ledger
	dataAllocator      *Allocator
	researchAllocator  *Allocator
	aggregator         *Aggregator

	contextBuilder ports.ContextBuilder
	sink           ports.PresentationSink
	metrics        ports.MetricsCollector

	// mu serializes Run so round numbers stay strictly increasing.
	mu    sync.Mutex
	round int
}

// NewPipeline validates the configuration and assembles the engine.
// Configuration contract violations are the only unrecoverable failures
// and surface here, before any round starts.
func NewPipeline(cfg Config, deps Deps) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.DataExecutor == nil || deps.ResearchExecutor == nil {
		return nil, fmt.Errorf("%w: both stage executors are required", domain.ErrInvalidConfiguration)
	}

	cmp := deps.Comparator
	if cmp == nil {
		cmp = DirectionalComparator{}
	}
	builder := deps.ContextBuilder
	if builder == nil {
		builder = DefaultContextBuilder
	}

	dataRunner, err := NewRunner(deps.DataExecutor, 0)
	if err != nil {
		return nil, err
	}
	researchRunner, err := NewRunner(deps.ResearchExecutor, 0)
	if err != nil {
		return nil, err
	}

	dataController, err := NewController(dataRunner, cfg.MaxConcurrency, cfg.RoundDeadline(), deps.Metrics)
	if err != nil {
		return nil, err
	}
	researchController, err := NewController(researchRunner, cfg.MaxConcurrency, cfg.RoundDeadline(), deps.Metrics)
	if err != nil {
		return nil, err
	}

	dataLedger, err := NewLedger(cfg.ScoreWindow, cfg.ColdStartScore, cfg.Decay, cmp)
	if err != nil {
		return nil, err
	}
	researchLedger, err := NewLedger(cfg.ScoreWindow, cfg.ColdStartScore, cfg.Decay, cmp)
	if err != nil {
		return nil, err
	}

	aggregator, err := NewAggregator(0)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:                cfg,
		dataController:     dataController,
		researchController: researchController,
		dataLedger:         dataLedger,
		researchLedger:     researchLedger,
		dataAllocator:      NewAllocator(cfg.DataStage.Cutoff),
		researchAllocator:  NewAllocator(cfg.ResearchStage.Cutoff),
		aggregator:         aggregator,
		contextBuilder:     builder,
		sink:               deps.Sink,
		metrics:            deps.Metrics,
	}, nil
}

// Run executes one full contest cycle for the trigger time and returns the
// final decision set. An all-abstained stage is a valid terminal state: the
// research stage then runs without factors, and aggregation over an empty
// admitted set yields no decisions. Neither is an error.
func (p *Pipeline) Run(ctx context.Context, trigger time.Time) ([]domain.PortfolioDecision, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.round++
	round := p.round

	// Stage one: data contest.
	dataResult, err := p.dataController.RunRound(ctx, domain.StageData, round, p.dataTasks(round, trigger))
	if err != nil {
		return nil, fmt.Errorf("data round %d: %w", round, err)
	}
	dataScores := p.dataLedger.Scores(p.cfg.DataStage.Roster(domain.StageData))
	dataWeights := p.dataAllocator.Allocate(dataScores, dataResult)
	p.publishSummary(ctx, dataResult, dataWeights)
	p.trackFactorPredictions(dataResult, dataWeights, round)

	admitted := admittedFactors(dataResult, dataWeights)

	// Stage two: research contest. Its tasks are constructed only after
	// the stage-one barrier has closed and weights are allocated.
	researchResult, err := p.researchController.RunRound(
		ctx, domain.StageResearch, round, p.researchTasks(round, trigger, admitted))
	if err != nil {
		return nil, fmt.Errorf("research round %d: %w", round, err)
	}
	researchScores := p.researchLedger.Scores(p.cfg.ResearchStage.Roster(domain.StageResearch))
	researchWeights := p.researchAllocator.Allocate(researchScores, researchResult)
	p.publishSummary(ctx, researchResult, researchWeights)

	weighted := make([]WeightedProposal, 0, len(researchResult.Outcomes))
	for _, o := range researchResult.Producers() {
		weight := researchWeights[o.Agent]
		if weight <= 0 {
			continue
		}
		proposal := *o.Output.Proposal
		weighted = append(weighted, WeightedProposal{Agent: o.Agent, Weight: weight, Proposal: proposal})
		p.researchLedger.Track(o.Agent, round, domain.Prediction{
			Symbol:     proposal.Symbol,
			Action:     proposal.Action,
			Confidence: proposal.Confidence,
		})
	}

	decisions := p.aggregator.Aggregate(weighted)

	if p.metrics != nil {
		p.metrics.RecordCounter("decisions_published", float64(len(decisions)),
			map[string]string{"round": fmt.Sprintf("%d", round)})
	}
	if p.sink != nil {
		if err := p.sink.PublishDecisions(ctx, decisions); err != nil {
			return decisions, fmt.Errorf("publish decisions: %w", err)
		}
	}
	return decisions, nil
}

// ResolveOutcomes pulls realized outcomes known up to asOf and resolves
// them against both ledgers' pending predictions. It runs outside any
// round's critical path; outcomes typically arrive long after the round
// that produced the predictions.
func (p *Pipeline) ResolveOutcomes(ctx context.Context, source ports.OutcomeSource, asOf time.Time) (int, error) {
	outcomes, err := source.Outcomes(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("fetch outcomes: %w", err)
	}
	resolved := 0
	for _, outcome := range outcomes {
		n, err := p.dataLedger.Resolve(outcome)
		if err != nil {
			return resolved, err
		}
		resolved += n
		n, err = p.researchLedger.Resolve(outcome)
		if err != nil {
			return resolved, err
		}
		resolved += n
	}
	return resolved, nil
}

// DataLedger exposes the stage-one ledger for outcome feeds and tests.
func (p *Pipeline) DataLedger() *Ledger { return p.dataLedger }

// ResearchLedger exposes the stage-two ledger for outcome feeds and tests.
func (p *Pipeline) ResearchLedger() *Ledger { return p.researchLedger }

// dataTasks builds stage-one tasks from the configured roster.
func (p *Pipeline) dataTasks(round int, trigger time.Time) []domain.Task {
	tasks := make([]domain.Task, 0, len(p.cfg.DataStage.Agents))
	for _, agent := range p.cfg.DataStage.Agents {
		tasks = append(tasks, domain.Task{
			Agent:       domain.AgentID{Stage: domain.StageData, Name: agent.Name},
			Round:       round,
			TriggerTime: trigger,
			Belief:      domain.Belief(agent.Belief),
			Context:     strings.Join(agent.Sources, "\n"),
		})
	}
	return tasks
}

// researchTasks builds stage-two tasks, rendering the admitted factors into
// each task's context blob.
func (p *Pipeline) researchTasks(round int, trigger time.Time, factors []domain.Factor) []domain.Task {
	tasks := make([]domain.Task, 0, len(p.cfg.ResearchStage.Agents))
	for _, agent := range p.cfg.ResearchStage.Agents {
		belief := domain.Belief(agent.Belief)
		tasks = append(tasks, domain.Task{
			Agent:       domain.AgentID{Stage: domain.StageResearch, Name: agent.Name},
			Round:       round,
			TriggerTime: trigger,
			Belief:      belief,
			Context:     p.contextBuilder(trigger, belief, factors),
		})
	}
	return tasks
}

// trackFactorPredictions registers the checkable claims of admitted
// stage-one factors so later outcomes can score the data pool.
func (p *Pipeline) trackFactorPredictions(result domain.RoundResult, weights map[domain.AgentID]float64, round int) {
	for _, o := range result.Producers() {
		if weights[o.Agent] <= 0 {
			continue
		}
		for _, pred := range o.Output.Factor.Predictions {
			p.dataLedger.Track(o.Agent, round, pred)
		}
	}
}

// publishSummary delivers round diagnostics to the sink and metrics.
func (p *Pipeline) publishSummary(ctx context.Context, result domain.RoundResult, weights map[domain.AgentID]float64) {
	if p.metrics != nil {
		for id, weight := range weights {
			p.metrics.RecordGauge("agent_weight", weight, map[string]string{
				"stage": string(result.Stage),
				"agent": id.Name,
			})
		}
	}
	if p.sink == nil {
		return
	}
	summary := domain.RoundSummary{
		Stage:       result.Stage,
		Round:       result.Round,
		SettledAt:   result.SettledAt,
		Weights:     weights,
		Abstentions: result.AbstentionCounts(),
	}
	// Summary delivery is diagnostic; a failing sink must not fail the round.
	_ = p.sink.PublishRoundSummary(ctx, summary)
}

// admittedFactors returns the positively weighted stage-one factors in
// dispatch order. Below-cutoff factors are excluded here, which is what
// keeps them out of every stage-two context.
func admittedFactors(result domain.RoundResult, weights map[domain.AgentID]float64) []domain.Factor {
	factors := make([]domain.Factor, 0, len(result.Outcomes))
	for _, o := range result.Producers() {
		if weights[o.Agent] > 0 {
			factors = append(factors, *o.Output.Factor)
		}
	}
	return factors
}

// DefaultContextBuilder renders admitted factors as a plain sectioned text
// block: trigger time, the agent's belief, then each factor summary with
// its evidence lines. Deployments with richer prompt needs supply their
// own ports.ContextBuilder.
func DefaultContextBuilder(trigger time.Time, belief domain.Belief, factors []domain.Factor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "trigger_time: %s\n", trigger.Format(time.RFC3339))
	if belief != "" {
		fmt.Fprintf(&b, "belief: %s\n", belief)
	}
	for i, factor := range factors {
		fmt.Fprintf(&b, "\n[factor %d]\n%s\n", i+1, factor.Summary)
		for _, ev := range factor.Evidence {
			fmt.Fprintf(&b, "- %s (%s)\n", ev.Description, ev.Source)
		}
	}
	return b.String()
}
