package contest

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

// Controller drives one fan-out/fan-in contest round: it dispatches every
// task concurrently through the Runner, enforces the round deadline, and
// exposes the result set only once all tasks have settled. The result is
// the round barrier; no stage-two dispatch ever reads a partially filled
// stage-one result.
type Controller struct {
	runner         *Runner
	maxConcurrency int
	deadline       time.Duration
	metrics        ports.MetricsCollector
	tracer         trace.Tracer
}

// NewController creates a round controller. The metrics collector may be
// nil when no observability backend is wired.
func NewController(runner *Runner, maxConcurrency int, deadline time.Duration, metrics ports.MetricsCollector) (*Controller, error) {
	if runner == nil {
		return nil, fmt.Errorf("%w: runner is nil", domain.ErrInvalidConfiguration)
	}
	if maxConcurrency < 1 {
		return nil, fmt.Errorf("%w: max concurrency %d", domain.ErrInvalidConfiguration, maxConcurrency)
	}
	if deadline <= 0 {
		return nil, fmt.Errorf("%w: round deadline %v", domain.ErrInvalidConfiguration, deadline)
	}
	return &Controller{
		runner:         runner,
		maxConcurrency: maxConcurrency,
		deadline:       deadline,
		metrics:        metrics,
		tracer:         otel.Tracer("contest-round"),
	}, nil
}

// RunRound dispatches all tasks and returns the frozen round result.
// It guarantees exactly one terminal outcome per dispatched task, rejects
// duplicate agent identities up front, and completes at
// min(deadline, all tasks settled). Completion order never affects the
// result: each task writes only its own slot.
func (c *Controller) RunRound(ctx context.Context, stage domain.Stage, round int, tasks []domain.Task) (domain.RoundResult, error) {
	ctx, span := c.tracer.Start(ctx, "Controller.RunRound",
		trace.WithAttributes(
			attribute.String("contest.stage", string(stage)),
			attribute.Int("contest.round", round),
			attribute.Int("contest.tasks", len(tasks)),
		),
	)
	defer span.End()

	seen := make(map[domain.AgentID]struct{}, len(tasks))
	for _, t := range tasks {
		if t.Agent.Stage != stage {
			return domain.RoundResult{}, fmt.Errorf("%w: task for %s dispatched into %s round",
				domain.ErrInvalidConfiguration, t.Agent, stage)
		}
		if _, dup := seen[t.Agent]; dup {
			return domain.RoundResult{}, fmt.Errorf("%w: %s", domain.ErrDuplicateAgent, t.Agent)
		}
		seen[t.Agent] = struct{}{}
	}

	started := time.Now()
	roundCtx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	// Each task owns slot i; no shared mutable state is written
	// concurrently and the slice is read only after the barrier.
	outcomes := make([]domain.TaskOutcome, len(tasks))

	g, gctx := errgroup.WithContext(roundCtx)
	g.SetLimit(c.maxConcurrency)
	for i, task := range tasks {
		g.Go(func() error {
			outcomes[i] = c.runner.Run(gctx, task)
			return nil
		})
	}
	// Barrier point: the runner converts every failure mode into an
	// abstention, so Wait only synchronizes.
	_ = g.Wait()

	result := domain.RoundResult{
		Stage:     stage,
		Round:     round,
		StartedAt: started,
		SettledAt: time.Now(),
		Outcomes:  outcomes,
	}

	c.observe(result, time.Since(started))
	span.SetAttributes(
		attribute.Int("contest.produced", len(result.Producers())),
		attribute.Bool("contest.all_abstained", result.AllAbstained()),
	)
	return result, nil
}

// observe emits round metrics when a collector is wired.
func (c *Controller) observe(result domain.RoundResult, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}
	labels := map[string]string{
		"stage": string(result.Stage),
		"round": strconv.Itoa(result.Round),
	}
	c.metrics.RecordLatency("round_execution", elapsed, labels)
	for code, count := range result.AbstentionCounts() {
		c.metrics.RecordCounter("round_abstentions", float64(count), map[string]string{
			"stage":  string(result.Stage),
			"reason": string(code),
		})
	}
	c.metrics.RecordGauge("round_producers", float64(len(result.Producers())), labels)
}
