package contest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

// Runner executes one task to completion or timeout, isolating failures so
// they never escape as anything but a typed abstention. It is stateless
// between calls and safe for concurrent use by the round controller.
type Runner struct {
	executor ports.TaskExecutor

	// taskTimeout bounds one execution independently of the round
	// deadline. Zero means the round deadline alone governs.
	taskTimeout time.Duration
}

// NewRunner creates a Runner around the given executor.
// taskTimeout may be zero to rely solely on the round deadline.
func NewRunner(executor ports.TaskExecutor, taskTimeout time.Duration) (*Runner, error) {
	if executor == nil {
		return nil, fmt.Errorf("%w: task executor is nil", domain.ErrInvalidConfiguration)
	}
	if taskTimeout < 0 {
		return nil, fmt.Errorf("%w: negative task timeout %v", domain.ErrInvalidConfiguration, taskTimeout)
	}
	return &Runner{executor: executor, taskTimeout: taskTimeout}, nil
}

// execResult carries one executor completion across the isolation boundary.
type execResult struct {
	output domain.CandidateOutput
	err    error
}

// Run executes the task and settles it into exactly one terminal outcome.
// Deadline hits, executor panics, dependency failures, and schema-invalid
// results all become abstentions; cancellation of an in-flight execution is
// best-effort and never blocks sibling tasks.
func (r *Runner) Run(ctx context.Context, task domain.Task) domain.TaskOutcome {
	if r.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.taskTimeout)
		defer cancel()
	}

	// The executor runs in its own goroutine so a stuck dependency cannot
	// hold the round past its deadline. The buffered channel lets a late
	// completion finish sending and be discarded.
	done := make(chan execResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- execResult{err: ports.NewToolError(
					"executor", "execute", fmt.Errorf("panic: %v", p))}
			}
		}()
		output, err := r.executor.Execute(ctx, task)
		done <- execResult{output: output, err: err}
	}()

	select {
	case <-ctx.Done():
		// A deadline hit is a timeout; a cancellation means the caller
		// aborted the cycle, which is not a time-budget abstention.
		if errors.Is(ctx.Err(), context.Canceled) {
			return abstain(task.Agent, domain.AbstainToolFailure, "run aborted: "+ctx.Err().Error())
		}
		return abstain(task.Agent, domain.AbstainTimeout, ctx.Err().Error())
	case res := <-done:
		return r.settle(task, res)
	}
}

// settle converts an executor completion into the task's terminal outcome.
func (r *Runner) settle(task domain.Task, res execResult) domain.TaskOutcome {
	if res.err != nil {
		switch {
		case errors.Is(res.err, ports.ErrDeclined):
			return abstain(task.Agent, domain.AbstainDeclined, res.err.Error())
		case errors.Is(res.err, context.DeadlineExceeded), errors.Is(res.err, ports.ErrTimeout):
			return abstain(task.Agent, domain.AbstainTimeout, res.err.Error())
		}
		var verr *domain.ValidationError
		if errors.As(res.err, &verr) {
			return abstain(task.Agent, domain.AbstainMalformed, verr.Error())
		}
		return abstain(task.Agent, domain.AbstainToolFailure, res.err.Error())
	}

	output := res.output
	if output.Stage != task.Agent.Stage {
		return abstain(task.Agent, domain.AbstainMalformed,
			fmt.Sprintf("output stage %q does not match task stage %q", output.Stage, task.Agent.Stage))
	}
	if err := output.Validate(); err != nil {
		return abstain(task.Agent, domain.AbstainMalformed, err.Error())
	}

	return domain.TaskOutcome{Agent: task.Agent, Output: &output}
}

func abstain(agent domain.AgentID, code domain.AbstainCode, detail string) domain.TaskOutcome {
	return domain.TaskOutcome{
		Agent:      agent,
		Abstention: &domain.Abstention{Code: code, Detail: detail},
	}
}
