package contest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

func dataTask(name string) domain.Task {
	return domain.Task{Agent: dataAgent(name), Round: 1, TriggerTime: time.Now()}
}

func TestNewRunner_Validation(t *testing.T) {
	_, err := NewRunner(nil, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	exec := executorFunc(func(context.Context, domain.Task) (domain.CandidateOutput, error) {
		return factorOutput("s"), nil
	})
	_, err = NewRunner(exec, -time.Second)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestRunner_ProducesValidOutput(t *testing.T) {
	exec := executorFunc(func(context.Context, domain.Task) (domain.CandidateOutput, error) {
		return factorOutput("defense spending up"), nil
	})
	runner, err := NewRunner(exec, 0)
	require.NoError(t, err)

	outcome := runner.Run(context.Background(), dataTask("a"))
	require.True(t, outcome.Produced())
	assert.Equal(t, "defense spending up", outcome.Output.Factor.Summary)
	assert.Nil(t, outcome.Abstention)
}

func TestRunner_AbstentionClassification(t *testing.T) {
	tests := []struct {
		name string
		exec executorFunc
		want domain.AbstainCode
	}{
		{
			"declined",
			func(context.Context, domain.Task) (domain.CandidateOutput, error) {
				return domain.CandidateOutput{}, ports.ErrDeclined
			},
			domain.AbstainDeclined,
		},
		{
			"deadline exceeded",
			func(context.Context, domain.Task) (domain.CandidateOutput, error) {
				return domain.CandidateOutput{}, context.DeadlineExceeded
			},
			domain.AbstainTimeout,
		},
		{
			"wrapped timeout sentinel",
			func(context.Context, domain.Task) (domain.CandidateOutput, error) {
				return domain.CandidateOutput{}, ports.NewToolError("feed", "fetch", ports.ErrTimeout)
			},
			domain.AbstainTimeout,
		},
		{
			"validation failure",
			func(context.Context, domain.Task) (domain.CandidateOutput, error) {
				return domain.CandidateOutput{}, domain.NewValidationError("factor response").
					WithError("no factor block")
			},
			domain.AbstainMalformed,
		},
		{
			"dependency failure",
			func(context.Context, domain.Task) (domain.CandidateOutput, error) {
				return domain.CandidateOutput{}, errors.New("connection refused")
			},
			domain.AbstainToolFailure,
		},
		{
			"panic",
			func(context.Context, domain.Task) (domain.CandidateOutput, error) {
				panic("index out of range")
			},
			domain.AbstainToolFailure,
		},
		{
			"stage mismatch",
			func(context.Context, domain.Task) (domain.CandidateOutput, error) {
				return proposalOutput("ACME", domain.ActionBuy, 0.5), nil
			},
			domain.AbstainMalformed,
		},
		{
			"schema-invalid output",
			func(context.Context, domain.Task) (domain.CandidateOutput, error) {
				return domain.CandidateOutput{Stage: domain.StageData}, nil
			},
			domain.AbstainMalformed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner, err := NewRunner(tt.exec, 0)
			require.NoError(t, err)

			outcome := runner.Run(context.Background(), dataTask("a"))
			assert.False(t, outcome.Produced())
			require.NotNil(t, outcome.Abstention)
			assert.Equal(t, tt.want, outcome.Abstention.Code)
			assert.NotEmpty(t, outcome.Abstention.Detail)
		})
	}
}

func TestRunner_TaskTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	exec := executorFunc(func(ctx context.Context, _ domain.Task) (domain.CandidateOutput, error) {
		// Ignores cancellation to simulate a stuck dependency.
		<-release
		return factorOutput("late"), nil
	})
	runner, err := NewRunner(exec, 10*time.Millisecond)
	require.NoError(t, err)

	start := time.Now()
	outcome := runner.Run(context.Background(), dataTask("a"))

	require.NotNil(t, outcome.Abstention)
	assert.Equal(t, domain.AbstainTimeout, outcome.Abstention.Code)
	assert.Less(t, time.Since(start), time.Second, "timeout must not wait for the stuck executor")
}

func TestRunner_CallerCancellationIsNotATimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	exec := executorFunc(func(ctx context.Context, _ domain.Task) (domain.CandidateOutput, error) {
		<-release
		return factorOutput("late"), nil
	})
	runner, err := NewRunner(exec, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	outcome := runner.Run(ctx, dataTask("a"))
	require.NotNil(t, outcome.Abstention)
	assert.Equal(t, domain.AbstainToolFailure, outcome.Abstention.Code,
		"an aborted cycle is not a time-budget abstention")
	assert.Contains(t, outcome.Abstention.Detail, "aborted")
}

func TestRunner_LateCompletionIsDiscarded(t *testing.T) {
	done := make(chan struct{})
	exec := executorFunc(func(ctx context.Context, _ domain.Task) (domain.CandidateOutput, error) {
		defer close(done)
		time.Sleep(30 * time.Millisecond)
		return factorOutput("too late"), nil
	})
	runner, err := NewRunner(exec, 5*time.Millisecond)
	require.NoError(t, err)

	outcome := runner.Run(context.Background(), dataTask("a"))
	assert.Equal(t, domain.AbstainTimeout, outcome.Abstention.Code)

	// The goroutine must still complete its buffered send without leaking.
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("executor goroutine never finished")
	}
}
