package contest

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-quorum/internal/domain"
)

func newTestLedger(t *testing.T, window int, decay float64, cmp comparatorFunc) *Ledger {
	t.Helper()
	ledger, err := NewLedger(window, 0.5, decay, cmp)
	require.NoError(t, err)
	return ledger
}

func buyPrediction(symbol string) domain.Prediction {
	return domain.Prediction{Symbol: symbol, Action: domain.ActionBuy, Confidence: 0.7}
}

func outcomeFor(symbol string, ret float64) domain.RealizedOutcome {
	return domain.RealizedOutcome{Symbol: symbol, Return: ret, ObservedAt: time.Now()}
}

func TestNewLedger_Validation(t *testing.T) {
	cmp := fixedComparator(0.5)

	_, err := NewLedger(0, 0.5, 1, cmp)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	_, err = NewLedger(5, -0.1, 1, cmp)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	_, err = NewLedger(5, 0.5, 0, cmp)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	_, err = NewLedger(5, 0.5, 1.2, cmp)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	_, err = NewLedger(5, 0.5, 1, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestLedger_ColdStart(t *testing.T) {
	ledger := newTestLedger(t, 5, 1, func(domain.Prediction, domain.RealizedOutcome) (float64, error) {
		return 0.9, nil
	})
	assert.InDelta(t, 0.5, ledger.Score(dataAgent("fresh")), 1e-9,
		"an agent with no history scores the cold-start default")
}

func TestLedger_TrackAndResolve(t *testing.T) {
	ledger := newTestLedger(t, 5, 1, func(domain.Prediction, domain.RealizedOutcome) (float64, error) {
		return 0.8, nil
	})

	agent := researchAgent("momentum")
	ledger.Track(agent, 1, buyPrediction("ACME"))
	ledger.Track(agent, 1, buyPrediction("OTHER"))
	assert.Equal(t, 2, ledger.Pending())

	resolved, err := ledger.Resolve(outcomeFor("ACME", 0.03))
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
	assert.Equal(t, 1, ledger.Pending(), "only the matching symbol resolves")

	history := ledger.History(agent)
	require.Len(t, history, 1)
	assert.InDelta(t, 0.8, history[0].Correctness, 1e-9)
	assert.Equal(t, "ACME", history[0].Prediction.Symbol)

	assert.InDelta(t, 0.8, ledger.Score(agent), 1e-9)
}

func TestLedger_ResolveWithoutMatchIsNoop(t *testing.T) {
	ledger := newTestLedger(t, 5, 1, func(domain.Prediction, domain.RealizedOutcome) (float64, error) {
		return 0.8, nil
	})

	resolved, err := ledger.Resolve(outcomeFor("UNTRACKED", 0.01))
	require.NoError(t, err)
	assert.Zero(t, resolved)
}

func TestLedger_RetrackOverwritesPending(t *testing.T) {
	var lastConfidence float64
	ledger := newTestLedger(t, 5, 1, func(pred domain.Prediction, _ domain.RealizedOutcome) (float64, error) {
		lastConfidence = pred.Confidence
		return 0.5, nil
	})

	agent := researchAgent("momentum")
	ledger.Track(agent, 1, domain.Prediction{Symbol: "ACME", Action: domain.ActionBuy, Confidence: 0.4})
	ledger.Track(agent, 1, domain.Prediction{Symbol: "ACME", Action: domain.ActionBuy, Confidence: 0.9})
	assert.Equal(t, 1, ledger.Pending(), "same (agent, round, symbol) overwrites")

	_, err := ledger.Resolve(outcomeFor("ACME", 0.01))
	require.NoError(t, err)
	assert.InDelta(t, 0.9, lastConfidence, 1e-9, "the later declaration wins")
}

func TestLedger_WindowEviction(t *testing.T) {
	score := 0.0
	ledger := newTestLedger(t, 3, 1, func(domain.Prediction, domain.RealizedOutcome) (float64, error) {
		return score, nil
	})

	agent := dataAgent("news-reader")
	for round := 1; round <= 5; round++ {
		score = float64(round) / 10
		require.NoError(t, ledger.Record(agent, round, buyPrediction("ACME"), outcomeFor("ACME", 0.01)))
	}

	history := ledger.History(agent)
	require.Len(t, history, 3, "history is bounded to the window")
	assert.Equal(t, 3, history[0].Round, "oldest records evict first")
	assert.Equal(t, 5, history[2].Round)

	// With no decay the score is the plain mean of the retained records.
	assert.InDelta(t, (0.3+0.4+0.5)/3, ledger.Score(agent), 1e-9)
}

func TestLedger_DecayWeighting(t *testing.T) {
	scores := []float64{0.2, 0.8}
	i := 0
	ledger := newTestLedger(t, 5, 0.5, func(domain.Prediction, domain.RealizedOutcome) (float64, error) {
		s := scores[i]
		i++
		return s, nil
	})

	agent := dataAgent("news-reader")
	for round := 1; round <= 2; round++ {
		require.NoError(t, ledger.Record(agent, round, buyPrediction("ACME"), outcomeFor("ACME", 0.01)))
	}

	// Newest record (0.8) carries weight 1, the older (0.2) weight 0.5.
	want := (0.8*1 + 0.2*0.5) / 1.5
	assert.InDelta(t, want, ledger.Score(agent), 1e-9)
}

func TestLedger_ComparatorFailures(t *testing.T) {
	t.Run("comparator error propagates", func(t *testing.T) {
		ledger := newTestLedger(t, 5, 1, func(domain.Prediction, domain.RealizedOutcome) (float64, error) {
			return 0, errors.New("symbol mismatch")
		})
		err := ledger.Record(dataAgent("a"), 1, buyPrediction("ACME"), outcomeFor("ACME", 0.01))
		require.Error(t, err)
		assert.Empty(t, ledger.History(dataAgent("a")), "a failed comparison appends nothing")
	})

	t.Run("out-of-range correctness rejected", func(t *testing.T) {
		ledger := newTestLedger(t, 5, 1, func(domain.Prediction, domain.RealizedOutcome) (float64, error) {
			return 1.5, nil
		})
		err := ledger.Record(dataAgent("a"), 1, buyPrediction("ACME"), outcomeFor("ACME", 0.01))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "outside [0,1]")
	})

	t.Run("failed resolution keeps predictions pending", func(t *testing.T) {
		ledger, err := NewLedger(5, 0.5, 1, DirectionalComparator{})
		require.NoError(t, err)

		agent := researchAgent("momentum")
		ledger.Track(agent, 1, buyPrediction("ACME"))

		resolved, err := ledger.Resolve(outcomeFor("ACME", math.NaN()))
		require.Error(t, err)
		assert.Zero(t, resolved)
		assert.Equal(t, 1, ledger.Pending(), "a prediction survives a failed resolution")
		assert.Empty(t, ledger.History(agent))

		// A later valid outcome for the same symbol still scores the agent.
		resolved, err = ledger.Resolve(outcomeFor("ACME", 0.03))
		require.NoError(t, err)
		assert.Equal(t, 1, resolved)
		assert.Zero(t, ledger.Pending())
		require.Len(t, ledger.History(agent), 1)
	})
}

func TestLedger_Scores(t *testing.T) {
	ledger := newTestLedger(t, 5, 1, func(domain.Prediction, domain.RealizedOutcome) (float64, error) {
		return 1, nil
	})
	seasoned := dataAgent("seasoned")
	require.NoError(t, ledger.Record(seasoned, 1, buyPrediction("ACME"), outcomeFor("ACME", 0.05)))

	scores := ledger.Scores([]domain.AgentID{seasoned, dataAgent("fresh")})
	assert.InDelta(t, 1.0, scores[seasoned], 1e-9)
	assert.InDelta(t, 0.5, scores[dataAgent("fresh")], 1e-9)
}

func TestLedger_ConcurrentAccess(t *testing.T) {
	ledger := newTestLedger(t, 10, 1, func(domain.Prediction, domain.RealizedOutcome) (float64, error) {
		return 0.5, nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			agent := dataAgent(fmt.Sprintf("agent-%d", i%4))
			ledger.Track(agent, i, buyPrediction("ACME"))
			_, _ = ledger.Resolve(outcomeFor("ACME", 0.01))
		}
	}()
	for i := 0; i < 100; i++ {
		_ = ledger.Score(dataAgent("agent-0"))
		_ = ledger.Pending()
	}
	<-done
}
