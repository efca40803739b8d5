package contest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-quorum/internal/domain"
)

func newTestAggregator(t *testing.T, fuzzyThreshold float64) *Aggregator {
	t.Helper()
	agg, err := NewAggregator(fuzzyThreshold)
	require.NoError(t, err)
	return agg
}

func wp(name string, weight float64, symbol string, action domain.Action, confidence float64) WeightedProposal {
	return WeightedProposal{
		Agent:  researchAgent(name),
		Weight: weight,
		Proposal: domain.Proposal{
			Symbol:     symbol,
			Action:     action,
			Confidence: confidence,
		},
	}
}

func TestNewAggregator_Validation(t *testing.T) {
	_, err := NewAggregator(-0.1)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	_, err = NewAggregator(1.1)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestAggregator_WeightedVote(t *testing.T) {
	agg := newTestAggregator(t, 0)

	// BUY carries 0.7, SELL 0.3: BUY wins with margin 0.4 of the total.
	decisions := agg.Aggregate([]WeightedProposal{
		wp("bull", 0.7, "ACME", domain.ActionBuy, 0.8),
		wp("bear", 0.3, "ACME", domain.ActionSell, 0.9),
	})

	require.Len(t, decisions, 1)
	d := decisions[0]
	assert.Equal(t, "ACME", d.Symbol)
	assert.Equal(t, domain.ActionBuy, d.Action)
	assert.InDelta(t, 0.4, d.Confidence, 1e-9)
	assert.False(t, d.Ambiguous)
	assert.Equal(t, []domain.AgentID{researchAgent("bull")}, d.Contributors,
		"only the winning side contributes")
}

func TestAggregator_ExactTieYieldsAmbiguousHold(t *testing.T) {
	agg := newTestAggregator(t, 0)

	decisions := agg.Aggregate([]WeightedProposal{
		wp("bull", 0.5, "ACME", domain.ActionBuy, 0.8),
		wp("bear", 0.5, "ACME", domain.ActionSell, 0.8),
	})

	require.Len(t, decisions, 1)
	d := decisions[0]
	assert.Equal(t, domain.ActionHold, d.Action)
	assert.True(t, d.Ambiguous)
	assert.Zero(t, d.Confidence)
	assert.ElementsMatch(t, []domain.AgentID{researchAgent("bull"), researchAgent("bear")},
		d.Contributors, "both tied sides stay visible")
}

func TestAggregator_TieExcludesOutvotedClasses(t *testing.T) {
	agg := newTestAggregator(t, 0)

	withEvidence := func(p WeightedProposal, description string) WeightedProposal {
		p.Proposal.Evidence = []domain.Evidence{{Description: description, Source: "feed"}}
		return p
	}

	// BUY and SELL tie at 0.4; HOLD lost outright at 0.2 and must not
	// surface in the ambiguous decision's evidence or contributors.
	decisions := agg.Aggregate([]WeightedProposal{
		withEvidence(wp("bull", 0.4, "ACME", domain.ActionBuy, 0.8), "earnings beat"),
		withEvidence(wp("bear", 0.4, "ACME", domain.ActionSell, 0.8), "guidance cut"),
		withEvidence(wp("fence", 0.2, "ACME", domain.ActionHold, 0.5), "mixed picture"),
	})

	require.Len(t, decisions, 1)
	d := decisions[0]
	assert.Equal(t, domain.ActionHold, d.Action)
	assert.True(t, d.Ambiguous)
	assert.ElementsMatch(t, []domain.AgentID{researchAgent("bull"), researchAgent("bear")},
		d.Contributors, "the outvoted class is excluded")
	descriptions := make([]string, 0, len(d.Evidence))
	for _, ev := range d.Evidence {
		descriptions = append(descriptions, ev.Description)
	}
	assert.ElementsMatch(t, []string{"earnings beat", "guidance cut"}, descriptions)
}

func TestAggregator_SingleProposalScalesByWeight(t *testing.T) {
	agg := newTestAggregator(t, 0)

	decisions := agg.Aggregate([]WeightedProposal{
		wp("solo", 0.4, "ACME", domain.ActionSell, 0.9),
	})

	require.Len(t, decisions, 1)
	assert.Equal(t, domain.ActionSell, decisions[0].Action)
	assert.InDelta(t, 0.36, decisions[0].Confidence, 1e-9)
}

func TestAggregator_ZeroWeightContributesNothing(t *testing.T) {
	agg := newTestAggregator(t, 0)

	decisions := agg.Aggregate([]WeightedProposal{
		wp("cut", 0, "ACME", domain.ActionBuy, 0.9),
		wp("kept", 0.3, "OTHER", domain.ActionBuy, 0.5),
	})

	require.Len(t, decisions, 1)
	assert.Equal(t, "OTHER", decisions[0].Symbol, "zero-weight proposals never surface")
}

func TestAggregator_OneDecisionPerSymbolSortedOrder(t *testing.T) {
	agg := newTestAggregator(t, 0)

	decisions := agg.Aggregate([]WeightedProposal{
		wp("a", 0.2, "ZETA", domain.ActionBuy, 0.5),
		wp("b", 0.3, "ALPHA", domain.ActionBuy, 0.5),
		wp("c", 0.5, "ZETA", domain.ActionBuy, 0.6),
	})

	require.Len(t, decisions, 2)
	assert.Equal(t, "ALPHA", decisions[0].Symbol)
	assert.Equal(t, "ZETA", decisions[1].Symbol)
}

func TestAggregator_Deterministic(t *testing.T) {
	agg := newTestAggregator(t, 0)
	input := []WeightedProposal{
		wp("a", 0.5, "ACME", domain.ActionBuy, 0.8),
		wp("b", 0.3, "ACME", domain.ActionSell, 0.6),
		wp("c", 0.2, "ACME", domain.ActionBuy, 0.4),
	}

	first := agg.Aggregate(input)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, agg.Aggregate(input), "same input must yield the same decisions")
	}
}

func TestAggregator_EvidenceDedup(t *testing.T) {
	agg := newTestAggregator(t, 0)

	one := wp("a", 0.6, "ACME", domain.ActionBuy, 0.8)
	one.Proposal.Evidence = []domain.Evidence{
		{Description: "ACME wins contract", Source: "newswire"},
		{Description: "volume spike", Source: "tape"},
	}
	two := wp("b", 0.4, "ACME", domain.ActionBuy, 0.6)
	two.Proposal.Evidence = []domain.Evidence{
		{Description: "acme WINS contract", Source: "newswire"}, // case-folded duplicate
		{Description: "ACME wins contract", Source: "forum"},    // same text, different source
	}

	decisions := agg.Aggregate([]WeightedProposal{one, two})
	require.Len(t, decisions, 1)

	evidence := decisions[0].Evidence
	require.Len(t, evidence, 3)
	assert.Equal(t, "ACME wins contract", evidence[0].Description, "first occurrence wins")
	assert.Equal(t, "newswire", evidence[0].Source)
	assert.Equal(t, "forum", evidence[2].Source, "distinct source is distinct evidence")
}

func TestAggregator_FuzzyEvidenceDedup(t *testing.T) {
	agg := newTestAggregator(t, 0.85)

	one := wp("a", 0.6, "ACME", domain.ActionBuy, 0.8)
	one.Proposal.Evidence = []domain.Evidence{
		{Description: "ACME wins $2B defense contract", Source: "newswire"},
	}
	two := wp("b", 0.4, "ACME", domain.ActionBuy, 0.6)
	two.Proposal.Evidence = []domain.Evidence{
		{Description: "ACME wins $2B defense contract.", Source: "newswire"},
		{Description: "completely unrelated observation", Source: "newswire"},
	}

	decisions := agg.Aggregate([]WeightedProposal{one, two})
	require.Len(t, decisions, 1)
	require.Len(t, decisions[0].Evidence, 2, "near-identical text from the same source collapses")
}

func TestAggregator_EmptyInput(t *testing.T) {
	agg := newTestAggregator(t, 0)
	assert.Empty(t, agg.Aggregate(nil))
}
