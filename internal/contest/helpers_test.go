package contest

import (
	"context"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

// executorFunc adapts a function to ports.TaskExecutor for test doubles.
type executorFunc func(ctx context.Context, task domain.Task) (domain.CandidateOutput, error)

func (f executorFunc) Execute(ctx context.Context, task domain.Task) (domain.CandidateOutput, error) {
	return f(ctx, task)
}

// comparatorFunc adapts a function to ports.Comparator.
type comparatorFunc func(pred domain.Prediction, outcome domain.RealizedOutcome) (float64, error)

func (f comparatorFunc) Compare(pred domain.Prediction, outcome domain.RealizedOutcome) (float64, error) {
	return f(pred, outcome)
}

func dataAgent(name string) domain.AgentID {
	return domain.AgentID{Stage: domain.StageData, Name: name}
}

func researchAgent(name string) domain.AgentID {
	return domain.AgentID{Stage: domain.StageResearch, Name: name}
}

func factorOutput(summary string) domain.CandidateOutput {
	return domain.CandidateOutput{
		Stage:  domain.StageData,
		Factor: &domain.Factor{Summary: summary},
	}
}

func proposalOutput(symbol string, action domain.Action, confidence float64) domain.CandidateOutput {
	return domain.CandidateOutput{
		Stage: domain.StageResearch,
		Proposal: &domain.Proposal{
			Symbol:     symbol,
			Action:     action,
			Confidence: confidence,
		},
	}
}

func producedRound(stage domain.Stage, agents ...domain.AgentID) domain.RoundResult {
	outcomes := make([]domain.TaskOutcome, 0, len(agents))
	for _, id := range agents {
		out := factorOutput("s")
		if stage == domain.StageResearch {
			out = proposalOutput("ACME", domain.ActionBuy, 0.5)
		}
		outcomes = append(outcomes, domain.TaskOutcome{Agent: id, Output: &out})
	}
	return domain.RoundResult{Stage: stage, Outcomes: outcomes}
}

// fixedComparator always returns the same correctness.
func fixedComparator(score float64) ports.Comparator {
	return comparatorFunc(func(domain.Prediction, domain.RealizedOutcome) (float64, error) {
		return score, nil
	})
}
