package contest

import (
	"sort"

	"github.com/ahrav/go-quorum/internal/domain"
)

// Allocator maps the ledger's current scores to normalized, bounded weights
// for the agents participating in one round. Only agents that produced a
// candidate output are eligible; abstainers get weight zero and are
// excluded from the denominator. The admission cutoff zeroes out low-score
// agents entirely before normalization, which is the literal mechanism of
// selective admission: below-cutoff outputs are never forwarded.
type Allocator struct {
	cutoff CutoffConfig
}

// NewAllocator creates an allocator with the given admission cutoff. Zero
// values in the cutoff disable the corresponding rule.
func NewAllocator(cutoff CutoffConfig) *Allocator {
	return &Allocator{cutoff: cutoff}
}

// Allocate computes one round's weight per agent. Every agent in the round
// appears in the returned map; weights are never negative and the admitted
// weights sum to at most 1. If every admitted score is exactly zero the
// admitted agents share an equal split.
func (a *Allocator) Allocate(scores map[domain.AgentID]float64, result domain.RoundResult) map[domain.AgentID]float64 {
	weights := make(map[domain.AgentID]float64, len(result.Outcomes))
	for _, o := range result.Outcomes {
		weights[o.Agent] = 0
	}

	admitted := a.admit(scores, result.Producers())
	if len(admitted) == 0 {
		return weights
	}

	var total float64
	for _, id := range admitted {
		total += scores[id]
	}
	if total == 0 {
		// All admitted scores are exactly zero: equal split.
		share := 1.0 / float64(len(admitted))
		for _, id := range admitted {
			weights[id] = share
		}
		return weights
	}

	for _, id := range admitted {
		weights[id] = scores[id] / total
	}
	return weights
}

// admit applies the admission cutoff to the round's producers and returns
// the identities that keep a claim on weight, in a deterministic order.
func (a *Allocator) admit(scores map[domain.AgentID]float64, producers []domain.TaskOutcome) []domain.AgentID {
	admitted := make([]domain.AgentID, 0, len(producers))
	for _, o := range producers {
		if a.cutoff.MinScore > 0 && scores[o.Agent] < a.cutoff.MinScore {
			continue
		}
		admitted = append(admitted, o.Agent)
	}

	if a.cutoff.TopK > 0 && len(admitted) > a.cutoff.TopK {
		// Ties break on the identity key so admission is reproducible
		// regardless of completion order.
		sort.Slice(admitted, func(i, j int) bool {
			si, sj := scores[admitted[i]], scores[admitted[j]]
			if si != sj {
				return si > sj
			}
			return admitted[i].Name < admitted[j].Name
		})
		admitted = admitted[:a.cutoff.TopK]
	}
	return admitted
}
