package contest

import (
	"fmt"
	"sort"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/ahrav/go-quorum/internal/domain"
)

// foldCaser is a package-level Unicode case folder so evidence
// deduplication does not allocate a caser per comparison.
var foldCaser = cases.Fold()

// WeightedProposal pairs one admitted proposal with the weight its agent
// was allocated for the round.
type WeightedProposal struct {
	// Agent is the proposing identity.
	Agent domain.AgentID

	// Weight is the agent's allocated influence in [0,1].
	Weight float64

	// Proposal is the agent's validated stage-two output.
	Proposal domain.Proposal
}

// Aggregator merges the weighted proposals of the final round into one
// decision per target instrument, resolving conflicts by weighted
// preference. Aggregation is pure and deterministic: the same input list
// always yields the same decision list, independent of completion order.
type Aggregator struct {
	// fuzzyThreshold, when above zero, enables near-duplicate evidence
	// collapsing: two evidence items from the same source whose case-folded
	// descriptions reach this Levenshtein similarity are treated as one.
	fuzzyThreshold float64
}

// NewAggregator creates an aggregator. fuzzyThreshold must be in [0,1];
// zero keeps deduplication on exact (description, source) identity only.
func NewAggregator(fuzzyThreshold float64) (*Aggregator, error) {
	if fuzzyThreshold < 0 || fuzzyThreshold > 1 {
		return nil, fmt.Errorf("%w: fuzzy threshold %.3f outside [0,1]",
			domain.ErrInvalidConfiguration, fuzzyThreshold)
	}
	return &Aggregator{fuzzyThreshold: fuzzyThreshold}, nil
}

// Aggregate merges weighted proposals into the final decision set. Every
// instrument appearing in any positively weighted proposal appears exactly
// once in the result, ordered by symbol. An exact weighted tie between
// opposing actions yields a HOLD decision flagged ambiguous rather than an
// arbitrary resolution. Zero-weight entries were not admitted and
// contribute nothing.
func (g *Aggregator) Aggregate(weighted []WeightedProposal) []domain.PortfolioDecision {
	bySymbol := make(map[string][]WeightedProposal)
	symbols := make([]string, 0)
	for _, wp := range weighted {
		if wp.Weight <= 0 {
			continue
		}
		if _, seen := bySymbol[wp.Proposal.Symbol]; !seen {
			symbols = append(symbols, wp.Proposal.Symbol)
		}
		bySymbol[wp.Proposal.Symbol] = append(bySymbol[wp.Proposal.Symbol], wp)
	}
	sort.Strings(symbols)

	decisions := make([]domain.PortfolioDecision, 0, len(symbols))
	for _, symbol := range symbols {
		decisions = append(decisions, g.decide(symbol, bySymbol[symbol]))
	}
	return decisions
}

// decide merges the contributions on one instrument.
func (g *Aggregator) decide(symbol string, contributions []WeightedProposal) domain.PortfolioDecision {
	if len(contributions) == 1 {
		// A single contribution keeps its action, scaled by its weight.
		only := contributions[0]
		return domain.PortfolioDecision{
			Symbol:       symbol,
			SymbolName:   only.Proposal.SymbolName,
			Action:       only.Proposal.Action,
			Confidence:   only.Proposal.Confidence * only.Weight,
			Evidence:     g.dedupeEvidence(only.Proposal.Evidence),
			Contributors: []domain.AgentID{only.Agent},
		}
	}

	// Weighted vote: sum weights per action class.
	sums := make(map[domain.Action]float64)
	var total float64
	for _, wp := range contributions {
		sums[wp.Proposal.Action] += wp.Weight
		total += wp.Weight
	}

	winner, runnerUp, tied := rankActions(sums)
	if tied {
		// The tie is surfaced, never resolved arbitrarily. Contributions
		// from the tied classes stay visible for the operator; a class that
		// lost outright is excluded.
		admitted := actionsAt(sums, sums[winner])
		return domain.PortfolioDecision{
			Symbol:       symbol,
			SymbolName:   firstSymbolName(contributions, admitted),
			Action:       domain.ActionHold,
			Confidence:   0,
			Ambiguous:    true,
			Evidence:     g.collectEvidence(contributions, admitted),
			Contributors: collectContributors(contributions, admitted),
		}
	}

	confidence := 0.0
	if total > 0 {
		confidence = (sums[winner] - sums[runnerUp]) / total
	}
	admitted := map[domain.Action]struct{}{winner: {}}
	return domain.PortfolioDecision{
		Symbol:       symbol,
		SymbolName:   firstSymbolName(contributions, admitted),
		Action:       winner,
		Confidence:   confidence,
		Evidence:     g.collectEvidence(contributions, admitted),
		Contributors: collectContributors(contributions, admitted),
	}
}

// actionsAt returns the action classes whose weighted sum equals target.
func actionsAt(sums map[domain.Action]float64, target float64) map[domain.Action]struct{} {
	set := make(map[domain.Action]struct{}, len(sums))
	for action, sum := range sums {
		if sum == target {
			set[action] = struct{}{}
		}
	}
	return set
}

// rankActions orders the action classes by weighted sum and reports an
// exact tie at the top. The runner-up is the zero Action with sum 0 when
// only one class received weight.
func rankActions(sums map[domain.Action]float64) (winner, runnerUp domain.Action, tied bool) {
	type ranked struct {
		action domain.Action
		sum    float64
	}
	order := make([]ranked, 0, len(sums))
	for action, sum := range sums {
		order = append(order, ranked{action: action, sum: sum})
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].sum != order[j].sum {
			return order[i].sum > order[j].sum
		}
		return order[i].action < order[j].action
	})

	winner = order[0].action
	if len(order) > 1 {
		runnerUp = order[1].action
		tied = order[0].sum == order[1].sum
	}
	return winner, runnerUp, tied
}

// collectEvidence concatenates evidence from the admitted actions'
// contributions, preserving contribution order.
func (g *Aggregator) collectEvidence(contributions []WeightedProposal, admitted map[domain.Action]struct{}) []domain.Evidence {
	merged := make([]domain.Evidence, 0)
	for _, wp := range contributions {
		if _, ok := admitted[wp.Proposal.Action]; !ok {
			continue
		}
		merged = append(merged, wp.Proposal.Evidence...)
	}
	return g.dedupeEvidence(merged)
}

// collectContributors lists the admitted actions' agents in contribution
// order.
func collectContributors(contributions []WeightedProposal, admitted map[domain.Action]struct{}) []domain.AgentID {
	contributors := make([]domain.AgentID, 0, len(contributions))
	for _, wp := range contributions {
		if _, ok := admitted[wp.Proposal.Action]; !ok {
			continue
		}
		contributors = append(contributors, wp.Agent)
	}
	return contributors
}

// dedupeEvidence removes duplicates by (description, source) identity,
// keeping first occurrences in order. With a fuzzy threshold configured,
// near-identical descriptions from the same source collapse as well, which
// handles several agents quoting the same headline with trivial variation.
func (g *Aggregator) dedupeEvidence(evidence []domain.Evidence) []domain.Evidence {
	type identity struct {
		description string
		source      string
	}
	seen := make(map[identity]struct{}, len(evidence))
	kept := make([]domain.Evidence, 0, len(evidence))

	for _, ev := range evidence {
		key := identity{description: foldCaser.String(ev.Description), source: ev.Source}
		if _, dup := seen[key]; dup {
			continue
		}
		if g.fuzzyThreshold > 0 && g.nearDuplicate(kept, ev) {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, ev)
	}
	return kept
}

// nearDuplicate reports whether the evidence is a fuzzy duplicate of an
// already kept item from the same source.
func (g *Aggregator) nearDuplicate(kept []domain.Evidence, ev domain.Evidence) bool {
	folded := foldCaser.String(ev.Description)
	for _, k := range kept {
		if k.Source != ev.Source {
			continue
		}
		if similarity(foldCaser.String(k.Description), folded) >= g.fuzzyThreshold {
			return true
		}
	}
	return false
}

// similarity maps Levenshtein edit distance to [0,1], where 1 is an exact
// match.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(longest)
}

// firstSymbolName returns the first non-empty display name among the
// admitted actions' contributions, falling back to any contribution when
// none of them carries one.
func firstSymbolName(contributions []WeightedProposal, admitted map[domain.Action]struct{}) string {
	for _, wp := range contributions {
		if _, ok := admitted[wp.Proposal.Action]; !ok {
			continue
		}
		if wp.Proposal.SymbolName != "" {
			return wp.Proposal.SymbolName
		}
	}
	for _, wp := range contributions {
		if wp.Proposal.SymbolName != "" {
			return wp.Proposal.SymbolName
		}
	}
	return ""
}
