package contest

import (
	"fmt"
	"math"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

// DefaultReturnCap bounds how much of a realized move the directional
// comparator credits. Moves beyond the cap score the same as a move at the
// cap, keeping single outsized days from dominating an agent's history.
const DefaultReturnCap = 0.10

var _ ports.Comparator = (*DirectionalComparator)(nil)

// DirectionalComparator is the default correctness comparator: a
// directional hit/miss weighted by the magnitude of the realized move.
// A correct call scores in (0.5, 1], an incorrect one in [0, 0.5), and a
// hold prediction scores by how flat the instrument stayed. The mapping is
// bounded to [0,1] and monotonic: a strictly better realized move for the
// same prediction never scores lower.
type DirectionalComparator struct {
	// Cap bounds |return| before scaling. Zero means DefaultReturnCap.
	Cap float64
}

// Compare scores one prediction against one realized outcome.
func (c DirectionalComparator) Compare(pred domain.Prediction, outcome domain.RealizedOutcome) (float64, error) {
	if pred.Symbol != outcome.Symbol {
		return 0, fmt.Errorf("prediction symbol %q does not match outcome symbol %q", pred.Symbol, outcome.Symbol)
	}
	if math.IsNaN(outcome.Return) || math.IsInf(outcome.Return, 0) {
		return 0, fmt.Errorf("invalid realized return %f for %s", outcome.Return, outcome.Symbol)
	}

	bound := c.Cap
	if bound <= 0 {
		bound = DefaultReturnCap
	}
	magnitude := math.Min(math.Abs(outcome.Return), bound) / bound

	switch pred.Action {
	case domain.ActionBuy:
		if outcome.Return >= 0 {
			return 0.5 + magnitude/2, nil
		}
		return 0.5 - magnitude/2, nil
	case domain.ActionSell:
		if outcome.Return <= 0 {
			return 0.5 + magnitude/2, nil
		}
		return 0.5 - magnitude/2, nil
	case domain.ActionHold:
		// A hold call is right exactly when nothing happened.
		return 1 - magnitude, nil
	default:
		return 0, fmt.Errorf("unknown prediction action %q", pred.Action)
	}
}
