package contest

import (
	"fmt"
	"sync"
	"time"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

// Ledger is the append-only performance store: one record per resolved
// (prediction, realized outcome) pair, keyed by agent identity. Scores are
// derived data, recomputed on read over the most recent window; records are
// never mutated after creation, and eviction only drops whole records that
// fell outside the window. The ledger is the one piece of state written
// outside a round's lifetime, so all access is guarded by a RWMutex and
// readers never observe a half-written record.
type Ledger struct {
	mu sync.RWMutex

	window    int
	coldStart float64
	decay     float64
	cmp       ports.Comparator

	// records holds each agent's resolved history in append order,
	// bounded to window entries.
	records map[domain.AgentID][]domain.PerformanceRecord

	// pending holds predictions declared at round close that have no
	// realized outcome yet.
	pending map[pendingKey]domain.Prediction
}

// pendingKey identifies one tracked prediction awaiting its outcome.
type pendingKey struct {
	agent  domain.AgentID
	round  int
	symbol string
}

// NewLedger creates a performance ledger. window is W, the bounded history
// per agent; coldStart is the default score for agents with no qualifying
// records; decay in (0,1] discounts older records when scoring.
func NewLedger(window int, coldStart, decay float64, cmp ports.Comparator) (*Ledger, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: score window %d", domain.ErrInvalidConfiguration, window)
	}
	if coldStart < 0 || coldStart > 1 {
		return nil, fmt.Errorf("%w: cold start score %.3f outside [0,1]", domain.ErrInvalidConfiguration, coldStart)
	}
	if decay <= 0 || decay > 1 {
		return nil, fmt.Errorf("%w: decay %.3f outside (0,1]", domain.ErrInvalidConfiguration, decay)
	}
	if cmp == nil {
		return nil, fmt.Errorf("%w: comparator is nil", domain.ErrInvalidConfiguration)
	}
	return &Ledger{
		window:    window,
		coldStart: coldStart,
		decay:     decay,
		cmp:       cmp,
		records:   make(map[domain.AgentID][]domain.PerformanceRecord),
		pending:   make(map[pendingKey]domain.Prediction),
	}, nil
}

// Track registers a prediction declared at round close so it can be scored
// once its realized outcome arrives. Re-tracking the same (agent, round,
// symbol) overwrites the pending entry; resolved records are never touched.
func (l *Ledger) Track(agent domain.AgentID, round int, pred domain.Prediction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending[pendingKey{agent: agent, round: round, symbol: pred.Symbol}] = pred
}

// Record appends one resolved performance record directly. It is the
// low-level form of Resolve for callers that already paired a prediction
// with its outcome.
func (l *Ledger) Record(agent domain.AgentID, round int, pred domain.Prediction, outcome domain.RealizedOutcome) error {
	correctness, err := l.score(agent, pred, outcome)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.appendLocked(agent, round, pred, outcome, correctness)
	return nil
}

// Resolve matches one realized outcome against every pending prediction on
// the same instrument and appends a record per match. It returns how many
// predictions it resolved. An outcome with no pending match is not an
// error; outcomes may precede or outlive the predictions they describe.
// A prediction is removed from the pending set only once its record is
// appended, so a scoring failure leaves the failed prediction (and any not
// yet examined) pending for a later valid outcome to resolve.
func (l *Ledger) Resolve(outcome domain.RealizedOutcome) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	resolved := 0
	for key, pred := range l.pending {
		if key.symbol != outcome.Symbol {
			continue
		}
		correctness, err := l.score(key.agent, pred, outcome)
		if err != nil {
			return resolved, err
		}
		l.appendLocked(key.agent, key.round, pred, outcome, correctness)
		delete(l.pending, key)
		resolved++
	}
	return resolved, nil
}

// score runs the comparator and enforces its [0,1] contract.
func (l *Ledger) score(agent domain.AgentID, pred domain.Prediction, outcome domain.RealizedOutcome) (float64, error) {
	correctness, err := l.cmp.Compare(pred, outcome)
	if err != nil {
		return 0, fmt.Errorf("compare prediction for %s: %w", agent, err)
	}
	if correctness < 0 || correctness > 1 {
		return 0, fmt.Errorf("comparator returned %.3f outside [0,1] for %s", correctness, agent)
	}
	return correctness, nil
}

// appendLocked appends one record to the agent's history. Callers hold mu.
func (l *Ledger) appendLocked(agent domain.AgentID, round int, pred domain.Prediction, outcome domain.RealizedOutcome, correctness float64) {
	history := append(l.records[agent], domain.PerformanceRecord{
		Agent:       agent,
		Round:       round,
		Prediction:  pred,
		Outcome:     outcome,
		Correctness: correctness,
		RecordedAt:  time.Now(),
	})
	// Bounded-window eviction: drop whole records from the front.
	if len(history) > l.window {
		history = history[len(history)-l.window:]
	}
	l.records[agent] = history
}

// Score computes the agent's rolling score: an exponentially decayed
// average of per-record correctness over the most recent window, bounded to
// [0,1]. An agent with zero qualifying records receives the cold-start
// default; the condition is resolved here and never surfaced to callers.
func (l *Ledger) Score(agent domain.AgentID) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	history := l.records[agent]
	if len(history) == 0 {
		return l.coldStart
	}

	// Most recent record carries weight 1; each step back multiplies by
	// the decay factor.
	var weighted, total float64
	weight := 1.0
	for i := len(history) - 1; i >= 0; i-- {
		weighted += history[i].Correctness * weight
		total += weight
		weight *= l.decay
	}
	return weighted / total
}

// Scores computes the rolling score for each given identity.
func (l *Ledger) Scores(agents []domain.AgentID) map[domain.AgentID]float64 {
	scores := make(map[domain.AgentID]float64, len(agents))
	for _, id := range agents {
		scores[id] = l.Score(id)
	}
	return scores
}

// History returns a copy of the agent's retained records in append order.
func (l *Ledger) History(agent domain.AgentID) []domain.PerformanceRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	history := make([]domain.PerformanceRecord, len(l.records[agent]))
	copy(history, l.records[agent])
	return history
}

// Pending returns how many tracked predictions still await an outcome.
func (l *Ledger) Pending() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.pending)
}
