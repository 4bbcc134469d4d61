package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/ethcast/internal/domain"
	"github.com/alejandrodnm/ethcast/internal/ports"
)

// Options configures a Tracker.
type Options struct {
	Models []string // configured model set, used for uniform and adaptive weights
	Solver SolverOptions
}

// Tracker is the explicit handle around one ledger: it wires the ledger,
// validator, aggregator and weight solver together and serializes access
// to them. Persistence is the injected LedgerStore.
type Tracker struct {
	mu        sync.RWMutex
	store     ports.LedgerStore
	ledger    *Ledger
	agg       *Aggregator
	validator *Validator
	solver    *Solver
}

// Open loads both documents and builds a Tracker.
//
// The stored performance document is checked against a replay of the
// validation log; when they diverge (a crash between the two writes, or a
// hand-edited file) the replay wins and a warning is logged.
func Open(ctx context.Context, store ports.LedgerStore, opts Options) (*Tracker, error) {
	ledger, err := LoadLedger(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("tracker.Open: %w", err)
	}
	stored, err := store.LoadPerformance(ctx)
	if err != nil {
		return nil, fmt.Errorf("tracker.Open: %w", err)
	}

	replayed := Replay(ledger.history.Validations)
	perf := stored
	if !stored.Equivalent(replayed) {
		slog.Warn("performance document diverges from validation log, using replay",
			"stored_conditions", len(stored),
			"replayed_conditions", len(replayed),
			"validations", len(ledger.history.Validations),
		)
		perf = replayed
	}

	agg := NewAggregator(perf)
	return &Tracker{
		store:     store,
		ledger:    ledger,
		agg:       agg,
		validator: NewValidator(ledger, agg, store),
		solver:    NewSolver(opts.Models, opts.Solver),
	}, nil
}

// Record appends a new prediction and persists it.
func (t *Tracker) Record(
	ctx context.Context,
	createdAt time.Time,
	condition domain.ConditionLabel,
	basePrice float64,
	horizons map[string]domain.HorizonForecast,
) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Record(ctx, createdAt, condition, basePrice, horizons)
}

// Validate runs one validation pass at now with the realized price.
func (t *Tracker) Validate(ctx context.Context, now time.Time, actualPrice float64) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.validator.Validate(ctx, now, actualPrice)
}

// WeightsFor returns the adaptive weight vector for condition.
func (t *Tracker) WeightsFor(condition domain.ConditionLabel) (domain.Weights, domain.WeightSource) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.solver.WeightsFor(condition, t.ledger.history.Validations)
}

// Summary returns the summary stored with the last validation pass.
func (t *Tracker) Summary() domain.Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.ledger.history.Summary.Clone()
	s.TotalPredictions = len(t.ledger.history.Predictions)
	return s
}

// PerformanceFor returns the per-model buckets of one condition.
func (t *Tracker) PerformanceFor(condition domain.ConditionLabel) map[string]domain.ConditionPerformance {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.agg.PerformanceFor(condition)
}

// Performance returns a copy of the whole PerformanceByCondition document.
func (t *Tracker) Performance() domain.PerformanceByCondition {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.agg.Document()
}

// Recent returns the last n validations, most recent first.
func (t *Tracker) Recent(n int) []domain.ValidationRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ledger.Recent(n)
}

// History returns a deep copy of the ledger document.
func (t *Tracker) History() domain.History {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ledger.History()
}

// Pending returns predictions that still have unvalidated horizons.
func (t *Tracker) Pending() []domain.PredictionRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ledger.Pending()
}

// Models returns the configured model set.
func (t *Tracker) Models() []string {
	return append([]string(nil), t.solver.models...)
}

// Rebuild replays the validation log into a fresh performance document,
// recomputes the summary and persists both. Returns the number of replayed
// validations.
func (t *Tracker) Rebuild(ctx context.Context, now time.Time) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.ledger.history.Clone()
	perf := Replay(next.Validations)
	next.Summary = domain.ComputeSummary(len(next.Predictions), next.Validations, now)

	if err := t.store.Save(ctx, next, perf); err != nil {
		return 0, fmt.Errorf("tracker.Rebuild: %w", err)
	}
	t.ledger.commit(next)
	t.agg.perf = perf
	return len(next.Validations), nil
}
