package tracker

import (
	"time"

	"github.com/alejandrodnm/ethcast/internal/domain"
)

// Aggregator maintains the running (condition, model) buckets. Its state is
// always reconstructible by replaying the validation log with Replay.
type Aggregator struct {
	perf domain.PerformanceByCondition
}

// NewAggregator wraps an existing PerformanceByCondition document.
func NewAggregator(perf domain.PerformanceByCondition) *Aggregator {
	if perf == nil {
		perf = domain.PerformanceByCondition{}
	}
	return &Aggregator{perf: perf}
}

// Replay rebuilds the buckets from scratch out of the validation log.
func Replay(validations []domain.ValidationRecord) domain.PerformanceByCondition {
	a := NewAggregator(nil)
	for _, v := range validations {
		a.Update(v)
	}
	return a.perf
}

// Update adds every error entry of v, the ensemble included, to the
// bucket of v's condition.
func (a *Aggregator) Update(v domain.ValidationRecord) {
	for model, e := range v.Errors {
		a.perf.Add(v.Condition, model, e)
	}
}

// PerformanceFor returns a copy of the per-model buckets for one condition.
// Unknown conditions return an empty map.
func (a *Aggregator) PerformanceFor(condition domain.ConditionLabel) map[string]domain.ConditionPerformance {
	out := make(map[string]domain.ConditionPerformance)
	for model, stats := range a.perf[condition.OrUnknown()] {
		out[model] = stats
	}
	return out
}

// Summary recomputes the global summary from the full validation log.
func (a *Aggregator) Summary(totalPredictions int, validations []domain.ValidationRecord, now time.Time) domain.Summary {
	return domain.ComputeSummary(totalPredictions, validations, now)
}

// Document returns a deep copy of the PerformanceByCondition document.
func (a *Aggregator) Document() domain.PerformanceByCondition {
	return a.perf.Clone()
}

func (a *Aggregator) clone() *Aggregator {
	return &Aggregator{perf: a.perf.Clone()}
}
