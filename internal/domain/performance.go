package domain

import (
	"math"
	"sort"
	"time"
)

// ConditionPerformance acumula el rendimiento de un modelo dentro de una condición.
type ConditionPerformance struct {
	Count                      int     `json:"count" validate:"gte=0"`
	CumulativeErrorPct         float64 `json:"cumulative_error_pct" validate:"gte=0"`
	CumulativeDirectionCorrect int     `json:"cumulative_direction_correct" validate:"gte=0,ltefield=Count"`
	AvgErrorPct                float64 `json:"avg_error_pct"`
	DirectionAccuracyPct       float64 `json:"direction_accuracy_pct"`
}

// Add incorpora un resultado y recalcula los derivados.
func (c *ConditionPerformance) Add(e ErrorEntry) {
	c.Count++
	c.CumulativeErrorPct += e.PercentError
	if e.DirectionCorrect {
		c.CumulativeDirectionCorrect++
	}
	c.AvgErrorPct = c.CumulativeErrorPct / float64(c.Count)
	c.DirectionAccuracyPct = float64(c.CumulativeDirectionCorrect) / float64(c.Count) * 100
}

// PerformanceByCondition is the second persisted document:
// condition → model → ConditionPerformance.
type PerformanceByCondition map[ConditionLabel]map[string]ConditionPerformance

// Add suma un ErrorEntry al bucket (condition, model), creándolo si hace falta.
func (p PerformanceByCondition) Add(condition ConditionLabel, model string, e ErrorEntry) {
	condition = condition.OrUnknown()
	bucket, ok := p[condition]
	if !ok {
		bucket = make(map[string]ConditionPerformance)
		p[condition] = bucket
	}
	stats := bucket[model]
	stats.Add(e)
	bucket[model] = stats
}

// Conditions devuelve las condiciones ordenadas alfabéticamente.
func (p PerformanceByCondition) Conditions() []ConditionLabel {
	out := make([]ConditionLabel, 0, len(p))
	for c := range p {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone devuelve una copia profunda.
func (p PerformanceByCondition) Clone() PerformanceByCondition {
	out := make(PerformanceByCondition, len(p))
	for c, models := range p {
		m := make(map[string]ConditionPerformance, len(models))
		for name, stats := range models {
			m[name] = stats
		}
		out[c] = m
	}
	return out
}

// Equivalent compara dos documentos tolerando ruido de punto flotante en los acumulados.
func (p PerformanceByCondition) Equivalent(other PerformanceByCondition) bool {
	if len(p) != len(other) {
		return false
	}
	for c, models := range p {
		om, ok := other[c]
		if !ok || len(om) != len(models) {
			return false
		}
		for name, a := range models {
			b, ok := om[name]
			if !ok || a.Count != b.Count || a.CumulativeDirectionCorrect != b.CumulativeDirectionCorrect {
				return false
			}
			if math.Abs(a.CumulativeErrorPct-b.CumulativeErrorPct) > 1e-6 {
				return false
			}
		}
	}
	return true
}

// ModelStats is the global per-model line of the Summary.
type ModelStats struct {
	Count                int     `json:"count"`
	AvgErrorPct          float64 `json:"avg_error_pct"`
	DirectionAccuracyPct float64 `json:"direction_accuracy_pct"`
}

// Summary is recomputed from the full validation log after every pass.
type Summary struct {
	TotalPredictions       int                   `json:"total_predictions"`
	TotalValidations       int                   `json:"total_validations"`
	EnsembleAvgErrorPct    float64               `json:"ensemble_avg_error_pct"`
	DirectionalAccuracyPct float64               `json:"directional_accuracy_pct"`
	Models                 map[string]ModelStats `json:"models,omitempty"`
	LastUpdated            *time.Time            `json:"last_updated,omitempty"`
}

// Clone devuelve una copia profunda.
func (s Summary) Clone() Summary {
	out := s
	if s.Models != nil {
		out.Models = make(map[string]ModelStats, len(s.Models))
		for k, v := range s.Models {
			out.Models[k] = v
		}
	}
	if s.LastUpdated != nil {
		t := *s.LastUpdated
		out.LastUpdated = &t
	}
	return out
}

// BestModel devuelve el modelo real con menor error medio.
func (s Summary) BestModel() (string, ModelStats, bool) {
	names := make([]string, 0, len(s.Models))
	for name := range s.Models {
		names = append(names, name)
	}
	sort.Strings(names)

	var best string
	var found bool
	for _, name := range names {
		if !found || s.Models[name].AvgErrorPct < s.Models[best].AvgErrorPct {
			best, found = name, true
		}
	}
	if !found {
		return "", ModelStats{}, false
	}
	return best, s.Models[best], true
}

// ComputeSummary recalcula el Summary desde el log completo de validaciones.
// No usa los buckets incrementales para que el resultado sea consistente
// incluso tras fallos parciales o recargas.
func ComputeSummary(totalPredictions int, validations []ValidationRecord, now time.Time) Summary {
	s := Summary{
		TotalPredictions: totalPredictions,
		TotalValidations: len(validations),
	}
	if len(validations) == 0 {
		return s
	}

	type acc struct {
		n       int
		errSum  float64
		correct int
	}
	perModel := make(map[string]*acc)
	var ens acc

	for _, v := range validations {
		for name, e := range v.Errors {
			a := &ens
			if name != ModelEnsemble {
				a = perModel[name]
				if a == nil {
					a = &acc{}
					perModel[name] = a
				}
			}
			a.n++
			a.errSum += e.PercentError
			if e.DirectionCorrect {
				a.correct++
			}
		}
	}

	if ens.n > 0 {
		s.EnsembleAvgErrorPct = ens.errSum / float64(ens.n)
		s.DirectionalAccuracyPct = float64(ens.correct) / float64(ens.n) * 100
	}
	if len(perModel) > 0 {
		s.Models = make(map[string]ModelStats, len(perModel))
	}
	for name, a := range perModel {
		s.Models[name] = ModelStats{
			Count:                a.n,
			AvgErrorPct:          a.errSum / float64(a.n),
			DirectionAccuracyPct: float64(a.correct) / float64(a.n) * 100,
		}
	}
	ts := NormalizeUTC(now)
	s.LastUpdated = &ts
	return s
}
