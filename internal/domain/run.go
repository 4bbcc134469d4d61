package domain

import (
	"sort"
	"time"
)

// RunReport bundles everything one pipeline run produced, for notifiers,
// metrics and the run log.
type RunReport struct {
	RunID         string
	StartedAt     time.Time
	Duration      time.Duration
	Symbol        string
	BasePrice     float64
	Condition     ConditionLabel
	Validated     int
	ValidationErr string // non-empty when the validation pass failed and was skipped
	PredictionID  string
	Horizons      map[string]HorizonForecast
	Summary       Summary
	Performance   map[string]ConditionPerformance // for Condition only
	Recent        []ValidationRecord
	AccuracyAlert bool
}

// HorizonNames devuelve los horizontes ordenados por TargetAt.
func (r RunReport) HorizonNames() []string {
	names := make([]string, 0, len(r.Horizons))
	for name := range r.Horizons {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ti, tj := r.Horizons[names[i]].TargetAt, r.Horizons[names[j]].TargetAt
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return names[i] < names[j]
	})
	return names
}

// RunSummary is the compact row persisted per run in the run log.
type RunSummary struct {
	RunID         string
	StartedAt     time.Time
	Condition     ConditionLabel
	BasePrice     float64
	Validated     int
	PredictionID  string
	EnsembleError float64
	DirectionPct  float64
}

// Summarize reduce el reporte a la fila del run log.
func (r RunReport) Summarize() RunSummary {
	return RunSummary{
		RunID:         r.RunID,
		StartedAt:     r.StartedAt,
		Condition:     r.Condition,
		BasePrice:     r.BasePrice,
		Validated:     r.Validated,
		PredictionID:  r.PredictionID,
		EnsembleError: r.Summary.EnsembleAvgErrorPct,
		DirectionPct:  r.Summary.DirectionalAccuracyPct,
	}
}
