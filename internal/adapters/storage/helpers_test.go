package storage_test

import (
	"time"

	"github.com/alejandrodnm/ethcast/internal/domain"
)

func samplePrediction(id string, t0 time.Time) domain.PredictionRecord {
	return domain.PredictionRecord{
		ID:        id,
		CreatedAt: t0,
		BasePrice: 3000,
		Condition: "bull_low_vol",
		Horizons: map[string]domain.HorizonForecast{
			"15min": {
				TargetAt:      t0.Add(15 * time.Minute),
				EnsemblePrice: 3020,
				Models:        map[string]float64{"linear": 3015, "polynomial": 3025},
				Weights:       map[string]float64{"linear": 0.5, "polynomial": 0.5},
				WeightSource:  domain.WeightSourceUniform,
			},
			"30min": {
				TargetAt:      t0.Add(30 * time.Minute),
				EnsemblePrice: 3031.25,
				Models:        map[string]float64{"linear": 3030, "polynomial": 3032.5},
				Weights:       map[string]float64{"linear": 0.5, "polynomial": 0.5},
				WeightSource:  domain.WeightSourceUniform,
			},
		},
		ValidatedHorizons: []string{},
	}
}

// sampleDocuments devuelve un History con una predicción parcialmente validada
// y el documento de rendimiento que le corresponde.
func sampleDocuments() (domain.History, domain.PerformanceByCondition) {
	t0 := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	p := samplePrediction("2026-01-10T12:00:00Z", t0)

	v := domain.NewValidationRecord(p, "15min", t0.Add(16*time.Minute), 3010)
	p.MarkValidated("15min")
	p.RefreshFullyValidated()

	h := domain.NewHistory()
	h.Predictions = append(h.Predictions, p)
	h.Validations = append(h.Validations, v)
	h.Summary = domain.ComputeSummary(1, h.Validations, t0.Add(16*time.Minute))

	perf := domain.PerformanceByCondition{}
	for model, e := range v.Errors {
		perf.Add(v.Condition, model, e)
	}
	return h, perf
}

func perfFrom(vals []domain.ValidationRecord) domain.PerformanceByCondition {
	perf := domain.PerformanceByCondition{}
	for _, v := range vals {
		for model, e := range v.Errors {
			perf.Add(v.Condition, model, e)
		}
	}
	return perf
}

// utcHistory normaliza todos los instantes como hace el ledger antes de escribir.
func utcHistory(h domain.History) domain.History {
	for i := range h.Predictions {
		p := &h.Predictions[i]
		p.CreatedAt = domain.NormalizeUTC(p.CreatedAt)
		for name, hf := range p.Horizons {
			hf.TargetAt = domain.NormalizeUTC(hf.TargetAt)
			p.Horizons[name] = hf
		}
	}
	for i := range h.Validations {
		v := &h.Validations[i]
		v.CreatedAt = domain.NormalizeUTC(v.CreatedAt)
		v.ValidatedAt = domain.NormalizeUTC(v.ValidatedAt)
		v.TargetAt = domain.NormalizeUTC(v.TargetAt)
	}
	if h.Summary.LastUpdated != nil {
		t := domain.NormalizeUTC(*h.Summary.LastUpdated)
		h.Summary.LastUpdated = &t
	}
	return h
}

type roundTripCase struct {
	name    string
	history domain.History
	perf    domain.PerformanceByCondition
}

// roundTripCases cubre las formas de History que el engine produce.
func roundTripCases() []roundTripCase {
	t0 := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	var cases []roundTripCase

	cases = append(cases, roundTripCase{"empty ledger", domain.NewHistory(), domain.PerformanceByCondition{}})

	h, perf := sampleDocuments()
	cases = append(cases, roundTripCase{"single partially validated", h, perf})

	// cuatro horizontes con dos validados, y otra predicción ya completa
	wide := samplePrediction("2026-01-10T12:00:00Z", t0)
	wide.Horizons["60min"] = domain.HorizonForecast{
		TargetAt:      t0.Add(time.Hour),
		EnsemblePrice: 3040,
		Models:        map[string]float64{"linear": 3035, "polynomial": 3045},
		Weights:       map[string]float64{"linear": 0.7, "polynomial": 0.3},
		WeightSource:  domain.WeightSourceAdaptive,
	}
	wide.Horizons["120min"] = domain.HorizonForecast{
		TargetAt:      t0.Add(2 * time.Hour),
		EnsemblePrice: 2990.5,
		Models:        map[string]float64{"linear": 2980, "polynomial": 3015},
		Weights:       map[string]float64{"linear": 0.7, "polynomial": 0.3},
		WeightSource:  domain.WeightSourceFitScore,
	}
	done := samplePrediction("2026-01-10T11:00:00Z", t0.Add(-time.Hour))
	done.Condition = "bear_high_vol"

	multi := domain.NewHistory()
	at := t0.Add(31 * time.Minute)
	for _, hz := range []string{"15min", "30min"} {
		multi.Validations = append(multi.Validations, domain.NewValidationRecord(done, hz, at, 3005))
		done.MarkValidated(hz)
		multi.Validations = append(multi.Validations, domain.NewValidationRecord(wide, hz, at, 3012))
		wide.MarkValidated(hz)
	}
	done.RefreshFullyValidated()
	wide.RefreshFullyValidated()
	multi.Predictions = append(multi.Predictions, done, wide)
	multi.Summary = domain.ComputeSummary(2, multi.Validations, at)
	cases = append(cases, roundTripCase{"multi horizon partially validated", multi, perfFrom(multi.Validations)})

	// sin validaciones: Summary.Models queda nil
	pending := domain.NewHistory()
	pending.Predictions = append(pending.Predictions, samplePrediction("2026-01-10T12:00:00Z", t0))
	pending.Summary = domain.Summary{TotalPredictions: 1}
	cases = append(cases, roundTripCase{"nil summary models", pending, domain.PerformanceByCondition{}})

	// construido en CET y normalizado antes de escribir
	cet := time.FixedZone("CET", 3600)
	local := samplePrediction("2026-01-10T12:00:00Z", time.Date(2026, 1, 10, 13, 0, 0, 0, cet))
	lh := domain.NewHistory()
	v := domain.NewValidationRecord(local, "15min", time.Date(2026, 1, 10, 13, 20, 0, 0, cet), 3010)
	local.MarkValidated("15min")
	lh.Predictions = append(lh.Predictions, local)
	lh.Validations = append(lh.Validations, v)
	lh.Summary = domain.ComputeSummary(1, lh.Validations, time.Date(2026, 1, 10, 13, 20, 0, 0, cet))
	cases = append(cases, roundTripCase{"normalized non-UTC input", utcHistory(lh), perfFrom(lh.Validations)})

	return cases
}
