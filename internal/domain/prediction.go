package domain

import (
	"fmt"
	"sort"
	"time"
)

// ModelEnsemble es el pseudo-modelo que representa el forecast combinado.
const ModelEnsemble = "ensemble"

// WeightSource indica de dónde salió el vector de pesos usado en un horizonte.
type WeightSource string

const (
	WeightSourceAdaptive WeightSource = "adaptive"  // WeightSolver con historial suficiente
	WeightSourceFitScore WeightSource = "fit_score" // R² in-sample normalizado
	WeightSourceUniform  WeightSource = "uniform"   // cold start: 1/N
)

// HorizonForecast is the blended forecast for one horizon of a prediction.
type HorizonForecast struct {
	TargetAt      time.Time          `json:"target_at" validate:"required"`
	EnsemblePrice float64            `json:"ensemble_price" validate:"gt=0"`
	Models        map[string]float64 `json:"models" validate:"dive,keys,required,endkeys"`
	Weights       map[string]float64 `json:"weights" validate:"dive,keys,required,endkeys,gte=0,lte=1"`
	WeightSource  WeightSource       `json:"weight_source,omitempty"`
}

// PredictionRecord is one generation-time forecast across all horizons.
// Created once by the ledger, mutated only by the validator, never deleted.
type PredictionRecord struct {
	ID                string                     `json:"id" validate:"required"`
	CreatedAt         time.Time                  `json:"created_at" validate:"required"`
	BasePrice         float64                    `json:"base_price" validate:"gt=0"`
	Condition         ConditionLabel             `json:"condition" validate:"required"`
	Horizons          map[string]HorizonForecast `json:"horizons" validate:"required,min=1,dive,keys,required,endkeys"`
	ValidatedHorizons []string                   `json:"validated_horizons"`
	FullyValidated    bool                       `json:"fully_validated"`
}

// IsValidated informa si el horizonte ya generó su ValidationRecord.
func (p *PredictionRecord) IsValidated(horizon string) bool {
	for _, h := range p.ValidatedHorizons {
		if h == horizon {
			return true
		}
	}
	return false
}

// MarkValidated añade el horizonte al set (idempotente, mantiene orden).
func (p *PredictionRecord) MarkValidated(horizon string) {
	if p.IsValidated(horizon) {
		return
	}
	p.ValidatedHorizons = append(p.ValidatedHorizons, horizon)
	sort.Strings(p.ValidatedHorizons)
}

// RefreshFullyValidated recalcula el flag: true sii ValidatedHorizons == keys(Horizons).
func (p *PredictionRecord) RefreshFullyValidated() {
	if len(p.ValidatedHorizons) != len(p.Horizons) {
		p.FullyValidated = false
		return
	}
	for _, h := range p.ValidatedHorizons {
		if _, ok := p.Horizons[h]; !ok {
			p.FullyValidated = false
			return
		}
	}
	p.FullyValidated = true
}

// DueHorizons devuelve los horizontes pendientes cuyo target ya pasó,
// ordenados por TargetAt y luego por nombre.
func (p *PredictionRecord) DueHorizons(now time.Time) []string {
	var due []string
	for name, hf := range p.Horizons {
		if p.IsValidated(name) {
			continue
		}
		if !now.Before(hf.TargetAt) {
			due = append(due, name)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		ti, tj := p.Horizons[due[i]].TargetAt, p.Horizons[due[j]].TargetAt
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return due[i] < due[j]
	})
	return due
}

// Clone devuelve una copia profunda del record.
func (p PredictionRecord) Clone() PredictionRecord {
	out := p
	out.Horizons = make(map[string]HorizonForecast, len(p.Horizons))
	for name, hf := range p.Horizons {
		hf.Models = cloneFloatMap(hf.Models)
		hf.Weights = cloneFloatMap(hf.Weights)
		out.Horizons[name] = hf
	}
	if p.ValidatedHorizons != nil {
		out.ValidatedHorizons = append([]string{}, p.ValidatedHorizons...)
	}
	return out
}

// History is the whole persisted ledger document.
type History struct {
	Predictions []PredictionRecord `json:"predictions" validate:"dive"`
	Validations []ValidationRecord `json:"validations" validate:"dive"`
	Summary     Summary            `json:"summary"`
}

// NewHistory devuelve un ledger vacío listo para persistir.
func NewHistory() History {
	return History{
		Predictions: []PredictionRecord{},
		Validations: []ValidationRecord{},
	}
}

// Clone devuelve una copia profunda del documento.
func (h History) Clone() History {
	out := History{Summary: h.Summary.Clone()}
	if h.Predictions != nil {
		out.Predictions = make([]PredictionRecord, len(h.Predictions))
		for i, p := range h.Predictions {
			out.Predictions[i] = p.Clone()
		}
	}
	if h.Validations != nil {
		out.Validations = make([]ValidationRecord, len(h.Validations))
		for i, v := range h.Validations {
			out.Validations[i] = v.Clone()
		}
	}
	return out
}

// Check verifica invariantes entre campos que los tags de struct no expresan:
// ids únicos, horizontes validados existentes, flag fully_validated coherente
// y validaciones que apuntan a predicciones conocidas.
func (h History) Check() error {
	seen := make(map[string]struct{}, len(h.Predictions))
	for i, p := range h.Predictions {
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("prediction %d: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = struct{}{}

		for _, vh := range p.ValidatedHorizons {
			if _, ok := p.Horizons[vh]; !ok {
				return fmt.Errorf("prediction %q: validated horizon %q not in horizons", p.ID, vh)
			}
		}
		cp := p.Clone()
		cp.RefreshFullyValidated()
		if cp.FullyValidated != p.FullyValidated {
			return fmt.Errorf("prediction %q: fully_validated=%t inconsistent with validated horizons", p.ID, p.FullyValidated)
		}
	}

	for i, v := range h.Validations {
		if _, ok := seen[v.PredictionID]; !ok {
			return fmt.Errorf("validation %d: unknown prediction id %q", i, v.PredictionID)
		}
		if _, ok := v.Errors[ModelEnsemble]; !ok {
			return fmt.Errorf("validation %d: missing %q error entry", i, ModelEnsemble)
		}
	}
	return nil
}

func cloneFloatMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
