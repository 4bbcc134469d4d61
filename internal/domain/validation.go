package domain

import (
	"math"
	"sort"
	"time"
)

// Direction es el sentido de un precio respecto al precio base.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// DirectionOf devuelve up si price > base y down en cualquier otro caso.
// Los empates cuentan como down, igual para el precio predicho y el real.
func DirectionOf(price, base float64) Direction {
	if price > base {
		return DirectionUp
	}
	return DirectionDown
}

// ErrorEntry is the outcome of one model (or the ensemble) for one horizon.
type ErrorEntry struct {
	AbsoluteError    float64 `json:"absolute_error" validate:"gte=0"`
	PercentError     float64 `json:"percent_error" validate:"gte=0"`
	DirectionCorrect bool    `json:"direction_correct"`
}

// EvaluateForecast compara un precio predicho con el real.
//
//	absolute = |predicted - actual|
//	percent  = absolute / actual × 100
//	correct  = dir(predicted, base) == dir(actual, base)
//
// actual debe ser > 0; el validator lo garantiza antes de llamar.
func EvaluateForecast(predicted, actual, base float64) ErrorEntry {
	abs := math.Abs(predicted - actual)
	return ErrorEntry{
		AbsoluteError:    abs,
		PercentError:     abs / actual * 100,
		DirectionCorrect: DirectionOf(predicted, base) == DirectionOf(actual, base),
	}
}

// ValidationRecord is appended once per (prediction, horizon) validation event.
type ValidationRecord struct {
	PredictionID string                `json:"prediction_id" validate:"required"`
	CreatedAt    time.Time             `json:"created_at" validate:"required"`
	ValidatedAt  time.Time             `json:"validated_at" validate:"required"`
	TargetAt     time.Time             `json:"target_at" validate:"required"`
	Horizon      string                `json:"horizon" validate:"required"`
	Condition    ConditionLabel        `json:"condition" validate:"required"`
	BasePrice    float64               `json:"base_price" validate:"gt=0"`
	ActualPrice  float64               `json:"actual_price" validate:"gt=0"`
	Errors       map[string]ErrorEntry `json:"errors" validate:"required,min=1,dive,keys,required,endkeys"`
}

// NewValidationRecord evalúa el ensemble y cada modelo del horizonte contra actual.
func NewValidationRecord(p PredictionRecord, horizon string, validatedAt time.Time, actual float64) ValidationRecord {
	hf := p.Horizons[horizon]
	errs := make(map[string]ErrorEntry, len(hf.Models)+1)
	errs[ModelEnsemble] = EvaluateForecast(hf.EnsemblePrice, actual, p.BasePrice)
	for model, price := range hf.Models {
		if model == ModelEnsemble {
			continue
		}
		errs[model] = EvaluateForecast(price, actual, p.BasePrice)
	}
	return ValidationRecord{
		PredictionID: p.ID,
		CreatedAt:    p.CreatedAt,
		ValidatedAt:  validatedAt,
		TargetAt:     hf.TargetAt,
		Horizon:      horizon,
		Condition:    p.Condition.OrUnknown(),
		BasePrice:    p.BasePrice,
		ActualPrice:  actual,
		Errors:       errs,
	}
}

// ModelNames devuelve los modelos reales evaluados (sin el ensemble), ordenados.
func (v ValidationRecord) ModelNames() []string {
	names := make([]string, 0, len(v.Errors))
	for name := range v.Errors {
		if name != ModelEnsemble {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// BestAndWorst devuelve el modelo con menor y mayor error porcentual.
// ok es false si el record solo tiene el ensemble.
func (v ValidationRecord) BestAndWorst() (best, worst string, ok bool) {
	for _, name := range v.ModelNames() {
		e := v.Errors[name].PercentError
		if !ok {
			best, worst, ok = name, name, true
			continue
		}
		if e < v.Errors[best].PercentError {
			best = name
		}
		if e > v.Errors[worst].PercentError {
			worst = name
		}
	}
	return best, worst, ok
}

// Clone devuelve una copia profunda del record.
func (v ValidationRecord) Clone() ValidationRecord {
	out := v
	if v.Errors != nil {
		out.Errors = make(map[string]ErrorEntry, len(v.Errors))
		for k, e := range v.Errors {
			out.Errors[k] = e
		}
	}
	return out
}
