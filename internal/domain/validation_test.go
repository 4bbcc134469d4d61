package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectionOf_TiesCountAsDown(t *testing.T) {
	assert.Equal(t, DirectionUp, DirectionOf(3001, 3000))
	assert.Equal(t, DirectionDown, DirectionOf(2999, 3000))
	assert.Equal(t, DirectionDown, DirectionOf(3000, 3000))
}

func TestEvaluateForecast_Basic(t *testing.T) {
	// predicted=3020, actual=3010, base=3000 → ambos suben
	e := EvaluateForecast(3020, 3010, 3000)
	assert.InDelta(t, 10.0, e.AbsoluteError, 1e-9)
	assert.InDelta(t, 10.0/3010*100, e.PercentError, 1e-9)
	assert.True(t, e.DirectionCorrect)
}

func TestEvaluateForecast_WrongDirection(t *testing.T) {
	e := EvaluateForecast(2990, 3010, 3000)
	assert.InDelta(t, 20.0, e.AbsoluteError, 1e-9)
	assert.False(t, e.DirectionCorrect)
}

func TestEvaluateForecast_TieAppliedToBothSides(t *testing.T) {
	// predicted == base → down; actual < base → down: dirección correcta
	e := EvaluateForecast(3000, 2990, 3000)
	assert.True(t, e.DirectionCorrect)

	// predicted == base → down; actual > base → up: incorrecta
	e = EvaluateForecast(3000, 3010, 3000)
	assert.False(t, e.DirectionCorrect)
}

func TestNewValidationRecord_IncludesEnsembleAndModels(t *testing.T) {
	t0 := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	p := PredictionRecord{
		ID:        "p1",
		CreatedAt: t0,
		BasePrice: 3000,
		Condition: "bull_low_vol",
		Horizons: map[string]HorizonForecast{
			"15min": {
				TargetAt:      t0.Add(15 * time.Minute),
				EnsemblePrice: 3020,
				Models:        map[string]float64{"linear": 3015, "polynomial": 3025, "random_forest": 3020},
				Weights:       map[string]float64{"linear": 1.0 / 3, "polynomial": 1.0 / 3, "random_forest": 1.0 / 3},
			},
		},
	}

	v := NewValidationRecord(p, "15min", t0.Add(16*time.Minute), 3010)

	require.Len(t, v.Errors, 4)
	assert.Equal(t, "p1", v.PredictionID)
	assert.Equal(t, ConditionLabel("bull_low_vol"), v.Condition)
	assert.Equal(t, t0.Add(15*time.Minute), v.TargetAt)
	assert.InDelta(t, 10.0, v.Errors[ModelEnsemble].AbsoluteError, 1e-9)
	assert.InDelta(t, 0.332, v.Errors[ModelEnsemble].PercentError, 0.001)
	assert.InDelta(t, 0.166, v.Errors["linear"].PercentError, 0.001)
	assert.Equal(t, []string{"linear", "polynomial", "random_forest"}, v.ModelNames())
}

func TestNewValidationRecord_EmptyConditionBecomesUnknown(t *testing.T) {
	t0 := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	p := PredictionRecord{
		ID:        "p1",
		CreatedAt: t0,
		BasePrice: 100,
		Horizons: map[string]HorizonForecast{
			"15min": {TargetAt: t0, EnsemblePrice: 101},
		},
	}
	v := NewValidationRecord(p, "15min", t0, 100)
	assert.Equal(t, ConditionUnknown, v.Condition)
	assert.Len(t, v.Errors, 1)
}

func TestValidationRecord_BestAndWorst(t *testing.T) {
	v := ValidationRecord{Errors: map[string]ErrorEntry{
		ModelEnsemble: {PercentError: 0.3},
		"linear":      {PercentError: 0.1},
		"polynomial":  {PercentError: 0.9},
		"ema_drift":   {PercentError: 0.4},
	}}
	best, worst, ok := v.BestAndWorst()
	require.True(t, ok)
	assert.Equal(t, "linear", best)
	assert.Equal(t, "polynomial", worst)

	_, _, ok = ValidationRecord{Errors: map[string]ErrorEntry{ModelEnsemble: {}}}.BestAndWorst()
	assert.False(t, ok)
}
