package tracker

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/ethcast/internal/domain"
)

func TestCombine(t *testing.T) {
	price, err := Combine(
		map[string]float64{"linear": 3015, "polynomial": 3025, "random_forest": 3020},
		domain.UniformWeights(testModels),
	)
	require.NoError(t, err)
	assert.InDelta(t, 3020, price, 1e-9)

	price, err = Combine(map[string]float64{"a": 100, "b": 200}, domain.Weights{"a": 0.25, "b": 0.75})
	require.NoError(t, err)
	assert.InDelta(t, 175, price, 1e-9)
}

func TestCombine_InvalidWeights(t *testing.T) {
	forecasts := map[string]float64{"a": 100, "b": 200}
	tests := []struct {
		name    string
		weights domain.Weights
	}{
		{"sum above one", domain.Weights{"a": 0.6, "b": 0.6}},
		{"sum below one", domain.Weights{"a": 0.3}},
		{"negative weight", domain.Weights{"a": -0.5, "b": 1.5}},
		{"model without forecast", domain.Weights{"a": 0.5, "c": 0.5}},
		{"empty", domain.Weights{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Combine(forecasts, tt.weights)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidWeights))
			var iw *domain.InvalidWeightsError
			assert.True(t, errors.As(err, &iw))
		})
	}
}

func TestCombine_AcceptsToleranceNoise(t *testing.T) {
	_, err := Combine(map[string]float64{"a": 1, "b": 1}, domain.Weights{"a": 0.5, "b": 0.5 + 9e-7})
	assert.NoError(t, err)
}

func TestFitScoreWeights(t *testing.T) {
	w := FitScoreWeights([]domain.ModelForecast{
		{Model: "linear", Price: 1, Score: 0.6},
		{Model: "polynomial", Price: 1, Score: 0.2},
		{Model: "ema_drift", Price: 1, Score: -0.3},
	})
	assert.InDelta(t, 0.75, w["linear"], 1e-12)
	assert.InDelta(t, 0.25, w["polynomial"], 1e-12)
	assert.Equal(t, 0.0, w["ema_drift"])
	assert.NoError(t, w.Validate(domain.WeightTolerance))
}

func TestBlendHorizon_RestrictsToAvailableModels(t *testing.T) {
	target := time.Date(2026, 1, 10, 12, 15, 0, 0, time.UTC)
	weights := domain.Weights{"linear": 0.5, "polynomial": 0.25, "random_forest": 0.25}

	hf, err := BlendHorizon(target, []domain.ModelForecast{
		{Model: "linear", Price: 3000},
		{Model: "polynomial", Price: 3030},
		{Model: "random_forest", Price: math.NaN()},
	}, weights, domain.WeightSourceAdaptive)
	require.NoError(t, err)

	assert.Equal(t, target, hf.TargetAt)
	assert.Equal(t, domain.WeightSourceAdaptive, hf.WeightSource)
	assert.NotContains(t, hf.Models, "random_forest")
	assert.InDelta(t, 2.0/3, hf.Weights["linear"], 1e-12)
	assert.InDelta(t, 3010, hf.EnsemblePrice, 1e-9)
}

func TestBlendHorizon_NoUsableForecasts(t *testing.T) {
	_, err := BlendHorizon(time.Now(), nil, domain.Weights{"a": 1}, domain.WeightSourceUniform)
	assert.Error(t, err)
}

func TestBlendHorizon_DropsNonPositivePrices(t *testing.T) {
	target := time.Date(2026, 1, 10, 14, 0, 0, 0, time.UTC)
	hf, err := BlendHorizon(target, []domain.ModelForecast{
		{Model: "linear", Price: 3000},
		{Model: "polynomial", Price: -120},
		{Model: "ema_drift", Price: 0},
	}, domain.UniformWeights([]string{"linear", "polynomial", "ema_drift"}), domain.WeightSourceUniform)
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"linear": 3000}, hf.Models)
	assert.InDelta(t, 1.0, hf.Weights["linear"], 1e-12)
	assert.InDelta(t, 3000, hf.EnsemblePrice, 1e-9)

	_, err = BlendHorizon(target, []domain.ModelForecast{{Model: "linear", Price: -1}},
		domain.Weights{"linear": 1}, domain.WeightSourceUniform)
	assert.Error(t, err)
}
