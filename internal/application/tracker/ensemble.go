package tracker

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/ethcast/internal/domain"
)

// Combine devuelve Σ w[m]·f[m].
//
// weights debe estar en el simplex (tolerancia domain.WeightTolerance) y cada
// modelo con peso debe tener forecast; si no, devuelve *domain.InvalidWeightsError.
func Combine(forecasts map[string]float64, weights domain.Weights) (float64, error) {
	if err := weights.Validate(domain.WeightTolerance); err != nil {
		return 0, fmt.Errorf("tracker.Combine: %w", err)
	}
	var price float64
	for _, model := range weights.Models() {
		f, ok := forecasts[model]
		if !ok {
			return 0, fmt.Errorf("tracker.Combine: %w", &domain.InvalidWeightsError{
				Sum:    weights.Sum(),
				Reason: fmt.Sprintf("weighted model %q has no forecast", model),
			})
		}
		price += weights[model] * f
	}
	return price, nil
}

// FitScoreWeights normaliza los scores in-sample (R²) de los forecasts.
// Es la alternativa documentada al camino adaptativo durante el cold start.
func FitScoreWeights(forecasts []domain.ModelForecast) domain.Weights {
	scores := make(map[string]float64, len(forecasts))
	for _, f := range forecasts {
		scores[f.Model] = f.Score
	}
	return domain.WeightsFromScores(scores)
}

// BlendHorizon combina los forecasts de un horizonte. Los pesos se
// renormalizan a los modelos que realmente produjeron precio; un precio no
// finito o no positivo (extrapolación por debajo de cero) descarta el modelo.
func BlendHorizon(
	targetAt time.Time,
	forecasts []domain.ModelForecast,
	weights domain.Weights,
	source domain.WeightSource,
) (domain.HorizonForecast, error) {
	prices := make(map[string]float64, len(forecasts))
	names := make([]string, 0, len(forecasts))
	for _, f := range forecasts {
		if f.Price <= 0 || math.IsNaN(f.Price) || math.IsInf(f.Price, 0) {
			continue
		}
		prices[f.Model] = f.Price
		names = append(names, f.Model)
	}
	if len(names) == 0 {
		return domain.HorizonForecast{}, errors.New("tracker.BlendHorizon: no usable model forecasts")
	}

	w := weights.Restrict(names)
	price, err := Combine(prices, w)
	if err != nil {
		return domain.HorizonForecast{}, fmt.Errorf("tracker.BlendHorizon: %w", err)
	}
	if price <= 0 {
		return domain.HorizonForecast{}, fmt.Errorf("tracker.BlendHorizon: ensemble price %v: %w", price, domain.ErrInvalidPrice)
	}
	return domain.HorizonForecast{
		TargetAt:      targetAt,
		EnsemblePrice: price,
		Models:        prices,
		Weights:       w,
		WeightSource:  source,
	}, nil
}
