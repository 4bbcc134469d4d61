package ports

import (
	"context"

	"github.com/alejandrodnm/ethcast/internal/domain"
)

// Forecaster is one opaque model. The engine only sees its name and the
// price it predicts per horizon.
type Forecaster interface {
	Name() string

	// Forecast fits the model on closes (chronological, one per candle
	// interval) and extrapolates steps intervals ahead.
	Forecast(ctx context.Context, closes []float64, steps int) (domain.ModelForecast, error)
}

// Classifier labels the current market regime from recent candles.
type Classifier interface {
	Classify(candles []domain.Candle) domain.ConditionLabel
}
