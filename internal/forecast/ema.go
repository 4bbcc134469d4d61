package forecast

import (
	"context"

	"gonum.org/v1/gonum/stat"

	"github.com/alejandrodnm/ethcast/internal/domain"
)

// EMADrift proyecta la EMA actual con su pendiente media reciente.
// Es el modelo más conservador del ensemble: sigue la tendencia suavizada.
type EMADrift struct {
	Window int
	Span   int
}

func (e *EMADrift) Name() string { return ModelEMADrift }

func (e *EMADrift) Forecast(ctx context.Context, closes []float64, steps int) (domain.ModelForecast, error) {
	span := e.Span
	if span <= 1 {
		span = 20
	}
	if err := checkInput(ctx, "EMADrift", closes, span+1, steps); err != nil {
		return domain.ModelForecast{}, err
	}
	y := tail(closes, e.Window)

	alpha := 2 / float64(span+1)
	ema := make([]float64, len(y))
	ema[0] = y[0]
	for i := 1; i < len(y); i++ {
		ema[i] = alpha*y[i] + (1-alpha)*ema[i-1]
	}

	// pendiente media de la EMA en las últimas span velas
	last := len(ema) - 1
	drift := (ema[last] - ema[last-span]) / float64(span)

	// R² de la EMA retrasada una vela como predictor del cierre
	r2 := stat.RSquaredFrom(ema[:last], y[1:], nil)

	return domain.ModelForecast{
		Model: ModelEMADrift,
		Price: ema[last] + drift*float64(steps),
		Score: finiteOrZero(r2),
	}, nil
}
