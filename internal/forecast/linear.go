package forecast

import (
	"context"

	"gonum.org/v1/gonum/stat"

	"github.com/alejandrodnm/ethcast/internal/domain"
)

// Linear ajusta close = α + β·t por mínimos cuadrados y extrapola.
type Linear struct {
	Window int
}

func (l *Linear) Name() string { return ModelLinear }

// Forecast devuelve el precio steps velas después de la última y el R² in-sample.
func (l *Linear) Forecast(ctx context.Context, closes []float64, steps int) (domain.ModelForecast, error) {
	if err := checkInput(ctx, "Linear", closes, 3, steps); err != nil {
		return domain.ModelForecast{}, err
	}
	y := tail(closes, l.Window)
	x := index(len(y))

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	r2 := stat.RSquared(x, y, nil, alpha, beta)

	next := float64(len(y)-1+steps)
	return domain.ModelForecast{
		Model: ModelLinear,
		Price: alpha + beta*next,
		Score: finiteOrZero(r2),
	}, nil
}
