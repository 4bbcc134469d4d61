package forecast

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/alejandrodnm/ethcast/internal/domain"
)

// Polynomial ajusta un polinomio de grado Degree sobre t normalizado a [0,1].
type Polynomial struct {
	Window int
	Degree int
}

func (p *Polynomial) Name() string { return ModelPolynomial }

// Forecast resuelve el problema de mínimos cuadrados con la matriz de Vandermonde.
func (p *Polynomial) Forecast(ctx context.Context, closes []float64, steps int) (domain.ModelForecast, error) {
	degree := p.Degree
	if degree <= 0 {
		degree = 2
	}
	if err := checkInput(ctx, "Polynomial", closes, degree+2, steps); err != nil {
		return domain.ModelForecast{}, err
	}
	y := tail(closes, p.Window)
	n := len(y)
	scale := float64(n - 1)

	a := mat.NewDense(n, degree+1, nil)
	for i := 0; i < n; i++ {
		t := float64(i) / scale
		for j := 0; j <= degree; j++ {
			a.Set(i, j, math.Pow(t, float64(j)))
		}
	}

	var coef mat.VecDense
	if err := coef.SolveVec(a, mat.NewVecDense(n, append([]float64(nil), y...))); err != nil {
		return domain.ModelForecast{}, fmt.Errorf("forecast.Polynomial: solve: %w", err)
	}

	fitted := make([]float64, n)
	for i := range fitted {
		fitted[i] = evalPoly(&coef, float64(i)/scale)
	}
	r2 := stat.RSquaredFrom(fitted, y, nil)

	return domain.ModelForecast{
		Model: ModelPolynomial,
		Price: evalPoly(&coef, float64(n-1+steps)/scale),
		Score: finiteOrZero(r2),
	}, nil
}

func evalPoly(coef *mat.VecDense, t float64) float64 {
	var v float64
	for j := coef.Len() - 1; j >= 0; j-- {
		v = v*t + coef.AtVec(j)
	}
	return v
}

func finiteOrZero(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
