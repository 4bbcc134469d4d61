// Package forecast contiene los modelos de regresión que alimentan el ensemble.
// Para el engine son opacos: un nombre y un (precio, R²) por horizonte.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/alejandrodnm/ethcast/internal/ports"
)

// Nombres de los modelos disponibles.
const (
	ModelLinear     = "linear"
	ModelPolynomial = "polynomial"
	ModelEMADrift   = "ema_drift"
)

// DefaultTrainWindow es cuántos cierres recientes usa cada ajuste.
const DefaultTrainWindow = 100

// ErrNotEnoughData se devuelve cuando la serie es más corta que el mínimo del modelo.
var ErrNotEnoughData = errors.New("not enough data points")

// New construye el modelo por nombre.
func New(name string, window int) (ports.Forecaster, error) {
	if window <= 0 {
		window = DefaultTrainWindow
	}
	switch name {
	case ModelLinear:
		return &Linear{Window: window}, nil
	case ModelPolynomial:
		return &Polynomial{Window: window, Degree: 2}, nil
	case ModelEMADrift:
		return &EMADrift{Window: window, Span: 20}, nil
	default:
		return nil, fmt.Errorf("forecast.New: unknown model %q", name)
	}
}

// Build construye todos los modelos configurados, en el mismo orden.
func Build(names []string, window int) ([]ports.Forecaster, error) {
	out := make([]ports.Forecaster, 0, len(names))
	for _, n := range names {
		f, err := New(n, window)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// tail devuelve los últimos n valores de xs.
func tail(xs []float64, n int) []float64 {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

// checkInput valida la serie antes de ajustar.
func checkInput(ctx context.Context, model string, closes []float64, min, steps int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if steps <= 0 {
		return fmt.Errorf("forecast.%s: steps must be positive, got %d", model, steps)
	}
	if len(closes) < min {
		return fmt.Errorf("forecast.%s: %d closes, need %d: %w", model, len(closes), min, ErrNotEnoughData)
	}
	for _, c := range closes {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("forecast.%s: non-finite close", model)
		}
	}
	return nil
}

// index devuelve 0..n-1 como float64.
func index(n int) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	return xs
}
