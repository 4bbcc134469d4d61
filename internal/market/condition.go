// Package market clasifica el régimen de mercado (tendencia × volatilidad)
// a partir de velas recientes. El resultado es la ConditionLabel con la que
// el engine particiona el historial de rendimiento.
package market

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/alejandrodnm/ethcast/internal/domain"
)

// MinCandles es el mínimo de velas para clasificar; por debajo → "unknown".
const MinCandles = 21

// Thresholds configura los cortes del clasificador. Los valores son
// porcentajes por vela.
type Thresholds struct {
	Trend   float64 // |momentum ponderado| por encima → bull/bear
	LowVol  float64 // desviación de retornos por debajo → low
	HighVol float64 // desviación de retornos por encima → high
}

// DefaultThresholds está calibrado para velas de 1 minuto de ETH.
func DefaultThresholds() Thresholds {
	return Thresholds{Trend: 0.15, LowVol: 0.05, HighVol: 0.15}
}

// Classifier implementa ports.Classifier.
type Classifier struct {
	th Thresholds
}

// NewClassifier crea un clasificador; umbrales a cero toman el default.
func NewClassifier(th Thresholds) *Classifier {
	d := DefaultThresholds()
	if th.Trend <= 0 {
		th.Trend = d.Trend
	}
	if th.LowVol <= 0 {
		th.LowVol = d.LowVol
	}
	if th.HighVol <= th.LowVol {
		th.HighVol = math.Max(d.HighVol, th.LowVol*3)
	}
	return &Classifier{th: th}
}

// Classify devuelve una etiqueta "<trend>_<vol>_vol", por ejemplo "bull_low_vol".
func (c *Classifier) Classify(candles []domain.Candle) domain.ConditionLabel {
	if len(candles) < MinCandles {
		return domain.ConditionUnknown
	}
	closes := domain.Closes(candles)
	for _, v := range closes {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.ConditionUnknown
		}
	}

	trend := c.trend(Momentum(closes))
	vol := c.volatility(Volatility(closes[len(closes)-MinCandles:]))
	return domain.ConditionLabel(trend + "_" + vol + "_vol")
}

// momentumLookback es el cambio más largo que mira Momentum.
const momentumLookback = 20

// Momentum pondera los cambios a 5, 10 y 20 velas (50/30/20), en porcentaje.
// Con menos de 21 cierres devuelve 0.
func Momentum(closes []float64) float64 {
	if len(closes) <= momentumLookback {
		return 0
	}
	last := len(closes) - 1
	cur := closes[last]
	change := func(back int) float64 {
		prev := closes[last-back]
		return (cur - prev) / prev * 100
	}
	return change(5)*0.5 + change(10)*0.3 + change(momentumLookback)*0.2
}

// Volatility es la desviación estándar de los retornos simples, en porcentaje.
func Volatility(closes []float64) float64 {
	if len(closes) < 3 {
		return 0
	}
	returns := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		returns[i-1] = (closes[i] - closes[i-1]) / closes[i-1] * 100
	}
	return stat.StdDev(returns, nil)
}

func (c *Classifier) trend(momentum float64) string {
	switch {
	case momentum > c.th.Trend:
		return "bull"
	case momentum < -c.th.Trend:
		return "bear"
	default:
		return "sideways"
	}
}

func (c *Classifier) volatility(v float64) string {
	switch {
	case v < c.th.LowVol:
		return "low"
	case v > c.th.HighVol:
		return "high"
	default:
		return "medium"
	}
}
