package domain

import "time"

// Candle es una vela OHLCV.
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Closes extrae los precios de cierre en orden cronológico.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// ModelForecast is what an opaque model fitter produces for one horizon.
type ModelForecast struct {
	Model string
	Price float64
	Score float64 // in-sample fit (R²); only used for fit-score weighting
}

// Horizon is a named forward offset a forecast targets.
type Horizon struct {
	Name    string `yaml:"name"`
	Minutes int    `yaml:"minutes"`
}

// Duration devuelve el horizonte como time.Duration.
func (h Horizon) Duration() time.Duration {
	return time.Duration(h.Minutes) * time.Minute
}
