package domain

import (
	"fmt"
	"math"
	"sort"
)

// WeightTolerance es la tolerancia con la que el combiner acepta Σw = 1.
const WeightTolerance = 1e-6

// Weights maps model name → weight. A valid vector lies on the probability
// simplex: every weight in [0,1] and the sum equal to 1.
type Weights map[string]float64

// UniformWeights devuelve 1/N para cada modelo. Nil si no hay modelos.
func UniformWeights(models []string) Weights {
	if len(models) == 0 {
		return nil
	}
	w := make(Weights, len(models))
	u := 1.0 / float64(len(models))
	for _, m := range models {
		w[m] = u
	}
	return w
}

// WeightsFromScores normaliza scores no negativos a un vector de pesos.
// Scores negativos (un R² peor que la media) cuentan como 0; si ninguno es
// positivo el resultado es uniforme.
func WeightsFromScores(scores map[string]float64) Weights {
	models := make([]string, 0, len(scores))
	var total float64
	for m, s := range scores {
		models = append(models, m)
		if s > 0 && !math.IsInf(s, 0) && !math.IsNaN(s) {
			total += s
		}
	}
	if total <= 0 {
		return UniformWeights(models)
	}
	w := make(Weights, len(scores))
	for m, s := range scores {
		if s > 0 && !math.IsInf(s, 0) && !math.IsNaN(s) {
			w[m] = s / total
		} else {
			w[m] = 0
		}
	}
	return w
}

// Sum devuelve Σw.
func (w Weights) Sum() float64 {
	var s float64
	for _, v := range w {
		s += v
	}
	return s
}

// Models devuelve los nombres ordenados.
func (w Weights) Models() []string {
	out := make([]string, 0, len(w))
	for m := range w {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Validate comprueba que el vector esté en el simplex con tolerancia eps.
func (w Weights) Validate(eps float64) error {
	if len(w) == 0 {
		return &InvalidWeightsError{Reason: "empty weight vector"}
	}
	for _, m := range w.Models() {
		v := w[m]
		if math.IsNaN(v) || v < 0 || v > 1 {
			return &InvalidWeightsError{Sum: w.Sum(), Reason: fmt.Sprintf("weight for %q out of [0,1]: %v", m, v)}
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > eps {
		return &InvalidWeightsError{Sum: sum, Reason: "weights do not sum to 1"}
	}
	return nil
}

// Restrict renormaliza el vector a los modelos dados (los que realmente
// produjeron forecast). Si la masa restante es 0 devuelve uniforme sobre models.
func (w Weights) Restrict(models []string) Weights {
	if len(models) == 0 {
		return nil
	}
	var total float64
	for _, m := range models {
		total += w[m]
	}
	if total <= 0 {
		return UniformWeights(models)
	}
	out := make(Weights, len(models))
	for _, m := range models {
		out[m] = w[m] / total
	}
	return out
}

// Clone devuelve una copia.
func (w Weights) Clone() Weights {
	return Weights(cloneFloatMap(w))
}
