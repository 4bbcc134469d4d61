package tracker

import (
	"github.com/alejandrodnm/ethcast/internal/domain"
)

// SolverOptions parametriza el WeightSolver.
type SolverOptions struct {
	RecentWindow int     // validaciones recientes de la condición a considerar
	Decay        float64 // factor de decaimiento por posición, (0,1]
	MinSamples   int     // por debajo de esto se usan pesos uniformes
}

// DefaultSolverOptions devuelve window=20, decay=0.95, minSamples=5.
func DefaultSolverOptions() SolverOptions {
	return SolverOptions{RecentWindow: 20, Decay: 0.95, MinSamples: 5}
}

func (o SolverOptions) withDefaults() SolverOptions {
	d := DefaultSolverOptions()
	if o.RecentWindow <= 0 {
		o.RecentWindow = d.RecentWindow
	}
	if o.Decay <= 0 || o.Decay > 1 {
		o.Decay = d.Decay
	}
	if o.MinSamples <= 0 {
		o.MinSamples = d.MinSamples
	}
	return o
}

// Solver calcula el vector de pesos adaptativo para una condición de mercado.
type Solver struct {
	models []string
	opts   SolverOptions
}

// NewSolver crea un Solver para el conjunto de modelos configurado.
func NewSolver(models []string, opts SolverOptions) *Solver {
	return &Solver{models: append([]string(nil), models...), opts: opts.withDefaults()}
}

// Options devuelve las opciones efectivas (con defaults aplicados).
func (s *Solver) Options() SolverOptions { return s.opts }

// WeightsFor devuelve pesos en el simplex para la condición dada.
//
// Toma las últimas RecentWindow validaciones de esa condición, en el orden del
// log global. Con menos de MinSamples devuelve exactamente 1/N (cold start).
// Si no, cada modelo puntúa 1/(1+error%) por registro, promediado con peso
// decay^i del más reciente al más antiguo, y los scores se normalizan.
// Un modelo sin ningún registro en la ventana recibe el score neutro 1/N.
func (s *Solver) WeightsFor(condition domain.ConditionLabel, validations []domain.ValidationRecord) (domain.Weights, domain.WeightSource) {
	if len(s.models) == 0 {
		return nil, domain.WeightSourceUniform
	}
	condition = condition.OrUnknown()

	// más reciente primero
	matched := make([]domain.ValidationRecord, 0, s.opts.RecentWindow)
	for i := len(validations) - 1; i >= 0 && len(matched) < s.opts.RecentWindow; i-- {
		if validations[i].Condition.OrUnknown() == condition {
			matched = append(matched, validations[i])
		}
	}
	if len(matched) < s.opts.MinSamples {
		return domain.UniformWeights(s.models), domain.WeightSourceUniform
	}

	neutral := 1.0 / float64(len(s.models))
	scores := make(map[string]float64, len(s.models))
	for _, model := range s.models {
		var errs []float64
		for _, v := range matched {
			if e, ok := v.Errors[model]; ok {
				errs = append(errs, e.PercentError)
			}
		}
		if len(errs) == 0 {
			scores[model] = neutral
			continue
		}
		scores[model] = DecayedScore(errs, s.opts.Decay)
	}

	var total float64
	for _, sc := range scores {
		total += sc
	}
	if total <= 0 {
		return domain.UniformWeights(s.models), domain.WeightSourceUniform
	}
	w := make(domain.Weights, len(scores))
	for model, sc := range scores {
		w[model] = sc / total
	}
	return w, domain.WeightSourceAdaptive
}

// DecayedScore devuelve Σ score_i·decay^i / Σ decay^i con score = 1/(1+err)
// para errores porcentuales ordenados del más reciente al más antiguo.
// Con la lista vacía devuelve 0.
func DecayedScore(errorsMostRecentFirst []float64, decay float64) float64 {
	var num, den float64
	w := 1.0
	for _, e := range errorsMostRecentFirst {
		num += w / (1 + e)
		den += w
		w *= decay
	}
	if den == 0 {
		return 0
	}
	return num / den
}
