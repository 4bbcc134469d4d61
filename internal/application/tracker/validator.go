package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alejandrodnm/ethcast/internal/domain"
	"github.com/alejandrodnm/ethcast/internal/ports"
)

// Validator compara las predicciones vencidas con el precio real.
// No obtiene precios: actualPrice lo aporta quien llama.
type Validator struct {
	ledger *Ledger
	agg    *Aggregator
	store  ports.LedgerStore
}

// NewValidator crea un Validator sobre el ledger y el aggregator dados.
func NewValidator(ledger *Ledger, agg *Aggregator, store ports.LedgerStore) *Validator {
	return &Validator{ledger: ledger, agg: agg, store: store}
}

// Validate genera un ValidationRecord por cada horizonte pendiente cuyo
// target ya pasó en now, y devuelve cuántos se crearon.
//
// Un horizonte ya presente en ValidatedHorizons nunca se vuelve a validar,
// así que llamar dos veces con el mismo estado no duplica registros.
// Trabaja sobre una copia: memoria y disco solo cambian si ambos documentos
// se persistieron.
func (v *Validator) Validate(ctx context.Context, now time.Time, actualPrice float64) (int, error) {
	if actualPrice <= 0 || math.IsNaN(actualPrice) || math.IsInf(actualPrice, 0) {
		return 0, fmt.Errorf("tracker.Validator.Validate: actual price %v: %w", actualPrice, domain.ErrInvalidPrice)
	}
	now = domain.NormalizeUTC(now)

	next := v.ledger.history.Clone()
	agg := v.agg.clone()
	created := 0

	for i := range next.Predictions {
		p := &next.Predictions[i]
		if p.FullyValidated {
			continue
		}
		for _, horizon := range p.DueHorizons(now) {
			rec := domain.NewValidationRecord(*p, horizon, now, actualPrice)
			next.Validations = append(next.Validations, rec)
			p.MarkValidated(horizon)
			agg.Update(rec)
			created++

			slog.Debug("horizon validated",
				"prediction", p.ID,
				"horizon", horizon,
				"ensemble_error_pct", fmt.Sprintf("%.4f", rec.Errors[domain.ModelEnsemble].PercentError),
			)
		}
		p.RefreshFullyValidated()
	}

	if created == 0 {
		return 0, nil
	}

	next.Summary = agg.Summary(len(next.Predictions), next.Validations, now)
	if err := next.Validate(); err != nil {
		return 0, fmt.Errorf("tracker.Validator.Validate: %w", err)
	}

	if err := v.store.Save(ctx, next, agg.Document()); err != nil {
		return 0, fmt.Errorf("tracker.Validator.Validate: %w", err)
	}
	v.ledger.commit(next)
	v.agg.perf = agg.perf
	return created, nil
}
