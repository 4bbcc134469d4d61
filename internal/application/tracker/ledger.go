package tracker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/ethcast/internal/domain"
	"github.com/alejandrodnm/ethcast/internal/ports"
)

// Ledger es el dueño exclusivo de la secuencia de PredictionRecords.
// Mantiene el History completo en memoria y lo reescribe entero en cada mutación.
type Ledger struct {
	store   ports.LedgerStore
	history domain.History
}

// LoadLedger carga el History desde el store.
// Un documento corrupto aborta: nunca se sustituye por un ledger vacío.
func LoadLedger(ctx context.Context, store ports.LedgerStore) (*Ledger, error) {
	h, err := store.LoadHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("tracker.LoadLedger: %w", err)
	}
	if h.Predictions == nil {
		h.Predictions = []domain.PredictionRecord{}
	}
	if h.Validations == nil {
		h.Validations = []domain.ValidationRecord{}
	}
	return &Ledger{store: store, history: h}, nil
}

// Record añade una predicción nueva y la persiste de forma síncrona.
// Si la escritura falla la predicción no queda en memoria y se devuelve
// el *domain.PersistenceError del store. Un record que no pasa el esquema
// del History (precios no positivos, pesos fuera de [0,1], claves vacías)
// se rechaza con domain.ErrInvalidHistory sin tocar el store.
func (l *Ledger) Record(
	ctx context.Context,
	createdAt time.Time,
	condition domain.ConditionLabel,
	basePrice float64,
	horizons map[string]domain.HorizonForecast,
) (string, error) {
	if basePrice <= 0 || math.IsNaN(basePrice) || math.IsInf(basePrice, 0) {
		return "", fmt.Errorf("tracker.Ledger.Record: base price %v: %w", basePrice, domain.ErrInvalidPrice)
	}
	if len(horizons) == 0 {
		return "", errors.New("tracker.Ledger.Record: prediction without horizons")
	}

	createdAt = domain.NormalizeUTC(createdAt)
	rec := domain.PredictionRecord{
		ID:                l.nextID(createdAt),
		CreatedAt:         createdAt,
		BasePrice:         basePrice,
		Condition:         condition.OrUnknown(),
		Horizons:          make(map[string]domain.HorizonForecast, len(horizons)),
		ValidatedHorizons: []string{},
	}
	for name, hf := range horizons {
		hf.TargetAt = domain.NormalizeUTC(hf.TargetAt)
		rec.Horizons[name] = hf
	}
	rec = rec.Clone()

	next := l.history.Clone()
	next.Predictions = append(next.Predictions, rec)
	next.Summary.TotalPredictions = len(next.Predictions)

	// nunca se escribe un documento que el propio loader rechazaría
	if err := next.Validate(); err != nil {
		return "", fmt.Errorf("tracker.Ledger.Record: %w", err)
	}
	if err := l.store.SaveHistory(ctx, next); err != nil {
		return "", fmt.Errorf("tracker.Ledger.Record: %w", err)
	}
	l.history = next
	return rec.ID, nil
}

// nextID deriva el id del timestamp de creación; si ya existe añade "#n".
func (l *Ledger) nextID(createdAt time.Time) string {
	base := createdAt.Format(time.RFC3339Nano)
	taken := make(map[string]struct{}, len(l.history.Predictions))
	for _, p := range l.history.Predictions {
		taken[p.ID] = struct{}{}
	}
	id := base
	for n := 2; ; n++ {
		if _, ok := taken[id]; !ok {
			return id
		}
		id = fmt.Sprintf("%s#%d", base, n)
	}
}

// History devuelve una copia profunda del documento actual.
func (l *Ledger) History() domain.History {
	return l.history.Clone()
}

// Get busca una predicción por id.
func (l *Ledger) Get(id string) (domain.PredictionRecord, bool) {
	for _, p := range l.history.Predictions {
		if p.ID == id {
			return p.Clone(), true
		}
	}
	return domain.PredictionRecord{}, false
}

// Pending devuelve las predicciones con algún horizonte sin validar.
func (l *Ledger) Pending() []domain.PredictionRecord {
	var out []domain.PredictionRecord
	for _, p := range l.history.Predictions {
		if !p.FullyValidated {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Recent devuelve las últimas n validaciones, la más reciente primero.
func (l *Ledger) Recent(n int) []domain.ValidationRecord {
	vals := l.history.Validations
	if n <= 0 || n > len(vals) {
		n = len(vals)
	}
	out := make([]domain.ValidationRecord, 0, n)
	for i := len(vals) - 1; i >= len(vals)-n; i-- {
		out = append(out, vals[i].Clone())
	}
	return out
}

// commit sustituye el documento en memoria tras una escritura exitosa.
func (l *Ledger) commit(h domain.History) {
	l.history = h
}
