package storage

// sqlite.go — los documentos del ledger dentro de una base SQLite.
//
// Estrategia:
//   - `documents`: una fila por documento (History, PerformanceByCondition),
//     el JSON completo en body. Save escribe ambos en una sola transacción.
//   - `runs`: resumen ligero por ejecución del pipeline. Siempre 1 fila.
//   - Prune automático al arrancar: runs > 90d. Los documentos nunca se podan.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/ethcast/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Documentos completos, reescritos enteros en cada mutación
CREATE TABLE IF NOT EXISTS documents (
    name       TEXT PRIMARY KEY,
    body       TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

-- Resumen ligero por ejecución
CREATE TABLE IF NOT EXISTS runs (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id         TEXT    NOT NULL UNIQUE,
    started_at     TEXT    NOT NULL,
    condition      TEXT    NOT NULL,
    base_price     REAL    NOT NULL DEFAULT 0,
    validated      INTEGER NOT NULL DEFAULT 0,
    prediction_id  TEXT    NOT NULL DEFAULT '',
    ensemble_error REAL    NOT NULL DEFAULT 0,
    direction_pct  REAL    NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_at ON runs(started_at DESC);
`

const retentionRuns = 90 * 24 * time.Hour // runs: 90 días

// timeLayout es de ancho fijo: el orden lexicográfico coincide con el cronológico.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implementa ports.LedgerStore y ports.RunRecorder usando SQLite
// (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada, aplica el
// schema y limpia runs antiguos.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}

	s := &SQLiteStore{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// LoadHistory lee el History. Sin fila → ledger vacío.
func (s *SQLiteStore) LoadHistory(ctx context.Context) (domain.History, error) {
	body, err := s.loadDocument(ctx, HistoryDocument)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewHistory(), nil
	}
	if err != nil {
		return domain.History{}, fmt.Errorf("storage.SQLiteStore.LoadHistory: %w", err)
	}
	h, err := decodeHistory(HistoryDocument, body)
	if err != nil {
		return domain.History{}, fmt.Errorf("storage.SQLiteStore.LoadHistory: %w", err)
	}
	return h, nil
}

// LoadPerformance lee el documento de rendimiento. Sin fila → vacío.
func (s *SQLiteStore) LoadPerformance(ctx context.Context) (domain.PerformanceByCondition, error) {
	body, err := s.loadDocument(ctx, PerformanceDocument)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PerformanceByCondition{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage.SQLiteStore.LoadPerformance: %w", err)
	}
	perf, err := decodePerformance(PerformanceDocument, body)
	if err != nil {
		return nil, fmt.Errorf("storage.SQLiteStore.LoadPerformance: %w", err)
	}
	return perf, nil
}

// Save escribe ambos documentos en una transacción: o se guardan los dos o ninguno.
func (s *SQLiteStore) Save(ctx context.Context, h domain.History, perf domain.PerformanceByCondition) error {
	hData, err := encodeDocument(HistoryDocument, h)
	if err != nil {
		return fmt.Errorf("storage.SQLiteStore.Save: %w", err)
	}
	pData, err := encodeDocument(PerformanceDocument, perf)
	if err != nil {
		return fmt.Errorf("storage.SQLiteStore.Save: %w", err)
	}
	if err := s.upsert(ctx, map[string][]byte{HistoryDocument: hData, PerformanceDocument: pData}); err != nil {
		return fmt.Errorf("storage.SQLiteStore.Save: %w", err)
	}
	return nil
}

// SaveHistory escribe solo el History.
func (s *SQLiteStore) SaveHistory(ctx context.Context, h domain.History) error {
	data, err := encodeDocument(HistoryDocument, h)
	if err != nil {
		return fmt.Errorf("storage.SQLiteStore.SaveHistory: %w", err)
	}
	if err := s.upsert(ctx, map[string][]byte{HistoryDocument: data}); err != nil {
		return fmt.Errorf("storage.SQLiteStore.SaveHistory: %w", err)
	}
	return nil
}

// SaveRun persiste el resumen de una ejecución.
func (s *SQLiteStore) SaveRun(ctx context.Context, run domain.RunSummary) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
			(run_id, started_at, condition, base_price, validated,
			 prediction_id, ensemble_error, direction_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.StartedAt.UTC().Format(timeLayout),
		run.Condition.String(),
		run.BasePrice,
		run.Validated,
		run.PredictionID,
		run.EnsembleError,
		run.DirectionPct,
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert run: %w", err)
	}
	return nil
}

// RecentRuns devuelve las últimas limit ejecuciones, la más reciente primero.
func (s *SQLiteStore) RecentRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at, condition, base_price, validated,
		       prediction_id, ensemble_error, direction_pct
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunSummary
	for rows.Next() {
		var r domain.RunSummary
		var startedAt, cond string
		if err := rows.Scan(
			&r.RunID,
			&startedAt,
			&cond,
			&r.BasePrice,
			&r.Validated,
			&r.PredictionID,
			&r.EnsembleError,
			&r.DirectionPct,
		); err != nil {
			return nil, fmt.Errorf("storage.RecentRuns: scan row: %w", err)
		}
		r.StartedAt, _ = time.Parse(timeLayout, startedAt)
		r.Condition = domain.ConditionLabel(cond)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func (s *SQLiteStore) loadDocument(ctx context.Context, name string) ([]byte, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE name = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "load", Target: name, Err: err}
	}
	return []byte(body), nil
}

func (s *SQLiteStore) upsert(ctx context.Context, docs map[string][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.PersistenceError{Op: "save", Target: "documents", Err: err}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			body       = excluded.body,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return &domain.PersistenceError{Op: "save", Target: "documents", Err: err}
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(timeLayout)
	for name, body := range docs {
		if _, err := stmt.ExecContext(ctx, name, string(body), now); err != nil {
			return &domain.PersistenceError{Op: "save", Target: name, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &domain.PersistenceError{Op: "save", Target: "documents", Err: err}
	}
	return nil
}

// pruneOld elimina runs antiguos para mantener la DB ligera.
func (s *SQLiteStore) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionRuns).Format(timeLayout)
	s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
}
