package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/ethcast/internal/domain"
	_ "github.com/lib/pq"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS ledger_documents (
    name       TEXT PRIMARY KEY,
    body       JSONB       NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger_runs (
    id             BIGSERIAL PRIMARY KEY,
    run_id         TEXT             NOT NULL UNIQUE,
    started_at     TIMESTAMPTZ      NOT NULL,
    condition      TEXT             NOT NULL,
    base_price     DOUBLE PRECISION NOT NULL DEFAULT 0,
    validated      INTEGER          NOT NULL DEFAULT 0,
    prediction_id  TEXT             NOT NULL DEFAULT '',
    ensemble_error DOUBLE PRECISION NOT NULL DEFAULT 0,
    direction_pct  DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_ledger_runs_at ON ledger_runs(started_at DESC);
`

// PostgresStore implementa ports.LedgerStore y ports.RunRecorder sobre Postgres.
// Mismo modelo que SQLiteStore: un documento JSON por fila.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore conecta con el DSN dado y aplica el schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage.NewPostgresStore: open: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewPostgresStore: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, pgSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewPostgresStore: apply schema: %w", err)
	}

	s := &PostgresStore{db: db}
	cutoff := time.Now().UTC().Add(-retentionRuns)
	db.ExecContext(ctx, `DELETE FROM ledger_runs WHERE started_at < $1`, cutoff)
	return s, nil
}

// LoadHistory lee el History. Sin fila → ledger vacío.
func (s *PostgresStore) LoadHistory(ctx context.Context) (domain.History, error) {
	body, err := s.loadDocument(ctx, HistoryDocument)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewHistory(), nil
	}
	if err != nil {
		return domain.History{}, fmt.Errorf("storage.PostgresStore.LoadHistory: %w", err)
	}
	h, err := decodeHistory(HistoryDocument, body)
	if err != nil {
		return domain.History{}, fmt.Errorf("storage.PostgresStore.LoadHistory: %w", err)
	}
	return h, nil
}

// LoadPerformance lee el documento de rendimiento. Sin fila → vacío.
func (s *PostgresStore) LoadPerformance(ctx context.Context) (domain.PerformanceByCondition, error) {
	body, err := s.loadDocument(ctx, PerformanceDocument)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PerformanceByCondition{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage.PostgresStore.LoadPerformance: %w", err)
	}
	perf, err := decodePerformance(PerformanceDocument, body)
	if err != nil {
		return nil, fmt.Errorf("storage.PostgresStore.LoadPerformance: %w", err)
	}
	return perf, nil
}

// Save escribe ambos documentos en una transacción.
func (s *PostgresStore) Save(ctx context.Context, h domain.History, perf domain.PerformanceByCondition) error {
	hData, err := encodeDocument(HistoryDocument, h)
	if err != nil {
		return fmt.Errorf("storage.PostgresStore.Save: %w", err)
	}
	pData, err := encodeDocument(PerformanceDocument, perf)
	if err != nil {
		return fmt.Errorf("storage.PostgresStore.Save: %w", err)
	}
	if err := s.upsert(ctx, map[string][]byte{HistoryDocument: hData, PerformanceDocument: pData}); err != nil {
		return fmt.Errorf("storage.PostgresStore.Save: %w", err)
	}
	return nil
}

// SaveHistory escribe solo el History.
func (s *PostgresStore) SaveHistory(ctx context.Context, h domain.History) error {
	data, err := encodeDocument(HistoryDocument, h)
	if err != nil {
		return fmt.Errorf("storage.PostgresStore.SaveHistory: %w", err)
	}
	if err := s.upsert(ctx, map[string][]byte{HistoryDocument: data}); err != nil {
		return fmt.Errorf("storage.PostgresStore.SaveHistory: %w", err)
	}
	return nil
}

// SaveRun persiste el resumen de una ejecución.
func (s *PostgresStore) SaveRun(ctx context.Context, run domain.RunSummary) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_runs
			(run_id, started_at, condition, base_price, validated,
			 prediction_id, ensemble_error, direction_pct)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.RunID, run.StartedAt.UTC(), run.Condition.String(), run.BasePrice,
		run.Validated, run.PredictionID, run.EnsembleError, run.DirectionPct,
	); err != nil {
		return fmt.Errorf("storage.PostgresStore.SaveRun: insert run: %w", err)
	}
	return nil
}

// RecentRuns devuelve las últimas limit ejecuciones, la más reciente primero.
func (s *PostgresStore) RecentRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at, condition, base_price, validated,
		       prediction_id, ensemble_error, direction_pct
		FROM ledger_runs
		ORDER BY started_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.PostgresStore.RecentRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunSummary
	for rows.Next() {
		var r domain.RunSummary
		var cond string
		if err := rows.Scan(&r.RunID, &r.StartedAt, &cond, &r.BasePrice, &r.Validated,
			&r.PredictionID, &r.EnsembleError, &r.DirectionPct); err != nil {
			return nil, fmt.Errorf("storage.PostgresStore.RecentRuns: scan row: %w", err)
		}
		r.StartedAt = r.StartedAt.UTC()
		r.Condition = domain.ConditionLabel(cond)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close cierra el pool de conexiones.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) loadDocument(ctx context.Context, name string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM ledger_documents WHERE name = $1`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "load", Target: name, Err: err}
	}
	return body, nil
}

func (s *PostgresStore) upsert(ctx context.Context, docs map[string][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.PersistenceError{Op: "save", Target: "ledger_documents", Err: err}
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for name, body := range docs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_documents (name, body, updated_at) VALUES ($1, $2, $3)
			ON CONFLICT (name) DO UPDATE SET body = $2, updated_at = $3`,
			name, string(body), now,
		); err != nil {
			return &domain.PersistenceError{Op: "save", Target: name, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &domain.PersistenceError{Op: "save", Target: "ledger_documents", Err: err}
	}
	return nil
}
