package ports

import (
	"context"

	"github.com/alejandrodnm/ethcast/internal/domain"
)

// LedgerStore persiste los dos documentos del engine: el History y el
// PerformanceByCondition.
type LedgerStore interface {
	// LoadHistory devuelve el ledger persistido. Un documento inexistente
	// devuelve domain.NewHistory() sin error; uno ilegible devuelve
	// *domain.CorruptHistoryError y nunca debe sustituirse por uno vacío.
	LoadHistory(ctx context.Context) (domain.History, error)

	// LoadPerformance devuelve el documento de rendimiento por condición.
	// Mismas reglas que LoadHistory.
	LoadPerformance(ctx context.Context) (domain.PerformanceByCondition, error)

	// Save persiste ambos documentos. Cada documento se reemplaza de forma
	// atómica: tras un fallo el contenido previo queda intacto.
	Save(ctx context.Context, h domain.History, perf domain.PerformanceByCondition) error

	// SaveHistory persiste solo el ledger (Record no toca el rendimiento).
	SaveHistory(ctx context.Context, h domain.History) error

	// Close libera los recursos del backend.
	Close() error
}

// RunRecorder guarda una fila compacta por ejecución del pipeline.
type RunRecorder interface {
	SaveRun(ctx context.Context, run domain.RunSummary) error
	RecentRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)
}
