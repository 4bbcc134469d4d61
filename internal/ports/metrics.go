package ports

import (
	"context"

	"github.com/alejandrodnm/ethcast/internal/domain"
)

// MetricsRecorder exporta el estado del engine tras cada run.
type MetricsRecorder interface {
	ObserveRun(report domain.RunReport)
	ObserveError(stage string)
	Push(ctx context.Context) error
}
