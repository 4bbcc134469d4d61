package ports

import (
	"context"

	"github.com/alejandrodnm/ethcast/internal/domain"
)

// Notifier presenta el resultado de cada run al usuario.
type Notifier interface {
	// Notify recibe el reporte completo del run. En consola imprime tablas;
	// en Slack solo envía las alertas de precisión.
	Notify(ctx context.Context, report domain.RunReport) error
}
