package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alejandrodnm/ethcast/internal/domain"
	"github.com/alejandrodnm/ethcast/internal/ports"
)

// Multi reparte el reporte a varios notificadores. Un canal caído no
// impide que los demás reciban el mensaje.
type Multi struct {
	notifiers []ports.Notifier
}

// NewMulti crea un Multi ignorando entradas nil.
func NewMulti(notifiers ...ports.Notifier) *Multi {
	m := &Multi{}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Notify llama a todos y devuelve los errores combinados.
func (m *Multi) Notify(ctx context.Context, r domain.RunReport) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, r); err != nil {
			slog.Warn("notifier failed", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len devuelve cuántos canales hay configurados.
func (m *Multi) Len() int { return len(m.notifiers) }
