package ports

import (
	"context"

	"github.com/alejandrodnm/ethcast/internal/domain"
)

// PriceProvider obtiene precios de mercado para el símbolo configurado.
type PriceProvider interface {
	// FetchCandles devuelve las últimas limit velas del intervalo dado,
	// en orden cronológico.
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error)

	// FetchPrice devuelve el último precio negociado.
	FetchPrice(ctx context.Context, symbol string) (float64, error)
}
