package binance

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/alejandrodnm/ethcast/internal/domain"
)

// FetchCandles implementa ports.PriceProvider vía /api/v3/klines.
// Binance devuelve las velas en orden cronológico; la última puede estar abierta.
func (c *Client) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))

	var raw [][]any
	if err := c.get(ctx, "/api/v3/klines", q, &raw); err != nil {
		return nil, fmt.Errorf("binance.FetchCandles: %w", err)
	}

	candles := make([]domain.Candle, 0, len(raw))
	for i, row := range raw {
		k, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("binance.FetchCandles: row %d: %w", i, err)
		}
		candles = append(candles, k)
	}
	return candles, nil
}

// FetchPrice devuelve el último precio negociado vía /api/v3/ticker/price.
func (c *Client) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{}
	q.Set("symbol", symbol)

	var resp struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := c.get(ctx, "/api/v3/ticker/price", q, &resp); err != nil {
		return 0, fmt.Errorf("binance.FetchPrice: %w", err)
	}
	price, err := strconv.ParseFloat(resp.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("binance.FetchPrice: parse %q: %w", resp.Price, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("binance.FetchPrice: %s: %w", symbol, domain.ErrInvalidPrice)
	}
	return price, nil
}

// parseKline convierte [openTime, open, high, low, close, volume, ...].
func parseKline(row []any) (domain.Candle, error) {
	if len(row) < 6 {
		return domain.Candle{}, fmt.Errorf("kline with %d fields", len(row))
	}
	ms, ok := row[0].(float64)
	if !ok {
		return domain.Candle{}, fmt.Errorf("open time is %T", row[0])
	}

	var vals [5]float64
	for i := range vals {
		v, err := parseFloat(row[i+1])
		if err != nil {
			return domain.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return domain.Candle{
		OpenTime: time.UnixMilli(int64(ms)).UTC(),
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		Volume:   vals[4],
	}, nil
}
