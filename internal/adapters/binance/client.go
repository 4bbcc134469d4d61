package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	defaultBase = "https://api.binance.com"

	// Rate limit al 60% del límite real: 6000 weight/min → ~60 req/s de peso 1.
	// klines pesa 2 con limit<=1000, así que 20/s deja margen de sobra.
	defaultRatePerSec = 20

	defaultMaxRetries = 3
	defaultRetryWait  = 500 * time.Millisecond
)

// Config configura el Client. Los campos a cero toman el default.
type Config struct {
	BaseURL    string
	RatePerSec float64
	MaxRetries uint64
	RetryWait  time.Duration // espera inicial del backoff exponencial
	Timeout    time.Duration
}

// Client es el HTTP client de la API pública de Binance con rate limiting y retries.
type Client struct {
	http       *http.Client
	base       string
	limiter    *rate.Limiter
	maxRetries uint64
	retryWait  time.Duration
}

// NewClient crea un Client. Si cfg.BaseURL está vacío usa producción.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBase
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = defaultRetryWait
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		base:       cfg.BaseURL,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSec), 5),
		maxRetries: cfg.MaxRetries,
		retryWait:  cfg.RetryWait,
	}
}

// StatusError es una respuesta HTTP no exitosa.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("binance: status %d: %s", e.StatusCode, e.Body)
}

// get hace un GET con rate limiting y retries, y decodifica el JSON en out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	attempt := 0
	op := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 418:
			slog.Warn("rate limited by API", "attempt", attempt, "path", path)
			return &StatusError{StatusCode: resp.StatusCode}
		case resp.StatusCode >= 500:
			return &StatusError{StatusCode: resp.StatusCode}
		case resp.StatusCode >= 400:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(&StatusError{StatusCode: resp.StatusCode, Body: string(body)})
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryWait
	b.MaxElapsedTime = 0 // el límite lo pone WithMaxRetries
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode >= 500 {
			return fmt.Errorf("server error after %d attempts: %w", attempt, err)
		}
		return err
	}
	return nil
}

// parseFloat convierte los decimales en string que devuelve Binance.
func parseFloat(v any) (float64, error) {
	switch x := v.(type) {
	case string:
		return strconv.ParseFloat(x, 64)
	case float64:
		return x, nil
	default:
		return 0, fmt.Errorf("unexpected numeric type %T", v)
	}
}
