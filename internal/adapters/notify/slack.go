package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alejandrodnm/ethcast/internal/domain"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// Slack implementa ports.Notifier contra un incoming webhook.
type Slack struct {
	http       *http.Client
	webhookURL string
	limiter    *rate.Limiter
	maxRetries uint64
}

// NewSlack crea el notificador. Slack admite ~1 mensaje/s por webhook.
func NewSlack(webhookURL string) *Slack {
	return &Slack{
		http:       &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		maxRetries: 3,
	}
}

// Notify envía el resumen del run. Reintenta 429 y 5xx.
func (s *Slack) Notify(ctx context.Context, r domain.RunReport) error {
	payload, err := json.Marshal(map[string]string{"text": formatMessage(r)})
	if err != nil {
		return fmt.Errorf("notify.Slack: encode: %w", err)
	}

	op := func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("status %d: %s", resp.StatusCode, body)
		case resp.StatusCode >= 300:
			return backoff.Permanent(fmt.Errorf("status %d: %s", resp.StatusCode, body))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, s.maxRetries), ctx)); err != nil {
		return fmt.Errorf("notify.Slack: %w", err)
	}
	return nil
}
