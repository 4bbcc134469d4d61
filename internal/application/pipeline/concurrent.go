package pipeline

// concurrent.go — worker pool para ajustar modelos × horizontes en paralelo.

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/alejandrodnm/ethcast/internal/domain"
	"github.com/alejandrodnm/ethcast/internal/ports"
)

// fitModelsConcurrent ajusta cada modelo para cada horizonte y agrupa los
// forecasts por horizonte. Un modelo que falla se omite de ese horizonte.
//
// Si workers <= 0 usa runtime.NumCPU().
func fitModelsConcurrent(
	ctx context.Context,
	models []ports.Forecaster,
	closes []float64,
	steps map[string]int,
	workers int,
) map[string][]domain.ModelForecast {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	type work struct {
		model   ports.Forecaster
		horizon string
		steps   int
	}
	type result struct {
		horizon  string
		forecast domain.ModelForecast
	}

	total := len(models) * len(steps)
	workCh := make(chan work, total)
	resultCh := make(chan result, total)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range workCh {
				f, err := w.model.Forecast(ctx, closes, w.steps)
				if err != nil {
					slog.Warn("model fit failed",
						"model", w.model.Name(),
						"horizon", w.horizon,
						"err", err,
					)
					continue
				}
				f.Model = w.model.Name()
				resultCh <- result{horizon: w.horizon, forecast: f}
			}
		}()
	}

	for horizon, n := range steps {
		for _, m := range models {
			workCh <- work{model: m, horizon: horizon, steps: n}
		}
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	out := make(map[string][]domain.ModelForecast, len(steps))
	fitted := 0
	for r := range resultCh {
		out[r.horizon] = append(out[r.horizon], r.forecast)
		fitted++
	}
	for _, fs := range out {
		sortForecasts(fs)
	}

	slog.Debug("model fitting complete",
		"jobs", total,
		"fitted", fitted,
		"workers", workers,
	)
	return out
}
