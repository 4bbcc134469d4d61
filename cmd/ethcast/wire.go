package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/ethcast/config"
	"github.com/alejandrodnm/ethcast/internal/adapters/binance"
	"github.com/alejandrodnm/ethcast/internal/adapters/metrics"
	"github.com/alejandrodnm/ethcast/internal/adapters/notify"
	"github.com/alejandrodnm/ethcast/internal/adapters/runlock"
	"github.com/alejandrodnm/ethcast/internal/adapters/storage"
	"github.com/alejandrodnm/ethcast/internal/application/pipeline"
	"github.com/alejandrodnm/ethcast/internal/application/tracker"
	"github.com/alejandrodnm/ethcast/internal/forecast"
	"github.com/alejandrodnm/ethcast/internal/market"
	"github.com/alejandrodnm/ethcast/internal/ports"
)

// openStore abre el backend de persistencia configurado.
func openStore(ctx context.Context, c *config.Config) (ports.LedgerStore, error) {
	switch c.Storage.Backend {
	case "json":
		return storage.NewFileStore(c.Storage.Dir)
	case "sqlite":
		return storage.NewSQLiteStore(c.Storage.DSN)
	case "postgres":
		if c.Storage.DSN == "" {
			return nil, errors.New("storage.dsn is required for the postgres backend")
		}
		return storage.NewPostgresStore(ctx, c.Storage.DSN)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
}

// openTracker abre el store y el tracker. El caller cierra el store.
func openTracker(ctx context.Context, c *config.Config) (*tracker.Tracker, ports.LedgerStore, error) {
	store, err := openStore(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	tr, err := tracker.Open(ctx, store, tracker.Options{
		Models: c.Models,
		Solver: tracker.SolverOptions{
			RecentWindow: c.Weighting.RecentWindow,
			Decay:        c.Weighting.Decay,
			MinSamples:   c.Weighting.MinSamples,
		},
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return tr, store, nil
}

func locker(c *config.Config) runlock.File {
	return runlock.File{Path: c.Lock.Path, StaleAfter: c.LockStaleAfter()}
}

// buildNotifier arma los canales configurados. Telegram mal configurado no
// impide el run: se loguea y se sigue con el resto.
func buildNotifier(c *config.Config) *notify.Multi {
	var ns []ports.Notifier
	if c.Notify.Console {
		ns = append(ns, notify.NewConsole(c.Notify.Verbose))
	}
	if c.Notify.SlackWebhookURL != "" {
		ns = append(ns, notify.NewSlack(c.Notify.SlackWebhookURL))
	}
	if c.Notify.TelegramToken != "" && c.Notify.TelegramChatID != 0 {
		tg, err := notify.NewTelegram(c.Notify.TelegramToken, c.Notify.TelegramChatID)
		if err != nil {
			slog.Warn("telegram disabled", "err", err)
		} else {
			ns = append(ns, tg)
		}
	}
	return notify.NewMulti(ns...)
}

// buildPipeline conecta todos los adapters al pipeline.
func buildPipeline(c *config.Config, tr *tracker.Tracker, store ports.LedgerStore, loop bool) (*pipeline.Pipeline, error) {
	models, err := forecast.Build(c.Models, c.Market.TrainWindow)
	if err != nil {
		return nil, err
	}

	deps := pipeline.Deps{
		Engine: tr,
		Prices: binance.NewClient(binance.Config{
			BaseURL:    c.API.BinanceBase,
			RatePerSec: c.API.RatePerSec,
			MaxRetries: c.API.MaxRetries,
		}),
		Classifier: market.NewClassifier(market.DefaultThresholds()),
		Models:     models,
		Notifier:   buildNotifier(c),
		Metrics:    metrics.NewPrometheus(c.Metrics.PushgatewayURL, c.Metrics.Job),
		Locker:     locker(c),
	}
	if runs, ok := store.(ports.RunRecorder); ok {
		deps.Runs = runs
	}

	return pipeline.New(pipeline.Config{
		Symbol:            c.Market.Symbol,
		CandleInterval:    c.Market.CandleInterval,
		CandleLimit:       c.Market.CandleLimit,
		Horizons:          c.Horizons,
		LoopInterval:      c.LoopInterval(),
		Loop:              loop,
		FitWorkers:        c.Market.FitWorkers,
		ColdStartFallback: c.Weighting.ColdStartFallback,
		AlertMinSamples:   c.Weighting.AlertMinSamples,
	}, deps)
}
