package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	runLoop     bool
	runInterval time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Validate due predictions, forecast and record a new prediction",
	Long: `Runs the full pipeline once: lock, fetch candles, classify the market,
validate due horizons, fit models, weigh, combine, record, notify and push
metrics. With --loop it keeps running on a ticker until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runInterval > 0 {
			cfg.Market.IntervalSeconds = int(runInterval / time.Second)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		tr, store, err := openTracker(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		p, err := buildPipeline(cfg, tr, store, runLoop)
		if err != nil {
			return err
		}

		slog.Info("ethcast starting",
			"config", configPath,
			"backend", cfg.Storage.Backend,
			"models", cfg.Models,
			"loop", runLoop,
		)
		if err := p.Run(ctx); err != nil {
			return err
		}
		slog.Info("ethcast stopped cleanly")
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runLoop, "loop", false, "keep running on a ticker instead of a single run")
	runCmd.Flags().DurationVar(&runInterval, "interval", 0, "loop interval (overrides market.interval_seconds)")
}
