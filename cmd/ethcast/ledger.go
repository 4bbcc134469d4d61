package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alejandrodnm/ethcast/internal/adapters/notify"
	"github.com/alejandrodnm/ethcast/internal/domain"
	"github.com/alejandrodnm/ethcast/internal/ports"
	"github.com/spf13/cobra"
)

var (
	validatePrice float64
	validateNow   string
	weightsCond   string
	reportRecent  int
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate due predictions against an explicit price",
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now().UTC()
		if validateNow != "" {
			t, err := domain.ParseTimestamp(validateNow)
			if err != nil {
				return err
			}
			now = t
		}
		return withLock(func(ctx context.Context) error {
			tr, store, err := openTracker(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := tr.Validate(ctx, now, validatePrice)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "validated %d horizon(s) at %s\n", n, now.Format(time.RFC3339))
			notify.NewConsoleWriter(cmd.OutOrStdout(), false).PrintSummary(tr.Summary())
			return nil
		})
	},
}

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Print the current ensemble weights for a market condition",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		tr, store, err := openTracker(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		cond := domain.ConditionLabel(weightsCond).OrUnknown()
		w, source := tr.WeightsFor(cond)
		notify.NewConsoleWriter(cmd.OutOrStdout(), false).PrintWeights(cond, w, source)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the performance report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		tr, store, err := openTracker(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		c := notify.NewConsoleWriter(cmd.OutOrStdout(), true)
		c.PrintSummary(tr.Summary())
		c.PrintPerformance(tr.Performance())
		if recent := tr.Recent(reportRecent); len(recent) > 0 {
			c.PrintRecent(recent)
		}
		if runs, ok := store.(ports.RunRecorder); ok {
			last, err := runs.RecentRuns(ctx, 10)
			if err != nil {
				return err
			}
			c.PrintRuns(last)
		}
		if pending := tr.Pending(); len(pending) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "\n  %d prediction(s) pending validation\n", len(pending))
		}
		return nil
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the performance document from the validation log",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLock(func(ctx context.Context) error {
			tr, store, err := openTracker(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := tr.Rebuild(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d validation(s)\n", n)
			return nil
		})
	},
}

func init() {
	validateCmd.Flags().Float64Var(&validatePrice, "price", 0, "realized price (required)")
	validateCmd.Flags().StringVar(&validateNow, "now", "", "validation time, RFC3339; naive timestamps are UTC (default: now)")
	_ = validateCmd.MarkFlagRequired("price")

	weightsCmd.Flags().StringVar(&weightsCond, "condition", "", "market condition label, e.g. bull_low_vol")
	reportCmd.Flags().IntVar(&reportRecent, "recent", 10, "number of recent validations to show")
}

// withLock ejecuta fn con el run lock tomado, igual que el pipeline.
func withLock(fn func(ctx context.Context) error) error {
	release, err := locker(cfg).Lock()
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			fmt.Fprintln(os.Stderr, "release lock:", err)
		}
	}()
	return fn(context.Background())
}
