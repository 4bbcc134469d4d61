package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/alejandrodnm/ethcast/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier escribiendo el reporte de cada run.
type Console struct {
	out     io.Writer
	verbose bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(verbose bool) *Console {
	return &Console{out: os.Stdout, verbose: verbose}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, verbose bool) *Console {
	return &Console{out: w, verbose: verbose}
}

// Notify imprime el forecast, el rendimiento por condición y el resumen.
func (c *Console) Notify(_ context.Context, r domain.RunReport) error {
	fmt.Fprintf(c.out, "\n[%s] %s $%.2f | condition: %s | validated: %d\n",
		r.StartedAt.Format("2006-01-02 15:04:05"), r.Symbol, r.BasePrice,
		r.Condition.Title(), r.Validated)
	if r.ValidationErr != "" {
		fmt.Fprintf(c.out, "  >> validation skipped: %s\n", r.ValidationErr)
	}

	if len(r.Horizons) > 0 {
		c.printForecast(r)
	}
	if len(r.Performance) > 0 {
		c.printConditionPerformance(r.Condition, r.Performance)
	}
	c.PrintSummary(r.Summary)

	if c.verbose && len(r.Recent) > 0 {
		c.PrintRecent(r.Recent)
	}

	if r.AccuracyAlert {
		fmt.Fprintf(c.out, "\n  !! ACCURACY ALERT: directional accuracy %.1f%% is below 50%%\n",
			r.Summary.DirectionalAccuracyPct)
	}
	fmt.Fprintln(c.out)
	return nil
}

// printForecast imprime una fila por horizonte con el ensemble y cada modelo.
func (c *Console) printForecast(r domain.RunReport) {
	names := r.HorizonNames()
	models := horizonModels(r.Horizons)

	header := []any{"Horizon", "Target", "Ensemble", "Change"}
	for _, m := range models {
		header = append(header, m)
	}
	header = append(header, "Weights")

	table := tablewriter.NewWriter(c.out)
	table.Header(header...)
	for _, name := range names {
		hf := r.Horizons[name]
		row := []any{
			name,
			hf.TargetAt.Format("15:04"),
			fmt.Sprintf("$%.2f", hf.EnsemblePrice),
			fmt.Sprintf("%+.3f%%", pctChange(hf.EnsemblePrice, r.BasePrice)),
		}
		for _, m := range models {
			p, ok := hf.Models[m]
			if !ok {
				row = append(row, "-")
				continue
			}
			row = append(row, fmt.Sprintf("$%.2f", p))
		}
		row = append(row, string(hf.WeightSource))
		table.Append(row...)
	}
	table.Render()
}

// printConditionPerformance muestra el histórico de cada modelo en la condición actual.
func (c *Console) printConditionPerformance(cond domain.ConditionLabel, perf map[string]domain.ConditionPerformance) {
	fmt.Fprintf(c.out, "\n  --- %s PERFORMANCE ---\n", strings.ToUpper(cond.Title()))

	names := make([]string, 0, len(perf))
	for name := range perf {
		names = append(names, name)
	}
	sort.Strings(names)

	table := tablewriter.NewWriter(c.out)
	table.Header("Model", "N", "Avg err", "Direction")
	for _, name := range names {
		s := perf[name]
		table.Append(
			name,
			fmt.Sprintf("%d", s.Count),
			fmt.Sprintf("%.3f%%", s.AvgErrorPct),
			fmt.Sprintf("%.1f%%", s.DirectionAccuracyPct),
		)
	}
	table.Render()
}

// PrintSummary imprime el resumen global. Lo usa también el subcomando report.
func (c *Console) PrintSummary(s domain.Summary) {
	fmt.Fprintf(c.out, "\n  --- SUMMARY ---\n")
	fmt.Fprintf(c.out, "  Predictions:           %d\n", s.TotalPredictions)
	fmt.Fprintf(c.out, "  Validations:           %d\n", s.TotalValidations)
	if s.TotalValidations == 0 {
		fmt.Fprintf(c.out, "  No validations yet.\n")
		return
	}
	fmt.Fprintf(c.out, "  Ensemble avg error:    %.3f%%\n", s.EnsembleAvgErrorPct)
	fmt.Fprintf(c.out, "  Directional accuracy:  %.1f%%\n", s.DirectionalAccuracyPct)
	if best, stats, ok := s.BestModel(); ok {
		fmt.Fprintf(c.out, "  Best model:            %s (%.3f%%, n=%d)\n", best, stats.AvgErrorPct, stats.Count)
	}
	if s.LastUpdated != nil {
		fmt.Fprintf(c.out, "  Last updated:          %s\n", s.LastUpdated.Format("2006-01-02 15:04:05"))
	}
}

// PrintRecent imprime las validaciones más recientes con el mejor y peor modelo.
func (c *Console) PrintRecent(recent []domain.ValidationRecord) {
	fmt.Fprintf(c.out, "\n  --- RECENT VALIDATIONS ---\n")
	table := tablewriter.NewWriter(c.out)
	table.Header("Validated", "Horizon", "Condition", "Actual", "Ensemble err", "Dir", "Best", "Worst")
	for _, v := range recent {
		ens := v.Errors[domain.ModelEnsemble]
		dir := "x"
		if ens.DirectionCorrect {
			dir = "ok"
		}
		best, worst := "-", "-"
		if b, w, ok := v.BestAndWorst(); ok {
			best = fmt.Sprintf("%s %.3f%%", b, v.Errors[b].PercentError)
			worst = fmt.Sprintf("%s %.3f%%", w, v.Errors[w].PercentError)
		}
		table.Append(
			v.ValidatedAt.Format("01-02 15:04"),
			v.Horizon,
			string(v.Condition),
			fmt.Sprintf("$%.2f", v.ActualPrice),
			fmt.Sprintf("%.3f%%", ens.PercentError),
			dir,
			best,
			worst,
		)
	}
	table.Render()
}

// PrintPerformance imprime la tabla condición × modelo completa.
func (c *Console) PrintPerformance(perf domain.PerformanceByCondition) {
	if len(perf) == 0 {
		fmt.Fprintln(c.out, "\n  No performance data yet.")
		return
	}
	fmt.Fprintf(c.out, "\n  --- PERFORMANCE BY CONDITION ---\n")
	table := tablewriter.NewWriter(c.out)
	table.Header("Condition", "Model", "N", "Avg err", "Direction")
	for _, cond := range perf.Conditions() {
		models := perf[cond]
		names := make([]string, 0, len(models))
		for name := range models {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			s := models[name]
			table.Append(
				string(cond),
				name,
				fmt.Sprintf("%d", s.Count),
				fmt.Sprintf("%.3f%%", s.AvgErrorPct),
				fmt.Sprintf("%.1f%%", s.DirectionAccuracyPct),
			)
		}
	}
	table.Render()
}

// PrintWeights imprime un vector de pesos ordenado por modelo.
func (c *Console) PrintWeights(cond domain.ConditionLabel, w domain.Weights, source domain.WeightSource) {
	fmt.Fprintf(c.out, "\n  Weights for %s (%s)\n", cond, source)
	table := tablewriter.NewWriter(c.out)
	table.Header("Model", "Weight")
	for _, m := range w.Models() {
		table.Append(m, fmt.Sprintf("%.4f", w[m]))
	}
	table.Render()
}

// PrintRuns imprime el run log.
func (c *Console) PrintRuns(runs []domain.RunSummary) {
	if len(runs) == 0 {
		return
	}
	fmt.Fprintf(c.out, "\n  --- LAST RUNS ---\n")
	table := tablewriter.NewWriter(c.out)
	table.Header("Started", "Condition", "Price", "Validated", "Ens err", "Dir")
	for _, r := range runs {
		table.Append(
			r.StartedAt.Format("01-02 15:04"),
			string(r.Condition),
			fmt.Sprintf("$%.2f", r.BasePrice),
			fmt.Sprintf("%d", r.Validated),
			fmt.Sprintf("%.3f%%", r.EnsembleError),
			fmt.Sprintf("%.1f%%", r.DirectionPct),
		)
	}
	table.Render()
}

// --- helpers ---

func horizonModels(horizons map[string]domain.HorizonForecast) []string {
	seen := make(map[string]bool)
	for _, hf := range horizons {
		for m := range hf.Models {
			seen[m] = true
		}
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func pctChange(price, base float64) float64 {
	if base <= 0 {
		return 0
	}
	return (price - base) / base * 100
}
