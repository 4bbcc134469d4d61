package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/ethcast/internal/application/tracker"
	"github.com/alejandrodnm/ethcast/internal/domain"
	"github.com/alejandrodnm/ethcast/internal/ports"
	"github.com/google/uuid"
)

// ColdStartFitScore activa el fallback de pesos por R² cuando el solver
// todavía no tiene historial suficiente.
const ColdStartFitScore = "fit_score"

// Config contiene la configuración del pipeline.
type Config struct {
	Symbol         string
	CandleInterval string // intervalo de Binance: 1m, 5m, 1h...
	CandleLimit    int
	Horizons       []domain.Horizon

	LoopInterval time.Duration
	Loop         bool // false = un solo ciclo y salir
	FitWorkers   int  // goroutines para ajustar modelos (0 = NumCPU)

	ColdStartFallback string // "uniform" | "fit_score"
	AlertMinSamples   int    // validaciones mínimas antes de evaluar la alerta de precisión
	RecentInReport    int
}

// Engine es lo que el pipeline necesita del tracker.
type Engine interface {
	Validate(ctx context.Context, now time.Time, actualPrice float64) (int, error)
	WeightsFor(condition domain.ConditionLabel) (domain.Weights, domain.WeightSource)
	Record(ctx context.Context, createdAt time.Time, condition domain.ConditionLabel,
		basePrice float64, horizons map[string]domain.HorizonForecast) (string, error)
	Summary() domain.Summary
	PerformanceFor(condition domain.ConditionLabel) map[string]domain.ConditionPerformance
	Recent(n int) []domain.ValidationRecord
}

// Deps agrupa las dependencias inyectadas. Notifier, Metrics, Runs y Locker son opcionales.
type Deps struct {
	Engine     Engine
	Prices     ports.PriceProvider
	Classifier ports.Classifier
	Models     []ports.Forecaster
	Notifier   ports.Notifier
	Metrics    ports.MetricsRecorder
	Runs       ports.RunRecorder
	Locker     ports.RunLocker
}

// Pipeline es el orquestador de cada ejecución: lock → fetch → classify →
// validate → forecast → weigh → combine → record → notify → metrics.
type Pipeline struct {
	cfg    Config
	deps   Deps
	candle time.Duration
	now    func() time.Time
}

// New valida la configuración y crea el Pipeline.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	if deps.Engine == nil || deps.Prices == nil || deps.Classifier == nil {
		return nil, errors.New("pipeline.New: engine, prices and classifier are required")
	}
	if len(deps.Models) == 0 {
		return nil, errors.New("pipeline.New: no models configured")
	}
	if len(cfg.Horizons) == 0 {
		return nil, errors.New("pipeline.New: no horizons configured")
	}
	candle, err := IntervalDuration(cfg.CandleInterval)
	if err != nil {
		return nil, fmt.Errorf("pipeline.New: %w", err)
	}
	for _, h := range cfg.Horizons {
		if h.Minutes <= 0 || h.Duration()%candle != 0 {
			return nil, fmt.Errorf("pipeline.New: horizon %q is not a positive multiple of %s", h.Name, cfg.CandleInterval)
		}
	}
	if cfg.CandleLimit <= 0 {
		cfg.CandleLimit = 500
	}
	if cfg.RecentInReport <= 0 {
		cfg.RecentInReport = 10
	}
	return &Pipeline{cfg: cfg, deps: deps, candle: candle, now: time.Now}, nil
}

// Run ejecuta un ciclo y, si cfg.Loop está activo, sigue con el ticker
// hasta que el contexto se cancele.
func (p *Pipeline) Run(ctx context.Context) error {
	slog.Info("pipeline starting",
		"symbol", p.cfg.Symbol,
		"loop", p.cfg.Loop,
		"interval", p.cfg.LoopInterval,
		"models", len(p.deps.Models),
	)

	if _, err := p.RunOnce(ctx); err != nil {
		if !p.cfg.Loop {
			return err
		}
		slog.Error("pipeline run failed", "err", err)
	}
	if !p.cfg.Loop {
		return nil
	}

	ticker := time.NewTicker(p.cfg.LoopInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("pipeline stopped")
			return nil
		case <-ticker.C:
			if _, err := p.RunOnce(ctx); err != nil {
				slog.Error("pipeline run failed", "err", err)
			}
		}
	}
}

// RunOnce ejecuta exactamente un ciclo y devuelve su reporte.
func (p *Pipeline) RunOnce(ctx context.Context) (domain.RunReport, error) {
	if p.deps.Locker != nil {
		release, err := p.deps.Locker.Lock()
		if err != nil {
			p.observeError("lock")
			return domain.RunReport{}, fmt.Errorf("pipeline.RunOnce: %w", err)
		}
		defer func() {
			if err := release(); err != nil {
				slog.Warn("release run lock", "err", err)
			}
		}()
	}

	start := p.now().UTC()
	report := domain.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: start,
		Symbol:    p.cfg.Symbol,
	}

	candles, err := p.deps.Prices.FetchCandles(ctx, p.cfg.Symbol, p.cfg.CandleInterval, p.cfg.CandleLimit)
	if err != nil {
		p.observeError("fetch")
		return report, fmt.Errorf("pipeline.RunOnce: fetch candles: %w", err)
	}
	price, err := p.deps.Prices.FetchPrice(ctx, p.cfg.Symbol)
	if err != nil {
		p.observeError("fetch")
		return report, fmt.Errorf("pipeline.RunOnce: fetch price: %w", err)
	}
	report.BasePrice = price
	report.Condition = p.deps.Classifier.Classify(candles).OrUnknown()

	// Un fallo al validar no impide generar la predicción nueva.
	validated, err := p.deps.Engine.Validate(ctx, start, price)
	if err != nil {
		p.observeError("validate")
		slog.Error("validation pass failed, continuing", "err", err)
		report.ValidationErr = err.Error()
	}
	report.Validated = validated

	horizons, err := p.forecast(ctx, start, domain.Closes(candles), report.Condition)
	if err != nil {
		p.observeError("forecast")
		return report, fmt.Errorf("pipeline.RunOnce: %w", err)
	}
	report.Horizons = horizons

	id, err := p.deps.Engine.Record(ctx, start, report.Condition, price, horizons)
	if err != nil {
		p.observeError("record")
		return report, fmt.Errorf("pipeline.RunOnce: record: %w", err)
	}
	report.PredictionID = id

	report.Summary = p.deps.Engine.Summary()
	report.Performance = p.deps.Engine.PerformanceFor(report.Condition)
	report.Recent = p.deps.Engine.Recent(p.cfg.RecentInReport)
	report.AccuracyAlert = accuracyAlert(report.Summary, p.cfg.AlertMinSamples)
	if report.AccuracyAlert {
		slog.Warn("directional accuracy below 50%",
			"accuracy_pct", report.Summary.DirectionalAccuracyPct,
			"validations", report.Summary.TotalValidations,
		)
	}
	report.Duration = p.now().UTC().Sub(start)

	p.publish(ctx, report)

	slog.Info("pipeline run complete",
		"prediction_id", id,
		"condition", report.Condition,
		"validated", validated,
		"duration", report.Duration.Round(time.Millisecond),
	)
	return report, nil
}

// forecast ajusta todos los modelos para todos los horizontes y combina cada
// horizonte con los pesos de la condición actual.
func (p *Pipeline) forecast(
	ctx context.Context,
	now time.Time,
	closes []float64,
	condition domain.ConditionLabel,
) (map[string]domain.HorizonForecast, error) {
	steps := make(map[string]int, len(p.cfg.Horizons))
	for _, h := range p.cfg.Horizons {
		steps[h.Name] = int(h.Duration() / p.candle)
	}
	byHorizon := fitModelsConcurrent(ctx, p.deps.Models, closes, steps, p.cfg.FitWorkers)

	weights, source := p.deps.Engine.WeightsFor(condition)
	coldStart := source == domain.WeightSourceUniform && p.cfg.ColdStartFallback == ColdStartFitScore

	out := make(map[string]domain.HorizonForecast, len(p.cfg.Horizons))
	for _, h := range p.cfg.Horizons {
		forecasts := byHorizon[h.Name]
		if len(forecasts) == 0 {
			return nil, fmt.Errorf("forecast %s: every model failed", h.Name)
		}

		w, src := weights, source
		if coldStart {
			w, src = tracker.FitScoreWeights(forecasts), domain.WeightSourceFitScore
		}
		hf, err := tracker.BlendHorizon(now.Add(h.Duration()), forecasts, w, src)
		if err != nil {
			return nil, fmt.Errorf("forecast %s: %w", h.Name, err)
		}
		out[h.Name] = hf
	}
	return out, nil
}

// publish entrega el reporte a notifier, métricas y run log. Ningún fallo
// aquí invalida el run: la predicción ya está persistida.
func (p *Pipeline) publish(ctx context.Context, report domain.RunReport) {
	if p.deps.Notifier != nil {
		if err := p.deps.Notifier.Notify(ctx, report); err != nil {
			p.observeError("notify")
			slog.Warn("notifier error", "err", err)
		}
	}
	if p.deps.Runs != nil {
		if err := p.deps.Runs.SaveRun(ctx, report.Summarize()); err != nil {
			p.observeError("runs")
			slog.Warn("run log error", "err", err)
		}
	}
	if p.deps.Metrics != nil {
		p.deps.Metrics.ObserveRun(report)
		if err := p.deps.Metrics.Push(ctx); err != nil {
			slog.Warn("metrics push error", "err", err)
		}
	}
}

func (p *Pipeline) observeError(stage string) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.ObserveError(stage)
	}
}

// accuracyAlert se dispara cuando la dirección del ensemble acierta menos
// del 50% tras al menos minSamples validaciones.
func accuracyAlert(s domain.Summary, minSamples int) bool {
	if s.TotalValidations == 0 || s.TotalValidations < minSamples {
		return false
	}
	return s.DirectionalAccuracyPct < 50
}

// sortForecasts ordena por nombre de modelo para que el resultado no
// dependa del orden en que terminan los workers.
func sortForecasts(fs []domain.ModelForecast) {
	sort.Slice(fs, func(i, j int) bool { return fs[i].Model < fs[j].Model })
}
