package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/ethcast/internal/adapters/storage"
	"github.com/alejandrodnm/ethcast/internal/application/tracker"
	"github.com/alejandrodnm/ethcast/internal/domain"
	"github.com/alejandrodnm/ethcast/internal/ports"
)

var t0 = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

// --- fakes ---

type fakePrices struct {
	price    float64
	err      error
	fetches  int
	lastSize int
}

func (f *fakePrices) FetchCandles(_ context.Context, _, _ string, limit int) ([]domain.Candle, error) {
	f.fetches++
	f.lastSize = limit
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Candle, 60)
	for i := range out {
		out[i] = domain.Candle{OpenTime: t0.Add(time.Duration(i-60) * time.Minute), Close: 3000}
	}
	return out, nil
}

func (f *fakePrices) FetchPrice(context.Context, string) (float64, error) {
	return f.price, f.err
}

type fixedClassifier domain.ConditionLabel

func (c fixedClassifier) Classify([]domain.Candle) domain.ConditionLabel {
	return domain.ConditionLabel(c)
}

// fakeModel predice last + slope*steps con un R² fijo.
type fakeModel struct {
	name  string
	slope float64
	score float64
	err   error
}

func (m fakeModel) Name() string { return m.name }

func (m fakeModel) Forecast(_ context.Context, closes []float64, steps int) (domain.ModelForecast, error) {
	if m.err != nil {
		return domain.ModelForecast{}, m.err
	}
	return domain.ModelForecast{
		Price: closes[len(closes)-1] + m.slope*float64(steps),
		Score: m.score,
	}, nil
}

type fakeNotifier struct{ reports []domain.RunReport }

func (n *fakeNotifier) Notify(_ context.Context, r domain.RunReport) error {
	n.reports = append(n.reports, r)
	return nil
}

type fakeMetrics struct {
	runs   int
	errors []string
	pushes int
}

func (m *fakeMetrics) ObserveRun(domain.RunReport) { m.runs++ }

func (m *fakeMetrics) ObserveError(stage string) { m.errors = append(m.errors, stage) }

func (m *fakeMetrics) Push(context.Context) error {
	m.pushes++
	return nil
}

type fakeRuns struct{ saved []domain.RunSummary }

func (r *fakeRuns) SaveRun(_ context.Context, s domain.RunSummary) error {
	r.saved = append(r.saved, s)
	return nil
}

func (r *fakeRuns) RecentRuns(context.Context, int) ([]domain.RunSummary, error) {
	return r.saved, nil
}

type fakeLocker struct {
	err      error
	held     bool
	releases int
}

func (l *fakeLocker) Lock() (func() error, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.held = true
	return func() error {
		l.held = false
		l.releases++
		return nil
	}, nil
}

// failingValidate envuelve un tracker real y hace fallar la validación.
type failingValidate struct {
	*tracker.Tracker
}

func (failingValidate) Validate(context.Context, time.Time, float64) (int, error) {
	return 0, &domain.PersistenceError{Op: "save", Target: "history", Err: errors.New("disk full")}
}

// --- helpers ---

type fixture struct {
	tracker  *tracker.Tracker
	prices   *fakePrices
	notifier *fakeNotifier
	metrics  *fakeMetrics
	runs     *fakeRuns
	locker   *fakeLocker
	deps     Deps
}

func newFixture(t *testing.T, models ...ports.Forecaster) *fixture {
	t.Helper()
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Name()
	}
	tr, err := tracker.Open(context.Background(), storage.NewMemoryStore(), tracker.Options{
		Models: names,
		Solver: tracker.DefaultSolverOptions(),
	})
	require.NoError(t, err)

	f := &fixture{
		tracker:  tr,
		prices:   &fakePrices{price: 3000},
		notifier: &fakeNotifier{},
		metrics:  &fakeMetrics{},
		runs:     &fakeRuns{},
		locker:   &fakeLocker{},
	}
	f.deps = Deps{
		Engine:     tr,
		Prices:     f.prices,
		Classifier: fixedClassifier("bull_low_vol"),
		Models:     models,
		Notifier:   f.notifier,
		Metrics:    f.metrics,
		Runs:       f.runs,
		Locker:     f.locker,
	}
	return f
}

func testConfig() Config {
	return Config{
		Symbol:         "ETHUSDT",
		CandleInterval: "1m",
		CandleLimit:    120,
		Horizons:       []domain.Horizon{{Name: "15min", Minutes: 15}, {Name: "30min", Minutes: 30}},
		FitWorkers:     2,
	}
}

func newPipeline(t *testing.T, cfg Config, deps Deps, now time.Time) *Pipeline {
	t.Helper()
	p, err := New(cfg, deps)
	require.NoError(t, err)
	p.now = func() time.Time { return now }
	return p
}

func defaultModels() []ports.Forecaster {
	return []ports.Forecaster{
		fakeModel{name: "linear", slope: 1, score: 0.9},
		fakeModel{name: "polynomial", slope: -1, score: 0.3},
	}
}

// --- tests ---

func TestRunOnce_ColdStartUsesUniformWeights(t *testing.T) {
	f := newFixture(t, defaultModels()...)
	p := newPipeline(t, testConfig(), f.deps, t0)

	report, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 120, f.prices.lastSize)
	assert.Equal(t, domain.ConditionLabel("bull_low_vol"), report.Condition)
	assert.Equal(t, 3000.0, report.BasePrice)
	assert.Zero(t, report.Validated)
	assert.NotEmpty(t, report.RunID)
	require.Len(t, report.Horizons, 2)

	h15 := report.Horizons["15min"]
	assert.Equal(t, domain.WeightSourceUniform, h15.WeightSource)
	assert.Equal(t, t0.Add(15*time.Minute), h15.TargetAt)
	assert.InDelta(t, 3015, h15.Models["linear"], 1e-9)
	assert.InDelta(t, 2985, h15.Models["polynomial"], 1e-9)
	assert.InDelta(t, 3000, h15.EnsemblePrice, 1e-9)
	assert.Equal(t, 0.5, h15.Weights["linear"])

	// persistido en el ledger
	rec := f.tracker.History()
	require.Len(t, rec.Predictions, 1)
	assert.Equal(t, report.PredictionID, rec.Predictions[0].ID)

	// publicado
	require.Len(t, f.notifier.reports, 1)
	assert.Equal(t, 1, f.metrics.runs)
	assert.Equal(t, 1, f.metrics.pushes)
	require.Len(t, f.runs.saved, 1)
	assert.Equal(t, report.RunID, f.runs.saved[0].RunID)
	assert.False(t, f.locker.held)
	assert.Equal(t, 1, f.locker.releases)
}

func TestRunOnce_FitScoreFallbackOnColdStart(t *testing.T) {
	f := newFixture(t, defaultModels()...)
	cfg := testConfig()
	cfg.ColdStartFallback = ColdStartFitScore
	p := newPipeline(t, cfg, f.deps, t0)

	report, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	h15 := report.Horizons["15min"]
	assert.Equal(t, domain.WeightSourceFitScore, h15.WeightSource)
	assert.InDelta(t, 0.75, h15.Weights["linear"], 1e-12)
	assert.InDelta(t, 0.25, h15.Weights["polynomial"], 1e-12)
	assert.InDelta(t, 3007.5, h15.EnsemblePrice, 1e-9)
}

func TestRunOnce_LaterRunValidatesDueHorizons(t *testing.T) {
	f := newFixture(t, defaultModels()...)
	ctx := context.Background()

	_, err := newPipeline(t, testConfig(), f.deps, t0).RunOnce(ctx)
	require.NoError(t, err)

	f.prices.price = 3010
	report, err := newPipeline(t, testConfig(), f.deps, t0.Add(16*time.Minute)).RunOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Validated)
	assert.Equal(t, 1, report.Summary.TotalValidations)
	assert.Equal(t, 2, report.Summary.TotalPredictions)
	require.Len(t, report.Recent, 1)
	assert.Equal(t, "15min", report.Recent[0].Horizon)
	assert.Contains(t, report.Performance, domain.ModelEnsemble)
}

func TestRunOnce_ValidationFailureStillRecords(t *testing.T) {
	f := newFixture(t, defaultModels()...)
	f.deps.Engine = failingValidate{f.tracker}
	p := newPipeline(t, testConfig(), f.deps, t0)

	report, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Contains(t, report.ValidationErr, "disk full")
	assert.NotEmpty(t, report.PredictionID)
	assert.Len(t, f.tracker.History().Predictions, 1)
	assert.Equal(t, []string{"validate"}, f.metrics.errors)
}

func TestRunOnce_LockHeldSkipsRun(t *testing.T) {
	f := newFixture(t, defaultModels()...)
	f.locker.err = errors.New("locked")
	p := newPipeline(t, testConfig(), f.deps, t0)

	_, err := p.RunOnce(context.Background())
	require.Error(t, err)
	assert.Zero(t, f.prices.fetches)
	assert.Empty(t, f.tracker.History().Predictions)
	assert.Equal(t, []string{"lock"}, f.metrics.errors)
}

func TestRunOnce_FetchErrorAborts(t *testing.T) {
	f := newFixture(t, defaultModels()...)
	f.prices.err = errors.New("binance down")
	p := newPipeline(t, testConfig(), f.deps, t0)

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "binance down")
	assert.Empty(t, f.tracker.History().Predictions)
	assert.Empty(t, f.notifier.reports)
	assert.False(t, f.locker.held)
}

func TestRunOnce_FailingModelIsSkipped(t *testing.T) {
	models := append(defaultModels(), fakeModel{name: "ema_drift", err: errors.New("not enough data points")})
	f := newFixture(t, models...)
	p := newPipeline(t, testConfig(), f.deps, t0)

	report, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	h15 := report.Horizons["15min"]
	assert.NotContains(t, h15.Models, "ema_drift")
	assert.NotContains(t, h15.Weights, "ema_drift")
	assert.InDelta(t, 1.0, domain.Weights(h15.Weights).Sum(), 1e-9)
}

func TestRunOnce_AllModelsFailing(t *testing.T) {
	f := newFixture(t, fakeModel{name: "linear", err: errors.New("boom")})
	p := newPipeline(t, testConfig(), f.deps, t0)

	_, err := p.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every model failed")
	assert.Empty(t, f.tracker.History().Predictions)
}

func TestNew_RejectsMisalignedHorizon(t *testing.T) {
	f := newFixture(t, defaultModels()...)
	cfg := testConfig()
	cfg.CandleInterval = "1h"
	_, err := New(cfg, f.deps)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Horizons = nil
	_, err = New(cfg, f.deps)
	assert.Error(t, err)
}

func TestAccuracyAlert(t *testing.T) {
	tests := []struct {
		name       string
		summary    domain.Summary
		minSamples int
		want       bool
	}{
		{"no validations", domain.Summary{}, 0, false},
		{"below min samples", domain.Summary{TotalValidations: 3, DirectionalAccuracyPct: 10}, 5, false},
		{"bad accuracy", domain.Summary{TotalValidations: 5, DirectionalAccuracyPct: 40}, 5, true},
		{"exactly fifty", domain.Summary{TotalValidations: 8, DirectionalAccuracyPct: 50}, 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, accuracyAlert(tt.summary, tt.minSamples))
		})
	}
}

func TestIntervalDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"1m", time.Minute, false},
		{"15m", 15 * time.Minute, false},
		{"4h", 4 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"1w", 7 * 24 * time.Hour, false},
		{"m", 0, true},
		{"0m", 0, true},
		{"5x", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := IntervalDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
