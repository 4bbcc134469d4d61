package notify_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/ethcast/internal/adapters/notify"
	"github.com/alejandrodnm/ethcast/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func makeReport() domain.RunReport {
	last := t0
	return domain.RunReport{
		RunID:     "run-1",
		StartedAt: t0,
		Symbol:    "ETHUSDT",
		BasePrice: 3000,
		Condition: "bull_low_vol",
		Validated: 2,
		Horizons: map[string]domain.HorizonForecast{
			"30min": {
				TargetAt:      t0.Add(30 * time.Minute),
				EnsemblePrice: 3030,
				Models:        map[string]float64{"linear": 3025, "polynomial": 3035},
				Weights:       map[string]float64{"linear": 0.5, "polynomial": 0.5},
				WeightSource:  domain.WeightSourceAdaptive,
			},
			"15min": {
				TargetAt:      t0.Add(15 * time.Minute),
				EnsemblePrice: 3015,
				Models:        map[string]float64{"linear": 3012.5, "polynomial": 3017.5},
				Weights:       map[string]float64{"linear": 0.5, "polynomial": 0.5},
				WeightSource:  domain.WeightSourceAdaptive,
			},
		},
		Summary: domain.Summary{
			TotalPredictions:       4,
			TotalValidations:       6,
			EnsembleAvgErrorPct:    0.25,
			DirectionalAccuracyPct: 66.6667,
			Models: map[string]domain.ModelStats{
				"linear":     {Count: 6, AvgErrorPct: 0.3, DirectionAccuracyPct: 50},
				"polynomial": {Count: 6, AvgErrorPct: 0.2, DirectionAccuracyPct: 83.3},
			},
			LastUpdated: &last,
		},
		Performance: map[string]domain.ConditionPerformance{
			"linear": {Count: 3, AvgErrorPct: 0.31, DirectionAccuracyPct: 66.7},
		},
	}
}

func TestConsole_Notify_PrintsForecastAndSummary(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	require.NoError(t, n.Notify(context.Background(), makeReport()))

	out := buf.String()
	assert.Contains(t, out, "ETHUSDT $3000.00")
	assert.Contains(t, out, "Bull Low Vol")
	assert.Contains(t, out, "$3015.00")
	assert.Contains(t, out, "$3030.00")
	assert.Contains(t, out, "+0.500%")
	assert.Contains(t, out, "adaptive")
	assert.Contains(t, out, "BULL LOW VOL PERFORMANCE")
	assert.Contains(t, out, "Best model:            polynomial")
	assert.NotContains(t, out, "ACCURACY ALERT")

	// 15min antes que 30min: orden por TargetAt
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("15min")), bytes.Index(buf.Bytes(), []byte("30min")))
}

func TestConsole_Notify_AccuracyAlert(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	r := makeReport()
	r.AccuracyAlert = true
	r.Summary.DirectionalAccuracyPct = 40
	r.ValidationErr = "persistence: save x: disk full"
	require.NoError(t, n.Notify(context.Background(), r))

	assert.Contains(t, buf.String(), "ACCURACY ALERT: directional accuracy 40.0%")
	assert.Contains(t, buf.String(), "validation skipped")
}

func TestConsole_Notify_VerboseShowsRecent(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	r := makeReport()
	r.Recent = []domain.ValidationRecord{{
		PredictionID: "p",
		ValidatedAt:  t0,
		Horizon:      "15min",
		Condition:    "bull_low_vol",
		ActualPrice:  3010,
		Errors: map[string]domain.ErrorEntry{
			domain.ModelEnsemble: {PercentError: 0.33, DirectionCorrect: true},
			"linear":             {PercentError: 0.17},
			"polynomial":         {PercentError: 0.5},
		},
	}}
	require.NoError(t, n.Notify(context.Background(), r))

	out := buf.String()
	assert.Contains(t, out, "RECENT VALIDATIONS")
	assert.Contains(t, out, "linear 0.170%")
	assert.Contains(t, out, "polynomial 0.500%")
}

func TestConsole_PrintSummary_Empty(t *testing.T) {
	var buf bytes.Buffer
	notify.NewConsoleWriter(&buf, false).PrintSummary(domain.Summary{TotalPredictions: 1})
	assert.Contains(t, buf.String(), "No validations yet")
}

func TestConsole_PrintPerformance(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, false)

	c.PrintPerformance(nil)
	assert.Contains(t, buf.String(), "No performance data yet")

	buf.Reset()
	perf := domain.PerformanceByCondition{}
	perf.Add("bear_high_vol", "linear", domain.ErrorEntry{PercentError: 1.5, DirectionCorrect: true})
	c.PrintPerformance(perf)
	assert.Contains(t, buf.String(), "bear_high_vol")
	assert.Contains(t, buf.String(), "1.500%")
	assert.Contains(t, buf.String(), "100.0%")
}

func TestConsole_PrintWeights(t *testing.T) {
	var buf bytes.Buffer
	notify.NewConsoleWriter(&buf, false).PrintWeights("unknown",
		domain.Weights{"linear": 0.25, "polynomial": 0.75}, domain.WeightSourceAdaptive)
	assert.Contains(t, buf.String(), "0.2500")
	assert.Contains(t, buf.String(), "0.7500")
}
