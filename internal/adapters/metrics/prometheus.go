package metrics

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/ethcast/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "ethcast"

// Prometheus implementa ports.MetricsRecorder con un registry propio.
// Pensado para un proceso que vive poco (cron): los valores se empujan al
// Pushgateway al final de cada run.
type Prometheus struct {
	reg *prometheus.Registry

	runsTotal        prometheus.Counter
	errorsTotal      *prometheus.CounterVec
	validationsTotal *prometheus.CounterVec
	runDuration      prometheus.Histogram
	basePrice        prometheus.Gauge
	forecastPrice    *prometheus.GaugeVec
	ensembleError    prometheus.Gauge
	directionPct     prometheus.Gauge
	modelError       *prometheus.GaugeVec
	accuracyAlert    prometheus.Gauge

	pushURL string
	job     string
}

// NewPrometheus registra las métricas. pushURL vacío desactiva Push.
func NewPrometheus(pushURL, job string) *Prometheus {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	if job == "" {
		job = namespace
	}

	return &Prometheus{
		reg: reg,
		runsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs completed",
		}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Pipeline errors by stage",
		}, []string{"stage"}),
		validationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Horizon validations created, by condition",
		}, []string{"condition"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of one pipeline run",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		}),
		basePrice: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "base_price",
			Help:      "Price at generation time of the last run",
		}),
		forecastPrice: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "forecast_price",
			Help:      "Ensemble forecast of the last run by horizon",
		}, []string{"horizon"}),
		ensembleError: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ensemble_avg_error_pct",
			Help:      "Average ensemble percent error over the full validation log",
		}),
		directionPct: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "directional_accuracy_pct",
			Help:      "Ensemble directional accuracy over the full validation log",
		}),
		modelError: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_avg_error_pct",
			Help:      "Average percent error per model",
		}, []string{"model"}),
		accuracyAlert: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "accuracy_alert",
			Help:      "1 when directional accuracy dropped below 50%",
		}),
		pushURL: pushURL,
		job:     job,
	}
}

// ObserveRun vuelca el reporte del run en las métricas.
func (p *Prometheus) ObserveRun(r domain.RunReport) {
	p.runsTotal.Inc()
	p.runDuration.Observe(r.Duration.Seconds())
	p.basePrice.Set(r.BasePrice)
	if r.Validated > 0 {
		p.validationsTotal.WithLabelValues(r.Condition.String()).Add(float64(r.Validated))
	}
	for name, hf := range r.Horizons {
		p.forecastPrice.WithLabelValues(name).Set(hf.EnsemblePrice)
	}

	p.ensembleError.Set(r.Summary.EnsembleAvgErrorPct)
	p.directionPct.Set(r.Summary.DirectionalAccuracyPct)
	for model, s := range r.Summary.Models {
		p.modelError.WithLabelValues(model).Set(s.AvgErrorPct)
	}

	if r.AccuracyAlert {
		p.accuracyAlert.Set(1)
	} else {
		p.accuracyAlert.Set(0)
	}
}

// ObserveError cuenta un fallo en la etapa dada (fetch, validate, record, notify...).
func (p *Prometheus) ObserveError(stage string) {
	p.errorsTotal.WithLabelValues(stage).Inc()
}

// Push envía el registry al Pushgateway. No-op sin URL.
func (p *Prometheus) Push(ctx context.Context) error {
	if p.pushURL == "" {
		return nil
	}
	if err := push.New(p.pushURL, p.job).Gatherer(p.reg).PushContext(ctx); err != nil {
		return fmt.Errorf("metrics.Push: %w", err)
	}
	return nil
}

// Registry expone el registry para tests o un handler HTTP.
func (p *Prometheus) Registry() *prometheus.Registry { return p.reg }
