package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/turtacn/tokenkit/internal/config"
)

// Metrics manages the Prometheus metrics and implements metrics.Recorder.
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// NewMetrics creates the metrics and registers them with reg. A nil reg registers with the
// default registry.
func NewMetrics(cfg config.MetricsConfig, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "operations_total",
				Help:      "Total number of codec, cipher and token operations.",
			},
			[]string{"component", "operation", "result"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "operation_duration_seconds",
				Help:      "Latency of codec, cipher and token operations.",
				Buckets:   []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .05, .25, 1},
			},
			[]string{"component", "operation"},
		),
	}
}

// ObserveOperation records one operation outcome and its latency
func (m *Metrics) ObserveOperation(component, operation, result string, d time.Duration) {
	m.Operations.WithLabelValues(component, operation, result).Inc()
	m.OperationDuration.WithLabelValues(component, operation).Observe(d.Seconds())
}
