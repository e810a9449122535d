// Package metrics records batch run statistics on a private Prometheus
// registry, exported as a node_exporter textfile after each run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "palmlens"

// BatchMetrics implements domain.RunRecorder
type BatchMetrics struct {
	registry      *prometheus.Registry
	rowsTotal     *prometheus.CounterVec
	stageDuration *prometheus.GaugeVec
	lastRun       prometheus.Gauge
}

// NewBatchMetrics registers the batch metrics on a fresh registry
func NewBatchMetrics() *BatchMetrics {
	m := &BatchMetrics{
		registry: prometheus.NewRegistry(),
		rowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Product rows processed, by outcome.",
		}, []string{"outcome"}),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage of the last run.",
		}, []string{"stage"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run completed.",
		}),
	}
	m.registry.MustRegister(
		m.rowsTotal,
		m.stageDuration,
		m.lastRun,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *BatchMetrics) ObserveRow(outcome string) {
	m.rowsTotal.WithLabelValues(outcome).Inc()
}

func (m *BatchMetrics) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Add(d.Seconds())
}

func (m *BatchMetrics) MarkCompleted(at time.Time) {
	m.lastRun.Set(float64(at.Unix()))
}

// Registry exposes the underlying registry for gathering
func (m *BatchMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes every registered metric to path in the text
// exposition format. The file is replaced atomically.
func (m *BatchMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
