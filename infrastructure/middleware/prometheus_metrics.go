// Package middleware provides the metrics and tracing backends for the
// report pipeline.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/alexleeyt8888/StockFanAI-Bot/infrastructure/llm"
	"github.com/alexleeyt8888/StockFanAI-Bot/internal/ports"
)

// Metric names recorded by the pipeline observer.
const (
	MetricStageDuration = "pipeline_stage"
	MetricStageErrors   = "pipeline_stage_errors_total"
	MetricCycle         = "pipeline_cycle"
)

const unknownLabel = "unknown"

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// PrometheusMetrics implements ports.MetricsCollector with Prometheus.
// Model call metrics come from the llm metrics middleware; stage metrics
// come from OTelStageObserver.
type PrometheusMetrics struct {
	llmLatency    *prometheus.HistogramVec
	llmRequests   *prometheus.CounterVec
	llmTokens     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	gauges        *prometheus.GaugeVec
	events        *prometheus.CounterVec
}

// NewPrometheusMetrics registers the pipeline metrics with reg. A nil reg
// uses the default registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	callLabels := []string{"provider", "model", "operation", "status"}

	return &PrometheusMetrics{
		llmLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: llm.MetricLLMLatency,
				Help: "Latency of model calls, including quota waits.",
				// Grounded searches routinely take tens of seconds.
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
			},
			callLabels,
		),
		llmRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: llm.MetricLLMRequests,
				Help: "Model calls by outcome.",
			},
			callLabels,
		),
		llmTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: llm.MetricLLMTokens,
				Help: "Tokens consumed by model calls.",
			},
			[]string{"provider", "model", "operation", "token_type"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricStageDuration + "_duration_seconds",
				Help:    "Wall time of pipeline stages.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"stage", "status"},
		),
		stageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricStageErrors,
				Help: "Pipeline stages that ended in error.",
			},
			[]string{"stage"},
		),
		gauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pipeline_state",
				Help: "Current pipeline state values.",
			},
			[]string{"metric"},
		),
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_events_total",
				Help: "Miscellaneous pipeline events.",
			},
			[]string{"event"},
		),
	}
}

// RecordLatency records stage durations. Other operations are folded into
// the stage histogram under their own name.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	stage := labelOr(labels, "stage", operation)
	pm.stageDuration.WithLabelValues(stage, labelOr(labels, "status", "success")).Observe(duration.Seconds())
}

// RecordCounter increments the counter named by metric.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case llm.MetricLLMRequests:
		pm.llmRequests.WithLabelValues(callLabelValues(labels, "status")...).Add(value)
	case llm.MetricLLMTokens:
		pm.llmTokens.WithLabelValues(callLabelValues(labels, "token_type")...).Add(value)
	case MetricStageErrors:
		pm.stageErrors.WithLabelValues(labelOr(labels, "stage", unknownLabel)).Add(value)
	default:
		pm.events.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge sets the gauge named by metric.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, _ map[string]string) {
	pm.gauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram observes value. Only model call latency has a dedicated
// histogram; anything else is treated as a stage duration in seconds.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	if metric == llm.MetricLLMLatency {
		pm.llmLatency.WithLabelValues(callLabelValues(labels, "status")...).Observe(value)
		return
	}
	pm.stageDuration.WithLabelValues(labelOr(labels, "stage", metric), labelOr(labels, "status", "success")).Observe(value)
}

func callLabelValues(labels map[string]string, last string) []string {
	return []string{
		labelOr(labels, "provider", unknownLabel),
		labelOr(labels, "model", unknownLabel),
		labelOr(labels, "operation", unknownLabel),
		labelOr(labels, last, unknownLabel),
	}
}

func labelOr(labels map[string]string, key, fallback string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return fallback
}
