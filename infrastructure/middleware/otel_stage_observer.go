package middleware

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/alexleeyt8888/StockFanAI-Bot/internal/ports"
)

var _ ports.PipelineObserver = (*OTelStageObserver)(nil)

// OTelStageObserver traces each pipeline stage as a span and reports stage
// timings to a metrics collector. Model call spans from the llm tracing
// middleware nest under the stage span.
type OTelStageObserver struct {
	tracer  trace.Tracer
	metrics ports.MetricsCollector
}

// NewOTelStageObserver creates an observer using the global tracer
// provider. metrics may be nil.
func NewOTelStageObserver(serviceName string, metrics ports.MetricsCollector) *OTelStageObserver {
	return NewOTelStageObserverWithProvider(serviceName, otel.GetTracerProvider(), metrics)
}

// NewOTelStageObserverWithProvider is NewOTelStageObserver with an explicit
// tracer provider.
func NewOTelStageObserverWithProvider(serviceName string, tp trace.TracerProvider, metrics ports.MetricsCollector) *OTelStageObserver {
	return &OTelStageObserver{
		tracer:  tp.Tracer(serviceName + "/pipeline"),
		metrics: metrics,
	}
}

// StageStarted starts the stage span.
func (o *OTelStageObserver) StageStarted(ctx context.Context, subject, stage string, cycle int) context.Context {
	ctx, _ = o.tracer.Start(ctx, "pipeline."+stage,
		trace.WithAttributes(
			attribute.String("pipeline.subject", subject),
			attribute.String("pipeline.stage", stage),
			attribute.Int("pipeline.cycle", cycle),
		),
	)
	if o.metrics != nil {
		o.metrics.RecordGauge(MetricCycle, float64(cycle), nil)
	}
	return ctx
}

// StageFinished ends the span started for ctx and records the stage time.
func (o *OTelStageObserver) StageFinished(ctx context.Context, _ string, stage string, cycle int, elapsed time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.SetAttributes(attribute.Int64("pipeline.elapsed_ms", elapsed.Milliseconds()))
	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if o.metrics == nil {
		return
	}
	labels := map[string]string{
		"stage":  stage,
		"status": status,
		"cycle":  strconv.Itoa(cycle),
	}
	o.metrics.RecordLatency(MetricStageDuration, elapsed, labels)
	if err != nil {
		o.metrics.RecordCounter(MetricStageErrors, 1, labels)
	}
}
