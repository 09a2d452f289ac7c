package observability

import (
	"context"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Observability bundles the otel meter and tracer used around pipeline runs.
// A zero value is safe to use and records nothing.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	runCounter     otelmetric.Int64Counter
	stageDuration  otelmetric.Float64Histogram
}

type options struct {
	registerer promclient.Registerer
	processors []sdktrace.SpanProcessor
}

type Option func(*options)

// WithRegisterer exports metrics to reg instead of the default Prometheus registry.
func WithRegisterer(reg promclient.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithSpanProcessor attaches a span processor (exporter or recorder) to the tracer provider.
func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(o *options) { o.processors = append(o.processors, sp) }
}

func New(serviceName string, opts ...Option) (*Observability, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	var exporterOpts []prometheus.Option
	if o.registerer != nil {
		exporterOpts = append(exporterOpts, prometheus.WithRegisterer(o.registerer))
	}
	exporter, err := prometheus.New(exporterOpts...)
	if err != nil {
		return &Observability{}, err
	}

	meterProvider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(meterProvider)
	meter := meterProvider.Meter(serviceName)

	var tpOpts []sdktrace.TracerProviderOption
	for _, sp := range o.processors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(sp))
	}
	tracerProvider := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tracerProvider)

	runCounter, _ := meter.Int64Counter(
		"itinerary.runs",
		otelmetric.WithDescription("Number of itinerary pipeline runs"),
	)
	stageDuration, _ := meter.Float64Histogram(
		"itinerary.stage.duration",
		otelmetric.WithDescription("Pipeline stage duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
		tracer:         tracerProvider.Tracer(serviceName),
		runCounter:     runCounter,
		stageDuration:  stageDuration,
	}, nil
}

func (o *Observability) RecordRun(ctx context.Context, status string) {
	if o.runCounter != nil {
		o.runCounter.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("status", status)))
	}
}

func (o *Observability) RecordStageDuration(ctx context.Context, stage string, d time.Duration, status string) {
	if o.stageDuration != nil {
		o.stageDuration.Record(ctx, float64(d.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("status", status),
		))
	}
}

// StartSpan opens a span named name. Without a tracer it returns a no-op span.
func (o *Observability) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if o.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return o.tracer.Start(ctx, name)
}

// StageStarted opens the per-stage span; it is the runner's observer hook.
func (o *Observability) StageStarted(ctx context.Context, stage string) context.Context {
	ctx, span := o.StartSpan(ctx, "pipeline.stage."+stage)
	span.SetAttributes(attribute.String("pipeline.stage", stage))
	return ctx
}

// StageFinished closes the span opened by StageStarted and records the duration.
func (o *Observability) StageFinished(ctx context.Context, stage string, elapsed time.Duration, err error) {
	status := "success"
	span := trace.SpanFromContext(ctx)
	if err != nil {
		status = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	o.RecordStageDuration(ctx, stage, elapsed, status)
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
}
