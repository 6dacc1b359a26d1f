// Package observability wires OpenTelemetry tracing and metrics into the
// notification flow.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/kart-io/buildnotify/pkg/config"
)

const instrumentationName = "github.com/kart-io/buildnotify"

// TelemetryProvider provides observability features
type TelemetryProvider struct {
	tracer        trace.Tracer
	meter         metric.Meter
	traceProvider *sdktrace.TracerProvider

	messagesSent   metric.Int64Counter
	messagesFailed metric.Int64Counter
	buildsSkipped  metric.Int64Counter
	sendDuration   metric.Float64Histogram
}

// NewTelemetryProvider creates a telemetry provider. When cfg is nil or
// disabled the global (normally no-op) providers are used.
func NewTelemetryProvider(cfg *config.TelemetryConfig) (*TelemetryProvider, error) {
	if cfg == nil || !cfg.Enabled {
		return NewTelemetryProviderFrom(otel.GetTracerProvider(), otel.GetMeterProvider())
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %v", err)
	}

	clientOpts := []otlptracehttp.Option{otlptracehttp.WithHeaders(cfg.OTLPHeaders)}
	if cfg.OTLPEndpoint != "" {
		clientOpts = append(clientOpts, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
	}
	exporter, err := otlptrace.New(context.Background(), otlptracehttp.NewClient(clientOpts...))
	if err != nil {
		return nil, fmt.Errorf("create exporter: %v", err)
	}

	sdkProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	)
	otel.SetTracerProvider(sdkProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	tp, err := NewTelemetryProviderFrom(sdkProvider, otel.GetMeterProvider())
	if err != nil {
		_ = sdkProvider.Shutdown(context.Background())
		return nil, err
	}
	tp.traceProvider = sdkProvider
	return tp, nil
}

// NewTelemetryProviderFrom builds a provider on explicit tracer and meter
// providers.
func NewTelemetryProviderFrom(tracerProvider trace.TracerProvider, meterProvider metric.MeterProvider) (*TelemetryProvider, error) {
	tp := &TelemetryProvider{
		tracer: tracerProvider.Tracer(instrumentationName, trace.WithSchemaURL(semconv.SchemaURL)),
		meter:  meterProvider.Meter(instrumentationName, metric.WithSchemaURL(semconv.SchemaURL)),
	}
	if err := tp.initMetrics(); err != nil {
		return nil, err
	}
	return tp, nil
}

func (tp *TelemetryProvider) initMetrics() error {
	var err error

	tp.messagesSent, err = tp.meter.Int64Counter(
		"buildnotify_messages_sent_total",
		metric.WithDescription("Total number of messages accepted by the gateway"),
	)
	if err != nil {
		return fmt.Errorf("create messages_sent counter: %v", err)
	}

	tp.messagesFailed, err = tp.meter.Int64Counter(
		"buildnotify_messages_failed_total",
		metric.WithDescription("Total number of messages that could not be delivered"),
	)
	if err != nil {
		return fmt.Errorf("create messages_failed counter: %v", err)
	}

	tp.buildsSkipped, err = tp.meter.Int64Counter(
		"buildnotify_builds_skipped_total",
		metric.WithDescription("Total number of build events the policy declined to notify"),
	)
	if err != nil {
		return fmt.Errorf("create builds_skipped counter: %v", err)
	}

	tp.sendDuration, err = tp.meter.Float64Histogram(
		"buildnotify_send_duration_seconds",
		metric.WithDescription("Duration of a single recipient dispatch"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create send_duration histogram: %v", err)
	}
	return nil
}

// TracePerform starts the span covering one build event.
func (tp *TelemetryProvider) TracePerform(ctx context.Context, invocationID string) (context.Context, trace.Span) {
	return tp.tracer.Start(ctx, "buildnotify.perform",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("buildnotify.invocation.id", invocationID)),
	)
}

// SetBuildAttributes tags span with the build identity
func (tp *TelemetryProvider) SetBuildAttributes(span trace.Span, project, build string) {
	span.SetAttributes(
		attribute.String("buildnotify.project", project),
		attribute.String("buildnotify.build", build),
	)
}

// TraceDispatch starts the span covering one recipient.
func (tp *TelemetryProvider) TraceDispatch(ctx context.Context, kind string) (context.Context, trace.Span) {
	return tp.tracer.Start(ctx, "buildnotify.dispatch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("buildnotify.recipient.kind", kind)),
	)
}

// RecordMessageSent records a successful dispatch
func (tp *TelemetryProvider) RecordMessageSent(ctx context.Context, kind string, duration time.Duration) {
	tp.messagesSent.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	tp.sendDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", "success"),
	))
}

// RecordMessageFailed records a failed dispatch
func (tp *TelemetryProvider) RecordMessageFailed(ctx context.Context, kind string, duration time.Duration, errorCode string) {
	tp.messagesFailed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("error_code", errorCode),
	))
	tp.sendDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", "error"),
	))
}

// RecordBuildSkipped records a build the policy declined
func (tp *TelemetryProvider) RecordBuildSkipped(ctx context.Context, reason string) {
	tp.buildsSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// SetSpanError sets an error on the span
func (tp *TelemetryProvider) SetSpanError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks the span as successful
func (tp *TelemetryProvider) SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// Shutdown flushes and stops the exporter, if one was created
func (tp *TelemetryProvider) Shutdown(ctx context.Context) error {
	if tp.traceProvider != nil {
		return tp.traceProvider.Shutdown(ctx)
	}
	return nil
}
