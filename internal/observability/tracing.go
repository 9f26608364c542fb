package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope for every span sumlens starts.
const TracerName = "github.com/namelens/sumlens"

// Trace exporters understood by InitTracing.
const (
	TraceExporterNone   = "none"
	TraceExporterStdout = "stdout"
)

// TracingOptions configures InitTracing.
type TracingOptions struct {
	Service string
	Version string
	// Exporter is TraceExporterNone (spans only feed trace ids into logs and
	// error envelopes) or TraceExporterStdout.
	Exporter string
	// SampleRatio applies to root spans; sampled remote parents are honored.
	SampleRatio float64
	// Writer receives stdout exporter output. Nil means os.Stderr.
	Writer io.Writer
	// SpanProcessors are registered in addition to the exporter.
	SpanProcessors []sdktrace.SpanProcessor
}

// InitTracing installs an SDK tracer provider and the W3C trace context
// propagator as the otel globals. The returned function flushes and shuts
// the provider down.
func InitTracing(opts TracingOptions) (func(context.Context) error, error) {
	ratio := opts.SampleRatio
	if ratio < 0 || ratio > 1 {
		return nil, fmt.Errorf("trace sample ratio must be within [0,1], got %v", ratio)
	}

	providerOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", opts.Service),
			attribute.String("service.version", opts.Version),
		)),
	}

	switch strings.ToLower(strings.TrimSpace(opts.Exporter)) {
	case "", TraceExporterNone:
	case TraceExporterStdout:
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}
		providerOpts = append(providerOpts, sdktrace.WithBatcher(exp))
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", opts.Exporter)
	}

	for _, sp := range opts.SpanProcessors {
		providerOpts = append(providerOpts, sdktrace.WithSpanProcessor(sp))
	}

	tp := sdktrace.NewTracerProvider(providerOpts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(Propagator())
	return tp.Shutdown, nil
}

// Propagator is the W3C traceparent plus baggage propagator sumlens
// speaks on inbound requests.
func Propagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
}

// Tracer returns the sumlens tracer from the global provider. Without an
// SDK provider installed the spans are no-ops.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan starts a span with the given attributes.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err (when non-nil) and ends the span.
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// TraceID returns the trace id of the span in ctx, or "" when ctx carries
// no valid span context.
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
