package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/namelens/sumlens/internal/observability"
)

const (
	incomingTraceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	incomingSpanID  = "00f067aa0ba902b7"
)

func setupTracing(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	prevProvider := otel.GetTracerProvider()
	prevPropagator := otel.GetTextMapPropagator()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
	})
	return recorder
}

func tracedRouter(seen *string) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Tracing)
	r.Get("/api/summarizer/summaries/{id}", func(w http.ResponseWriter, req *http.Request) {
		*seen = observability.TraceID(req.Context())
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/boom", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	return r
}

func TestTracingContinuesIncomingTraceparent(t *testing.T) {
	recorder := setupTracing(t)
	var seen string

	req := httptest.NewRequest(http.MethodGet, "/api/summarizer/summaries/42", nil)
	req.Header.Set("traceparent", "00-"+incomingTraceID+"-"+incomingSpanID+"-01")
	req.Header.Set(RequestIDHeader, "req-7")
	tracedRouter(&seen).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, incomingTraceID, seen)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	span := ended[0]
	assert.Equal(t, "GET /api/summarizer/summaries/{id}", span.Name())
	assert.Equal(t, trace.SpanKindServer, span.SpanKind())
	assert.Equal(t, incomingTraceID, span.SpanContext().TraceID().String())
	assert.Equal(t, incomingSpanID, span.Parent().SpanID().String())
	assert.True(t, span.Parent().IsRemote())
	assert.Contains(t, span.Attributes(), attribute.String("request.id", "req-7"))
	assert.Contains(t, span.Attributes(), attribute.Int("http.response.status_code", http.StatusOK))
}

func TestTracingStartsNewTraceWithoutHeader(t *testing.T) {
	recorder := setupTracing(t)
	var seen string

	tracedRouter(&seen).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/summarizer/summaries/1", nil))

	require.Len(t, seen, 32)
	assert.NotEqual(t, incomingTraceID, seen)
	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.False(t, ended[0].Parent().IsValid())
}

func TestTracingMarksServerErrors(t *testing.T) {
	recorder := setupTracing(t)
	var seen string

	tracedRouter(&seen).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "GET /boom", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
}
