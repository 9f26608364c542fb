package observability_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/namelens/sumlens/internal/observability"
)

func TestInitCLILogger(t *testing.T) {
	observability.InitCLILogger("sumlens-test", true)
	require.NotNil(t, observability.CLILogger)
	observability.CLILogger.Debug("cli logger ready", zap.String("test", "value"))
}

func TestNewServerLogger(t *testing.T) {
	t.Run("Structured", func(t *testing.T) {
		logger, err := observability.NewServerLogger(observability.ServerLoggerOptions{
			Service:   "sumlens-test",
			Level:     "debug",
			Profile:   "structured",
			Namespace: "sumlens",
		})
		require.NoError(t, err)
		logger.Info("structured message", zap.String("component", "test"))
	})

	t.Run("Simple", func(t *testing.T) {
		logger, err := observability.NewServerLogger(observability.ServerLoggerOptions{
			Service:     "sumlens-test",
			Level:       "warning",
			Profile:     "SIMPLE",
			Environment: "test",
		})
		require.NoError(t, err)
		logger.Warn("simple message")
	})

	t.Run("InitSetsGlobal", func(t *testing.T) {
		observability.InitServerLogger(observability.ServerLoggerOptions{Service: "sumlens-test"})
		require.NotNil(t, observability.ServerLogger)
	})
}

func TestCrucibleVersion(t *testing.T) {
	version := crucible.GetVersion()
	assert.NotEmpty(t, version.Gofulmen)
	assert.NotEmpty(t, version.Crucible)
}

func TestTraceID(t *testing.T) {
	assert.Empty(t, observability.TraceID(context.Background()))

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", observability.TraceID(ctx))
}

func TestStartSpanNoopProvider(t *testing.T) {
	ctx, span := observability.StartSpan(context.Background(), "test.span")
	require.NotNil(t, ctx)
	require.NotNil(t, span)
	observability.EndSpan(span, errors.New("boom"))
	observability.EndSpan(nil, nil)
}
