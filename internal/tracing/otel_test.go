package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitOpenTelemetry_StdoutExporter(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	require.NoError(t, InitOpenTelemetry(ctx, Options{
		ServiceName: "calendar-agent-test",
		Exporter:    ExporterStdout,
		Writer:      &buf,
	}))
	// A second call keeps the first provider.
	require.NoError(t, InitOpenTelemetry(ctx, Options{Exporter: "bogus"}))

	spanCtx, span := StartSpan(ctx, "test", "orchestrator.run", attribute.String("terminal", "complete"))
	assert.NotEmpty(t, GetTraceID(spanCtx))
	span.End()

	require.NoError(t, ShutdownOpenTelemetry(ctx))

	out := buf.String()
	assert.Contains(t, out, "orchestrator.run")
	assert.Contains(t, out, "calendar-agent-test")
	assert.Contains(t, out, GetTraceID(spanCtx))
}

func TestInitOpenTelemetry_Errors(t *testing.T) {
	ctx := context.Background()

	err := InitOpenTelemetry(ctx, Options{ServiceName: "x", Exporter: "zipkin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported trace exporter")

	err = InitOpenTelemetry(ctx, Options{ServiceName: "x", Exporter: ExporterOTLP})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OTLP endpoint is required")
}

func TestShutdownWithoutProvider(t *testing.T) {
	assert.NoError(t, ShutdownOpenTelemetry(context.Background()))
}
