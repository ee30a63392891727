package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewRunContext(t *testing.T) {
	ctx := NewRunContext(context.Background())

	assert.NotEmpty(t, GetTraceID(ctx))
	assert.NotEmpty(t, GetRunID(ctx))
	assert.Len(t, GetRunID(ctx), 36)
}

func TestNewRunContextKeepsTraceID(t *testing.T) {
	ctx := WithTraceID(context.Background(), "trace-1")

	first := NewRunContext(ctx)
	second := NewRunContext(ctx)

	assert.Equal(t, "trace-1", GetTraceID(first))
	assert.Equal(t, "trace-1", GetTraceID(second))
	assert.NotEqual(t, GetRunID(first), GetRunID(second))
}

func TestGettersOnEmptyContext(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetRunID(ctx))
	assert.Zero(t, GetIteration(ctx))
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithRunID(context.Background(), "run-42")
	ctx = WithIteration(ctx, 3)

	logger := LoggerFromContext(ctx, base)
	logger.Info().Msg("hello")

	out := buf.String()
	assert.Contains(t, out, `"run_id":"run-42"`)
	assert.Contains(t, out, `"iteration":3`)
	assert.NotContains(t, out, "trace_id")
}

func TestStartSpanWithoutProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test", "op")
	defer span.End()

	assert.NotNil(t, ctx)
	assert.NotNil(t, span)
}
