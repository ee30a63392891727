package tracing

import (
	"context"

	"github.com/rs/zerolog"
)

// LoggerFromContext adds the tracing fields found in ctx to baseLogger.
func LoggerFromContext(ctx context.Context, baseLogger zerolog.Logger) zerolog.Logger {
	logger := baseLogger
	if traceID := GetTraceID(ctx); traceID != "" {
		logger = logger.With().Str("trace_id", traceID).Logger()
	}
	if runID := GetRunID(ctx); runID != "" {
		logger = logger.With().Str("run_id", runID).Logger()
	}
	if iteration := GetIteration(ctx); iteration > 0 {
		logger = logger.With().Int("iteration", iteration).Logger()
	}
	return logger
}
