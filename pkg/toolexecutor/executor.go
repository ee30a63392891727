package toolexecutor

import (
	"context"
	"fmt"
	"time"

	"github.com/harun/calendar-agent/internal/metrics"
	"github.com/harun/calendar-agent/internal/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ExecutorConfig configures an Executor.
type ExecutorConfig struct {
	Provider ToolProvider
	Logger   zerolog.Logger
	// Timeout bounds a single tool call. Zero means no per-call bound.
	Timeout time.Duration
}

// Executor runs tool invocations against a provider, one at a time.
type Executor struct {
	provider ToolProvider
	logger   zerolog.Logger
	timeout  time.Duration
}

// NewExecutor creates a new executor
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("tool provider is required")
	}
	return &Executor{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		timeout:  cfg.Timeout,
	}, nil
}

// Execute calls the named tool and folds any failure into the outcome.
// It blocks until the provider answers, the timeout fires, or ctx is done.
func (e *Executor) Execute(ctx context.Context, inv ToolInvocation) InvocationOutcome {
	ctx, span := tracing.StartSpan(ctx, "calendar-agent.toolexecutor", "tool.execute",
		attribute.String("tool", inv.Name),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, e.logger).With().Str("tool", inv.Name).Logger()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	outcome := e.call(ctx, inv)
	outcome.Duration = time.Since(start)

	metrics.RecordToolExecution(inv.Name, outcome.Succeeded, outcome.Duration)
	if outcome.Succeeded {
		logger.Debug().Dur("duration", outcome.Duration).Msg("Tool call succeeded")
	} else {
		span.SetStatus(codes.Error, outcome.Error)
		logger.Warn().Str("error", outcome.Error).Dur("duration", outcome.Duration).Msg("Tool call failed")
	}

	return outcome
}

func (e *Executor) call(ctx context.Context, inv ToolInvocation) (outcome InvocationOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = failedOutcome(inv, fmt.Sprintf("failed to call tool '%s': panic: %v", inv.Name, r))
		}
	}()

	args := inv.Arguments
	if args == nil {
		args = map[string]interface{}{}
	}

	raw, err := e.provider.CallTool(ctx, inv.Name, args)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return failedOutcome(inv, fmt.Sprintf("failed to call tool '%s': timed out after %s: %v", inv.Name, e.timeout, err))
		}
		return failedOutcome(inv, fmt.Sprintf("failed to call tool '%s': %v", inv.Name, err))
	}

	res := normalizeResult(raw)
	if res.isError {
		msg := res.text
		if msg == "" {
			msg = "tool reported an error"
		}
		return failedOutcome(inv, fmt.Sprintf("tool '%s' returned an error: %s", inv.Name, msg))
	}
	return succeededOutcome(inv, res.text)
}
