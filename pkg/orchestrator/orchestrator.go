package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harun/calendar-agent/internal/metrics"
	"github.com/harun/calendar-agent/internal/tracing"
	"github.com/harun/calendar-agent/pkg/toolexecutor"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Orchestrator runs user requests against one tool registry snapshot.
// It holds no per-run state; every RunRequest owns its own history.
type Orchestrator struct {
	planner  PlanSource
	executor ToolRunner
	catalog  Catalog
	observer Observer
	logger   zerolog.Logger
}

// Option is a functional option for configuring the Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the logger for the orchestrator
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithObserver sets the observer notified of loop events
func WithObserver(observer Observer) Option {
	return func(o *Orchestrator) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// New creates a new Orchestrator instance
func New(planner PlanSource, executor ToolRunner, catalog Catalog, opts ...Option) (*Orchestrator, error) {
	if planner == nil {
		return nil, fmt.Errorf("planner is required")
	}
	if executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("tool catalog is required")
	}

	o := &Orchestrator{
		planner:  planner,
		executor: executor,
		catalog:  catalog,
		observer: NopObserver{},
		logger:   zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o, nil
}

// RunRequest drives the loop for userText until the planner returns an empty
// plan, planning or validation fails, maxIterations records have been made,
// or ctx is cancelled. The result is never nil. The returned error is set
// only for aborted runs and equals result.Err.
func (o *Orchestrator) RunRequest(ctx context.Context, userText string, maxIterations int) (*Result, error) {
	ctx = tracing.NewRunContext(ctx)
	ctx, span := tracing.StartSpan(ctx, "calendar-agent.orchestrator", "orchestrator.run",
		attribute.Int("max_iterations", maxIterations),
	)
	defer span.End()

	start := time.Now()
	result := &Result{
		RunID:   tracing.GetRunID(ctx),
		Request: userText,
		History: []IterationRecord{},
	}
	logger := tracing.LoggerFromContext(ctx, o.logger)
	logger.Info().Int("max_iterations", maxIterations).Msg("Run started")

	o.loop(ctx, result, maxIterations)

	elapsed := time.Since(start)
	metrics.RecordRun(string(result.Terminal), len(result.History), elapsed)
	span.SetAttributes(
		attribute.String("terminal", string(result.Terminal)),
		attribute.Int("iterations", len(result.History)),
	)

	event := logger.Info()
	if result.Terminal != TerminalComplete {
		event = logger.Warn()
	}
	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Reason)
		event = logger.Error().Err(result.Err)
	}
	event.
		Str("terminal", string(result.Terminal)).
		Str("reason", result.Reason).
		Int("iterations", len(result.History)).
		Dur("duration", elapsed).
		Msg("Run finished")

	o.observer.OnFinish(result)

	if result.Terminal == TerminalAborted {
		return result, result.Err
	}
	return result, nil
}

// loop runs the state machine and sets the terminal fields of result.
func (o *Orchestrator) loop(ctx context.Context, result *Result, maxIterations int) {
	if maxIterations < 1 {
		markAborted(result, ErrInvalidLimit, fmt.Sprintf("invalid iteration limit %d", maxIterations))
		return
	}
	if o.catalog.Len() == 0 {
		markAborted(result, toolexecutor.ErrNoTools, "no tools discovered from tool provider; cannot plan")
		return
	}

	for index := 1; index <= maxIterations; index++ {
		if err := ctx.Err(); err != nil {
			markCancelled(result, index)
			return
		}

		iterCtx := tracing.WithIteration(ctx, index)
		logger := tracing.LoggerFromContext(iterCtx, o.logger)
		o.observer.OnIterationStart(index, maxIterations)

		// PLANNING
		promptContext := RenderContext(result.Request, result.History)
		raw, err := o.planner.Propose(iterCtx, promptContext)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				markCancelled(result, index)
				return
			}
			markAborted(result, err, fmt.Sprintf("planning failed in iteration %d: %v", index, err))
			return
		}

		// VALIDATING
		plan, err := o.planner.Check(raw)
		if err != nil {
			markAborted(result, err, fmt.Sprintf("plan rejected in iteration %d: %v", index, err))
			return
		}
		result.Reasoning = plan.Reasoning
		o.observer.OnPlan(index, plan)

		if plan.IsComplete() {
			result.Terminal = TerminalComplete
			result.Reason = "task complete"
			return
		}

		// EXECUTING
		logger.Debug().Int("invocations", len(plan.Invocations)).Msg("Executing plan")
		record := IterationRecord{
			Index:       index,
			Invocations: make([]toolexecutor.ToolInvocation, 0, len(plan.Invocations)),
			Outcomes:    make([]toolexecutor.InvocationOutcome, 0, len(plan.Invocations)),
		}
		for _, inv := range plan.Invocations {
			inv.ID = newInvocationID()
			outcome := o.executor.Execute(iterCtx, inv)
			outcome.Invocation = inv
			record.Invocations = append(record.Invocations, inv)
			record.Outcomes = append(record.Outcomes, outcome)
			o.observer.OnOutcome(index, outcome)
		}

		// ACCUMULATING
		result.History = append(result.History, record)
	}

	result.Terminal = TerminalExhausted
	result.Reason = fmt.Sprintf("reached maximum iterations (%d) without completing the request", maxIterations)
}

func markAborted(result *Result, err error, reason string) {
	result.Terminal = TerminalAborted
	result.Err = err
	result.Reason = reason
}

func markCancelled(result *Result, index int) {
	result.Terminal = TerminalCancelled
	result.Reason = fmt.Sprintf("cancelled before iteration %d", index)
}

func newInvocationID() string {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Sprintf("inv-%d", time.Now().UnixNano())
	}
	return id
}
