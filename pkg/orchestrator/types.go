package orchestrator

import (
	"context"
	"errors"

	"github.com/harun/calendar-agent/pkg/planner"
	"github.com/harun/calendar-agent/pkg/toolexecutor"
)

// Terminal is the way a run ended.
type Terminal string

const (
	TerminalComplete  Terminal = "complete"  // Plan with no invocations
	TerminalAborted   Terminal = "aborted"   // Discovery, planning or validation failed
	TerminalExhausted Terminal = "exhausted" // Iteration limit reached
	TerminalCancelled Terminal = "cancelled" // Caller cancelled between iterations
)

// ErrInvalidLimit is returned when maxIterations is below one.
var ErrInvalidLimit = errors.New("max iterations must be at least 1")

// IterationRecord captures one round of invocations and their outcomes.
// Outcomes has the same length and order as Invocations.
type IterationRecord struct {
	Index       int                              `json:"index"`
	Invocations []toolexecutor.ToolInvocation    `json:"invocations"`
	Outcomes    []toolexecutor.InvocationOutcome `json:"outcomes"`
}

// Result is the outcome of RunRequest.
type Result struct {
	RunID   string            `json:"run_id"`
	Request string            `json:"request"`
	History []IterationRecord `json:"history"`
	// Terminal is always set.
	Terminal Terminal `json:"terminal"`
	// Reasoning is the rationale of the last accepted plan.
	Reasoning string `json:"reasoning"`
	// Reason is a human-readable explanation of Terminal.
	Reason string `json:"reason"`
	// Err is the underlying cause for aborted runs.
	Err error `json:"-"`
}

// Succeeded reports whether the run completed.
func (r *Result) Succeeded() bool {
	return r.Terminal == TerminalComplete
}

// PlanSource proposes and validates plans.
type PlanSource interface {
	Propose(ctx context.Context, promptContext string) (planner.RawPlan, error)
	Check(raw planner.RawPlan) (planner.Plan, error)
}

// ToolRunner executes a single invocation. It never returns an error; failures
// are carried in the outcome.
type ToolRunner interface {
	Execute(ctx context.Context, inv toolexecutor.ToolInvocation) toolexecutor.InvocationOutcome
}

// Catalog is the registry view the loop needs.
type Catalog interface {
	Len() int
}
