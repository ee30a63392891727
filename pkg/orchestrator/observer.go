package orchestrator

import (
	"github.com/harun/calendar-agent/pkg/planner"
	"github.com/harun/calendar-agent/pkg/toolexecutor"
)

// Observer receives loop events, for presentation. Calls happen on the
// goroutine running RunRequest.
type Observer interface {
	OnIterationStart(index, maxIterations int)
	OnPlan(index int, plan planner.Plan)
	OnOutcome(index int, outcome toolexecutor.InvocationOutcome)
	OnFinish(result *Result)
}

// NopObserver ignores every event. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) OnIterationStart(index, maxIterations int) {}
func (NopObserver) OnPlan(index int, plan planner.Plan) {}
func (NopObserver) OnOutcome(index int, outcome toolexecutor.InvocationOutcome) {}
func (NopObserver) OnFinish(result *Result) {}
