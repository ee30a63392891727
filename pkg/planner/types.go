package planner

import (
	"github.com/harun/calendar-agent/pkg/toolexecutor"
)

// RawPlan is the decoded, not yet validated, backend reply.
type RawPlan map[string]interface{}

// Plan is a validated execution plan.
type Plan struct {
	Invocations []toolexecutor.ToolInvocation `json:"function_calls"`
	Reasoning   string                        `json:"reasoning"`
}

// IsComplete reports whether the plan signals that no further action is needed.
func (p Plan) IsComplete() bool {
	return len(p.Invocations) == 0
}

// ToolCatalog is the view of the tool registry the planner needs.
type ToolCatalog interface {
	IsKnown(name string) bool
	Names() []string
	CatalogText() string
	ValidateArguments(name string, arguments map[string]interface{}) error
}
