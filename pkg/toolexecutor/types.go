package toolexecutor

import (
	"context"
	"time"
)

// ToolProvider is the tool server boundary. Both methods return provider-native
// values; the registry and executor normalize the shapes they understand.
type ToolProvider interface {
	ListTools(ctx context.Context) (interface{}, error)
	CallTool(ctx context.Context, name string, arguments map[string]interface{}) (interface{}, error)
}

// ToolDescriptor describes one callable tool.
type ToolDescriptor struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema,omitempty"`
}

// ToolInvocation is a request to run one tool with named arguments.
type ToolInvocation struct {
	ID        string                 `json:"-"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// InvocationOutcome records the result of one invocation. Exactly one of
// Result and Error is meaningful, selected by Succeeded.
type InvocationOutcome struct {
	Invocation ToolInvocation
	Succeeded  bool
	Result     string
	Error      string
	Duration   time.Duration
}

func succeededOutcome(inv ToolInvocation, result string) InvocationOutcome {
	return InvocationOutcome{Invocation: inv, Succeeded: true, Result: result}
}

func failedOutcome(inv ToolInvocation, message string) InvocationOutcome {
	return InvocationOutcome{Invocation: inv, Succeeded: false, Error: message}
}
