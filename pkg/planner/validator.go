package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/harun/calendar-agent/pkg/toolexecutor"
)

var (
	// ErrBackend wraps completion failures, including timeouts.
	ErrBackend = errors.New("planner backend failed")
	// ErrMalformedOutput is returned when the backend reply is not a JSON object.
	ErrMalformedOutput = errors.New("planner output is not a JSON object")
	// ErrPlanInvalid is matched by every *ValidationError.
	ErrPlanInvalid = errors.New("invalid plan")
)

// ValidationReason identifies why a plan was rejected.
type ValidationReason string

const (
	ReasonMissingFunctionCalls ValidationReason = "missing_function_calls"
	ReasonMissingReasoning     ValidationReason = "missing_reasoning"
	ReasonFunctionCallsNotList ValidationReason = "function_calls_not_list"
	ReasonReasoningNotString   ValidationReason = "reasoning_not_string"
	ReasonCallNotObject        ValidationReason = "call_not_object"
	ReasonMissingName          ValidationReason = "missing_name"
	ReasonMissingArguments     ValidationReason = "missing_arguments"
	ReasonNameNotString        ValidationReason = "name_not_string"
	ReasonUnknownTool          ValidationReason = "unknown_tool"
	ReasonArgumentsNotObject   ValidationReason = "arguments_not_object"
	ReasonArgumentsSchema      ValidationReason = "arguments_schema"
)

// ValidationError describes a rejected plan. Index is the offending
// function_calls entry, or -1 for top-level problems.
type ValidationError struct {
	Reason ValidationReason
	Index  int
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid plan: function_calls[%d]: %s (%s)", e.Index, e.Detail, e.Reason)
	}
	return fmt.Sprintf("invalid plan: %s (%s)", e.Detail, e.Reason)
}

// Is makes errors.Is(err, ErrPlanInvalid) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrPlanInvalid
}

func reject(reason ValidationReason, index int, format string, args ...interface{}) error {
	return &ValidationError{Reason: reason, Index: index, Detail: fmt.Sprintf(format, args...)}
}

// Decode parses backend text into a RawPlan.
func Decode(text string) (RawPlan, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrMalformedOutput)
	}

	var v interface{}
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: got JSON %T", ErrMalformedOutput, v)
	}
	return RawPlan(obj), nil
}

// Validate checks raw against catalog and returns the typed plan. It has no
// side effects. With strict set, arguments are also checked against each
// tool's input schema.
func Validate(raw RawPlan, catalog ToolCatalog, strict bool) (Plan, error) {
	callsValue, ok := raw[FieldFunctionCalls]
	if !ok {
		return Plan{}, reject(ReasonMissingFunctionCalls, -1, "missing required field: %s", FieldFunctionCalls)
	}
	reasoningValue, ok := raw[FieldReasoning]
	if !ok {
		return Plan{}, reject(ReasonMissingReasoning, -1, "missing required field: %s", FieldReasoning)
	}

	calls, ok := callsValue.([]interface{})
	if !ok {
		return Plan{}, reject(ReasonFunctionCallsNotList, -1, "%s must be a list, got %s", FieldFunctionCalls, jsonKind(callsValue))
	}
	reasoning, ok := reasoningValue.(string)
	if !ok {
		return Plan{}, reject(ReasonReasoningNotString, -1, "%s must be a string, got %s", FieldReasoning, jsonKind(reasoningValue))
	}

	plan := Plan{
		Invocations: make([]toolexecutor.ToolInvocation, 0, len(calls)),
		Reasoning:   reasoning,
	}

	for i, entry := range calls {
		call, ok := entry.(map[string]interface{})
		if !ok {
			return Plan{}, reject(ReasonCallNotObject, i, "must be an object, got %s", jsonKind(entry))
		}

		nameValue, ok := call[FieldName]
		if !ok {
			return Plan{}, reject(ReasonMissingName, i, "missing required field: %s", FieldName)
		}
		argsValue, ok := call[FieldArguments]
		if !ok {
			return Plan{}, reject(ReasonMissingArguments, i, "missing required field: %s", FieldArguments)
		}

		name, ok := nameValue.(string)
		if !ok {
			return Plan{}, reject(ReasonNameNotString, i, "%s must be a string, got %s", FieldName, jsonKind(nameValue))
		}
		if !catalog.IsKnown(name) {
			return Plan{}, reject(ReasonUnknownTool, i, "unknown function: %s", name)
		}

		args, ok := argsValue.(map[string]interface{})
		if !ok {
			return Plan{}, reject(ReasonArgumentsNotObject, i, "%s must be an object, got %s", FieldArguments, jsonKind(argsValue))
		}
		if strict {
			if err := catalog.ValidateArguments(name, args); err != nil {
				return Plan{}, reject(ReasonArgumentsSchema, i, "arguments for %s: %v", name, err)
			}
		}

		plan.Invocations = append(plan.Invocations, toolexecutor.ToolInvocation{
			Name:      name,
			Arguments: args,
		})
	}

	return plan, nil
}

func jsonKind(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
