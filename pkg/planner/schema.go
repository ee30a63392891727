package planner

// Field names of the plan object.
const (
	FieldFunctionCalls = "function_calls"
	FieldReasoning     = "reasoning"
	FieldName          = "name"
	FieldArguments     = "arguments"
)

// SchemaName names the structured output format sent to the backend.
const SchemaName = "calendar_plan"

// OutputSchema returns the JSON schema of the plan object. A fresh map is
// returned on every call.
func OutputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			FieldFunctionCalls: map[string]interface{}{
				"type":        "array",
				"description": "Function calls to execute, in order. Empty when the request is complete.",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						FieldName: map[string]interface{}{
							"type":        "string",
							"description": "Name of one of the available functions.",
						},
						FieldArguments: map[string]interface{}{
							"type":        "object",
							"description": "Named arguments for the function.",
						},
					},
					"required": []interface{}{FieldName, FieldArguments},
				},
			},
			FieldReasoning: map[string]interface{}{
				"type":        "string",
				"description": "Brief explanation of the selected calls, or why none are needed.",
			},
		},
		"required":             []interface{}{FieldFunctionCalls, FieldReasoning},
		"additionalProperties": false,
	}
}
