package orchestrator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// NextStepInstruction closes every context rendered from a non-empty history.
const NextStepInstruction = "Based on these results, what should be done next to complete the user's request?\n" +
	"If the task is complete, return empty function_calls: []"

type renderedAction struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type renderedResult struct {
	Function  string                 `json:"function"`
	Arguments map[string]interface{} `json:"arguments"`
	Result    *string                `json:"result,omitempty"`
	Error     *string                `json:"error,omitempty"`
	Success   bool                   `json:"success"`
}

// RenderContext builds the prompt context from the original request and the
// history. It is a pure function of its inputs. With no history the request
// is returned unchanged.
func RenderContext(request string, history []IterationRecord) string {
	if len(history) == 0 {
		return request
	}

	blocks := make([]string, len(history))
	for i, rec := range history {
		blocks[i] = renderRecord(rec)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Original user request: %s\n\n", request)
	b.WriteString("Previous actions and results:\n")
	b.WriteString(strings.Join(blocks, "\n\n"))
	b.WriteString("\n\n")
	b.WriteString(NextStepInstruction)
	return b.String()
}

func renderRecord(rec IterationRecord) string {
	actions := make([]renderedAction, len(rec.Invocations))
	for i, inv := range rec.Invocations {
		actions[i] = renderedAction{Name: inv.Name, Arguments: nonNilArgs(inv.Arguments)}
	}

	results := make([]renderedResult, len(rec.Outcomes))
	for i, out := range rec.Outcomes {
		r := renderedResult{
			Function:  out.Invocation.Name,
			Arguments: nonNilArgs(out.Invocation.Arguments),
			Success:   out.Succeeded,
		}
		if out.Succeeded {
			text := out.Result
			r.Result = &text
		} else {
			text := out.Error
			r.Error = &text
		}
		results[i] = r
	}

	return fmt.Sprintf("Iteration %d:\nActions taken: %s\nResults: %s", rec.Index, encodeIndented(actions), encodeIndented(results))
}

func nonNilArgs(args map[string]interface{}) map[string]interface{} {
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// encodeIndented is json.MarshalIndent without HTML escaping.
func encodeIndented(v interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimRight(buf.String(), "\n")
}
