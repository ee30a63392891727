package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/harun/calendar-agent/pkg/orchestrator"
	"github.com/harun/calendar-agent/pkg/planner"
	"github.com/harun/calendar-agent/pkg/toolexecutor"
)

var rule = strings.Repeat("=", 70)

// consoleRenderer prints loop progress for a human at a terminal.
type consoleRenderer struct {
	out           io.Writer
	maxIterations int

	banner  *color.Color
	heading *color.Color
	success *color.Color
	failure *color.Color
	warning *color.Color
}

func newConsoleRenderer(out io.Writer) *consoleRenderer {
	return &consoleRenderer{
		out:     out,
		banner:  color.New(color.FgCyan, color.Bold),
		heading: color.New(color.Bold),
		success: color.New(color.FgGreen, color.Bold),
		failure: color.New(color.FgRed, color.Bold),
		warning: color.New(color.FgYellow, color.Bold),
	}
}

func (r *consoleRenderer) OnIterationStart(index, maxIterations int) {
	r.maxIterations = maxIterations
	fmt.Fprintf(r.out, "\n%s\n", rule)
	r.banner.Fprintf(r.out, "ITERATION %d/%d", index, maxIterations)
	fmt.Fprintf(r.out, "\n%s\n\n", rule)
}

func (r *consoleRenderer) OnPlan(index int, plan planner.Plan) {
	if plan.Reasoning != "" {
		r.heading.Fprintln(r.out, "REASONING:")
		fmt.Fprintf(r.out, "   %s\n\n", plan.Reasoning)
	}

	if plan.IsComplete() {
		r.success.Fprintln(r.out, "AGENT COMPLETED THE TASK")
		fmt.Fprintln(r.out)
		return
	}

	r.heading.Fprintln(r.out, "ACTION:")
	for i, inv := range plan.Invocations {
		if len(plan.Invocations) > 1 {
			fmt.Fprintf(r.out, "   Function Call %d:\n", i+1)
		}
		fmt.Fprintf(r.out, "   Function: %s\n", inv.Name)
		fmt.Fprintf(r.out, "   Arguments: %s\n", prettyJSON(inv.Arguments, "   "))
	}
	fmt.Fprintln(r.out)
}

func (r *consoleRenderer) OnOutcome(index int, outcome toolexecutor.InvocationOutcome) {
	if !outcome.Succeeded {
		r.failure.Fprint(r.out, "ERROR: ")
		fmt.Fprintf(r.out, "%s\n\n", outcome.Error)
		return
	}
	r.success.Fprintln(r.out, "RESULT:")
	fmt.Fprintf(r.out, "   %s\n\n", indentResult(outcome.Result))
}

func (r *consoleRenderer) OnFinish(result *orchestrator.Result) {
	switch result.Terminal {
	case orchestrator.TerminalExhausted:
		r.warning.Fprintf(r.out, "Warning: Reached maximum iterations (%d)\n\n", r.maxIterations)
	case orchestrator.TerminalAborted:
		r.failure.Fprint(r.out, "ERROR: ")
		fmt.Fprintf(r.out, "%s\n\n", result.Reason)
	case orchestrator.TerminalCancelled:
		r.warning.Fprintf(r.out, "Cancelled: %s\n\n", result.Reason)
	}
}

// prettyJSON renders v indented, with continuation lines shifted by prefix.
func prettyJSON(v interface{}, prefix string) string {
	if v == nil {
		v = map[string]interface{}{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(prefix, "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// indentResult pretty-prints JSON results and leaves plain text alone.
func indentResult(result string) string {
	var v interface{}
	if err := json.Unmarshal([]byte(result), &v); err == nil {
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			return prettyJSON(v, "   ")
		}
	}
	return strings.ReplaceAll(result, "\n", "\n   ")
}
