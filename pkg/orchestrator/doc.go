// Package orchestrator drives the plan, validate, execute, accumulate loop for
// one user request.
//
// Invariants:
// - Iterations run strictly in sequence; invocations within an iteration run one at a time, in plan order.
// - Iteration records are appended once and never mutated.
// - The prompt context of every iteration is rendered from the original request and the history alone.
// - Cancellation is checked before every planning phase.
// - Every run ends in exactly one terminal state and always returns the history recorded so far.
//
// Usage:
//
//	o, _ := orchestrator.New(plnr, executor, registry, orchestrator.WithLogger(logger))
//	result, err := o.RunRequest(ctx, "Move my 3pm meeting to Friday", 5)
//	switch result.Terminal {
//	case orchestrator.TerminalComplete:
//		fmt.Println(result.Reasoning)
//	case orchestrator.TerminalExhausted:
//		fmt.Println(result.Reason)
//	}
package orchestrator
