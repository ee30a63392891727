// Package toolexecutor discovers tools from a tool provider and executes them.
//
// Invariants:
// - Tool names are unique within a Registry; later duplicates are skipped with a warning.
// - A Registry is built once per run and never mutated afterwards.
// - Execute never returns an error: provider failures become failed InvocationOutcomes.
//
// Usage:
//
//	reg, err := toolexecutor.Discover(ctx, provider, logger)
//	if errors.Is(err, toolexecutor.ErrNoTools) {
//		// nothing to plan with
//	}
//	exec, _ := toolexecutor.NewExecutor(toolexecutor.ExecutorConfig{Provider: provider})
//	outcome := exec.Execute(ctx, toolexecutor.ToolInvocation{Name: "list_events", Arguments: args})
//	_ = outcome
package toolexecutor
