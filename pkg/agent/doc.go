// Package agent wraps LLM chat backends behind a single structured-completion call.
//
// Invariants:
// - A backend returns the raw JSON text of one object matching the requested schema.
// - Backends never interpret the object; decoding and validation belong to the planner.
// - Retryable transport failures are retried with exponential backoff by RetryingBackend.
//
// Usage:
//
//	backend, _ := (&agent.ProviderFactory{}).NewBackend(agent.AuthProfile{
//		Provider: "openai",
//		APIKey:   os.Getenv("OPENAI_API_KEY"),
//	})
//	resp, _ := backend.Complete(ctx, agent.CompletionRequest{
//		SystemInstructions: "...",
//		UserMessage:        "User request: ...",
//		Model:              "gpt-5-mini",
//		OutputSchema:       schema,
//		SchemaName:         "plan",
//	})
//	_ = resp.Text
package agent
