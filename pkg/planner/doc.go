// Package planner turns a prompt context into a validated execution plan.
//
// A Planner makes exactly one structured completion call per Propose and
// fails fast when the reply is not a JSON object. Validate is a pure check of
// the decoded object against the current tool catalog; every rejection carries
// a distinguishable ValidationReason.
//
// Usage:
//
//	p, _ := planner.New(planner.Config{Backend: backend, Catalog: registry, Model: "gpt-5-mini"})
//	raw, err := p.Propose(ctx, "User wants to see today's events")
//	plan, err := p.Check(raw)
//	if plan.IsComplete() {
//		fmt.Println(plan.Reasoning)
//	}
package planner
