package planner

import (
	"fmt"
	"strings"
)

const noToolNames = "loading..."

// BuildSystemInstructions renders the system instructions for the current catalog.
func BuildSystemInstructions(catalog ToolCatalog) string {
	catalogText := catalog.CatalogText()
	names := noToolNames
	if n := catalog.Names(); len(n) > 0 {
		names = strings.Join(n, ", ")
	}

	var b strings.Builder
	b.WriteString("## Task\n\n")
	b.WriteString("You manage a Google Calendar on behalf of a user. Carry out the user's latest request.\n\n")

	b.WriteString("## Context\n\n")
	b.WriteString("Available calendar functions:\n")
	b.WriteString(catalogText)
	b.WriteString("\n\n")

	b.WriteString("## Workflow\n\n")
	b.WriteString("1. Analyze the user request and the current context\n")
	b.WriteString("2. Decide which functions to call\n")
	b.WriteString("3. After execution you will receive the results\n")
	b.WriteString("4. Based on the results, decide whether more actions are needed\n")
	b.WriteString("5. If no further action is needed, return an empty function_calls list\n\n")

	b.WriteString("## Output Format\n\n")
	b.WriteString("Reply with a single JSON object with exactly these fields:\n")
	b.WriteString("{\n")
	b.WriteString("  \"function_calls\": [\n")
	b.WriteString("    {\"name\": \"...\", \"arguments\": {...}},\n")
	b.WriteString("    ...\n")
	b.WriteString("  ],\n")
	b.WriteString("  \"reasoning\": \"...\"\n")
	b.WriteString("}\n\n")
	fmt.Fprintf(&b, "Each entry of \"function_calls\" has a \"name\" (one of: %s) ", names)
	b.WriteString("and \"arguments\", an object of named arguments. Use the proper JSON type for every argument.\n")
	b.WriteString("\"reasoning\" briefly explains why these functions and arguments were chosen.\n")
	b.WriteString("If no further action is needed, return an empty function_calls list.")

	return b.String()
}
