package toolexecutor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
)

// ErrNoTools is returned when discovery yields zero usable tools.
var ErrNoTools = errors.New("no tools available from tool provider")

// CatalogPlaceholder is rendered by CatalogText when the registry is empty.
const CatalogPlaceholder = "Loading tools from MCP server..."

// Registry holds the tools discovered for one run, in discovery order.
type Registry struct {
	tools    []ToolDescriptor
	index    map[string]int
	schemas  map[string]*gojsonschema.Schema
	warnings []string
}

// NewRegistry builds a registry from already-normalized descriptors.
// Entries with an empty name or a duplicate name are skipped and recorded as warnings.
func NewRegistry(descriptors ...ToolDescriptor) *Registry {
	r := &Registry{
		index:   make(map[string]int),
		schemas: make(map[string]*gojsonschema.Schema),
	}
	for _, d := range descriptors {
		r.add(d)
	}
	return r
}

// Discover queries the provider once and normalizes its listing into a Registry.
// Entries that cannot be parsed are skipped with a warning. If nothing usable is
// found, the (empty) registry is returned together with ErrNoTools.
func Discover(ctx context.Context, provider ToolProvider, logger zerolog.Logger) (*Registry, error) {
	if provider == nil {
		return nil, fmt.Errorf("tool provider is required")
	}

	listing, err := provider.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	descriptors, warnings := normalizeListing(listing)
	r := NewRegistry(descriptors...)
	r.warnings = append(warnings, r.warnings...)

	for _, w := range r.warnings {
		logger.Warn().Str("warning", w).Msg("Skipped tool entry during discovery")
	}

	if r.Len() == 0 {
		return r, ErrNoTools
	}

	logger.Info().Int("count", r.Len()).Strs("tools", r.Names()).Msg("Discovered tools")
	return r, nil
}

func (r *Registry) add(d ToolDescriptor) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		r.warnings = append(r.warnings, "tool entry has an empty name")
		return
	}
	if _, exists := r.index[name]; exists {
		r.warnings = append(r.warnings, fmt.Sprintf("duplicate tool name %q", name))
		return
	}
	d.Name = name

	if len(d.InputSchema) > 0 {
		schema, err := compileSchema(d.InputSchema)
		if err != nil {
			r.warnings = append(r.warnings, fmt.Sprintf("tool %q has an unusable input schema: %v", name, err))
		} else {
			r.schemas[name] = schema
		}
	}

	r.index[name] = len(r.tools)
	r.tools = append(r.tools, d)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.tools)
}

// IsKnown reports whether a tool with this name was discovered.
func (r *Registry) IsKnown(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.index[name]
	return ok
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (ToolDescriptor, bool) {
	if r == nil {
		return ToolDescriptor{}, false
	}
	i, ok := r.index[name]
	if !ok {
		return ToolDescriptor{}, false
	}
	return r.tools[i], true
}

// Names returns tool names in discovery order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Name
	}
	return names
}

// Tools returns a copy of the descriptors in discovery order.
func (r *Registry) Tools() []ToolDescriptor {
	if r == nil {
		return nil
	}
	out := make([]ToolDescriptor, len(r.tools))
	copy(out, r.tools)
	return out
}

// Warnings returns the messages recorded for skipped entries.
func (r *Registry) Warnings() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.warnings))
	copy(out, r.warnings)
	return out
}

// CatalogText renders one "- name: description" line per tool.
func (r *Registry) CatalogText() string {
	if r.Len() == 0 {
		return CatalogPlaceholder
	}
	lines := make([]string, len(r.tools))
	for i, t := range r.tools {
		lines[i] = fmt.Sprintf("- %s: %s", t.Name, oneLine(t.Description))
	}
	return strings.Join(lines, "\n")
}

// ValidateArguments checks arguments against the tool's input schema.
// Tools discovered without a schema accept anything.
func (r *Registry) ValidateArguments(name string, arguments map[string]interface{}) error {
	if r == nil {
		return nil
	}
	return validateArguments(r.schemas[name], arguments)
}

// oneLine keeps each catalog entry on a single line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
