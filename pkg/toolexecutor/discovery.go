package toolexecutor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"
)

// normalizeListing converts a provider-native tool listing into descriptors.
// Accepted shapes: an MCP ListToolsResult, a bare list of tools, a raw JSON
// document (object carrying "tools" or a bare array), or nil for an empty result.
func normalizeListing(listing interface{}) ([]ToolDescriptor, []string) {
	switch v := listing.(type) {
	case nil:
		return nil, nil
	case *mcp.ListToolsResult:
		if v == nil {
			return nil, nil
		}
		return fromMCPTools(v.Tools)
	case mcp.ListToolsResult:
		return fromMCPTools(v.Tools)
	case []mcp.Tool:
		return fromMCPTools(v)
	case []ToolDescriptor:
		return v, nil
	case json.RawMessage:
		return fromJSON(v)
	case []byte:
		return fromJSON(v)
	case string:
		return fromJSON([]byte(v))
	case []map[string]interface{}:
		items := make([]interface{}, len(v))
		for i := range v {
			items[i] = v[i]
		}
		return fromEntries(items)
	case []interface{}:
		return fromEntries(v)
	case map[string]interface{}:
		tools, ok := v["tools"]
		if !ok || tools == nil {
			return nil, nil
		}
		list, ok := tools.([]interface{})
		if !ok {
			return nil, []string{fmt.Sprintf("listing field \"tools\" is %T, not a list", tools)}
		}
		return fromEntries(list)
	default:
		return nil, []string{fmt.Sprintf("unrecognized tool listing shape %T", listing)}
	}
}

func fromMCPTools(tools []mcp.Tool) ([]ToolDescriptor, []string) {
	out := make([]ToolDescriptor, 0, len(tools))
	var warnings []string
	for i, t := range tools {
		d, err := fromMCPTool(t)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("tools[%d]: %v", i, err))
			continue
		}
		out = append(out, d)
	}
	return out, warnings
}

func fromMCPTool(t mcp.Tool) (ToolDescriptor, error) {
	if strings.TrimSpace(t.Name) == "" {
		return ToolDescriptor{}, fmt.Errorf("tool has no name")
	}
	d := ToolDescriptor{Name: t.Name, Description: t.Description}

	// mcp.Tool serializes whichever of InputSchema/RawInputSchema is set.
	if raw, err := json.Marshal(t); err == nil {
		d.InputSchema = schemaFromJSON(gjson.GetBytes(raw, "inputSchema"))
	}
	return d, nil
}

func fromEntries(items []interface{}) ([]ToolDescriptor, []string) {
	out := make([]ToolDescriptor, 0, len(items))
	var warnings []string
	for i, item := range items {
		d, err := fromEntry(item)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("tools[%d]: %v", i, err))
			continue
		}
		out = append(out, d)
	}
	return out, warnings
}

// fromEntry adapts a single list element of a known shape.
func fromEntry(item interface{}) (ToolDescriptor, error) {
	switch v := item.(type) {
	case ToolDescriptor:
		return v, nil
	case *ToolDescriptor:
		if v == nil {
			return ToolDescriptor{}, fmt.Errorf("nil tool entry")
		}
		return *v, nil
	case mcp.Tool:
		return fromMCPTool(v)
	case *mcp.Tool:
		if v == nil {
			return ToolDescriptor{}, fmt.Errorf("nil tool entry")
		}
		return fromMCPTool(*v)
	case map[string]interface{}:
		raw, err := json.Marshal(v)
		if err != nil {
			return ToolDescriptor{}, fmt.Errorf("unencodable tool entry: %w", err)
		}
		return fromJSONEntry(gjson.ParseBytes(raw))
	default:
		return ToolDescriptor{}, fmt.Errorf("unknown tool format %T", item)
	}
}

func fromJSON(raw []byte) ([]ToolDescriptor, []string) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(raw) {
		return nil, []string{"tool listing is not valid JSON"}
	}

	root := gjson.ParseBytes(raw)
	list := root
	switch {
	case root.Type == gjson.Null:
		return nil, nil
	case root.IsObject():
		list = root.Get("tools")
		if !list.Exists() || list.Type == gjson.Null {
			return nil, nil
		}
	}
	if !list.IsArray() {
		return nil, []string{fmt.Sprintf("tool listing is a JSON %s, not a list", list.Type)}
	}

	var out []ToolDescriptor
	var warnings []string
	for i, item := range list.Array() {
		d, err := fromJSONEntry(item)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("tools[%d]: %v", i, err))
			continue
		}
		out = append(out, d)
	}
	return out, warnings
}

// fromJSONEntry reads either a flat {name, description} entry or one that
// nests them under "metadata".
func fromJSONEntry(item gjson.Result) (ToolDescriptor, error) {
	if !item.IsObject() {
		return ToolDescriptor{}, fmt.Errorf("unknown tool format: JSON %s", item.Type)
	}

	src := item
	if !item.Get("name").Exists() && item.Get("metadata").IsObject() {
		src = item.Get("metadata")
	}

	name := src.Get("name")
	if name.Type != gjson.String || strings.TrimSpace(name.Str) == "" {
		return ToolDescriptor{}, fmt.Errorf("tool has no name")
	}

	d := ToolDescriptor{
		Name:        name.Str,
		Description: src.Get("description").String(),
	}
	for _, key := range []string{"inputSchema", "input_schema", "parameters"} {
		if s := src.Get(key); s.IsObject() {
			d.InputSchema = schemaFromJSON(s)
			break
		}
	}
	return d, nil
}

func schemaFromJSON(s gjson.Result) map[string]interface{} {
	if !s.IsObject() {
		return nil
	}
	schema, ok := s.Value().(map[string]interface{})
	if !ok || len(schema) == 0 {
		return nil
	}
	// A zero-value mcp.ToolInputSchema serializes as {"type": ""}.
	if t, isString := schema["type"].(string); isString && t == "" {
		return nil
	}
	return schema
}
