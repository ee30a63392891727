package toolexecutor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"
)

// normalizedResult is the provider result reduced to text.
type normalizedResult struct {
	text    string
	isError bool
}

// normalizeResult reduces a provider-native call result to a single string.
// Accepted shapes: an MCP CallToolResult (first content item wins), a raw JSON
// document with a "content" list, a generic map with "content", or a bare scalar.
func normalizeResult(raw interface{}) normalizedResult {
	switch v := raw.(type) {
	case nil:
		return normalizedResult{}
	case *mcp.CallToolResult:
		if v == nil {
			return normalizedResult{}
		}
		return fromMCPResult(*v)
	case mcp.CallToolResult:
		return fromMCPResult(v)
	case json.RawMessage:
		return fromJSONResult(v)
	case []byte:
		return fromJSONResult(v)
	case string:
		return normalizedResult{text: v}
	case map[string]interface{}:
		return fromMapResult(v)
	case fmt.Stringer:
		return normalizedResult{text: v.String()}
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return normalizedResult{text: fmt.Sprint(v)}
	default:
		return normalizedResult{text: encodeFallback(v)}
	}
}

func fromMCPResult(r mcp.CallToolResult) normalizedResult {
	if len(r.Content) == 0 {
		if r.StructuredContent != nil {
			return normalizedResult{text: encodeFallback(r.StructuredContent), isError: r.IsError}
		}
		return normalizedResult{isError: r.IsError}
	}
	return normalizedResult{text: contentText(r.Content[0]), isError: r.IsError}
}

// contentText extracts the text of a content item, falling back to its
// JSON form for non-text items.
func contentText(c mcp.Content) string {
	switch item := c.(type) {
	case mcp.TextContent:
		return item.Text
	case *mcp.TextContent:
		if item != nil {
			return item.Text
		}
		return ""
	default:
		return encodeFallback(item)
	}
}

func fromJSONResult(raw []byte) normalizedResult {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return normalizedResult{}
	}
	if !gjson.Valid(trimmed) {
		return normalizedResult{text: trimmed}
	}

	root := gjson.Parse(trimmed)
	if !root.IsObject() {
		if root.Type == gjson.String {
			return normalizedResult{text: root.Str}
		}
		return normalizedResult{text: root.Raw}
	}

	isError := root.Get("isError").Bool()
	content := root.Get("content")
	if !content.IsArray() || len(content.Array()) == 0 {
		if structured := root.Get("structuredContent"); structured.Exists() {
			return normalizedResult{text: structured.Raw, isError: isError}
		}
		return normalizedResult{text: root.Raw, isError: isError}
	}

	first := content.Array()[0]
	if text := first.Get("text"); text.Exists() {
		return normalizedResult{text: text.String(), isError: isError}
	}
	return normalizedResult{text: first.Raw, isError: isError}
}

func fromMapResult(m map[string]interface{}) normalizedResult {
	raw, err := json.Marshal(m)
	if err != nil {
		return normalizedResult{text: fmt.Sprintf("%v", m)}
	}
	return fromJSONResult(raw)
}

func encodeFallback(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
