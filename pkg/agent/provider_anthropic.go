package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicBackend implements CompletionBackend by forcing a single tool call
// whose input schema is the requested output schema.
type AnthropicBackend struct {
	client anthropic.Client
}

// NewAnthropicBackend creates a new Anthropic backend
func NewAnthropicBackend(apiKey, baseURL string, opts ...option.RequestOption) *AnthropicBackend {
	all := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		all = append(all, option.WithBaseURL(baseURL))
	}
	all = append(all, opts...)
	return &AnthropicBackend{
		client: anthropic.NewClient(all...),
	}
}

// Provider returns the provider name
func (p *AnthropicBackend) Provider() string {
	return ProviderAnthropic
}

// Complete makes an API call to Anthropic Claude
func (p *AnthropicBackend) Complete(ctx context.Context, request CompletionRequest) (*CompletionResponse, error) {
	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	reqParams := anthropic.MessageNewParams{
		Model: anthropic.Model(request.Model),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(request.UserMessage)),
		},
		MaxTokens: int64(maxTokens),
	}

	if request.SystemInstructions != "" {
		reqParams.System = []anthropic.TextBlockParam{
			{Text: request.SystemInstructions},
		}
	}

	toolName := request.SchemaName
	if request.OutputSchema != nil {
		if toolName == "" {
			toolName = "respond"
		}
		toolParam := anthropic.ToolParam{
			Name:        toolName,
			Description: anthropic.String("Submit the response object."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: request.OutputSchema["properties"],
				Required:   requiredFields(request.OutputSchema),
			},
		}
		reqParams.Tools = []anthropic.ToolUnionParam{{OfTool: &toolParam}}
		reqParams.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: toolName},
		}
	}

	response, err := p.client.Messages.New(ctx, reqParams)
	if err != nil {
		return nil, err
	}

	text := ""
	for _, block := range response.Content {
		switch b := block.AsAny().(type) {
		case anthropic.ToolUseBlock:
			if b.Name == toolName {
				text = b.JSON.Input.Raw()
			}
		case anthropic.TextBlock:
			if text == "" {
				text = extractJSONObject(b.Text)
			}
		}
	}

	if text == "" {
		return nil, fmt.Errorf("no structured content returned")
	}

	return &CompletionResponse{
		Text: text,
		Usage: &TokenUsage{
			InputTokens:  int(response.Usage.InputTokens),
			OutputTokens: int(response.Usage.OutputTokens),
		},
	}, nil
}

func requiredFields(schema map[string]interface{}) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []interface{}:
		out := make([]string, 0, len(req))
		for _, v := range req {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// extractJSONObject returns the outermost {...} span of s, or s itself
// when no braces are found.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return strings.TrimSpace(s)
	}
	return s[start : end+1]
}
