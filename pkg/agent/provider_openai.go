package agent

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIBackend implements CompletionBackend with chat completions and a
// json_schema response format.
type OpenAIBackend struct {
	client openai.Client
}

// NewOpenAIBackend creates a new OpenAI backend
func NewOpenAIBackend(apiKey, baseURL string, opts ...option.RequestOption) *OpenAIBackend {
	all := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		all = append(all, option.WithBaseURL(baseURL))
	}
	all = append(all, opts...)
	return &OpenAIBackend{
		client: openai.NewClient(all...),
	}
}

// Provider returns the provider name
func (p *OpenAIBackend) Provider() string {
	return ProviderOpenAI
}

// Complete makes an API call to OpenAI
func (p *OpenAIBackend) Complete(ctx context.Context, request CompletionRequest) (*CompletionResponse, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if request.SystemInstructions != "" {
		messages = append(messages, openai.SystemMessage(request.SystemInstructions))
	}
	messages = append(messages, openai.UserMessage(request.UserMessage))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(request.Model),
		Messages: messages,
	}

	if request.ReasoningEffort != "" {
		params.ReasoningEffort = shared.ReasoningEffort(request.ReasoningEffort)
	}

	if request.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(request.MaxTokens))
	}

	if request.OutputSchema != nil {
		name := request.SchemaName
		if name == "" {
			name = "response"
		}
		// Strict mode rejects free-form objects such as tool arguments.
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   name,
					Schema: request.OutputSchema,
					Strict: openai.Bool(false),
				},
			},
		}
	}

	var reqOpts []option.RequestOption
	if request.Verbosity != "" {
		reqOpts = append(reqOpts, option.WithJSONSet("verbosity", request.Verbosity))
	}

	response, err := p.client.Chat.Completions.New(ctx, params, reqOpts...)
	if err != nil {
		return nil, err
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response choices returned")
	}

	msg := response.Choices[0].Message
	if msg.Refusal != "" {
		return nil, fmt.Errorf("model refused the request: %s", msg.Refusal)
	}

	return &CompletionResponse{
		Text: msg.Content,
		Usage: &TokenUsage{
			InputTokens:  int(response.Usage.PromptTokens),
			OutputTokens: int(response.Usage.CompletionTokens),
		},
	}, nil
}
