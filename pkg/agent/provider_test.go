package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

var planSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"function_calls": map[string]interface{}{"type": "array"},
		"reasoning":      map[string]interface{}{"type": "string"},
	},
	"required": []interface{}{"function_calls", "reasoning"},
}

func TestProviderFactory_NewBackend(t *testing.T) {
	f := &ProviderFactory{}

	b, err := f.NewBackend(AuthProfile{Provider: ProviderOpenAI, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", b.Provider())

	b, err = f.NewBackend(AuthProfile{Provider: ProviderAnthropic, APIKey: "k", MaxRetries: 2})
	require.NoError(t, err)
	assert.IsType(t, &RetryingBackend{}, b)
	assert.Equal(t, "anthropic", b.Provider())

	_, err = f.NewBackend(AuthProfile{Provider: "gemini", APIKey: "k"})
	assert.Error(t, err)

	_, err = f.NewBackend(AuthProfile{Provider: ProviderOpenAI})
	assert.Error(t, err)
}

func TestOpenAIBackend_Complete(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-5-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"function_calls\":[],\"reasoning\":\"done\"}"}
			}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19}
		}`))
	}))
	defer srv.Close()

	b := NewOpenAIBackend("test-key", srv.URL+"/", option.WithMaxRetries(0))
	resp, err := b.Complete(context.Background(), CompletionRequest{
		SystemInstructions: "You are a planner.",
		UserMessage:        "User request: list my events",
		Model:              "gpt-5-mini",
		ReasoningEffort:    "low",
		Verbosity:          "medium",
		OutputSchema:       planSchema,
		SchemaName:         "calendar_plan",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"function_calls":[],"reasoning":"done"}`, resp.Text)
	assert.Equal(t, 12, resp.Usage.InputTokens)

	req := gjson.ParseBytes(body)
	assert.Equal(t, "gpt-5-mini", req.Get("model").String())
	assert.Equal(t, "low", req.Get("reasoning_effort").String())
	assert.Equal(t, "medium", req.Get("verbosity").String())
	assert.Equal(t, "json_schema", req.Get("response_format.type").String())
	assert.Equal(t, "calendar_plan", req.Get("response_format.json_schema.name").String())
	assert.Equal(t, "system", req.Get("messages.0.role").String())
	assert.Equal(t, "User request: list my events", req.Get("messages.1.content").String())
}

func TestOpenAIBackend_Refusal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"","refusal":"nope"}}]}`))
	}))
	defer srv.Close()

	b := NewOpenAIBackend("test-key", srv.URL+"/", option.WithMaxRetries(0))
	_, err := b.Complete(context.Background(), CompletionRequest{UserMessage: "hi", Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

func TestOpenAIBackend_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	b := NewOpenAIBackend("test-key", srv.URL+"/", option.WithMaxRetries(0))
	_, err := b.Complete(context.Background(), CompletionRequest{UserMessage: "hi", Model: "m"})
	assert.Error(t, err)
}

func TestAnthropicBackend_Complete(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5",
			"stop_reason": "tool_use",
			"content": [{
				"type": "tool_use",
				"id": "toolu_1",
				"name": "calendar_plan",
				"input": {"function_calls": [{"name": "list_events", "arguments": {}}], "reasoning": "look first"}
			}],
			"usage": {"input_tokens": 30, "output_tokens": 9}
		}`))
	}))
	defer srv.Close()

	b := NewAnthropicBackend("test-key", srv.URL, anthropicoption.WithMaxRetries(0))
	resp, err := b.Complete(context.Background(), CompletionRequest{
		SystemInstructions: "You are a planner.",
		UserMessage:        "User request: what's on today?",
		Model:              "claude-sonnet-4-5",
		OutputSchema:       planSchema,
		SchemaName:         "calendar_plan",
	})
	require.NoError(t, err)

	var plan map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resp.Text), &plan))
	assert.Equal(t, "look first", plan["reasoning"])
	assert.Equal(t, 30, resp.Usage.InputTokens)

	req := gjson.ParseBytes(body)
	assert.Equal(t, "calendar_plan", req.Get("tool_choice.name").String())
	assert.Equal(t, "tool", req.Get("tool_choice.type").String())
	assert.Equal(t, "You are a planner.", req.Get("system.0.text").String())
	assert.Equal(t, int64(defaultAnthropicMaxTokens), req.Get("max_tokens").Int())
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"Here you go:\n```json\n{\"a\":{\"b\":2}}\n```", `{"a":{"b":2}}`},
		{"  no json  ", "no json"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractJSONObject(tt.in))
	}
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.True(t, IsRetryableError(errors.New("POST: 429 Too Many Requests")))
	assert.True(t, IsRetryableError(errors.New("503 Service Unavailable")))
	assert.True(t, IsRetryableError(errors.New("read: connection reset by peer")))
	assert.False(t, IsRetryableError(errors.New("401 Unauthorized")))
}

type scriptedBackend struct {
	errs  []error
	calls int
}

func (s *scriptedBackend) Provider() string { return "scripted" }

func (s *scriptedBackend) Complete(ctx context.Context, request CompletionRequest) (*CompletionResponse, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return &CompletionResponse{Text: "{}"}, nil
}

func TestProviderFactory_RetriesAreLogged(t *testing.T) {
	var buf bytes.Buffer
	f := &ProviderFactory{Logger: zerolog.New(&buf)}

	b, err := f.NewBackend(AuthProfile{Provider: ProviderOpenAI, APIKey: "k", MaxRetries: 1})
	require.NoError(t, err)

	rb, ok := b.(*RetryingBackend)
	require.True(t, ok)
	inner := &scriptedBackend{errs: []error{errors.New("503 Service Unavailable")}}
	rb.inner = inner
	rb.baseDelay = time.Millisecond

	_, err = rb.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, "Retrying after error")
	assert.Contains(t, out, `"attempt":1`)
	assert.Contains(t, out, "503 Service Unavailable")
}

func TestRetryingBackend(t *testing.T) {
	t.Run("retries transient errors", func(t *testing.T) {
		inner := &scriptedBackend{errs: []error{errors.New("503"), errors.New("429")}}
		r := NewRetryingBackend(inner, 3)
		r.baseDelay = time.Millisecond

		resp, err := r.Complete(context.Background(), CompletionRequest{})
		require.NoError(t, err)
		assert.Equal(t, "{}", resp.Text)
		assert.Equal(t, 3, inner.calls)
	})

	t.Run("stops on permanent errors", func(t *testing.T) {
		inner := &scriptedBackend{errs: []error{errors.New("401 Unauthorized")}}
		r := NewRetryingBackend(inner, 3)
		r.baseDelay = time.Millisecond

		_, err := r.Complete(context.Background(), CompletionRequest{})
		assert.Error(t, err)
		assert.Equal(t, 1, inner.calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		inner := &scriptedBackend{errs: []error{errors.New("500"), errors.New("500"), errors.New("500")}}
		r := NewRetryingBackend(inner, 2)
		r.baseDelay = time.Millisecond

		_, err := r.Complete(context.Background(), CompletionRequest{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max retries (2) exceeded")
		assert.Equal(t, 3, inner.calls)
	})
}
