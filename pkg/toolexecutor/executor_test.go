package toolexecutor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T, p ToolProvider, timeout time.Duration) *Executor {
	t.Helper()
	e, err := NewExecutor(ExecutorConfig{Provider: p, Logger: zerolog.Nop(), Timeout: timeout})
	require.NoError(t, err)
	return e
}

func TestNewExecutor_RequiresProvider(t *testing.T) {
	_, err := NewExecutor(ExecutorConfig{})
	assert.Error(t, err)
}

func TestExecutor_ResultShapes(t *testing.T) {
	tests := []struct {
		name   string
		result interface{}
		want   string
	}{
		{"mcp text", mcp.NewToolResultText("3 events"), "3 events"},
		{"mcp value", *mcp.NewToolResultText("value form"), "value form"},
		{"json content", json.RawMessage(`{"content":[{"type":"text","text":"ok"}]}`), "ok"},
		{"json structured", json.RawMessage(`{"content":[],"structuredContent":{"n":1}}`), `{"n":1}`},
		{"map content", map[string]interface{}{"content": []interface{}{map[string]interface{}{"type": "text", "text": "from map"}}}, "from map"},
		{"string", "plain", "plain"},
		{"int", 42, "42"},
		{"float", 1.5, "1.5"},
		{"bool", true, "true"},
		{"nil", nil, ""},
		{"struct", struct {
			ID string `json:"id"`
		}{ID: "evt1"}, `{"id":"evt1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExecutor(t, &fakeProvider{callResult: tt.result}, 0)
			outcome := e.Execute(context.Background(), ToolInvocation{Name: "list_events"})

			assert.True(t, outcome.Succeeded)
			assert.Equal(t, tt.want, outcome.Result)
			assert.Empty(t, outcome.Error)
		})
	}
}

func TestExecutor_ToolReportedError(t *testing.T) {
	e := newTestExecutor(t, &fakeProvider{callResult: mcp.NewToolResultError("event not found")}, 0)
	outcome := e.Execute(context.Background(), ToolInvocation{Name: "delete_event"})

	assert.False(t, outcome.Succeeded)
	assert.Equal(t, "tool 'delete_event' returned an error: event not found", outcome.Error)
	assert.Empty(t, outcome.Result)
}

func TestExecutor_ProviderError(t *testing.T) {
	e := newTestExecutor(t, &fakeProvider{callErr: errors.New("connection reset")}, 0)
	outcome := e.Execute(context.Background(), ToolInvocation{Name: "list_events"})

	assert.False(t, outcome.Succeeded)
	assert.Equal(t, "failed to call tool 'list_events': connection reset", outcome.Error)
}

func TestExecutor_RecoversPanic(t *testing.T) {
	p := &fakeProvider{callFn: func(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
		panic("boom")
	}}
	e := newTestExecutor(t, p, 0)

	outcome := e.Execute(context.Background(), ToolInvocation{Name: "list_events"})
	assert.False(t, outcome.Succeeded)
	assert.Contains(t, outcome.Error, "panic: boom")
}

func TestExecutor_Timeout(t *testing.T) {
	p := &fakeProvider{callFn: func(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	e := newTestExecutor(t, p, 20*time.Millisecond)

	outcome := e.Execute(context.Background(), ToolInvocation{Name: "slow_tool"})
	assert.False(t, outcome.Succeeded)
	assert.Contains(t, outcome.Error, "timed out")
}

func TestExecutor_PassesArguments(t *testing.T) {
	var got map[string]interface{}
	p := &fakeProvider{callFn: func(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
		got = args
		return "ok", nil
	}}
	e := newTestExecutor(t, p, 0)

	e.Execute(context.Background(), ToolInvocation{Name: "a"})
	assert.NotNil(t, got)
	assert.Empty(t, got)

	args := map[string]interface{}{"when": map[string]interface{}{"day": "mon"}}
	outcome := e.Execute(context.Background(), ToolInvocation{Name: "a", Arguments: args})
	assert.Equal(t, args, got)
	assert.Equal(t, args, outcome.Invocation.Arguments)
}
