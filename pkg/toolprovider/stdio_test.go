package toolprovider

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/harun/calendar-agent/pkg/toolexecutor"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeServerEnv = "CALAGENT_FAKE_STDIO_MCP"

func TestMain(m *testing.M) {
	if os.Getenv(fakeServerEnv) == "1" {
		runFakeStdioServer()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// runFakeStdioServer answers MCP requests on stdin/stdout when the test
// binary is re-executed as a subprocess.
func runFakeStdioServer() {
	scanner := bufio.NewScanner(os.Stdin)
	out := json.NewEncoder(os.Stdout)

	for scanner.Scan() {
		var req struct {
			Method string                 `json:"method"`
			ID     *int                   `json:"id"`
			Params map[string]interface{} `json:"params"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil || req.ID == nil {
			continue
		}

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": *req.ID}
		switch req.Method {
		case "initialize":
			resp["result"] = map[string]interface{}{
				"protocolVersion": "2024-11-05",
				"capabilities":    map[string]interface{}{"tools": map[string]interface{}{}},
				"serverInfo":      map[string]interface{}{"name": "fake", "version": "0.0.1"},
			}
		case "tools/list":
			resp["result"] = map[string]interface{}{
				"tools": []interface{}{
					map[string]interface{}{
						"name":        "list_events",
						"description": "List events for a day",
						"inputSchema": map[string]interface{}{
							"type":       "object",
							"properties": map[string]interface{}{"day": map[string]interface{}{"type": "string"}},
						},
					},
					map[string]interface{}{"description": "nameless"},
				},
			}
		case "tools/call":
			switch req.Params["name"] {
			case "list_events":
				args, _ := req.Params["arguments"].(map[string]interface{})
				resp["result"] = map[string]interface{}{
					"content": []interface{}{
						map[string]interface{}{"type": "text", "text": fmt.Sprintf("no events on %v", args["day"])},
					},
				}
			case "hang":
				continue
			default:
				resp["error"] = map[string]interface{}{"code": -32602, "message": "unknown tool"}
			}
		default:
			resp["error"] = map[string]interface{}{"code": -32601, "message": "method not found"}
		}
		_ = out.Encode(resp)
	}
}

func startFakeServer(t *testing.T, timeout time.Duration) *StdioServer {
	t.Helper()

	srv := NewStdioServer(Config{
		Command: os.Args[0],
		Args:    []string{"-test.run=^$"},
		Env:     []string{fakeServerEnv + "=1"},
		Timeout: timeout,
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func TestStdioServer_Discover(t *testing.T) {
	srv := startFakeServer(t, 5*time.Second)

	reg, err := toolexecutor.Discover(context.Background(), srv, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, []string{"list_events"}, reg.Names())
	assert.Len(t, reg.Warnings(), 1)
	assert.Equal(t, "- list_events: List events for a day", reg.CatalogText())
}

func TestStdioServer_Execute(t *testing.T) {
	srv := startFakeServer(t, 5*time.Second)
	exec, err := toolexecutor.NewExecutor(toolexecutor.ExecutorConfig{Provider: srv})
	require.NoError(t, err)

	ok := exec.Execute(context.Background(), toolexecutor.ToolInvocation{
		Name:      "list_events",
		Arguments: map[string]interface{}{"day": "monday"},
	})
	assert.True(t, ok.Succeeded)
	assert.Equal(t, "no events on monday", ok.Result)

	bad := exec.Execute(context.Background(), toolexecutor.ToolInvocation{Name: "nope"})
	assert.False(t, bad.Succeeded)
	assert.Contains(t, bad.Error, "nope")
	assert.Contains(t, bad.Error, "unknown tool")
}

func TestStdioServer_RequestTimeout(t *testing.T) {
	srv := startFakeServer(t, 200*time.Millisecond)

	_, err := srv.CallTool(context.Background(), "hang", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestStdioServer_RequiresCommand(t *testing.T) {
	srv := NewStdioServer(Config{})
	assert.Error(t, srv.Start(context.Background()))
}
