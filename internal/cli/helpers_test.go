package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/harun/calendar-agent/pkg/agent"
	"github.com/harun/calendar-agent/pkg/toolprovider"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu     sync.Mutex
	tools  []mcp.Tool
	calls  []string
	closed bool
}

func (f *fakeClient) ListTools(ctx context.Context) (interface{}, error) {
	return &mcp.ListToolsResult{Tools: f.tools}, nil
}

func (f *fakeClient) CallTool(ctx context.Context, name string, arguments map[string]interface{}) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return mcp.NewToolResultText(fmt.Sprintf(`{"tool":%q,"events":[]}`, name)), nil
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeBackend struct {
	mu      sync.Mutex
	replies []string
	calls   int
}

func (f *fakeBackend) Provider() string { return "fake" }

func (f *fakeBackend) Complete(ctx context.Context, request agent.CompletionRequest) (*agent.CompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reply := `{"function_calls": [], "reasoning": "done"}`
	if f.calls < len(f.replies) {
		reply = f.replies[f.calls]
	}
	f.calls++
	return &agent.CompletionResponse{Text: reply}, nil
}

func calendarTools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool("calendar_list_events", mcp.WithDescription("List events in a date range")),
		mcp.NewTool("calendar_create_event", mcp.WithDescription("Create an event")),
	}
}

const listEventsPlan = `{"function_calls": [{"name": "calendar_list_events", "arguments": {"date": "2026-10-16"}}], "reasoning": "look up today's events"}`

// setupCLI points the commands at a temp config and swaps the tool server and
// completion backend for fakes.
func setupCLI(t *testing.T, client *fakeClient, backend *fakeBackend) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, name := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "MCP_SERVER_URL", "CALAGENT_PLANNER_BACKEND"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}

	path := filepath.Join(home, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"openai_api_key": "sk-test",
		"logging": {"level": "error", "console": false}
	}`), 0600))

	prevOpen, prevBackend := openToolProvider, newCompletionBackend
	openToolProvider = func(ctx context.Context, cfg toolprovider.Config) (toolprovider.Client, error) {
		return client, nil
	}
	newCompletionBackend = func(profile agent.AuthProfile, _ zerolog.Logger) (agent.CompletionBackend, error) {
		return backend, nil
	}

	prevNoColor := color.NoColor
	color.NoColor = true

	t.Cleanup(func() {
		openToolProvider, newCompletionBackend = prevOpen, prevBackend
		color.NoColor = prevNoColor
		cfgFile, logLevel = "", ""
		runMaxIterations, chatMaxIterations, scheduleMaxIterations = 0, 0, 0
		toolsJSON = false
		scheduleSpec = ""
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	return path
}

// resetFlags restores every flag to its default so that values parsed by an
// earlier Execute do not leak into the next one.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}
