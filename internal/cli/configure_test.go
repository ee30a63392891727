package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harun/calendar-agent/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureCommand(t *testing.T) {
	t.Run("command exists", func(t *testing.T) {
		found := false
		for _, c := range GetRootCmd().Commands() {
			if c.Name() == "configure" {
				found = true
				break
			}
		}
		assert.True(t, found, "configure command should exist")
	})

	t.Run("help text", func(t *testing.T) {
		setupCLI(t, &fakeClient{}, &fakeBackend{})

		out, err := execute(t, "configure", "--help")
		require.NoError(t, err)
		assert.Contains(t, out, "interactive configuration wizard")
	})

	t.Run("writes config", func(t *testing.T) {
		setupCLI(t, &fakeClient{}, &fakeBackend{})
		path := filepath.Join(t.TempDir(), "saved.json")

		// transport, url, backend, key (kept), model, effort, verbosity, log level
		rootCmd.SetIn(strings.NewReader("\nhttp://calendar.local:8080/sse\n\n\n\nmedium\n\ninfo\n"))
		t.Setenv("OPENAI_API_KEY", "sk-from-env")

		out, err := execute(t, "--config", path, "configure")
		require.NoError(t, err)
		assert.Contains(t, out, "Configuration saved to: "+path)

		_, err = os.Stat(path)
		require.NoError(t, err)

		cfg, err := config.NewLoader(path, filepath.Join(t.TempDir(), "none.env")).Load()
		require.NoError(t, err)
		assert.Equal(t, "http://calendar.local:8080/sse", cfg.Provider.URL)
		assert.Equal(t, "medium", cfg.Planner.ReasoningEffort)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "sk-from-env", cfg.OpenAIAPIKey)
	})
}
