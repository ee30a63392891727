package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. CALAGENT_PLANNER_MODEL.
	EnvPrefix = "CALAGENT"

	appDirName     = ".calendar-agent"
	configFileName = "config.json"
)

// legacyEnv maps config keys to the plain variable names accepted as well.
var legacyEnv = map[string]string{
	"provider.url":             "MCP_SERVER_URL",
	"openai_api_key":           "OPENAI_API_KEY",
	"anthropic_api_key":        "ANTHROPIC_API_KEY",
	"planner.reasoning_effort": "OPENAI_REASONING_EFFORT",
	"planner.verbosity":        "OPENAI_VERBOSITY",
}

// Loader handles configuration loading
type Loader struct {
	configPath string
	envFiles   []string

	mu sync.Mutex
	v  *viper.Viper
}

// NewLoader creates a new config loader. envFiles are dotenv files loaded
// before the environment is read; missing files are ignored. With no envFiles,
// ".env" in the working directory is used.
func NewLoader(configPath string, envFiles ...string) *Loader {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	return &Loader{
		configPath: configPath,
		envFiles:   envFiles,
	}
}

// Load reads defaults, then the config file if present, then the environment.
func (l *Loader) Load() (*Config, error) {
	if err := loadDotEnv(l.envFiles); err != nil {
		return nil, err
	}

	configPath := l.GetConfigPath()

	v := viper.New()
	v.SetConfigType("json")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", legacy, err)
		}
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.v = v
	l.mu.Unlock()

	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.DataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.DataDir = filepath.Join(home, appDirName)
		}
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("provider.transport", d.Provider.Transport)
	v.SetDefault("provider.url", d.Provider.URL)
	v.SetDefault("provider.command", d.Provider.Command)
	v.SetDefault("provider.args", d.Provider.Args)
	v.SetDefault("provider.env", d.Provider.Env)
	v.SetDefault("provider.timeout", d.Provider.Timeout)

	v.SetDefault("planner.backend", d.Planner.Backend)
	v.SetDefault("planner.model", d.Planner.Model)
	v.SetDefault("planner.reasoning_effort", d.Planner.ReasoningEffort)
	v.SetDefault("planner.verbosity", d.Planner.Verbosity)
	v.SetDefault("planner.timeout_seconds", d.Planner.TimeoutSeconds)
	v.SetDefault("planner.strict_arguments", d.Planner.StrictArguments)
	v.SetDefault("planner.max_tokens", d.Planner.MaxTokens)
	v.SetDefault("planner.max_retries", d.Planner.MaxRetries)
	v.SetDefault("planner.base_url", d.Planner.BaseURL)

	v.SetDefault("agent.max_iterations", d.Agent.MaxIterations)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.console", d.Logging.Console)
	v.SetDefault("logging.pretty", d.Logging.Pretty)
	v.SetDefault("logging.redaction", d.Logging.Redaction)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.addr", d.Metrics.Addr)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
	v.SetDefault("tracing.insecure", d.Tracing.Insecure)

	v.SetDefault("openai_api_key", "")
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("data_dir", "")
}

func loadDotEnv(files []string) error {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	// godotenv.Load never overrides variables already set in the environment.
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Watch calls onChange with the reloaded configuration every time the config
// file changes on disk. It reports false when Load found no config file to watch.
func (l *Loader) Watch(logger zerolog.Logger, onChange func(*Config)) bool {
	l.mu.Lock()
	v := l.v
	l.mu.Unlock()

	if v == nil || v.ConfigFileUsed() == "" {
		return false
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			logger.Warn().Err(err).Str("file", e.Name).Msg("Ignoring unreadable config change")
			return
		}
		if err := cfg.Validate(); err != nil {
			logger.Warn().Err(err).Str("file", e.Name).Msg("Ignoring invalid config change")
			return
		}
		logger.Info().Str("file", e.Name).Msg("Config reloaded")
		onChange(cfg)
	})
	v.WatchConfig()
	return true
}

// Save saves the configuration to file
func (l *Loader) Save(cfg *Config) error {
	configPath := l.GetConfigPath()
	if configPath == "" {
		return fmt.Errorf("failed to resolve config path")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("provider", cfg.Provider)
	v.Set("planner", cfg.Planner)
	v.Set("agent", cfg.Agent)
	v.Set("logging", cfg.Logging)
	v.Set("metrics", cfg.Metrics)
	v.Set("tracing", cfg.Tracing)
	v.Set("openai_api_key", cfg.OpenAIAPIKey)
	v.Set("anthropic_api_key", cfg.AnthropicAPIKey)
	v.Set("data_dir", cfg.DataDir)

	if err := v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Chmod(configPath, 0600)
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, appDirName, configFileName)
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}
