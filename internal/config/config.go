package config

import (
	"encoding/json"
	"errors"
	"time"
)

// Config represents the calendar agent configuration
type Config struct {
	// Tool server connection
	Provider ProviderConfig `json:"provider" mapstructure:"provider"`

	// Completion backend and planner knobs
	Planner PlannerConfig `json:"planner" mapstructure:"planner"`

	// Orchestrator loop
	Agent AgentConfig `json:"agent" mapstructure:"agent"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Prometheus endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// OpenTelemetry
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`

	// API keys
	OpenAIAPIKey    string `json:"openai_api_key" mapstructure:"openai_api_key"`
	AnthropicAPIKey string `json:"anthropic_api_key" mapstructure:"anthropic_api_key"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ProviderConfig selects the MCP tool server
type ProviderConfig struct {
	Transport string   `json:"transport" mapstructure:"transport"` // sse, http, stdio
	URL       string   `json:"url" mapstructure:"url"`
	Command   string   `json:"command" mapstructure:"command"`
	Args      []string `json:"args" mapstructure:"args"`
	Env       []string `json:"env" mapstructure:"env"`
	Timeout   int      `json:"timeout" mapstructure:"timeout"` // seconds, per tool call
}

// PlannerConfig holds completion backend settings
type PlannerConfig struct {
	Backend         string `json:"backend" mapstructure:"backend"` // openai, anthropic
	Model           string `json:"model" mapstructure:"model"`
	ReasoningEffort string `json:"reasoning_effort" mapstructure:"reasoning_effort"` // minimal, low, medium, high
	Verbosity       string `json:"verbosity" mapstructure:"verbosity"`               // low, medium, high
	TimeoutSeconds  int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
	StrictArguments bool   `json:"strict_arguments" mapstructure:"strict_arguments"`
	MaxTokens       int    `json:"max_tokens" mapstructure:"max_tokens"`
	MaxRetries      int    `json:"max_retries" mapstructure:"max_retries"`
	BaseURL         string `json:"base_url" mapstructure:"base_url"`
}

// AgentConfig holds orchestrator loop settings
type AgentConfig struct {
	MaxIterations int `json:"max_iterations" mapstructure:"max_iterations"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	ServiceName string `json:"service_name" mapstructure:"service_name"`
	Exporter    string `json:"exporter" mapstructure:"exporter"` // none, stdout, otlp
	Endpoint    string `json:"endpoint" mapstructure:"endpoint"` // OTLP/HTTP host:port
	Insecure    bool   `json:"insecure" mapstructure:"insecure"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Transport: "sse",
			URL:       "http://127.0.0.1:8080/sse",
			Args:      []string{},
			Env:       []string{},
			Timeout:   30,
		},
		Planner: PlannerConfig{
			Backend:         "openai",
			Model:           "gpt-5-mini",
			ReasoningEffort: "low",
			Verbosity:       "low",
			TimeoutSeconds:  60,
			MaxRetries:      0,
		},
		Agent: AgentConfig{
			MaxIterations: 5,
		},
		Logging: LoggingConfig{
			Level:     "warn",
			Console:   true,
			Pretty:    true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "calendar-agent",
			Exporter:    "none",
		},
	}
}

// APIKey returns the key for the configured planner backend.
func (c *Config) APIKey() string {
	switch c.Planner.Backend {
	case "anthropic":
		return c.AnthropicAPIKey
	default:
		return c.OpenAIAPIKey
	}
}

// PlannerTimeout returns the per-call completion timeout.
func (c *Config) PlannerTimeout() time.Duration {
	return time.Duration(c.Planner.TimeoutSeconds) * time.Second
}

// ToolTimeout returns the per-call tool timeout.
func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.Provider.Timeout) * time.Second
}

// String returns a JSON representation of the config with keys masked
func (c *Config) String() string {
	masked := *c
	if masked.OpenAIAPIKey != "" {
		masked.OpenAIAPIKey = "***"
	}
	if masked.AnthropicAPIKey != "" {
		masked.AnthropicAPIKey = "***"
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	return errors.Join(NewValidator().ValidateConfig(c)...)
}
