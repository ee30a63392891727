package config

import (
	"fmt"
	"net/url"
	"strings"
)

var (
	validTransports       = []string{"sse", "http", "stdio"}
	validBackends         = []string{"openai", "anthropic"}
	validReasoningEfforts = []string{"minimal", "low", "medium", "high"}
	validVerbosities      = []string{"low", "medium", "high"}
	validLogLevels        = []string{"debug", "info", "warn", "error"}
	validTraceExporters   = []string{"none", "stdout", "otlp"}
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

func oneOf(kind, value string, valid []string) error {
	for _, v := range valid {
		if value == v {
			return nil
		}
	}
	return fmt.Errorf("invalid %s: %q (must be one of: %s)", kind, value, strings.Join(valid, ", "))
}

// ValidateAPIKey validates an API key format
func (v *Validator) ValidateAPIKey(key string, provider string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch provider {
	case "anthropic":
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	case "openai":
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
	}

	return nil
}

// ValidateTransport validates the tool server transport
func (v *Validator) ValidateTransport(transport string) error {
	return oneOf("transport", transport, validTransports)
}

// ValidateBackend validates the completion backend name
func (v *Validator) ValidateBackend(backend string) error {
	return oneOf("planner backend", backend, validBackends)
}

// ValidateReasoningEffort validates the reasoning effort level
func (v *Validator) ValidateReasoningEffort(effort string) error {
	return oneOf("reasoning effort", effort, validReasoningEfforts)
}

// ValidateVerbosity validates the output verbosity level
func (v *Validator) ValidateVerbosity(verbosity string) error {
	return oneOf("verbosity", verbosity, validVerbosities)
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	return oneOf("log level", level, validLogLevels)
}

// ValidateServerURL validates an http(s) tool server URL
func (v *Validator) ValidateServerURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("provider url is required for http transports")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid provider url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid provider url scheme %q (must be http or https)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid provider url %q: missing host", raw)
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	// Provider
	if err := v.ValidateTransport(cfg.Provider.Transport); err != nil {
		errors = append(errors, err)
	} else if cfg.Provider.Transport == "stdio" {
		if strings.TrimSpace(cfg.Provider.Command) == "" {
			errors = append(errors, fmt.Errorf("provider command is required for stdio transport"))
		}
	} else if err := v.ValidateServerURL(cfg.Provider.URL); err != nil {
		errors = append(errors, err)
	}
	if cfg.Provider.Timeout < 0 {
		errors = append(errors, fmt.Errorf("provider.timeout must be >= 0"))
	}

	// Planner
	if err := v.ValidateBackend(cfg.Planner.Backend); err != nil {
		errors = append(errors, err)
	} else if cfg.APIKey() == "" {
		errors = append(errors, fmt.Errorf("%s API key is required for planner backend %s", cfg.Planner.Backend, cfg.Planner.Backend))
	}
	if strings.TrimSpace(cfg.Planner.Model) == "" {
		errors = append(errors, fmt.Errorf("planner.model is required"))
	}
	if err := v.ValidateReasoningEffort(cfg.Planner.ReasoningEffort); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateVerbosity(cfg.Planner.Verbosity); err != nil {
		errors = append(errors, err)
	}
	if cfg.Planner.TimeoutSeconds <= 0 {
		errors = append(errors, fmt.Errorf("planner.timeout_seconds must be positive, got %d", cfg.Planner.TimeoutSeconds))
	}
	if cfg.Planner.MaxTokens < 0 {
		errors = append(errors, fmt.Errorf("planner.max_tokens must be >= 0"))
	}
	if cfg.Planner.MaxRetries < 0 {
		errors = append(errors, fmt.Errorf("planner.max_retries must be >= 0"))
	}

	// Agent
	if cfg.Agent.MaxIterations <= 0 {
		errors = append(errors, fmt.Errorf("agent.max_iterations must be positive, got %d", cfg.Agent.MaxIterations))
	}

	// Logging
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	// Metrics
	if cfg.Metrics.Enabled && strings.TrimSpace(cfg.Metrics.Addr) == "" {
		errors = append(errors, fmt.Errorf("metrics.addr is required when metrics are enabled"))
	}

	// Tracing
	if cfg.Tracing.Enabled {
		if err := oneOf("trace exporter", cfg.Tracing.Exporter, validTraceExporters); err != nil {
			errors = append(errors, err)
		} else if cfg.Tracing.Exporter == "otlp" && strings.TrimSpace(cfg.Tracing.Endpoint) == "" {
			errors = append(errors, fmt.Errorf("tracing.endpoint is required for the otlp exporter"))
		}
	}

	return errors
}
