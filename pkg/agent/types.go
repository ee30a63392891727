package agent

import (
	"strings"
)

// CompletionRequest is one structured-output request.
type CompletionRequest struct {
	SystemInstructions string
	UserMessage        string
	Model              string
	// ReasoningEffort is minimal, low, medium or high. Empty leaves the backend default.
	ReasoningEffort string
	// Verbosity is low, medium or high. Empty leaves the backend default.
	Verbosity string
	// OutputSchema is the JSON schema the reply must satisfy.
	OutputSchema map[string]interface{}
	SchemaName   string
	MaxTokens    int
}

// CompletionResponse carries the raw JSON text produced by the backend.
type CompletionResponse struct {
	Text  string      `json:"text"`
	Usage *TokenUsage `json:"usage,omitempty"`
}

// TokenUsage tracks token consumption
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// AuthProfile represents authentication credentials for LLM providers
type AuthProfile struct {
	Provider string `json:"provider"` // "openai", "anthropic"
	APIKey   string `json:"api_key"`
	// BaseURL overrides the provider endpoint. Empty uses the SDK default.
	BaseURL string `json:"base_url,omitempty"`
	// MaxRetries is handed to RetryingBackend. Zero disables retries.
	MaxRetries int `json:"max_retries,omitempty"`
}

// IsRetryableError checks if an error should be retried
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errMsg := strings.ToLower(err.Error())

	// Network errors
	for _, marker := range []string{"econnreset", "etimedout", "connection reset", "connection refused"} {
		if strings.Contains(errMsg, marker) {
			return true
		}
	}

	// Rate limits
	if strings.Contains(errMsg, "429") || strings.Contains(errMsg, "rate limit") {
		return true
	}

	// Server errors
	for _, code := range []string{"500", "502", "503", "504", "529"} {
		if strings.Contains(errMsg, code) {
			return true
		}
	}

	return false
}
