package agent

import (
	"context"
	"fmt"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaioption "github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
)

// Provider names accepted by ProviderFactory.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// CompletionBackend produces one JSON object per request.
type CompletionBackend interface {
	// Complete sends the instructions and user message and returns the reply text.
	Complete(ctx context.Context, request CompletionRequest) (*CompletionResponse, error)

	// Provider returns the provider name
	Provider() string
}

// ProviderFactory creates completion backends
type ProviderFactory struct {
	// Logger receives retry notices. The zero value discards them.
	Logger zerolog.Logger
}

// NewBackend creates a backend for the auth profile, wrapped with retries
// when the profile asks for them.
func (f *ProviderFactory) NewBackend(profile AuthProfile) (CompletionBackend, error) {
	if profile.APIKey == "" {
		return nil, fmt.Errorf("api key is required for provider %s", profile.Provider)
	}

	var backend CompletionBackend
	switch profile.Provider {
	case ProviderOpenAI:
		// SDK-internal retries are invisible to us; RetryingBackend owns retrying.
		backend = NewOpenAIBackend(profile.APIKey, profile.BaseURL, openaioption.WithMaxRetries(0))
	case ProviderAnthropic:
		backend = NewAnthropicBackend(profile.APIKey, profile.BaseURL, anthropicoption.WithMaxRetries(0))
	default:
		return nil, fmt.Errorf("unsupported provider: %s", profile.Provider)
	}

	if profile.MaxRetries > 0 {
		backend = NewRetryingBackend(backend, profile.MaxRetries).WithLogger(f.Logger)
	}
	return backend, nil
}
