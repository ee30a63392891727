package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// RetryingBackend retries retryable failures of the wrapped backend with
// exponential backoff: base, 2*base, 4*base...
type RetryingBackend struct {
	inner      CompletionBackend
	maxRetries int
	baseDelay  time.Duration
	logger     zerolog.Logger
}

// NewRetryingBackend wraps inner. maxRetries counts attempts after the first.
func NewRetryingBackend(inner CompletionBackend, maxRetries int) *RetryingBackend {
	return &RetryingBackend{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  time.Second,
		logger:     zerolog.Nop(),
	}
}

// WithLogger sets the logger used for retry notices.
func (r *RetryingBackend) WithLogger(logger zerolog.Logger) *RetryingBackend {
	r.logger = logger
	return r
}

// Provider returns the wrapped provider name
func (r *RetryingBackend) Provider() string {
	return r.inner.Provider()
}

// Complete calls the wrapped backend, retrying transient errors.
func (r *RetryingBackend) Complete(ctx context.Context, request CompletionRequest) (*CompletionResponse, error) {
	attempts := r.maxRetries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		response, err := r.inner.Complete(ctx, request)
		if err == nil {
			return response, nil
		}

		lastErr = err

		// Don't retry on permanent errors
		if !IsRetryableError(err) || ctx.Err() != nil {
			return nil, err
		}

		// Last attempt - don't wait
		if attempt == attempts-1 {
			break
		}

		delay := r.baseDelay * time.Duration(1<<attempt)
		r.logger.Warn().
			Str("provider", r.inner.Provider()).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Err(err).
			Msg("Retrying after error")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", r.maxRetries, lastErr)
}
