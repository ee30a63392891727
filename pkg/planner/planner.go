package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harun/calendar-agent/internal/metrics"
	"github.com/harun/calendar-agent/internal/tracing"
	"github.com/harun/calendar-agent/pkg/agent"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// UserMessagePrefix is prepended to the prompt context sent as the user turn.
const UserMessagePrefix = "User request: "

// Options are the knobs that may change between runs.
type Options struct {
	ReasoningEffort string
	Verbosity       string
	// Timeout bounds one completion call. Zero means no bound beyond ctx.
	Timeout time.Duration
}

// Config configures a Planner.
type Config struct {
	Backend         agent.CompletionBackend
	Catalog         ToolCatalog
	Model           string
	MaxTokens       int
	StrictArguments bool
	Options
	Logger zerolog.Logger
}

// Planner proposes one plan per call through a completion backend.
type Planner struct {
	backend   agent.CompletionBackend
	model     string
	maxTokens int
	strict    bool
	logger    zerolog.Logger

	mu           sync.RWMutex
	catalog      ToolCatalog
	opts         Options
	catalogText  string
	instructions string
}

// New creates a planner.
func New(cfg Config) (*Planner, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("completion backend is required")
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("tool catalog is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	return &Planner{
		backend:   cfg.Backend,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		strict:    cfg.StrictArguments,
		logger:    cfg.Logger,
		catalog:   cfg.Catalog,
		opts:      cfg.Options,
	}, nil
}

// SetCatalog replaces the tool catalog used for instructions and validation.
func (p *Planner) SetCatalog(catalog ToolCatalog) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.catalog = catalog
}

// UpdateOptions applies new knobs to subsequent calls.
func (p *Planner) UpdateOptions(opts Options) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opts = opts
}

// Options returns the knobs currently in effect.
func (p *Planner) Options() Options {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.opts
}

// Backend returns the backend provider name.
func (p *Planner) Backend() string {
	return p.backend.Provider()
}

// SystemInstructions returns the instructions for the current catalog,
// rebuilding them when the catalog text has changed.
func (p *Planner) SystemInstructions() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	text := p.catalog.CatalogText()
	if p.instructions == "" || text != p.catalogText {
		p.catalogText = text
		p.instructions = BuildSystemInstructions(p.catalog)
	}
	return p.instructions
}

// Propose makes one completion call for promptContext and decodes the reply.
// Backend failures wrap ErrBackend; undecodable replies wrap ErrMalformedOutput.
// Neither is retried here.
func (p *Planner) Propose(ctx context.Context, promptContext string) (RawPlan, error) {
	backendName := p.backend.Provider()
	ctx, span := tracing.StartSpan(ctx, "calendar-agent.planner", "planner.propose",
		attribute.String("backend", backendName),
		attribute.String("model", p.model),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, p.logger)

	instructions := p.SystemInstructions()
	opts := p.Options()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := p.backend.Complete(ctx, agent.CompletionRequest{
		SystemInstructions: instructions,
		UserMessage:        UserMessagePrefix + promptContext,
		Model:              p.model,
		ReasoningEffort:    opts.ReasoningEffort,
		Verbosity:          opts.Verbosity,
		OutputSchema:       OutputSchema(),
		SchemaName:         SchemaName,
		MaxTokens:          p.maxTokens,
	})
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && opts.Timeout > 0 {
			err = fmt.Errorf("completion timed out after %s: %w", opts.Timeout, err)
		}
		metrics.RecordPlan(backendName, "backend_error", elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Dur("duration", elapsed).Msg("Planner completion failed")
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	raw, err := Decode(resp.Text)
	if err != nil {
		metrics.RecordPlan(backendName, "malformed", elapsed)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Str("content", resp.Text).Msg("Failed to parse planner output as JSON")
		return nil, err
	}

	metrics.RecordPlan(backendName, "ok", elapsed)
	event := logger.Debug().Dur("duration", elapsed)
	if resp.Usage != nil {
		event = event.Int("input_tokens", resp.Usage.InputTokens).Int("output_tokens", resp.Usage.OutputTokens)
	}
	event.Msg("Planner proposed plan")
	return raw, nil
}

// Check validates raw against the planner's catalog.
func (p *Planner) Check(raw RawPlan) (Plan, error) {
	p.mu.RLock()
	catalog := p.catalog
	p.mu.RUnlock()

	plan, err := Validate(raw, catalog, p.strict)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			metrics.RecordPlanRejected(p.backend.Provider(), string(verr.Reason))
		}
		return Plan{}, err
	}
	return plan, nil
}
