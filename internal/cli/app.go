package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/harun/calendar-agent/internal/config"
	"github.com/harun/calendar-agent/internal/logger"
	"github.com/harun/calendar-agent/internal/metrics"
	"github.com/harun/calendar-agent/internal/tracing"
	"github.com/harun/calendar-agent/pkg/agent"
	"github.com/harun/calendar-agent/pkg/orchestrator"
	"github.com/harun/calendar-agent/pkg/planner"
	"github.com/harun/calendar-agent/pkg/toolexecutor"
	"github.com/harun/calendar-agent/pkg/toolprovider"
	"github.com/rs/zerolog"
)

// Seams replaced in tests.
var (
	openToolProvider = func(ctx context.Context, cfg toolprovider.Config) (toolprovider.Client, error) {
		return toolprovider.Open(ctx, cfg)
	}
	newCompletionBackend = func(profile agent.AuthProfile, logger zerolog.Logger) (agent.CompletionBackend, error) {
		return (&agent.ProviderFactory{Logger: logger}).NewBackend(profile)
	}
)

// app holds the process-wide pieces shared by every command.
type app struct {
	cfg    *config.Config
	loader *config.Loader
	log    *logger.Logger
	logger zerolog.Logger
	out    io.Writer

	tracingEnabled bool
}

// newApp loads and validates the configuration, then builds the logger and
// tracing provider. Call close when done.
func newApp(out io.Writer) (*app, error) {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   cfg.Logging.Console,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		Secrets:   []string{cfg.OpenAIAPIKey, cfg.AnthropicAPIKey},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{
		cfg:    cfg,
		loader: loader,
		log:    log,
		logger: log.Component("cli"),
		out:    out,
	}

	if cfg.Tracing.Enabled {
		if err := tracing.InitOpenTelemetry(context.Background(), tracing.Options{
			ServiceName:    cfg.Tracing.ServiceName,
			ServiceVersion: version,
			Exporter:       cfg.Tracing.Exporter,
			Endpoint:       cfg.Tracing.Endpoint,
			Insecure:       cfg.Tracing.Insecure,
		}); err != nil {
			_ = log.Close()
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
		a.tracingEnabled = true
	}

	return a, nil
}

// startMetrics serves /metrics in the background until ctx is done.
func (a *app) startMetrics(ctx context.Context) {
	if !a.cfg.Metrics.Enabled {
		return
	}
	metrics.EnsureRegistered()
	go func() {
		if err := metrics.Serve(ctx, a.cfg.Metrics.Addr, a.log.Component("metrics")); err != nil {
			a.logger.Error().Err(err).Msg("Metrics server stopped")
		}
	}()
}

func (a *app) close() {
	if a.tracingEnabled {
		if err := tracing.ShutdownOpenTelemetry(context.Background()); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to flush traces")
		}
	}
	_ = a.log.Close()
}

func (a *app) providerConfig() toolprovider.Config {
	return toolprovider.Config{
		Transport: a.cfg.Provider.Transport,
		URL:       a.cfg.Provider.URL,
		Command:   a.cfg.Provider.Command,
		Args:      a.cfg.Provider.Args,
		Env:       a.cfg.Provider.Env,
		Timeout:   a.cfg.ToolTimeout(),
		Logger:    a.log.Component("toolprovider"),
	}
}

func plannerOptionsFrom(cfg *config.Config) planner.Options {
	return planner.Options{
		ReasoningEffort: cfg.Planner.ReasoningEffort,
		Verbosity:       cfg.Planner.Verbosity,
		Timeout:         cfg.PlannerTimeout(),
	}
}

// session is one connection to the tool server plus the planner and executor
// built over its catalog.
type session struct {
	client   toolprovider.Client
	registry *toolexecutor.Registry
	planner  *planner.Planner
	executor *toolexecutor.Executor
	logger   zerolog.Logger
}

// connect opens the tool provider, discovers its tools and wires the planner.
// An empty catalog is not an error here; the orchestrator aborts on it.
func (a *app) connect(ctx context.Context) (*session, error) {
	client, err := openToolProvider(ctx, a.providerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to tool server: %w", err)
	}

	registry, err := toolexecutor.Discover(ctx, client, a.log.Component("toolexecutor"))
	if err != nil && !errors.Is(err, toolexecutor.ErrNoTools) {
		_ = client.Close()
		return nil, err
	}
	metrics.SetDiscoveredTools(registry.Len())
	a.logger.Info().Int("tools", registry.Len()).Msg("Discovered tools")

	backend, err := newCompletionBackend(agent.AuthProfile{
		Provider:   a.cfg.Planner.Backend,
		APIKey:     a.cfg.APIKey(),
		BaseURL:    a.cfg.Planner.BaseURL,
		MaxRetries: a.cfg.Planner.MaxRetries,
	}, a.log.Component("agent"))
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to create completion backend: %w", err)
	}

	p, err := planner.New(planner.Config{
		Backend:         backend,
		Catalog:         registry,
		Model:           a.cfg.Planner.Model,
		MaxTokens:       a.cfg.Planner.MaxTokens,
		StrictArguments: a.cfg.Planner.StrictArguments,
		Options:         plannerOptionsFrom(a.cfg),
		Logger:          a.log.Component("planner"),
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	executor, err := toolexecutor.NewExecutor(toolexecutor.ExecutorConfig{
		Provider: client,
		Logger:   a.log.Component("toolexecutor"),
		Timeout:  a.cfg.ToolTimeout(),
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	return &session{
		client:   client,
		registry: registry,
		planner:  p,
		executor: executor,
		logger:   a.log.Component("orchestrator"),
	}, nil
}

// orchestrator builds a fresh loop instance over the session.
func (s *session) orchestrator(observer orchestrator.Observer) (*orchestrator.Orchestrator, error) {
	return orchestrator.New(s.planner, s.executor, s.registry,
		orchestrator.WithLogger(s.logger),
		orchestrator.WithObserver(observer),
	)
}

func (s *session) close() {
	if err := s.client.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to close tool server connection")
	}
}

// exitError reports a run that ended without completing.
type exitError struct {
	result *orchestrator.Result
}

func (e *exitError) Error() string {
	return fmt.Sprintf("run %s: %s", e.result.Terminal, e.result.Reason)
}

// ExitCode maps an Execute error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		switch ee.result.Terminal {
		case orchestrator.TerminalExhausted:
			return 3
		case orchestrator.TerminalCancelled:
			return 130
		}
		return 2
	}
	return 1
}
