package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type moduleMetrics struct {
	runTotal      *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	runIterations prometheus.Histogram

	planTotal    *prometheus.CounterVec
	planDuration *prometheus.HistogramVec
	planRejected *prometheus.CounterVec

	toolExecutionTotal    *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec

	discoveredTools prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			runTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "calendar_agent_runs_total",
					Help: "Total orchestrator runs by terminal state.",
				},
				[]string{"terminal"},
			),
			runDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "calendar_agent_run_duration_seconds",
					Help:    "Orchestrator run duration in seconds by terminal state.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"terminal"},
			),
			runIterations: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "calendar_agent_run_iterations",
					Help:    "Number of iteration records produced per run.",
					Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
				},
			),
			planTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "calendar_agent_plans_total",
					Help: "Planner calls by backend and outcome.",
				},
				[]string{"backend", "status"},
			),
			planDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "calendar_agent_plan_duration_seconds",
					Help:    "Planner completion latency in seconds by backend.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"backend"},
			),
			planRejected: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "calendar_agent_plan_rejections_total",
					Help: "Plans rejected by validation, by backend and reason.",
				},
				[]string{"backend", "reason"},
			),
			toolExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "calendar_agent_tool_executions_total",
					Help: "Total tool executions by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolExecutionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "calendar_agent_tool_execution_duration_seconds",
					Help:    "Tool execution duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			discoveredTools: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "calendar_agent_discovered_tools",
					Help: "Number of tools in the most recent discovery.",
				},
			),
		}

		prometheus.MustRegister(
			m.runTotal,
			m.runDuration,
			m.runIterations,
			m.planTotal,
			m.planDuration,
			m.planRejected,
			m.toolExecutionTotal,
			m.toolExecutionDuration,
			m.discoveredTools,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

// RecordRun records a finished run.
func RecordRun(terminal string, iterations int, duration time.Duration) {
	m := getMetrics()
	m.runTotal.WithLabelValues(terminal).Inc()
	m.runDuration.WithLabelValues(terminal).Observe(duration.Seconds())
	m.runIterations.Observe(float64(iterations))
}

// RecordPlan records one planner call. status is "ok", "backend_error" or "malformed".
func RecordPlan(backend, status string, duration time.Duration) {
	m := getMetrics()
	m.planTotal.WithLabelValues(backend, status).Inc()
	m.planDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordPlanRejected records a plan that failed validation.
func RecordPlanRejected(backend, reason string) {
	getMetrics().planRejected.WithLabelValues(backend, reason).Inc()
}

// RecordToolExecution records one tool call.
func RecordToolExecution(tool string, success bool, duration time.Duration) {
	m := getMetrics()
	status := "success"
	if !success {
		status = "error"
	}
	m.toolExecutionTotal.WithLabelValues(tool, status).Inc()
	m.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// SetDiscoveredTools sets the discovered tool gauge.
func SetDiscoveredTools(count int) {
	getMetrics().discoveredTools.Set(float64(count))
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
