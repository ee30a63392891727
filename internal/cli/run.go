package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/harun/calendar-agent/pkg/orchestrator"
	"github.com/spf13/cobra"
)

var runMaxIterations int

var runCmd = &cobra.Command{
	Use:   "run <request>",
	Short: "Run a single request to completion",
	Long: `Run a single natural-language request against the calendar tools.
The agent plans and executes steps until the request is complete or the
iteration limit is reached. The exit code is non-zero unless it completed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&runMaxIterations, "max-iterations", 0, "maximum planning iterations (default from config)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	request := strings.TrimSpace(strings.Join(args, " "))
	if request == "" {
		return fmt.Errorf("request cannot be empty")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.close()
	a.startMetrics(ctx)

	result, err := a.runOnce(ctx, request, a.maxIterations(runMaxIterations))
	if err != nil && result == nil {
		return err
	}
	if !result.Succeeded() {
		return &exitError{result: result}
	}
	return nil
}

func (a *app) maxIterations(flag int) int {
	if flag != 0 {
		return flag
	}
	return a.cfg.Agent.MaxIterations
}

// runOnce connects, runs request through a fresh orchestrator and disconnects.
func (a *app) runOnce(ctx context.Context, request string, maxIterations int) (*orchestrator.Result, error) {
	sess, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.close()

	orch, err := sess.orchestrator(newConsoleRenderer(a.out))
	if err != nil {
		return nil, err
	}
	return orch.RunRequest(ctx, request, maxIterations)
}
