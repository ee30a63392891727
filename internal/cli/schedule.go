package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	scheduleSpec          string
	scheduleMaxIterations int
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule --cron <spec> <request>",
	Short: "Run a request on a recurring schedule",
	Long: `Run the same request every time the cron schedule fires, until
interrupted. Each run reconnects to the tool server and starts from an
empty history. Standard five-field specs and descriptors such as @hourly
or "@every 30m" are accepted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleSpec, "cron", "", "cron schedule (e.g. \"0 8 * * 1-5\")")
	scheduleCmd.Flags().IntVar(&scheduleMaxIterations, "max-iterations", 0, "maximum planning iterations per run (default from config)")
	_ = scheduleCmd.MarkFlagRequired("cron")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	request := strings.TrimSpace(strings.Join(args, " "))
	if request == "" {
		return fmt.Errorf("request cannot be empty")
	}

	schedule, err := cron.ParseStandard(scheduleSpec)
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", scheduleSpec, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.close()
	a.startMetrics(ctx)

	c := a.newScheduler(ctx, schedule, request, a.maxIterations(scheduleMaxIterations))
	c.Start()
	a.logger.Info().Str("cron", scheduleSpec).Str("request", request).Msg("Schedule started")
	fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %q (%s). Press Ctrl+C to stop.\n", request, scheduleSpec)

	<-ctx.Done()
	<-c.Stop().Done()
	a.logger.Info().Msg("Schedule stopped")
	return nil
}

// newScheduler registers one job that runs request through a fresh session
// and orchestrator. Overlapping fires are skipped.
func (a *app) newScheduler(ctx context.Context, schedule cron.Schedule, request string, maxIterations int) *cron.Cron {
	l := cronLogger{logger: a.log.Component("cron")}
	c := cron.New(cron.WithLogger(l), cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)))
	c.Schedule(schedule, cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		result, err := a.runOnce(ctx, request, maxIterations)
		if err != nil && result == nil {
			a.logger.Error().Err(err).Msg("Scheduled run failed")
			return
		}
		a.logger.Info().
			Str("run_id", result.RunID).
			Str("terminal", string(result.Terminal)).
			Str("reason", result.Reason).
			Msg("Scheduled run finished")
	}))
	return c
}

// cronLogger routes scheduler messages through zerolog so they share the
// configured sinks and secret redaction.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
