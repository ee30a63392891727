package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/harun/calendar-agent/internal/config"
	"github.com/spf13/cobra"
)

const chatPrompt = "Please enter your request: "

var chatMaxIterations int

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive session",
	Long: `Start an interactive session. Each line is run as a separate request.
Type exit, quit or q to leave. Ctrl+C cancels the request in flight; at the
prompt it exits. Planner settings are reloaded when the config file changes.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().IntVar(&chatMaxIterations, "max-iterations", 0, "maximum planning iterations per request (default from config)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := newApp(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.close()
	a.startMetrics(ctx)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "Calendar Agent")
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "Connecting to: %s\n", a.providerTarget())

	sess, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	if sess.registry.Len() == 0 {
		return fmt.Errorf("no tools available from tool server")
	}
	fmt.Fprintf(out, "Loaded %d tools\n", sess.registry.Len())
	fmt.Fprintln(out, "Type 'exit' to quit, or press Ctrl+C")
	fmt.Fprintln(out)

	if a.loader.Watch(a.logger, func(cfg *config.Config) {
		sess.planner.UpdateOptions(plannerOptionsFrom(cfg))
	}) {
		a.logger.Debug().Str("file", a.loader.GetConfigPath()).Msg("Watching config file")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return a.repl(ctx, sess, cmd.InOrStdin(), out, sigCh)
}

// repl reads requests until exit, EOF or an interrupt at the prompt.
// An interrupt while a request runs cancels only that request.
func (a *app) repl(ctx context.Context, sess *session, in io.Reader, out io.Writer, interrupts <-chan os.Signal) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	maxIterations := a.maxIterations(chatMaxIterations)
	for {
		fmt.Fprint(out, chatPrompt)

		var line string
		select {
		case <-interrupts:
			fmt.Fprintln(out, "\n\nInterrupted by user. Goodbye!")
			return nil
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out, "\n\nGoodbye!")
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch strings.ToLower(line) {
		case "exit", "quit", "q":
			fmt.Fprintln(out, "\nGoodbye!")
			return nil
		case "":
			fmt.Fprintln(out, "Please enter a valid request.")
			fmt.Fprintln(out)
			continue
		}

		orch, err := sess.orchestrator(newConsoleRenderer(out))
		if err != nil {
			return err
		}

		runCtx, cancelRun := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			select {
			case <-interrupts:
				cancelRun()
			case <-done:
			}
		}()

		// Tool failures and aborted runs are already shown by the renderer.
		_, _ = orch.RunRequest(runCtx, line, maxIterations)
		close(done)
		cancelRun()
		fmt.Fprintln(out, rule)
		fmt.Fprintln(out)
	}
}

func (a *app) providerTarget() string {
	if a.cfg.Provider.Transport == "stdio" {
		return strings.TrimSpace(a.cfg.Provider.Command + " " + strings.Join(a.cfg.Provider.Args, " "))
	}
	return a.cfg.Provider.URL
}
