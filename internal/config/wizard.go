package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizard creates a wizard reading from stdin and writing to stdout
func NewWizard() *Wizard {
	return NewWizardIO(os.Stdin, os.Stdout)
}

// NewWizardIO creates a wizard over arbitrary streams
func NewWizardIO(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run asks for each setting, starting from base (or the defaults when nil).
// Pressing Enter keeps the value shown in brackets.
func (w *Wizard) Run(base *Config) (*Config, error) {
	cfg := DefaultConfig()
	if base != nil {
		copied := *base
		cfg = &copied
	}
	validator := NewValidator()

	fmt.Fprintln(w.out, "=== Calendar Agent Configuration ===")
	fmt.Fprintln(w.out)

	// Tool server
	fmt.Fprintln(w.out, "MCP tool server:")
	transport, err := w.askValid("Transport (sse/http/stdio)", cfg.Provider.Transport, validator.ValidateTransport)
	if err != nil {
		return nil, err
	}
	cfg.Provider.Transport = transport

	if transport == "stdio" {
		command, err := w.ask("Server command", cfg.Provider.Command)
		if err != nil {
			return nil, err
		}
		cfg.Provider.Command = command

		args, err := w.ask("Server arguments (space separated)", strings.Join(cfg.Provider.Args, " "))
		if err != nil {
			return nil, err
		}
		cfg.Provider.Args = strings.Fields(args)
	} else {
		serverURL, err := w.askValid("Server URL", cfg.Provider.URL, validator.ValidateServerURL)
		if err != nil {
			return nil, err
		}
		cfg.Provider.URL = serverURL
	}
	fmt.Fprintln(w.out)

	// Planner
	fmt.Fprintln(w.out, "Planner:")
	backend, err := w.askValid("Backend (openai/anthropic)", cfg.Planner.Backend, validator.ValidateBackend)
	if err != nil {
		return nil, err
	}
	if backend != cfg.Planner.Backend && backend == "anthropic" && cfg.Planner.Model == DefaultConfig().Planner.Model {
		cfg.Planner.Model = "claude-sonnet-4-5"
	}
	cfg.Planner.Backend = backend

	for {
		current := cfg.APIKey()
		shown := ""
		if current != "" {
			shown = "keep current"
		}
		fmt.Fprintf(w.out, "%s API key [%s]: ", backend, shown)
		key, err := w.readLine()
		if err != nil {
			return nil, err
		}
		if key == "" && current != "" {
			break
		}
		if err := validator.ValidateAPIKey(key, backend); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		if backend == "anthropic" {
			cfg.AnthropicAPIKey = key
		} else {
			cfg.OpenAIAPIKey = key
		}
		break
	}

	model, err := w.ask("Model", cfg.Planner.Model)
	if err != nil {
		return nil, err
	}
	cfg.Planner.Model = model

	if backend == "openai" {
		effort, err := w.askValid("Reasoning effort (minimal/low/medium/high)", cfg.Planner.ReasoningEffort, validator.ValidateReasoningEffort)
		if err != nil {
			return nil, err
		}
		cfg.Planner.ReasoningEffort = effort

		verbosity, err := w.askValid("Verbosity (low/medium/high)", cfg.Planner.Verbosity, validator.ValidateVerbosity)
		if err != nil {
			return nil, err
		}
		cfg.Planner.Verbosity = verbosity
	}
	fmt.Fprintln(w.out)

	// Logging
	fmt.Fprintln(w.out, "Logging:")
	level, err := w.askValid("Log level (debug/info/warn/error)", cfg.Logging.Level, validator.ValidateLogLevel)
	if err != nil {
		return nil, err
	}
	cfg.Logging.Level = level

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete!")

	return cfg, nil
}

func (w *Wizard) ask(prompt, current string) (string, error) {
	fmt.Fprintf(w.out, "%s [%s]: ", prompt, current)
	answer, err := w.readLine()
	if err != nil {
		return "", err
	}
	if answer == "" {
		return current, nil
	}
	return answer, nil
}

func (w *Wizard) askValid(prompt, current string, validate func(string) error) (string, error) {
	for {
		answer, err := w.ask(prompt, current)
		if err != nil {
			return "", err
		}
		if err := validate(answer); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		return answer, nil
	}
}

func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
