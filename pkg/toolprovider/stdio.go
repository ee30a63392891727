package toolprovider

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultStdioTimeout = 30 * time.Second

// JSON-RPC 2.0 envelopes used on the stdio pipe.
type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      *int        `json:"id,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      interface{}     `json:"id"`
}

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// StdioServer runs an MCP server as a subprocess and speaks newline-delimited
// JSON-RPC over its stdin/stdout. Results are returned as json.RawMessage.
type StdioServer struct {
	command string
	args    []string
	env     []string
	timeout time.Duration
	logger  zerolog.Logger

	mu      sync.Mutex
	process *exec.Cmd
	stdin   io.WriteCloser
	nextID  int
	pending map[int]chan *rpcResponse
}

// NewStdioServer creates an adapter for the command in cfg. Call Start before use.
func NewStdioServer(cfg Config) *StdioServer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultStdioTimeout
	}
	return &StdioServer{
		command: cfg.Command,
		args:    cfg.Args,
		env:     cfg.Env,
		timeout: timeout,
		logger:  cfg.Logger.With().Str("mcp_command", cfg.Command).Logger(),
		pending: make(map[int]chan *rpcResponse),
	}
}

// Start launches the process and performs the initialize handshake.
func (s *StdioServer) Start(ctx context.Context) error {
	if s.command == "" {
		return fmt.Errorf("stdio transport requires a command")
	}

	s.mu.Lock()
	if s.process != nil {
		s.mu.Unlock()
		return nil
	}

	// The process outlives ctx; Close terminates it.
	cmd := exec.Command(s.command, s.args...)
	cmd.Env = append(os.Environ(), s.env...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to start MCP server %s: %w", s.command, err)
	}

	s.process = cmd
	s.stdin = stdin
	s.mu.Unlock()

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	go s.listen(scanner)

	if err := s.initialize(ctx); err != nil {
		_ = s.Close()
		return err
	}
	return nil
}

func (s *StdioServer) listen(scanner *bufio.Scanner) {
	defer s.failPending("MCP server closed its output")

	for scanner.Scan() {
		var resp rpcResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			s.logger.Debug().Err(err).Msg("Ignoring non-JSON line from MCP server")
			continue
		}

		id, ok := resp.ID.(float64)
		if !ok {
			// Notifications and server-initiated requests carry no numeric id we own.
			continue
		}

		s.mu.Lock()
		ch, exists := s.pending[int(id)]
		if exists {
			delete(s.pending, int(id))
		}
		s.mu.Unlock()

		if exists {
			ch <- &resp
		}
	}
}

func (s *StdioServer) failPending(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ch := range s.pending {
		ch <- &rpcResponse{Error: &rpcError{Code: -32000, Message: message}}
		delete(s.pending, id)
	}
}

func (s *StdioServer) initialize(ctx context.Context) error {
	params := map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]interface{}{},
		"clientInfo": map[string]interface{}{
			"name":    clientName,
			"version": clientVersion,
		},
	}
	if _, err := s.call(ctx, "initialize", params); err != nil {
		return fmt.Errorf("failed to initialize MCP session: %w", err)
	}
	return s.notify("notifications/initialized", nil)
}

func (s *StdioServer) write(req rpcRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stdin == nil {
		return fmt.Errorf("MCP server is not running")
	}
	_, err = s.stdin.Write(append(data, '\n'))
	return err
}

func (s *StdioServer) notify(method string, params interface{}) error {
	return s.write(rpcRequest{JSONRPC: "2.0", Method: method, Params: params})
}

func (s *StdioServer) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	ch := make(chan *rpcResponse, 1)
	s.pending[id] = ch
	s.mu.Unlock()

	forget := func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}

	if err := s.write(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: &id}); err != nil {
		forget()
		return nil, err
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, fmt.Errorf("MCP error (%d): %s", resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil
	case <-ctx.Done():
		forget()
		return nil, ctx.Err()
	case <-timer.C:
		forget()
		return nil, fmt.Errorf("MCP request %s timed out after %s", method, s.timeout)
	}
}

// ListTools returns the raw tools/list result.
func (s *StdioServer) ListTools(ctx context.Context) (interface{}, error) {
	res, err := s.call(ctx, "tools/list", map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CallTool returns the raw tools/call result.
func (s *StdioServer) CallTool(ctx context.Context, name string, arguments map[string]interface{}) (interface{}, error) {
	res, err := s.call(ctx, "tools/call", map[string]interface{}{
		"name":      name,
		"arguments": arguments,
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Close stops the server process.
func (s *StdioServer) Close() error {
	s.mu.Lock()
	proc := s.process
	stdin := s.stdin
	s.process = nil
	s.stdin = nil
	s.mu.Unlock()

	if stdin != nil {
		_ = stdin.Close()
	}
	if proc != nil && proc.Process != nil {
		_ = proc.Process.Kill()
		_ = proc.Wait()
	}
	return nil
}
