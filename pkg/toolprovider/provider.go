// Package toolprovider connects to MCP tool servers.
//
// Two transports are supported: HTTP (SSE or streamable HTTP, through the
// mcp-go client) and stdio (a JSON-RPC subprocess). Both satisfy
// toolexecutor.ToolProvider and hand back provider-native results, which
// toolexecutor normalizes.
package toolprovider

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Transport names accepted in Config.Transport.
const (
	TransportSSE   = "sse"
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

const (
	clientName    = "calendar-agent"
	clientVersion = "0.1.0"
)

// Client is a connected tool provider.
type Client interface {
	ListTools(ctx context.Context) (interface{}, error)
	CallTool(ctx context.Context, name string, arguments map[string]interface{}) (interface{}, error)
	Close() error
}

// Config selects and configures a transport.
type Config struct {
	Transport string
	URL       string
	Command   string
	Args      []string
	Env       []string
	// Timeout bounds each stdio request. HTTP transports rely on ctx.
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Open connects to the tool server described by cfg and completes the MCP handshake.
func Open(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Transport {
	case "", TransportSSE, TransportHTTP:
		return DialMCP(ctx, cfg)
	case TransportStdio:
		server := NewStdioServer(cfg)
		if err := server.Start(ctx); err != nil {
			return nil, err
		}
		return server, nil
	default:
		return nil, fmt.Errorf("unsupported transport: %s", cfg.Transport)
	}
}
