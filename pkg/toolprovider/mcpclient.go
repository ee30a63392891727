package toolprovider

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
)

// MCPClient talks to an MCP server through the mcp-go client.
type MCPClient struct {
	client *client.Client
	logger zerolog.Logger
}

// DialMCP connects over SSE (URLs ending in /sse, or Transport "sse") or
// streamable HTTP and performs the initialize handshake.
func DialMCP(ctx context.Context, cfg Config) (*MCPClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("mcp server url is required")
	}

	var (
		c   *client.Client
		err error
	)
	if cfg.Transport == TransportHTTP && !strings.HasSuffix(cfg.URL, "/sse") {
		c, err = client.NewStreamableHttpClient(cfg.URL)
	} else {
		c, err = client.NewSSEMCPClient(cfg.URL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client for %s: %w", cfg.URL, err)
	}

	m := newMCPClient(c, cfg.Logger.With().Str("mcp_url", cfg.URL).Logger())
	if err := m.connect(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return m, nil
}

func newMCPClient(c *client.Client, logger zerolog.Logger) *MCPClient {
	return &MCPClient{client: c, logger: logger}
}

// connect starts the transport and runs initialize. ctx must outlive the
// connection for SSE, which keeps its event stream bound to it.
func (m *MCPClient) connect(ctx context.Context) error {
	if err := m.client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start MCP transport: %w", err)
	}

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}

	res, err := m.client.Initialize(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to initialize MCP session: %w", err)
	}

	m.logger.Info().
		Str("server", res.ServerInfo.Name).
		Str("server_version", res.ServerInfo.Version).
		Str("protocol", res.ProtocolVersion).
		Msg("Connected to MCP server")
	return nil
}

// ListTools returns the server's *mcp.ListToolsResult.
func (m *MCPClient) ListTools(ctx context.Context) (interface{}, error) {
	res, err := m.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CallTool returns the server's *mcp.CallToolResult.
func (m *MCPClient) CallTool(ctx context.Context, name string, arguments map[string]interface{}) (interface{}, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = arguments

	res, err := m.client.CallTool(ctx, req)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying transport.
func (m *MCPClient) Close() error {
	return m.client.Close()
}
