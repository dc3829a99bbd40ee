package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPDispatcher dispatches tool calls to an external MCP server over stdio,
// mirroring the in-process catalog one-to-one.
type MCPDispatcher struct {
	client *client.Client
}

// NewMCPDispatcher spawns the server command, connects over stdio and
// performs the MCP initialize handshake.
func NewMCPDispatcher(ctx context.Context, command string, args ...string) (*MCPDispatcher, error) {
	c, err := client.NewStdioMCPClient(command, nil, args...)
	if err != nil {
		return nil, fmt.Errorf("start MCP server: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "querypilot",
		Version: "dev",
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, fmt.Errorf("initialize MCP session: %w", err)
	}

	return &MCPDispatcher{client: c}, nil
}

// Call invokes the named tool on the remote server and returns the joined
// text content of the result.
func (d *MCPDispatcher) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := d.client.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("call tool %s: %w", name, err)
	}

	var parts []string
	for _, content := range result.Content {
		if text, ok := mcp.AsTextContent(content); ok {
			parts = append(parts, text.Text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("tool %s returned no text content", name)
	}
	return strings.Join(parts, "\n"), nil
}

// Close shuts down the stdio transport and the spawned server.
func (d *MCPDispatcher) Close() error {
	return d.client.Close()
}
