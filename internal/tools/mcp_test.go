package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/querypilot/querypilot/internal/database"
)

// rpc drives the server through its JSON-RPC handler and returns the raw
// response.
func rpc(t *testing.T, s *server.MCPServer, body string) string {
	t.Helper()
	response := s.HandleMessage(context.Background(), json.RawMessage(body))
	raw, err := json.Marshal(response)
	require.NoError(t, err)
	return string(raw)
}

func initialize(t *testing.T, s *server.MCPServer) {
	t.Helper()
	rpc(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"test","version":"0"},"capabilities":{}}}`)
}

func TestMCPServerRegistersCatalog(t *testing.T) {
	manager, err := database.NewManager(t.TempDir())
	require.NoError(t, err)
	s := NewMCPServer(manager, "test")
	initialize(t, s)

	listed := rpc(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	require.Contains(t, listed, ToolListDatabases)
	require.Contains(t, listed, ToolCreateDatabase)
	require.Contains(t, listed, ToolSwitchDatabase)
	require.Contains(t, listed, ToolQueryData)
}

func TestMCPServerCallTool(t *testing.T) {
	manager, err := database.NewManager(t.TempDir())
	require.NoError(t, err)
	s := NewMCPServer(manager, "test")
	initialize(t, s)

	result := rpc(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"create_database","arguments":{"db_name":"t"}}}`)
	require.Contains(t, result, "Database 't.db' created successfully.")
	require.Equal(t, "t.db", manager.Active())
}
