package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/querypilot/querypilot/internal/database"
	"github.com/querypilot/querypilot/internal/metrics"
)

// NewMCPServer builds an MCP server exposing the tool catalog against
// manager. The caller decides the transport (stdio for the serve command).
func NewMCPServer(manager *database.Manager, version string) *server.MCPServer {
	s := server.NewMCPServer("querypilot", version,
		server.WithToolCapabilities(false),
	)

	s.AddTool(
		mcp.NewTool(ToolListDatabases,
			mcp.WithDescription("List all available SQLite database files and show which one is active."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			result := manager.ListDatabases(ctx)
			metrics.ObserveToolCall(ToolListDatabases, outcomeOf(result))
			return mcp.NewToolResultText(result), nil
		},
	)

	s.AddTool(
		mcp.NewTool(ToolCreateDatabase,
			mcp.WithDescription("Create a new SQLite database file and make it the active database."),
			mcp.WithString("db_name",
				mcp.Required(),
				mcp.Description("Name of the database file (without .db extension)"),
			),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			dbName, err := req.RequireString("db_name")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			result := manager.CreateDatabase(ctx, dbName)
			metrics.ObserveToolCall(ToolCreateDatabase, outcomeOf(result))
			return mcp.NewToolResultText(result), nil
		},
	)

	s.AddTool(
		mcp.NewTool(ToolSwitchDatabase,
			mcp.WithDescription("Switch to a different existing database file."),
			mcp.WithString("db_name",
				mcp.Required(),
				mcp.Description("Name of the database file (without .db extension)"),
			),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			dbName, err := req.RequireString("db_name")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			result := manager.SwitchDatabase(ctx, dbName)
			metrics.ObserveToolCall(ToolSwitchDatabase, outcomeOf(result))
			return mcp.NewToolResultText(result), nil
		},
	)

	s.AddTool(
		mcp.NewTool(ToolQueryData,
			mcp.WithDescription("Execute a SQL statement (CREATE, INSERT, SELECT, UPDATE, DELETE) on the active database."),
			mcp.WithString("sql",
				mcp.Required(),
				mcp.Description("The SQL statement to execute"),
			),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			sqlText, err := req.RequireString("sql")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			result := manager.QueryData(ctx, sqlText)
			metrics.ObserveToolCall(ToolQueryData, outcomeOf(result))
			return mcp.NewToolResultText(result), nil
		},
	)

	return s
}
