// Package tools exposes the execution surface as a fixed catalog of named
// operations. All database access from the conversation side goes through a
// Dispatcher; the catalog is also published as structured tool definitions
// for model-side tool calling.
package tools

import "github.com/querypilot/querypilot/internal/llm"

// Tool catalog operation names.
const (
	ToolListDatabases  = "list_databases"
	ToolCreateDatabase = "create_database"
	ToolSwitchDatabase = "switch_database"
	ToolQueryData      = "query_data"
)

// Definitions returns the tool catalog as structured definitions consumable
// by language model providers.
func Definitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        ToolListDatabases,
			Description: "List all available SQLite database files and show which one is active.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        ToolCreateDatabase,
			Description: "Create a new SQLite database file and make it the active database.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"db_name": map[string]any{
						"type":        "string",
						"description": "Name of the database file (without .db extension)",
					},
				},
				"required": []string{"db_name"},
			},
		},
		{
			Name:        ToolSwitchDatabase,
			Description: "Switch to a different existing database file.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"db_name": map[string]any{
						"type":        "string",
						"description": "Name of the database file (without .db extension)",
					},
				},
				"required": []string{"db_name"},
			},
		},
		{
			Name:        ToolQueryData,
			Description: "Execute a SQL statement (CREATE, INSERT, SELECT, UPDATE, DELETE) on the active database.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"sql": map[string]any{
						"type":        "string",
						"description": "The SQL statement to execute",
					},
				},
				"required": []string{"sql"},
			},
		},
	}
}
