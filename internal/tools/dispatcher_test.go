package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/querypilot/querypilot/internal/database"
)

func newTestDispatcher(t *testing.T) *LocalDispatcher {
	t.Helper()
	manager, err := database.NewManager(t.TempDir())
	require.NoError(t, err)
	return NewLocalDispatcher(manager)
}

func TestDispatcherUnknownTool(t *testing.T) {
	d := newTestDispatcher(t)
	_, err := d.Call(context.Background(), "drop_everything", nil)
	require.ErrorContains(t, err, "unknown tool")
}

func TestDispatcherMissingArgument(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	_, err := d.Call(ctx, ToolCreateDatabase, map[string]any{})
	require.ErrorContains(t, err, `argument "db_name" is required`)

	_, err = d.Call(ctx, ToolQueryData, map[string]any{"sql": 42})
	require.ErrorContains(t, err, `argument "sql" is required`)
}

func TestDispatcherRoutesCatalog(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	result, err := d.Call(ctx, ToolCreateDatabase, map[string]any{"db_name": "t"})
	require.NoError(t, err)
	require.Equal(t, "Database 't.db' created successfully.", result)

	result, err = d.Call(ctx, ToolSwitchDatabase, map[string]any{"db_name": "t"})
	require.NoError(t, err)
	require.Equal(t, "Switched to database 't.db'.", result)

	result, err = d.Call(ctx, ToolListDatabases, nil)
	require.NoError(t, err)
	require.Contains(t, result, "- t.db (active)")

	result, err = d.Call(ctx, ToolQueryData, map[string]any{"sql": "CREATE TABLE a(id INTEGER)"})
	require.NoError(t, err)
	require.Contains(t, result, "Query executed successfully.")
}

func TestDispatcherContentFailureIsNotAnError(t *testing.T) {
	d := newTestDispatcher(t)

	// Bad SQL is a content-level failure: it comes back as text, not error.
	result, err := d.Call(context.Background(), ToolQueryData, map[string]any{"sql": "SELECT 1"})
	require.NoError(t, err)
	require.Contains(t, result, "No database selected")
}

func TestDefinitionsCoverCatalog(t *testing.T) {
	defs := Definitions()
	require.Len(t, defs, 4)

	byName := map[string]int{}
	for i, def := range defs {
		require.NotEmpty(t, def.Description)
		byName[def.Name] = i
	}
	require.Contains(t, byName, ToolListDatabases)
	require.Contains(t, byName, ToolCreateDatabase)
	require.Contains(t, byName, ToolSwitchDatabase)
	require.Contains(t, byName, ToolQueryData)

	query := defs[byName[ToolQueryData]]
	require.Equal(t, []string{"sql"}, query.Parameters["required"])
}

func TestOutcomeOf(t *testing.T) {
	require.Equal(t, "error", outcomeOf("Error: Database 'x.db' does not exist."))
	require.Equal(t, "ok", outcomeOf("Query returned no results."))
}
