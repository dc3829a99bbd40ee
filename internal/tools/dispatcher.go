package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/querypilot/querypilot/internal/database"
	"github.com/querypilot/querypilot/internal/metrics"
)

// Dispatcher routes a named tool call to the execution surface. The result
// is always text; an error return means the call could not be dispatched at
// all (unknown tool, missing argument, transport down), never a content-level
// failure.
type Dispatcher interface {
	Call(ctx context.Context, name string, args map[string]any) (string, error)
}

// LocalDispatcher executes tool calls against an in-process Manager.
type LocalDispatcher struct {
	manager *database.Manager
}

// NewLocalDispatcher creates a dispatcher bound to manager.
func NewLocalDispatcher(manager *database.Manager) *LocalDispatcher {
	return &LocalDispatcher{manager: manager}
}

// Call dispatches one catalog operation.
func (d *LocalDispatcher) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	var result string
	switch name {
	case ToolListDatabases:
		result = d.manager.ListDatabases(ctx)
	case ToolCreateDatabase:
		dbName, err := stringArg(args, "db_name")
		if err != nil {
			return "", err
		}
		result = d.manager.CreateDatabase(ctx, dbName)
	case ToolSwitchDatabase:
		dbName, err := stringArg(args, "db_name")
		if err != nil {
			return "", err
		}
		result = d.manager.SwitchDatabase(ctx, dbName)
	case ToolQueryData:
		sqlText, err := stringArg(args, "sql")
		if err != nil {
			return "", err
		}
		result = d.manager.QueryData(ctx, sqlText)
	default:
		return "", fmt.Errorf("unknown tool %q", name)
	}

	metrics.ObserveToolCall(name, outcomeOf(result))
	return result, nil
}

func stringArg(args map[string]any, key string) (string, error) {
	value, ok := args[key].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("argument %q is required", key)
	}
	return value, nil
}

func outcomeOf(result string) string {
	if strings.HasPrefix(result, "Error") {
		return "error"
	}
	return "ok"
}
