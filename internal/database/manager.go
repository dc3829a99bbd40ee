// Package database is the execution surface: a registry of SQLite database
// files under one root directory and the only boundary in the program that
// touches persistent storage. Every operation returns its outcome as text;
// content-level failures (bad SQL, missing database) never escape as errors.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

const (
	// Extension is the filename suffix for managed database files.
	Extension = ".db"

	defaultQueryTimeout = 30 * time.Second
)

// Manager owns the database files under root and the single active pointer.
// The pointer is scoped to the Manager, not the process: each session holds
// its own Manager, so concurrent sessions cannot observe each other's
// switches.
type Manager struct {
	root    string
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	active string // filename under root, empty when no database is active
}

// Option configures a Manager.
type Option func(*Manager)

// WithQueryTimeout bounds each statement execution.
func WithQueryTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithLogger sets the logger used for per-statement logging.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager rooted at root, creating the directory when
// missing. No database is active initially.
func NewManager(root string, opts ...Option) (*Manager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create database root: %w", err)
	}

	m := &Manager{
		root:    root,
		timeout: defaultQueryTimeout,
		logger:  slog.Default().With("component", "database"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Root returns the directory holding the managed database files.
func (m *Manager) Root() string {
	return m.root
}

// Active returns the filename of the active database, or "" when unset.
func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// ListDatabases enumerates the database files under the root directory and
// marks the active one. It has no side effects.
func (m *Manager) ListDatabases(ctx context.Context) string {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return fmt.Sprintf("Error listing databases: %v", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Extension) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	if len(names) == 0 {
		return fmt.Sprintf("No databases found in %s. Create one with create_database.", m.root)
	}

	active := m.Active()
	var b strings.Builder
	b.WriteString("Available databases:\n")
	for _, name := range names {
		if name == active {
			fmt.Fprintf(&b, "- %s (active)\n", name)
		} else {
			fmt.Fprintf(&b, "- %s\n", name)
		}
	}
	if active == "" {
		b.WriteString("No database is currently active.")
	} else {
		fmt.Fprintf(&b, "Currently active: %s", active)
	}
	return b.String()
}

// CreateDatabase creates an empty database file named name under the root
// and makes it active. Creating an existing name truncates it.
func (m *Manager) CreateDatabase(ctx context.Context, name string) string {
	if err := validateName(name); err != nil {
		return fmt.Sprintf("Error creating database: %v", err)
	}

	file := name + Extension
	f, err := os.Create(filepath.Join(m.root, file))
	if err != nil {
		return fmt.Sprintf("Error creating database: %v", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Sprintf("Error creating database: %v", err)
	}

	m.mu.Lock()
	m.active = file
	m.mu.Unlock()

	m.logger.Info("created database", "file", file)
	return fmt.Sprintf("Database '%s' created successfully.", file)
}

// SwitchDatabase makes the named database active. The file must already
// exist; its contents are not validated.
func (m *Manager) SwitchDatabase(ctx context.Context, name string) string {
	if err := validateName(name); err != nil {
		return fmt.Sprintf("Error: Database '%s%s' does not exist.", name, Extension)
	}

	file := name + Extension
	if _, err := os.Stat(filepath.Join(m.root, file)); err != nil {
		return fmt.Sprintf("Error: Database '%s' does not exist.", file)
	}

	m.mu.Lock()
	m.active = file
	m.mu.Unlock()

	m.logger.Info("switched database", "file", file)
	return fmt.Sprintf("Switched to database '%s'.", file)
}

// QueryData executes the raw SQL text against the active database. A
// statement with a SELECT prefix returns the fetched rows, anything else a
// rows-affected count. The connection is opened and closed within the call.
func (m *Manager) QueryData(ctx context.Context, sqlText string) string {
	active := m.Active()
	if active == "" {
		return "No database selected. Please create or switch to a database first."
	}

	m.logger.Info("executing query", "database", active, "sql", sqlText)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	db, err := sql.Open("sqlite", filepath.Join(m.root, active))
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	defer db.Close()

	if isSelect(sqlText) {
		return m.runSelect(ctx, db, sqlText)
	}
	return m.runExec(ctx, db, sqlText)
}

func (m *Manager) runSelect(ctx context.Context, db *sql.DB, sqlText string) string {
	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	var lines []string
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return fmt.Sprintf("Error: %v", err)
		}
		lines = append(lines, formatRow(values))
	}
	if err := rows.Err(); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	if len(lines) == 0 {
		return "Query returned no results."
	}
	return strings.Join(lines, "\n")
}

func (m *Manager) runExec(ctx context.Context, db *sql.DB, sqlText string) string {
	result, err := db.ExecContext(ctx, sqlText)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return fmt.Sprintf("Query executed successfully. Rows affected: %d", affected)
}

func isSelect(sqlText string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sqlText)), "SELECT")
}

// formatRow renders one result row as a parenthesized tuple, matching the
// listing format consumed downstream: (1,) for single columns, (1, 'a')
// otherwise.
func formatRow(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatValue(v)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return "'" + string(t) + "'"
	case string:
		return "'" + t + "'"
	default:
		return fmt.Sprintf("%v", t)
	}
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("database name is empty")
	}
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return fmt.Errorf("database name %q must not contain path separators", name)
	}
	return nil
}
