// Package engine executes translated SQL against the analytic store and
// classifies execution failures into operator-actionable hints.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// knownTables lists the dataset tables the engine probes for at setup.
var knownTables = []string{
	"floats",
	"profiles",
	"measurements",
	"spatial_summaries",
	"quality_control_tests",
	"quality_control_results",
}

// Row is one result row keyed by column name.
type Row map[string]interface{}

// Engine wraps the analytic database connection. It is initialized once at
// startup and shared read-only across requests.
type Engine struct {
	db     *sql.DB
	logger *zap.Logger

	setupOnce sync.Once
	setupErr  error
	available []string
}

// Open opens the analytic database and probes available tables. Setup is
// idempotent even when startup logic runs concurrently.
func Open(dbPath string, logger *zap.Logger) (*Engine, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open analytic database: %w", err)
	}

	e := &Engine{db: db, logger: logger}
	if err := e.setup(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return e, nil
}

// setup records which known dataset tables are present.
func (e *Engine) setup() error {
	e.setupOnce.Do(func() {
		for _, table := range knownTables {
			var name string
			err := e.db.QueryRow(
				"SELECT name FROM sqlite_master WHERE type IN ('table','view') AND name = ?", table,
			).Scan(&name)
			if err == sql.ErrNoRows {
				continue
			}
			if err != nil {
				e.setupErr = fmt.Errorf("failed to probe table %s: %w", table, err)
				return
			}
			e.available = append(e.available, table)
			e.logger.Info("Analytic table available", zap.String("table", table))
		}
	})
	return e.setupErr
}

// Close closes the database connection.
func (e *Engine) Close() error {
	return e.db.Close()
}

// AvailableTables returns the dataset tables found at setup.
func (e *Engine) AvailableTables() []string {
	return e.available
}

// Ping verifies the connection, for health checks.
func (e *Engine) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

// Execute runs a query and converts the result set into rows keyed by
// column name. Execution errors are classified, logged as hints for
// operators, and reported as (nil, false) — they are never raised past this
// boundary.
func (e *Engine) Execute(ctx context.Context, query string) ([]Row, bool) {
	query = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(query), ";"))
	if query == "" {
		return nil, false
	}

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		e.logExecutionFailure(query, err)
		return nil, false
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		e.logExecutionFailure(query, err)
		return nil, false
	}

	return result, true
}

// QueryArgs runs a parameterized query, used by the filter builder. Unlike
// Execute, errors propagate so the HTTP layer can report them.
func (e *Engine) QueryArgs(ctx context.Context, query string, args ...interface{}) ([]Row, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute filtered query: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// QueryRowArgs runs a parameterized single-value query.
func (e *Engine) QueryRowArgs(ctx context.Context, query string, dest interface{}, args ...interface{}) error {
	return e.db.QueryRowContext(ctx, query, args...).Scan(dest)
}

// scanRows converts a result set into column-keyed row maps.
func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	var result []Row
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

// logExecutionFailure classifies an execution error by substring inspection
// and logs an actionable hint.
func (e *Engine) logExecutionFailure(query string, err error) {
	msg := strings.ToLower(err.Error())

	var hint string
	switch {
	case strings.Contains(msg, "no such table"), strings.Contains(msg, "does not exist") && strings.Contains(msg, "table"):
		hint = fmt.Sprintf("unknown table; available tables: %s", strings.Join(e.available, ", "))
	case strings.Contains(msg, "no such column"), strings.Contains(msg, "does not exist") && strings.Contains(msg, "column"):
		hint = "unknown column; check column names against the schema catalog"
	default:
		hint = "query rejected by analytic engine"
	}

	e.logger.Error("Query execution failed",
		zap.String("query", truncate(query, 200)),
		zap.String("hint", hint),
		zap.Error(err),
	)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
