// Package gateway executes SQL statements against the database and
// normalizes the outcome.
//
// Statements are forwarded verbatim, one implicit transaction per
// statement. Failures carry the engine's error message untouched: nothing
// is retried or silently corrected.
package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/chatdb/chatdb/internal/observability"
)

// Result is the outcome of one successfully executed statement: rows for
// SELECT, an affected-row count for everything else (0 for DDL).
type Result struct {
	Columns  []string      `json:"columns,omitempty"`
	Rows     [][]any       `json:"rows,omitempty"`
	Affected int64         `json:"affected"`
	Duration time.Duration `json:"-"`
}

// ExecError wraps an engine rejection (syntax, constraint, missing table)
// together with the statement that caused it.
type ExecError struct {
	Statement string
	Err       error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("execute statement: %v", e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Gateway sends statements to the database pool.
type Gateway struct {
	db *sql.DB
}

// New creates a Gateway on top of an open pool.
func New(db *sql.DB) *Gateway {
	return &Gateway{db: db}
}

// Run dispatches on the statement's leading keyword: row-returning
// statements go through Query, everything else through Exec.
func (g *Gateway) Run(ctx context.Context, stmt string, args ...any) (Result, error) {
	if ReturnsRows(stmt) {
		return g.Query(ctx, stmt, args...)
	}
	return g.Exec(ctx, stmt, args...)
}

// Query executes a row-returning statement and materializes all rows.
func (g *Gateway) Query(ctx context.Context, stmt string, args ...any) (Result, error) {
	start := time.Now()

	rows, err := g.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		observability.CountStatement("error")
		return Result{}, &ExecError{Statement: stmt, Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		observability.CountStatement("error")
		return Result{}, &ExecError{Statement: stmt, Err: err}
	}

	result := Result{Columns: columns}
	for rows.Next() {
		values, err := scanRow(rows, len(columns))
		if err != nil {
			observability.CountStatement("error")
			return Result{}, &ExecError{Statement: stmt, Err: err}
		}
		result.Rows = append(result.Rows, normalizeRow(values))
	}
	if err := rows.Err(); err != nil {
		observability.CountStatement("error")
		return Result{}, &ExecError{Statement: stmt, Err: err}
	}

	result.Duration = time.Since(start)
	observability.CountStatement("ok")
	return result, nil
}

// Exec executes a non-row-returning statement. DDL reports Affected=0.
func (g *Gateway) Exec(ctx context.Context, stmt string, args ...any) (Result, error) {
	start := time.Now()

	res, err := g.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		observability.CountStatement("error")
		return Result{}, &ExecError{Statement: stmt, Err: err}
	}

	// Some drivers don't report affected rows for DDL; treat that as 0.
	affected, err := res.RowsAffected()
	if err != nil {
		affected = 0
	}

	observability.CountStatement("ok")
	return Result{Affected: affected, Duration: time.Since(start)}, nil
}

// ReturnsRows reports whether the statement's leading keyword produces a
// row set.
func ReturnsRows(stmt string) bool {
	upper := strings.ToUpper(strings.TrimSpace(stmt))
	for _, kw := range []string{"SELECT", "WITH", "SHOW", "DESCRIBE", "EXPLAIN"} {
		if strings.HasPrefix(upper, kw) {
			return true
		}
	}
	return false
}

// RowMaps converts a Result's positional rows into column-name keyed maps.
func (r Result) RowMaps() []map[string]any {
	maps := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		m := make(map[string]any, len(r.Columns))
		for i, col := range r.Columns {
			if i < len(row) {
				m[col] = row[i]
			}
		}
		maps = append(maps, m)
	}
	return maps
}

func scanRow(rows *sql.Rows, numCols int) ([]any, error) {
	values := make([]any, numCols)
	ptrs := make([]any, numCols)
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return values, nil
}

func normalizeRow(values []any) []any {
	row := make([]any, len(values))
	for i, v := range values {
		switch val := v.(type) {
		case nil:
			row[i] = nil
		case []byte:
			row[i] = string(val)
		case time.Time:
			row[i] = val.Format(time.RFC3339Nano)
		default:
			row[i] = val
		}
	}
	return row
}
