// Package schema provides live database schema introspection for LLM context.
package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when the requested table does not exist.
var ErrNotFound = errors.New("table not found")

// Table represents a database table and its structure.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Column represents a table column.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	IsPK     bool   `json:"isPk,omitempty"`
}

// Inspector reads table metadata from the database. It is deliberately
// uncached: tables can be created between requests, so every prompt is
// grounded in a fresh read.
type Inspector struct {
	db      *sql.DB
	dialect string // "postgres" or "mysql"
}

// NewInspector creates an Inspector for the given pool and dialect.
func NewInspector(db *sql.DB, dialect string) *Inspector {
	return &Inspector{db: db, dialect: dialect}
}

// Get returns the schema of one table, columns in ordinal order.
// Returns ErrNotFound if the table has no columns in the catalog.
func (i *Inspector) Get(ctx context.Context, table string) (Table, error) {
	var (
		columns []Column
		err     error
	)
	if i.dialect == "mysql" {
		columns, err = i.mysqlColumns(ctx, table)
	} else {
		columns, err = i.postgresColumns(ctx, table)
	}
	if err != nil {
		return Table{}, fmt.Errorf("inspect %s: %w", table, err)
	}
	if len(columns) == 0 {
		return Table{}, fmt.Errorf("inspect %s: %w", table, ErrNotFound)
	}
	return Table{Name: table, Columns: columns}, nil
}

// List returns the names of all user tables, sorted.
func (i *Inspector) List(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`
	if i.dialect == "mysql" {
		query = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`
	}

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (i *Inspector) postgresColumns(ctx context.Context, table string) ([]Column, error) {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES' AS nullable,
			EXISTS (
				SELECT 1
				FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON tc.constraint_name = kcu.constraint_name
					AND tc.table_schema = kcu.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY'
				  AND tc.table_schema = c.table_schema
				  AND tc.table_name = c.table_name
				  AND kcu.column_name = c.column_name
			) AS is_pk
		FROM information_schema.columns c
		WHERE c.table_schema = 'public'
		  AND c.table_name = $1
		ORDER BY c.ordinal_position`

	return i.scanColumns(ctx, query, table)
}

func (i *Inspector) mysqlColumns(ctx context.Context, table string) ([]Column, error) {
	query := `
		SELECT
			column_name,
			column_type,
			is_nullable = 'YES' AS nullable,
			column_key = 'PRI' AS is_pk
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
		  AND table_name = ?
		ORDER BY ordinal_position`

	return i.scanColumns(ctx, query, table)
}

func (i *Inspector) scanColumns(ctx context.Context, query, table string) ([]Column, error) {
	rows, err := i.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.Type, &col.Nullable, &col.IsPK); err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// ToText serializes a table schema to the text format used in LLM prompts.
func ToText(t Table) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("TABLE: %s\n", t.Name))
	for _, col := range t.Columns {
		sb.WriteString(fmt.Sprintf("  - %s: %s", col.Name, col.Type))

		var attrs []string
		if col.IsPK {
			attrs = append(attrs, "PK")
		}
		if !col.Nullable {
			attrs = append(attrs, "NOT NULL")
		}
		if len(attrs) > 0 {
			sb.WriteString(", " + strings.Join(attrs, ", "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
