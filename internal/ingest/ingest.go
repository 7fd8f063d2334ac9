// Package ingest turns an uploaded CSV into a created table plus inserted
// rows. It bypasses the LLM entirely: column types are inferred by
// scanning values, and the statements go straight through the gateway.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/chatdb/chatdb/internal/gateway"
)

const (
	defaultBatchSize = 500
	defaultVarchar   = 255
	maxVarchar       = 500
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Executor is the slice of the gateway the ingestor needs.
type Executor interface {
	Exec(ctx context.Context, stmt string, args ...any) (gateway.Result, error)
}

// IngestError reports a malformed upload or a failed table creation.
type IngestError struct {
	Reason string
	Err    error
}

func (e *IngestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ingest: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("ingest: %s", e.Reason)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// ColumnDef is one inferred column of the created table.
type ColumnDef struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Report summarizes a completed ingestion.
type Report struct {
	Table        string      `json:"table"`
	Columns      []ColumnDef `json:"columns"`
	RowsInserted int         `json:"rowsInserted"`
}

// Ingestor creates tables from CSV uploads.
type Ingestor struct {
	exec      Executor
	dialect   string
	log       *zap.Logger
	batchSize int
}

// New creates an Ingestor. The dialect selects the placeholder format for
// generated INSERT statements.
func New(exec Executor, dialect string, log *zap.Logger) *Ingestor {
	return &Ingestor{
		exec:      exec,
		dialect:   dialect,
		log:       log,
		batchSize: defaultBatchSize,
	}
}

// Ingest parses the CSV, creates the table, and bulk-inserts all rows.
// If table creation fails no insert is attempted, leaving the database
// unchanged.
func (ing *Ingestor) Ingest(ctx context.Context, r io.Reader, tableName string) (Report, error) {
	if !identifierRe.MatchString(tableName) {
		return Report{}, &IngestError{Reason: fmt.Sprintf("invalid table name %q", tableName)}
	}

	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return Report{}, &IngestError{Reason: "malformed CSV", Err: err}
	}
	if len(records) == 0 {
		return Report{}, &IngestError{Reason: "CSV is empty"}
	}

	header, err := sanitizeHeader(records[0])
	if err != nil {
		return Report{}, err
	}

	data := records[1:]
	if len(data) == 0 {
		return Report{}, &IngestError{Reason: "CSV has no data rows"}
	}

	columns := make([]ColumnDef, len(header))
	for i, name := range header {
		columns[i] = ColumnDef{Name: name, Type: inferType(data, i)}
	}

	createStmt := buildCreate(tableName, columns)
	ing.log.Debug("csv create table", zap.String("sql", createStmt))
	if _, err := ing.exec.Exec(ctx, createStmt); err != nil {
		return Report{}, &IngestError{Reason: "table creation failed", Err: err}
	}

	inserted, err := ing.insertRows(ctx, tableName, header, columns, data)
	if err != nil {
		return Report{}, err
	}

	ing.log.Info("csv ingested",
		zap.String("table", tableName),
		zap.Int("columns", len(columns)),
		zap.Int("rows", inserted),
	)
	return Report{Table: tableName, Columns: columns, RowsInserted: inserted}, nil
}

func (ing *Ingestor) insertRows(ctx context.Context, table string, header []string, columns []ColumnDef, data [][]string) (int, error) {
	var placeholder sq.PlaceholderFormat = sq.Dollar
	if ing.dialect == "mysql" {
		placeholder = sq.Question
	}

	inserted := 0
	for start := 0; start < len(data); start += ing.batchSize {
		end := start + ing.batchSize
		if end > len(data) {
			end = len(data)
		}

		builder := sq.Insert(table).Columns(header...).PlaceholderFormat(placeholder)
		for _, row := range data[start:end] {
			builder = builder.Values(typedValues(row, columns)...)
		}

		stmt, args, err := builder.ToSql()
		if err != nil {
			return inserted, fmt.Errorf("build insert: %w", err)
		}

		res, err := ing.exec.Exec(ctx, stmt, args...)
		if err != nil {
			return inserted, err
		}
		inserted += int(res.Affected)
	}
	return inserted, nil
}

// sanitizeHeader trims names and replaces spaces and dashes with
// underscores; duplicates after sanitation are rejected.
func sanitizeHeader(raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	header := make([]string, len(raw))
	for i, name := range raw {
		clean := strings.TrimSpace(name)
		clean = strings.ReplaceAll(clean, " ", "_")
		clean = strings.ReplaceAll(clean, "-", "_")
		if !identifierRe.MatchString(clean) {
			return nil, &IngestError{Reason: fmt.Sprintf("invalid column header %q", name)}
		}
		lower := strings.ToLower(clean)
		if seen[lower] {
			return nil, &IngestError{Reason: fmt.Sprintf("duplicate column header %q", clean)}
		}
		seen[lower] = true
		header[i] = clean
	}
	return header, nil
}

// inferType scans every value of one column: INTEGER if all parse as
// integers, DOUBLE PRECISION if all parse as numbers, else VARCHAR sized
// from the longest value. Empty cells are NULLs and don't veto a type.
func inferType(data [][]string, col int) string {
	allInt := true
	allFloat := true
	nonEmpty := 0
	maxLen := 0

	for _, row := range data {
		if col >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		nonEmpty++
		if len(v) > maxLen {
			maxLen = len(v)
		}
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			allInt = false
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			allFloat = false
		}
	}

	switch {
	case nonEmpty == 0:
		return fmt.Sprintf("VARCHAR(%d)", defaultVarchar)
	case allInt:
		return "INTEGER"
	case allFloat:
		return "DOUBLE PRECISION"
	default:
		size := maxLen * 2
		if size < defaultVarchar {
			size = defaultVarchar
		}
		if size > maxVarchar {
			size = maxVarchar
		}
		return fmt.Sprintf("VARCHAR(%d)", size)
	}
}

func buildCreate(table string, columns []ColumnDef) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = col.Name + " " + col.Type
	}
	return fmt.Sprintf("CREATE TABLE %s (%s);", table, strings.Join(parts, ", "))
}

// typedValues converts one CSV row to driver values matching the inferred
// column types. Empty cells become NULL.
func typedValues(row []string, columns []ColumnDef) []any {
	values := make([]any, len(columns))
	for i := range columns {
		var raw string
		if i < len(row) {
			raw = strings.TrimSpace(row[i])
		}
		if raw == "" {
			values[i] = nil
			continue
		}
		switch columns[i].Type {
		case "INTEGER":
			n, _ := strconv.ParseInt(raw, 10, 64)
			values[i] = n
		case "DOUBLE PRECISION":
			f, _ := strconv.ParseFloat(raw, 64)
			values[i] = f
		default:
			values[i] = raw
		}
	}
	return values
}
