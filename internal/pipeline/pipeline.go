// Package pipeline wires prompt building, completion, extraction, and
// execution into one linear pass per request.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/chatdb/chatdb/internal/extract"
	"github.com/chatdb/chatdb/internal/gateway"
	"github.com/chatdb/chatdb/internal/llm"
	"github.com/chatdb/chatdb/internal/observability"
	"github.com/chatdb/chatdb/internal/schema"
)

// ErrNotSelect is returned when a question produced something other than
// a read-only query.
var ErrNotSelect = errors.New("generated statement is not a SELECT query")

const explainTemperature = 0.3

// Inspector is the slice of the schema inspector the pipeline needs.
type Inspector interface {
	Get(ctx context.Context, table string) (schema.Table, error)
}

// Executor is the slice of the gateway the pipeline needs.
type Executor interface {
	Query(ctx context.Context, stmt string, args ...any) (gateway.Result, error)
	Exec(ctx context.Context, stmt string, args ...any) (gateway.Result, error)
}

// Outcome is the rendered result of one chat-driven request.
type Outcome struct {
	SQL         string         `json:"sql"`
	Result      gateway.Result `json:"result"`
	Explanation string         `json:"explanation,omitempty"`
}

// Pipeline orchestrates one request at a time. It holds no mutable state:
// concurrent sessions share only the database itself.
type Pipeline struct {
	inspector Inspector
	provider  llm.Provider
	executor  Executor
	dialect   string
	log       *zap.Logger
}

// New creates a Pipeline.
func New(inspector Inspector, provider llm.Provider, executor Executor, dialect string, log *zap.Logger) *Pipeline {
	return &Pipeline{
		inspector: inspector,
		provider:  provider,
		executor:  executor,
		dialect:   dialect,
		log:       log,
	}
}

// CreateTable turns a natural language table description into a CREATE
// TABLE statement and executes it. Only the first extracted statement is
// executed.
func (p *Pipeline) CreateTable(ctx context.Context, description string) (Outcome, error) {
	prompt := llm.BuildCreatePrompt(p.dialect, description)

	stmt, err := p.generate(ctx, "create", prompt)
	if err != nil {
		return Outcome{}, err
	}
	stmt = firstStatement(stmt)

	result, err := p.executor.Exec(ctx, stmt)
	if err != nil {
		return Outcome{SQL: stmt}, err
	}
	return Outcome{SQL: stmt, Result: result}, nil
}

// InsertRows turns a natural language row description into INSERT
// statements grounded in the table's live schema and executes them in
// order. A failed statement stops the sequence; earlier statements stay
// committed (one implicit transaction per statement).
func (p *Pipeline) InsertRows(ctx context.Context, table, description string) (Outcome, error) {
	tbl, err := p.inspector.Get(ctx, table)
	if err != nil {
		return Outcome{}, err
	}

	prompt := llm.BuildInsertPrompt(p.dialect, description, tbl)
	sql, err := p.generate(ctx, "insert", prompt)
	if err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{SQL: sql}
	for _, stmt := range extract.Statements(sql) {
		result, err := p.executor.Exec(ctx, stmt)
		if err != nil {
			return outcome, err
		}
		outcome.Result.Affected += result.Affected
	}
	return outcome, nil
}

// Query answers a natural language question with a generated SELECT. The
// first extracted statement must be read-only; anything else is rejected
// without touching the database. On success a short natural language
// explanation is attached, best-effort.
func (p *Pipeline) Query(ctx context.Context, table, question string) (Outcome, error) {
	tbl, err := p.inspector.Get(ctx, table)
	if err != nil {
		return Outcome{}, err
	}

	prompt := llm.BuildSelectPrompt(p.dialect, question, tbl)
	sql, err := p.generate(ctx, "select", prompt)
	if err != nil {
		return Outcome{}, err
	}
	stmt := firstStatement(sql)

	if !gateway.ReturnsRows(stmt) {
		return Outcome{SQL: stmt}, fmt.Errorf("%w: %s", ErrNotSelect, summarize(stmt))
	}

	result, err := p.executor.Query(ctx, stmt)
	if err != nil {
		return Outcome{SQL: stmt}, err
	}

	outcome := Outcome{SQL: stmt, Result: result}
	outcome.Explanation = p.explain(ctx, question, stmt, result)
	return outcome, nil
}

// generate runs prompt -> completion -> extraction for one task kind.
func (p *Pipeline) generate(ctx context.Context, task, prompt string) (string, error) {
	completion, err := p.provider.Complete(ctx, llm.CompletionRequest{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("llm completion: %w", err)
	}
	observability.CountLLMTokens(task, completion.Tokens)

	sql, err := extract.Extract(completion.Text)
	if err != nil {
		return "", err
	}

	p.log.Debug("generated sql",
		zap.String("task", task),
		zap.String("sql", sql),
	)
	return sql, nil
}

// explain asks the model to summarize the results. Failure degrades to an
// empty explanation, never to a failed request.
func (p *Pipeline) explain(ctx context.Context, question, sql string, result gateway.Result) string {
	prompt := llm.BuildExplainPrompt(question, sql, result.RowMaps())
	completion, err := p.provider.Complete(ctx, llm.CompletionRequest{
		Prompt:      prompt,
		Temperature: explainTemperature,
	})
	if err != nil {
		p.log.Warn("explanation failed", zap.Error(err))
		return ""
	}
	observability.CountLLMTokens("explain", completion.Tokens)
	return strings.TrimSpace(completion.Text)
}

func firstStatement(sql string) string {
	if stmts := extract.Statements(sql); len(stmts) > 0 {
		return stmts[0]
	}
	return sql
}

func summarize(stmt string) string {
	if len(stmt) > 80 {
		return stmt[:80] + "..."
	}
	return stmt
}
