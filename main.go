package main

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/chatdb/chatdb/internal/config"
	"github.com/chatdb/chatdb/internal/extract"
	"github.com/chatdb/chatdb/internal/gateway"
	"github.com/chatdb/chatdb/internal/ingest"
	"github.com/chatdb/chatdb/internal/llm"
	"github.com/chatdb/chatdb/internal/observability"
	"github.com/chatdb/chatdb/internal/pipeline"
	"github.com/chatdb/chatdb/internal/schema"
)

const maxUploadBytes = 32 << 20

type app struct {
	cfg       config.Config
	db        *sql.DB
	tmpl      *template.Template
	inspector *schema.Inspector
	pipeline  *pipeline.Pipeline
	ingestor  *ingest.Ingestor
	log       *zap.Logger
}

func main() {
	_ = godotenv.Load() // loads .env if present, silently ignores if not

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	db, err := sql.Open(cfg.DB.Driver, cfg.DB.DSN())
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	if err := db.Ping(); err != nil {
		logger.Fatal("ping database", zap.Error(err))
	}

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		logger.Fatal("initialize LLM provider", zap.Error(err))
	}
	logger.Info("LLM provider initialized", zap.String("provider", provider.Name()))

	inspector := schema.NewInspector(db, cfg.DB.Driver)
	gw := gateway.New(db)

	app := &app{
		cfg:       cfg,
		db:        db,
		tmpl:      template.Must(template.New("index").Parse(indexHTML)),
		inspector: inspector,
		pipeline:  pipeline.New(inspector, provider, gw, cfg.DB.Driver, logger),
		ingestor:  ingest.New(gw, cfg.DB.Driver, logger),
		log:       logger,
	}

	r := chi.NewRouter()
	r.Use(observability.Middleware(logger))
	r.Get("/", app.handleIndex)
	r.Get("/tables", app.handleListTables)
	r.Post("/tables", app.handleCreateTable)
	r.Post("/tables/{table}/rows", app.handleInsertRows)
	r.Post("/tables/{table}/query", app.handleQuery)
	r.Get("/schema/{table}", app.handleSchema)
	r.Post("/ingest", app.handleIngest)
	r.Handle("/metrics", promhttp.Handler())

	logger.Info("listening", zap.String("addr", cfg.Addr), zap.String("driver", cfg.DB.Driver))
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		logger.Fatal("serve", zap.Error(err))
	}
}

func (a *app) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.tmpl.Execute(w, nil); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

type chatRequest struct {
	Description string `json:"description"`
	Question    string `json:"question"`
}

type chatResponse struct {
	SQL         string   `json:"sql,omitempty"`
	Columns     []string `json:"columns,omitempty"`
	Rows        [][]any  `json:"rows,omitempty"`
	Affected    int64    `json:"affected"`
	Explanation string   `json:"explanation,omitempty"`
	Error       string   `json:"error,omitempty"`
}

func (a *app) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, chatResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		respondJSON(w, http.StatusBadRequest, chatResponse{Error: "description is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), a.cfg.LLMTimeout)
	defer cancel()

	outcome, err := a.pipeline.CreateTable(ctx, req.Description)
	if err != nil {
		respondJSON(w, errStatus(err), chatResponse{SQL: outcome.SQL, Error: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, chatResponse{SQL: outcome.SQL, Affected: outcome.Result.Affected})
}

func (a *app) handleInsertRows(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, chatResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		respondJSON(w, http.StatusBadRequest, chatResponse{Error: "description is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), a.cfg.LLMTimeout)
	defer cancel()

	outcome, err := a.pipeline.InsertRows(ctx, table, req.Description)
	if err != nil {
		respondJSON(w, errStatus(err), chatResponse{SQL: outcome.SQL, Affected: outcome.Result.Affected, Error: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, chatResponse{SQL: outcome.SQL, Affected: outcome.Result.Affected})
}

func (a *app) handleQuery(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, chatResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		respondJSON(w, http.StatusBadRequest, chatResponse{Error: "question is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), a.cfg.LLMTimeout)
	defer cancel()

	outcome, err := a.pipeline.Query(ctx, table, req.Question)
	if err != nil {
		respondJSON(w, errStatus(err), chatResponse{SQL: outcome.SQL, Error: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, chatResponse{
		SQL:         outcome.SQL,
		Columns:     outcome.Result.Columns,
		Rows:        outcome.Result.Rows,
		Affected:    outcome.Result.Affected,
		Explanation: outcome.Explanation,
	})
}

func (a *app) handleSchema(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	ctx, cancel := context.WithTimeout(r.Context(), a.cfg.QueryTimeout)
	defer cancel()

	tbl, err := a.inspector.Get(ctx, table)
	if err != nil {
		respondJSON(w, errStatus(err), map[string]string{"error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, tbl)
}

func (a *app) handleListTables(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), a.cfg.QueryTimeout)
	defer cancel()

	tables, err := a.inspector.List(ctx)
	if err != nil {
		respondJSON(w, errStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if tables == nil {
		tables = []string{}
	}
	respondJSON(w, http.StatusOK, map[string][]string{"tables": tables})
}

func (a *app) handleIngest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	tableName := strings.TrimSpace(r.FormValue("table"))
	if tableName == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "table name is required"})
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "CSV file is required"})
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(r.Context(), a.cfg.IngestTimeout)
	defer cancel()

	report, err := a.ingestor.Ingest(ctx, file, tableName)
	if err != nil {
		respondJSON(w, errStatus(err), map[string]string{"error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// errStatus maps pipeline error kinds to HTTP statuses. Every error except
// a configuration error is recovered here and rendered to the user.
func errStatus(err error) int {
	var (
		ingErr  *ingest.IngestError
		execErr *gateway.ExecError
	)
	switch {
	case errors.Is(err, schema.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, extract.ErrNoStatement), errors.Is(err, pipeline.ErrNotSelect):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &ingErr), errors.As(err, &execErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		fmt.Fprintln(w, `{"error":"encode response"}`)
	}
}

//go:embed templates/index.html
var indexHTML string
