package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatdb_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatdb_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	llmTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatdb_llm_tokens_total",
			Help: "Tokens consumed by LLM completions, by task kind.",
		},
		[]string{"task"},
	)

	statementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatdb_sql_statements_total",
			Help: "SQL statements sent to the database, by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		llmTokensTotal,
		statementsTotal,
	)
}

// CountLLMTokens records token usage for one completion call.
func CountLLMTokens(task string, tokens int) {
	if tokens > 0 {
		llmTokensTotal.WithLabelValues(task).Add(float64(tokens))
	}
}

// CountStatement records one statement execution outcome ("ok" or "error").
func CountStatement(outcome string) {
	statementsTotal.WithLabelValues(outcome).Inc()
}
