// Package llm provides LLM provider integrations and the prompt templates
// used for natural language to SQL conversion.
package llm

import (
	"context"
	"fmt"

	"github.com/chatdb/chatdb/internal/config"
)

// Provider defines the interface for LLM integrations. A provider is an
// opaque completion function: prompt in, text out.
type Provider interface {
	// Complete sends a prompt and returns the raw completion text.
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)

	// Name returns the provider name for logging/debugging.
	Name() string
}

// CompletionRequest contains the input for one completion call.
type CompletionRequest struct {
	Prompt      string  // Fully built prompt, consumed once
	Temperature float64 // 0 favors deterministic SQL
	MaxTokens   int     // 0 = provider default
}

// Completion contains the raw result of one completion call.
type Completion struct {
	Text   string // Raw model output, pre-extraction
	Tokens int    // Tokens used (for cost tracking)
}

// NewProvider creates an LLM provider based on configuration.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}

	switch cfg.Provider {
	case "openai":
		if cfg.Model == "" {
			cfg.Model = "gpt-4o-mini"
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = "https://api.openai.com/v1"
		}
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "anthropic":
		if cfg.Model == "" {
			cfg.Model = "claude-sonnet-4-20250514"
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = "https://api.anthropic.com/v1"
		}
		return NewAnthropicProvider(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (supported: openai, anthropic)", cfg.Provider)
	}
}
