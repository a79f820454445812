package clients

import (
	"context"
	"fmt"

	"claimcheck/internal/config"
)

// LLMClient is a single-turn text completion backend
type LLMClient interface {
	Complete(ctx context.Context, agentName, prompt, systemPrompt string) (string, error)
	Provider() string
}

// NewLLMClient builds the completion client selected by LLM_PROVIDER
func NewLLMClient(cfg *config.Config) (LLMClient, error) {
	switch cfg.LLMProvider {
	case "", "anthropic", "claude":
		return NewAnthropicClient(cfg), nil
	case "openai":
		return NewOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: anthropic, openai)", cfg.LLMProvider)
	}
}
