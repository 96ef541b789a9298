package ai

import (
	"context"

	"jobtailor/internal/config"
	"jobtailor/internal/observability"
)

// AIProvider generates text for a single operation. Token usage may be nil
// when the provider does not report it.
type AIProvider interface {
	Generate(ctx context.Context, data PromptData) (string, *observability.TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	GetCircuitBreakerStats() map[string]any
	Close() error
}

// PromptSource supplies prompts loaded from files. *config.PromptStore
// implements it; the store may be swapped by the prompt watcher at any time.
type PromptSource interface {
	ForOperation(operationType string) config.OperationLoadedPrompts
}
