package ai

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"jobtailor/internal/config"
	jobtailorErrors "jobtailor/internal/errors"
	"jobtailor/internal/observability"
)

const modelCheckTimeout = 10 * time.Second

// GeminiProvider implements AIProvider for Google Gemini, for a single operation
type GeminiProvider struct {
	client         *genai.Client
	config         *config.OperationAIConfig
	operationType  string
	prompts        PromptSource
	circuitBreaker *AICircuitBreaker
	modelBreaker   *ModelCircuitBreaker
	logger         *jobtailorErrors.Logger
}

var _ AIProvider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini provider for operationType. prompts may be nil.
func NewGeminiProvider(ctx context.Context, cfg *config.OperationAIConfig, operationType string, prompts PromptSource, logger *jobtailorErrors.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, jobtailorErrors.NewAIError(jobtailorErrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return newGeminiProvider(client, cfg, operationType, prompts, logger), nil
}

func newGeminiProvider(client *genai.Client, cfg *config.OperationAIConfig, operationType string, prompts PromptSource, logger *jobtailorErrors.Logger) *GeminiProvider {
	return &GeminiProvider{
		client:         client,
		config:         cfg,
		operationType:  operationType,
		prompts:        prompts,
		circuitBreaker: NewAICircuitBreaker(operationType, cfg, logger),
		modelBreaker:   NewModelCircuitBreaker(operationType, cfg, logger),
		logger:         logger,
	}
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:      g.config.Model,
		Available: false,
	}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"operation", g.operationType,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.DisplayName
	modelInfo.Version = model.Version

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"operation", g.operationType,
		"display_name", modelInfo.DisplayName,
		"version", modelInfo.Version)

	return modelInfo
}

// Generate renders the operation's prompts with data and returns the model's
// plain text answer, trimmed
func (g *GeminiProvider) Generate(ctx context.Context, data PromptData) (string, *observability.TokenUsage, error) {
	ctx, span := otel.Tracer("jobtailor.ai.gemini").Start(ctx, "gemini."+g.operationType)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(g.temperature())),
		attribute.Int("ai.prompt.resume_length", len(data.Resume)),
	)

	systemPrompt, userTemplate := g.resolvePrompts()
	userPrompt, err := renderPrompt(g.operationType, userTemplate, data)
	if err != nil {
		span.RecordError(err)
		return "", nil, jobtailorErrors.NewAIError(jobtailorErrors.ErrCodeAIPromptInvalid,
			"Failed to render prompt for "+g.operationType, err)
	}

	genaiConfig := &genai.GenerateContentConfig{
		Temperature:     g.config.Temperature,
		MaxOutputTokens: g.config.MaxOutputTokens,
	}
	if systemPrompt != "" {
		if g.useSystemPrompts() {
			genaiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
		} else {
			userPrompt = systemPrompt + "\n\n" + userPrompt
		}
	}

	if timeout := g.timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, g.operationType, func() (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(userPrompt), genaiConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, jobtailorErrors.NewAIError(jobtailorErrors.ErrCodeAIServiceFailed,
			"Failed to generate content for "+g.operationType, err)
	}

	tokenUsage := extractTokenUsage(result)
	text := strings.TrimSpace(result.Text())
	if text == "" {
		span.SetAttributes(attribute.Bool("success", false))
		return "", tokenUsage, jobtailorErrors.NewAIError(jobtailorErrors.ErrCodeAIEmptyResponse,
			"Model returned no text for "+g.operationType, nil)
	}

	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Int("ai.output_length", len(text)),
	)
	return text, tokenUsage, nil
}

// executeWithRetry executes an AI operation with retry logic and exponential backoff
func (g *GeminiProvider) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	maxRetries := g.maxRetries()
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", maxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(backoffDelay(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	g.logger.LogError(lastErr, "AI operation failed",
		"operation", operation,
		"max_retries", maxRetries)

	return nil, fmt.Errorf("operation '%s' failed: %w", operation, lastErr)
}

// backoffDelay is 2^(attempt-1) seconds plus up to 10% jitter, capped at 30 seconds
func backoffDelay(attempt int) time.Duration {
	baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
	jitter := time.Duration(0)
	if jitterMax := int64(float64(baseDelay) * 0.1); jitterMax > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			jitter = time.Duration(n.Int64())
		}
	}
	return min(baseDelay+jitter, 30*time.Second)
}

// isRetryableError reports whether err is a network failure or a transient API status
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return isRetryableStatus(apiErr.Code)
	}

	var googleErr *googleapi.Error
	if errors.As(err, &googleErr) {
		return isRetryableStatus(googleErr.Code)
	}

	return false
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// GetCircuitBreakerStats returns circuit breaker statistics for this provider
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    g.circuitBreaker.GetStats(),
		"model_operations": g.modelBreaker.GetStats(),
		"overall_healthy":  g.circuitBreaker.IsHealthy() && g.modelBreaker.IsHealthy(),
	}
}

// Close releases provider resources. The genai client holds none.
func (g *GeminiProvider) Close() error {
	return nil
}

// resolvePrompts returns the system prompt and the user prompt template for
// the provider's operation
func (g *GeminiProvider) resolvePrompts() (string, string) {
	var loaded config.OperationLoadedPrompts
	if g.prompts != nil {
		loaded = g.prompts.ForOperation(g.operationType)
	}
	custom := g.config.CustomPrompts

	switch g.operationType {
	case config.OperationCoverLetter:
		return resolvePrompt(loaded.SystemPrompts.CoverLetter, custom.SystemPrompts.CoverLetter, DefaultSystemPrompts.CoverLetter),
			resolvePrompt(loaded.UserPrompts.CoverLetter, custom.UserPrompts.CoverLetter, DefaultUserPrompts.CoverLetter)
	default:
		return resolvePrompt(loaded.SystemPrompts.TailorResume, custom.SystemPrompts.TailorResume, DefaultSystemPrompts.TailorResume),
			resolvePrompt(loaded.UserPrompts.TailorResume, custom.UserPrompts.TailorResume, DefaultUserPrompts.TailorResume)
	}
}

func (g *GeminiProvider) temperature() float32 {
	if g.config.Temperature == nil {
		return 0
	}
	return *g.config.Temperature
}

func (g *GeminiProvider) maxRetries() int {
	if g.config.MaxRetries == nil {
		return 0
	}
	return *g.config.MaxRetries
}

func (g *GeminiProvider) timeout() time.Duration {
	if g.config.Timeout == nil {
		return 0
	}
	return *g.config.Timeout
}

func (g *GeminiProvider) useSystemPrompts() bool {
	return g.config.UseSystemPrompts != nil && *g.config.UseSystemPrompts
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *observability.TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &observability.TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
