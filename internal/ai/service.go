// Package ai rewrites résumés and cover letters with a language model.
package ai

import (
	"context"
	stderrors "errors"
	"fmt"

	"jobtailor/internal/config"
	"jobtailor/internal/errors"
	"jobtailor/internal/observability"
	"jobtailor/internal/scraper"
)

// Service is the rewriting stage of the tailoring pipeline. Each operation
// has its own provider so models, prompts and circuit breakers stay independent.
type Service struct {
	tailor      AIProvider
	coverLetter AIProvider
	metrics     *observability.Metrics
	logger      *errors.Logger
}

// NewService creates the providers configured for résumé tailoring and cover letter generation
func NewService(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *errors.Logger) (*Service, error) {
	tailorCfg := cfg.GetTailorConfig()
	tailor, err := newProvider(ctx, &tailorCfg, config.OperationTailor, cfg.Prompts(), logger)
	if err != nil {
		return nil, err
	}

	coverCfg := cfg.GetCoverLetterConfig()
	coverLetter, err := newProvider(ctx, &coverCfg, config.OperationCoverLetter, cfg.Prompts(), logger)
	if err != nil {
		_ = tailor.Close()
		return nil, err
	}

	return NewServiceWithProviders(tailor, coverLetter, metrics, logger), nil
}

// NewServiceWithProviders creates a service from already built providers
func NewServiceWithProviders(tailor, coverLetter AIProvider, metrics *observability.Metrics, logger *errors.Logger) *Service {
	return &Service{
		tailor:      tailor,
		coverLetter: coverLetter,
		metrics:     metrics,
		logger:      logger,
	}
}

func newProvider(ctx context.Context, cfg *config.OperationAIConfig, operationType string, prompts PromptSource, logger *errors.Logger) (AIProvider, error) {
	logger.Debug("Initializing AI provider",
		"provider", cfg.Provider,
		"operation_type", operationType,
		"model", cfg.Model,
		"max_output_tokens", cfg.MaxOutputTokens,
		"circuit_breaker", cfg.CircuitBreaker.Enabled)

	switch cfg.Provider {
	case "gemini":
		provider, err := NewGeminiProvider(ctx, cfg, operationType, prompts, logger)
		if err != nil {
			return nil, err
		}
		return provider, nil
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil).
			WithContext("operation", operationType)
	}
}

// TailorResume rewrites resume to match job
func (s *Service) TailorResume(ctx context.Context, resume string, job scraper.JobRecord) (string, error) {
	return s.generate(ctx, config.OperationTailor, s.tailor, promptData(resume, "", job))
}

// GenerateCoverLetter writes a cover letter for job, styled on template
func (s *Service) GenerateCoverLetter(ctx context.Context, template, resume string, job scraper.JobRecord) (string, error) {
	return s.generate(ctx, config.OperationCoverLetter, s.coverLetter, promptData(resume, template, job))
}

func (s *Service) generate(ctx context.Context, operation string, provider AIProvider, data PromptData) (string, error) {
	var text string
	err := s.metrics.TrackAIOperation(ctx, operation, func(ctx context.Context) *observability.AIOperationResult {
		out, usage, err := provider.Generate(ctx, data)
		text = out
		return &observability.AIOperationResult{Error: err, TokenUsage: usage}
	})
	if err != nil {
		return "", err
	}

	s.logger.Debug("AI operation completed",
		"operation", operation,
		"output_length", len(text))
	return text, nil
}

func promptData(resume, template string, job scraper.JobRecord) PromptData {
	return PromptData{
		Resume:          resume,
		Template:        template,
		JobTitle:        job.Title,
		JobCompany:      job.Company,
		JobDescription:  job.Description,
		JobRequirements: job.Requirements,
		JobURL:          job.SourceURL,
	}
}

// GetModelInfo reports model availability per operation, for health checks
func (s *Service) GetModelInfo(ctx context.Context) map[string]*ModelInfo {
	return map[string]*ModelInfo{
		config.OperationTailor:      s.tailor.GetModelInfo(ctx),
		config.OperationCoverLetter: s.coverLetter.GetModelInfo(ctx),
	}
}

// GetCircuitBreakerStats returns circuit breaker statistics per operation
func (s *Service) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		config.OperationTailor:      s.tailor.GetCircuitBreakerStats(),
		config.OperationCoverLetter: s.coverLetter.GetCircuitBreakerStats(),
	}
}

// Close closes both providers
func (s *Service) Close() error {
	return stderrors.Join(s.tailor.Close(), s.coverLetter.Close())
}
