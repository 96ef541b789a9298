package cli

import (
	"context"
	"fmt"

	"jobtailor/internal/ai"
	"jobtailor/internal/config"
	"jobtailor/internal/docs"
	"jobtailor/internal/errors"
	"jobtailor/internal/observability"
	"jobtailor/internal/pipeline"
	"jobtailor/internal/scraper"
)

// components holds the collaborators shared by the serve and tailor commands.
// ai and orchestrator stay nil when the pipeline is not configured.
type components struct {
	observability *observability.ObservabilityManager
	ai            *ai.Service
	fetcher       *scraper.Fetcher
	orchestrator  *pipeline.Orchestrator
}

func newFetcher(cfg *config.Config, logger *errors.Logger) *scraper.Fetcher {
	return scraper.NewFetcher(scraper.FetcherConfig{
		Timeout:      cfg.Scraper.Timeout,
		UserAgent:    cfg.Scraper.UserAgent,
		MaxBodyBytes: cfg.Scraper.MaxBodyBytes,
	}, logger)
}

// newComponents starts observability and the job fetcher. Callers must call close.
func newComponents(cfg *config.Config, logger *errors.Logger) (*components, error) {
	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	return &components{
		observability: om,
		fetcher:       newFetcher(cfg, logger),
	}, nil
}

// buildPipeline wires the Docs client, the AI service and the orchestrator
func (c *components) buildPipeline(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	if err := cfg.ValidateForPipeline(); err != nil {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "incomplete configuration", err)
	}

	oauth := docs.NewOAuth(cfg.Google)
	docsClient, err := docs.NewClient(ctx, logger, oauth.ClientOption(ctx, cfg.Google.RefreshToken))
	if err != nil {
		return err
	}

	c.ai, err = ai.NewService(ctx, cfg, c.observability.Metrics(), logger)
	if err != nil {
		return err
	}

	c.orchestrator = pipeline.NewOrchestrator(pipeline.Dependencies{
		Documents: docsClient,
		Rewriter:  c.ai,
		Jobs:      c.fetcher,
		Docs:      cfg.Docs,
		Metrics:   c.observability.Metrics(),
		Tracer:    c.observability.Tracer("jobtailor.pipeline"),
	}, logger)
	return nil
}

// close releases the AI clients and flushes telemetry
func (c *components) close(logger *errors.Logger) {
	if c.ai != nil {
		if err := c.ai.Close(); err != nil {
			logger.LogError(err, "Failed to close AI service")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := c.observability.Shutdown(ctx); err != nil {
		logger.LogError(err, "Failed to shutdown observability")
	}
}
