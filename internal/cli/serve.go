package cli

import (
	"github.com/spf13/cobra"

	"jobtailor/internal/config"
	"jobtailor/internal/docs"
	"jobtailor/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for resume tailoring",
	Long: `Start an HTTP server that runs the tailoring pipeline on request.

Available endpoints:
- POST /tailor-resume: Tailor the resume and cover letter to a job URL
- POST /extract-job: Extract a job posting from its URL
- GET /auth: Start Google authorization to obtain a refresh token
- GET /oauth2callback: Google authorization callback
- GET /health: Health check endpoint (?deep=true probes the models)
- GET /stats: Server statistics, rate limiting and circuit breaker state

The server starts without the pipeline when Google or AI credentials are
missing, so that /auth can be used to obtain a refresh token first.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
}

// applyServeFlags copies explicitly set flags over the loaded configuration
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetString("port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	applyServeFlags(cmd, cfg)

	c, err := newComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer c.close(logger)

	deps := server.Dependencies{
		Jobs:          c.fetcher,
		Observability: c.observability,
	}

	if err := c.buildPipeline(ctx, cfg, logger); err != nil {
		logger.Warn("Tailoring pipeline disabled", "reason", err.Error())
	} else {
		deps.Pipeline = c.orchestrator
		deps.AI = c.ai
	}

	if err := cfg.ValidateForOAuth(); err != nil {
		logger.Warn("Google authorization endpoints disabled", "reason", err.Error())
	} else {
		deps.OAuth = docs.NewOAuth(cfg.Google)
	}

	if cfg.AI.PromptWatch.Enabled {
		watcher := config.NewPromptWatcher(cfg, logger)
		if err := watcher.Start(); err != nil {
			return err
		}
		defer func() {
			if err := watcher.Stop(); err != nil {
				logger.LogError(err, "Failed to stop prompt watcher")
			}
		}()
		deps.PromptWatcher = watcher
	}

	srv := server.NewServer(cfg, server.ServerConfigFrom(cfg, Version), deps, logger)
	return srv.Start()
}
