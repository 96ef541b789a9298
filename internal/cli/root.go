package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"jobtailor/internal/config"
	"jobtailor/internal/errors"
)

const shutdownTimeout = 5 * time.Second

// appState is what every subcommand receives through the command context
type appState struct {
	cfg    *config.Config
	logger *errors.Logger
}

type appStateKey struct{}

var rootCmd = &cobra.Command{
	Use:   "jobtailor",
	Short: "Tailor a resume and cover letter to a job posting",
	Long: `Jobtailor reads your base resume and cover letter template from Google Docs,
extracts a job posting from its URL, rewrites both documents for that job
with a language model and publishes the results as new Google Docs.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(tailorCmd, extractCmd, authCmd, serveCmd, versionCmd)
}

// Execute runs the command line with cfg and logger available to every subcommand
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	rootCmd.SetContext(withAppState(ctx, cfg, logger))
	return rootCmd.Execute()
}

func withAppState(ctx context.Context, cfg *config.Config, logger *errors.Logger) context.Context {
	return context.WithValue(ctx, appStateKey{}, &appState{cfg: cfg, logger: logger})
}

func appStateFrom(ctx context.Context) *appState {
	state, ok := ctx.Value(appStateKey{}).(*appState)
	if !ok {
		panic("jobtailor: command context was not created by Execute")
	}
	return state
}

func getConfigFromContext(ctx context.Context) *config.Config {
	return appStateFrom(ctx).cfg
}

func getLoggerFromContext(ctx context.Context) *errors.Logger {
	return appStateFrom(ctx).logger
}
