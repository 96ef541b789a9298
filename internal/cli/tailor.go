package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"jobtailor/internal/common"
	"jobtailor/internal/pipeline"
)

var tailorCmd = &cobra.Command{
	Use:   "tailor [job-url]",
	Short: "Tailor the resume and cover letter to a job posting",
	Long: `Run the tailoring pipeline once for a job posting URL.

The base resume and cover letter template are read from the configured
Google Docs, and the tailored versions are published as new documents.
The command prints the links to the published documents.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: resolveOutputFormat(&tailorConfig, pipeline.Result{}),
	RunE:    runTailor,
}

var tailorConfig common.CommandConfig

func init() {
	addOutputFlags(tailorCmd, &tailorConfig, pipeline.Result{})
}

// resolveOutputFormat applies the default format and checks that it can render
// the command's output, the same kind of value as sample.
func resolveOutputFormat(cmdConfig *common.CommandConfig, sample any) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if cmdConfig.OutputFormat == "" {
			cmdConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(cmdConfig.OutputFormat, sample, cfg.App.SupportedFormats)
	}
}

func addOutputFlags(cmd *cobra.Command, cmdConfig *common.CommandConfig, sample any) {
	cmd.Flags().StringVarP(&cmdConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cmdConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.OutputFormats(sample, cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runTailor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	c, err := newComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer c.close(logger)

	if err := c.buildPipeline(ctx, cfg, logger); err != nil {
		return err
	}

	jobURL := args[0]
	err = common.RunCommand(ctx, logger, tailorConfig, "tailor",
		func(ctx context.Context) (*pipeline.Result, error) {
			return c.orchestrator.TailorForJob(ctx, jobURL)
		})
	if err != nil {
		return fmt.Errorf("failed to tailor resume: %w", err)
	}
	return nil
}
