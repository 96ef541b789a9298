package cli

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/cobra"

	"jobtailor/internal/common"
	"jobtailor/internal/errors"
	"jobtailor/internal/scraper"
)

var extractCmd = &cobra.Command{
	Use:   "extract [job-url]",
	Short: "Extract a job posting without tailoring anything",
	Long: `Fetch a job posting and print the title, company, description and
requirements that the tailoring pipeline would use.

With --html-file the page is read from a saved HTML file instead of being
fetched; the URL is then only recorded as the source.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: resolveOutputFormat(&extractConfig, scraper.JobRecord{}),
	RunE:    runExtract,
}

var (
	extractConfig common.CommandConfig
	htmlFile      string
)

func init() {
	addOutputFlags(extractCmd, &extractConfig, scraper.JobRecord{})
	extractCmd.Flags().StringVar(&htmlFile, "html-file", "", "Extract from a saved HTML page instead of fetching the URL")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)
	jobURL := args[0]

	return common.RunCommand(ctx, logger, extractConfig, "extract",
		func(ctx context.Context) (scraper.JobRecord, error) {
			if htmlFile != "" {
				return extractFromFile(logger, htmlFile, jobURL, cfg.App.MaxFileSize)
			}
			return newFetcher(cfg, logger).Fetch(ctx, jobURL), nil
		})
}

// extractFromFile runs the extraction rules over a saved page
func extractFromFile(logger *errors.Logger, filename, sourceURL string, maxFileSize int64) (scraper.JobRecord, error) {
	contents, err := common.NewFileProcessor(logger).WithMaxFileSize(maxFileSize).ValidateAndReadFiles(filename)
	if err != nil {
		return scraper.JobRecord{}, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contents[0]))
	if err != nil {
		return scraper.JobRecord{}, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to parse HTML file", err)
	}
	return scraper.Extract(doc, sourceURL), nil
}
