package common

import (
	"fmt"
	"io"
	"os"

	"jobtailor/internal/errors"
	"jobtailor/internal/formatters"
	"jobtailor/internal/pipeline"
	"jobtailor/internal/scraper"
	"jobtailor/internal/utils"
)

// CommandConfig holds the output settings shared by the tailor and extract commands
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
}

// OutputHandler renders command results and writes them to a file or stdout
type OutputHandler struct {
	fileProcessor *FileProcessor
	registry      *formatters.FormatterRegistry
	stdout        io.Writer
	logger        *errors.Logger
}

func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	return &OutputHandler{
		fileProcessor: NewFileProcessor(logger),
		registry:      formatters.GlobalRegistry,
		stdout:        os.Stdout,
		logger:        logger,
	}
}

// HandleOutput renders data as config.OutputFormat. It goes to config.OutputFile
// when one is set and to stdout otherwise.
func (oh *OutputHandler) HandleOutput(data any, config CommandConfig) error {
	rendered, err := oh.registry.Format(data, config.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", config.OutputFormat), err)
	}

	if degraded(data) {
		oh.logger.Warn("Job posting could not be extracted, output is based on placeholder job details")
	}

	if config.OutputFile == "" {
		_, err = io.WriteString(oh.stdout, rendered)
		return err
	}

	if err := oh.fileProcessor.ValidateOutputFile(config.OutputFile); err != nil {
		return err
	}
	if err := oh.fileProcessor.WriteFile(config.OutputFile, rendered); err != nil {
		return err
	}

	oh.logger.Info("Output written",
		"file", config.OutputFile,
		"format", config.OutputFormat,
		"size", utils.FormatFileSize(int64(len(rendered))))
	return nil
}

// degraded reports whether data was produced from a degraded job record
func degraded(data any) bool {
	switch v := data.(type) {
	case scraper.JobRecord:
		return v.ExtractionFailed
	case *scraper.JobRecord:
		return v != nil && v.ExtractionFailed
	case pipeline.Result:
		return v.ExtractionFailed
	case *pipeline.Result:
		return v != nil && v.ExtractionFailed
	default:
		return false
	}
}
