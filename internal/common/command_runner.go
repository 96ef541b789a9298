package common

import (
	"context"
	"time"

	"jobtailor/internal/errors"
)

// OperationFunc produces the value a command prints
type OperationFunc[Output any] func(context.Context) (Output, error)

// RunCommand runs operation and writes its formatted result to the configured output.
func RunCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	name string,
	operation OperationFunc[Output],
) error {
	outputHandler := NewOutputHandler(logger)

	// Fail on a bad output path before doing any slow work
	if err := outputHandler.fileProcessor.ValidateOutputFile(cmdConfig.OutputFile); err != nil {
		return err
	}

	logger.Info("Command started", "command", name, "output_format", cmdConfig.OutputFormat)
	start := time.Now()

	result, err := operation(ctx)
	if err != nil {
		return err
	}

	logger.Info("Command completed", "command", name, "duration_ms", time.Since(start).Milliseconds())

	return outputHandler.HandleOutput(result, cmdConfig)
}
