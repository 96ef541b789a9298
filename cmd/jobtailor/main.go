package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"jobtailor/internal/cli"
	"jobtailor/internal/config"
	"jobtailor/internal/errors"
)

// configFileEnv names an explicit config file, bypassing the search paths
const configFileEnv = "JOBTAILOR_CONFIG_FILE"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	// Vault values override every other configuration source
	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		logger.LogError(err, "Failed to apply Vault secrets")
		return 1
	}

	logger.Info("Starting jobtailor",
		"version", cli.Version,
		"log_level", cfg.App.LogLevel,
		"model", cfg.AI.Model,
		"pipeline_configured", cfg.ValidateForPipeline() == nil)

	if err := cli.Execute(ctx, cfg, logger); err != nil {
		logger.LogError(err, "Command failed")
		return 1
	}
	return 0
}

func loadConfig() (*config.Config, error) {
	if path := os.Getenv(configFileEnv); path != "" {
		return config.LoadConfigFile(path)
	}
	return config.LoadConfig()
}
