package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/boilerplate-hub/repo-catalog/internal/app"
	"github.com/boilerplate-hub/repo-catalog/internal/config"
	"github.com/boilerplate-hub/repo-catalog/internal/observability"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	rootCmd := newRootCmd(openCatalog, os.Stdout)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openCatalog wires the catalog service from configuration
func openCatalog(ctx context.Context) (catalogService, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// CLI logs at WARN unless DEBUG was requested
	level := observability.ParseLogLevel(cfg.Logging.Level)
	if level == observability.LogLevelInfo {
		level = observability.LogLevelWarn
	}
	logger := observability.NewLogger("catalog-cli").WithLevel(level)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return a.Service, nil
}
