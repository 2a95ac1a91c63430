// Package app assembles the catalog components from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/boilerplate-hub/repo-catalog/internal/auth"
	"github.com/boilerplate-hub/repo-catalog/internal/catalog"
	"github.com/boilerplate-hub/repo-catalog/internal/config"
	"github.com/boilerplate-hub/repo-catalog/internal/embedding"
	"github.com/boilerplate-hub/repo-catalog/internal/github"
	"github.com/boilerplate-hub/repo-catalog/internal/observability"
	"github.com/boilerplate-hub/repo-catalog/internal/repository"
	"github.com/boilerplate-hub/repo-catalog/internal/search"
	"github.com/boilerplate-hub/repo-catalog/internal/store"
)

// App holds the wired catalog service
type App struct {
	Service *catalog.Service
}

// New builds the catalog service described by cfg
func New(ctx context.Context, cfg *config.Config, logger observability.Logger) (*App, error) {
	opener, err := store.NewRedisOpener(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to configure store: %w", err)
	}

	provider, err := embedding.NewProvider(ctx, cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}

	repo := repository.New(opener, repository.Options{
		ScanCount:   cfg.Store.ScanCount,
		ScanWorkers: cfg.Search.ScanWorkers,
	}, logger)
	engine := search.NewEngine(repo, provider, cfg.Search, logger)
	fetcher, err := github.NewClient(cfg.GitHub, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure GitHub client: %w", err)
	}

	logger.Info("Catalog initialized", map[string]interface{}{
		"embedding_provider": provider.Name(),
		"scan_workers":       cfg.Search.ScanWorkers,
		"eligible_category":  cfg.Search.EligibleCategory,
	})

	return &App{
		Service: catalog.NewService(repo, engine, fetcher, provider, cfg.Catalog, logger),
	}, nil
}

// NewVerifier builds the session verifier for protected endpoints
func NewVerifier(cfg *config.Config) (auth.Verifier, error) {
	verifier, err := auth.NewJWTVerifier(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session verifier: %w", err)
	}
	return verifier, nil
}

// NewLogger returns a logger at the configured level
func NewLogger(cfg *config.Config, prefix string) observability.Logger {
	return observability.NewLogger(prefix).WithLevel(observability.ParseLogLevel(cfg.Logging.Level))
}
