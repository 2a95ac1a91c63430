package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boilerplate-hub/repo-catalog/internal/api"
	"github.com/boilerplate-hub/repo-catalog/internal/app"
	"github.com/boilerplate-hub/repo-catalog/internal/config"
	"github.com/boilerplate-hub/repo-catalog/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present; real environment variables take precedence
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := app.NewLogger(cfg, "server")

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer shutdownTracing()

	catalogApp, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize catalog: %v", err)
	}

	verifier, err := app.NewVerifier(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize authentication: %v", err)
	}

	server := api.NewServer(catalogApp.Service, verifier, cfg.API, logger)

	logger.Info("Server configuration", map[string]interface{}{
		"address":    cfg.API.ListenAddress,
		"env":        cfg.Environment,
		"rate_limit": cfg.API.RateLimit.Enabled,
		"tracing":    cfg.Tracing.Enabled,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", map[string]interface{}{"signal": sig.String()})
	case err := <-errCh:
		logger.Error("API server stopped unexpectedly", map[string]interface{}{"error": err.Error()})
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown error", map[string]interface{}{
			"error": err.Error(),
		})
	}

	logger.Info("Server stopped gracefully", nil)
}
