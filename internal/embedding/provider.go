// Package embedding turns text into fixed-length float vectors using an
// external embedding model.
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/boilerplate-hub/repo-catalog/internal/resilience"
)

// Provider names accepted in configuration
const (
	ProviderNomic   = "nomic"
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
)

// Provider computes an embedding vector for a piece of text
type Provider interface {
	// Embed returns the vector for text. A provider never returns an
	// empty vector without an error.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Name identifies the provider in logs and spans
	Name() string
}

// Config holds embedding provider configuration
type Config struct {
	Provider       string                          `mapstructure:"provider"`
	Endpoint       string                          `mapstructure:"endpoint"`
	APIKey         string                          `mapstructure:"api_key"`
	Model          string                          `mapstructure:"model"`
	TaskType       string                          `mapstructure:"task_type"`
	Region         string                          `mapstructure:"region"`
	RequestTimeout time.Duration                   `mapstructure:"request_timeout"`
	CacheSize      int                             `mapstructure:"cache_size"`
	CircuitBreaker resilience.CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// ProviderError describes a failed call to an embedding backend
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s embedding request failed with status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s embedding request failed: %s", e.Provider, e.Message)
}

func emptyVectorError(provider string) error {
	return &ProviderError{Provider: provider, Message: "no embedding data in response"}
}
