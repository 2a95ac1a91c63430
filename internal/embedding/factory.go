package embedding

import (
	"context"
	"fmt"

	"github.com/boilerplate-hub/repo-catalog/internal/observability"
)

// NewProvider builds the configured provider wrapped in a circuit breaker
// and, when enabled, an LRU cache
func NewProvider(ctx context.Context, config Config, logger observability.Logger) (Provider, error) {
	var (
		base Provider
		err  error
	)

	switch config.Provider {
	case ProviderNomic, "":
		base, err = NewNomicProvider(config)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(config)
	case ProviderBedrock:
		base, err = NewBedrockProvider(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", config.Provider)
	}
	if err != nil {
		return nil, err
	}

	provider := WithCircuitBreaker(base, config.CircuitBreaker, logger)
	return WithCache(provider, config.CacheSize)
}
