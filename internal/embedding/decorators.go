package embedding

import (
	"context"

	"github.com/boilerplate-hub/repo-catalog/internal/observability"
	"github.com/boilerplate-hub/repo-catalog/internal/resilience"
	lru "github.com/hashicorp/golang-lru/v2"
)

// breakerProvider rejects calls while the upstream model is failing
type breakerProvider struct {
	next    Provider
	breaker *resilience.CircuitBreaker
}

// WithCircuitBreaker guards a provider with a circuit breaker
func WithCircuitBreaker(next Provider, config resilience.CircuitBreakerConfig, logger observability.Logger) Provider {
	return &breakerProvider{
		next:    next,
		breaker: resilience.NewCircuitBreaker("embedding-"+next.Name(), config, logger),
	}
}

func (p *breakerProvider) Name() string {
	return p.next.Name()
}

func (p *breakerProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return resilience.Execute(ctx, p.breaker, func(ctx context.Context) ([]float32, error) {
		return p.next.Embed(ctx, text)
	})
}

// cachedProvider memoizes vectors by input text
type cachedProvider struct {
	next  Provider
	cache *lru.Cache[string, []float32]
}

// WithCache memoizes up to size text-to-vector results in an LRU cache.
// A non-positive size disables caching.
func WithCache(next Provider, size int) (Provider, error) {
	if size <= 0 {
		return next, nil
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &cachedProvider{next: next, cache: cache}, nil
}

func (p *cachedProvider) Name() string {
	return p.next.Name()
}

func (p *cachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if vector, ok := p.cache.Get(text); ok {
		return append([]float32(nil), vector...), nil
	}

	vector, err := p.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	p.cache.Add(text, append([]float32(nil), vector...))
	return vector, nil
}
