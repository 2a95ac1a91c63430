// Package search ranks stored catalog items by cosine similarity to a
// free-text query.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/boilerplate-hub/repo-catalog/internal/apperrors"
	"github.com/boilerplate-hub/repo-catalog/internal/embedding"
	"github.com/boilerplate-hub/repo-catalog/internal/observability"
	"github.com/boilerplate-hub/repo-catalog/internal/repository"
)

// Type selects which stored embedding a query is compared against
type Type string

const (
	TypeDescription Type = "description"
	TypeRepository  Type = "repository"
	TypeCombined    Type = "combined"
)

const (
	defaultLimit            = 5
	defaultMaxLimit         = 100
	defaultEligibleCategory = "my awesome boilerplate"
)

// ParseType validates a search type. An empty value selects combined.
func ParseType(raw string) (Type, error) {
	switch Type(strings.TrimSpace(raw)) {
	case "", TypeCombined:
		return TypeCombined, nil
	case TypeDescription:
		return TypeDescription, nil
	case TypeRepository:
		return TypeRepository, nil
	default:
		return "", apperrors.Validation("search.ParseType",
			fmt.Sprintf("Invalid searchType '%s'. Expected description, repository or combined.", raw))
	}
}

// Field returns the hash field holding the embedding for t
func (t Type) Field() string {
	switch t {
	case TypeDescription:
		return repository.FieldDescriptionEmbeddings
	case TypeRepository:
		return repository.FieldRepositoryEmbeddings
	default:
		return repository.FieldCombinedEmbeddings
	}
}

// Config holds search configuration
type Config struct {
	EligibleCategory string `mapstructure:"eligible_category"`
	DefaultLimit     int    `mapstructure:"default_limit"`
	MaxLimit         int    `mapstructure:"max_limit"`
	ScanWorkers      int    `mapstructure:"scan_workers"`
}

// Request describes a similarity search
type Request struct {
	Query string
	Limit int
	Type  Type
	// PositiveOnly drops results whose score is not above zero
	PositiveOnly bool
}

// Result is a ranked item
type Result struct {
	repository.ItemView
	Score float64 `json:"score"`
}

// Engine runs linear-scan similarity searches
type Engine struct {
	repo     *repository.Repository
	provider embedding.Provider
	config   Config
	logger   observability.Logger
}

// NewEngine creates a search engine
func NewEngine(repo *repository.Repository, provider embedding.Provider, config Config, logger observability.Logger) *Engine {
	if config.EligibleCategory == "" {
		config.EligibleCategory = defaultEligibleCategory
	}
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = defaultLimit
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = defaultMaxLimit
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &Engine{
		repo:     repo,
		provider: provider,
		config:   config,
		logger:   logger.WithPrefix("search"),
	}
}

// Limit normalizes a requested limit against the configured default and cap
func (e *Engine) Limit(requested int) int {
	if requested <= 0 {
		return e.config.DefaultLimit
	}
	if requested > e.config.MaxLimit {
		return e.config.MaxLimit
	}
	return requested
}

// Search embeds the query and ranks every eligible item by similarity.
// Items in another category, or lacking a readable embedding of the
// selected type, are skipped.
func (e *Engine) Search(ctx context.Context, req Request) (results []Result, err error) {
	const op = "search.Search"

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, apperrors.Validation(op, "Query parameter is required.")
	}
	if req.Type == "" {
		req.Type = TypeCombined
	}
	if _, err := ParseType(string(req.Type)); err != nil {
		return nil, err
	}
	limit := e.Limit(req.Limit)

	ctx, span := observability.StartSpan(ctx, op,
		observability.SearchTypeAttributeKey.String(string(req.Type)),
		observability.SearchLimitAttributeKey.Int(limit),
		observability.ProviderAttributeKey.String(e.provider.Name()),
	)
	defer func() { observability.EndSpan(span, err) }()

	queryVector, err := e.provider.Embed(ctx, query)
	if err != nil {
		e.logger.Error("Failed to embed search query", map[string]interface{}{"error": err.Error()})
		return nil, apperrors.EmbeddingFailure(op, "Failed to generate embeddings for search query.", err)
	}

	field := req.Type.Field()
	project := func(key string, record repository.Record) (Result, bool) {
		if record[repository.FieldCategory] != e.config.EligibleCategory {
			return Result{}, false
		}
		stored, err := record.Embedding(field)
		if err != nil {
			e.logger.Debug("Skipping item without usable embedding", map[string]interface{}{
				"id":    key,
				"field": field,
				"error": err.Error(),
			})
			return Result{}, false
		}
		score := CosineSimilarity(queryVector, stored)
		if req.PositiveOnly && score <= 0 {
			return Result{}, false
		}
		return Result{ItemView: record.View(key), Score: score}, true
	}
	byScore := func(a, b Result) bool { return a.Score > b.Score }

	results, err = repository.Collect(ctx, e.repo, project, byScore, limit)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Search completed", map[string]interface{}{
		"search_type": string(req.Type),
		"limit":       limit,
		"results":     len(results),
	})
	return results, nil
}
