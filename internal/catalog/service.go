// Package catalog implements the catalog operations: registering GitHub
// repositories with their embeddings, reading, deleting, listing per
// tenant URL and searching.
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/boilerplate-hub/repo-catalog/internal/apperrors"
	"github.com/boilerplate-hub/repo-catalog/internal/embedding"
	"github.com/boilerplate-hub/repo-catalog/internal/github"
	"github.com/boilerplate-hub/repo-catalog/internal/observability"
	"github.com/boilerplate-hub/repo-catalog/internal/repository"
	"github.com/boilerplate-hub/repo-catalog/internal/search"
)

const (
	defaultCategory    = "my awesome boilerplate"
	defaultListLimit   = 50
	defaultDescription = "No description available"
)

// Config holds catalog service configuration
type Config struct {
	DefaultCategory  string `mapstructure:"default_category"`
	ListDefaultLimit int    `mapstructure:"list_default_limit"`
}

// RepositoryFetcher looks up GitHub repository metadata
type RepositoryFetcher interface {
	GetRepository(ctx context.Context, owner, repo string) (*github.Repository, error)
}

// AddRequest registers a GitHub repository for a tenant URL
type AddRequest struct {
	GitHubRepositoryURL string `json:"github_repository_url"`
	URL                 string `json:"url"`
	Category            string `json:"category,omitempty"`
}

// Service coordinates the catalog dependencies
type Service struct {
	repo     *repository.Repository
	engine   *search.Engine
	github   RepositoryFetcher
	provider embedding.Provider
	config   Config
	logger   observability.Logger
	now      func() time.Time
}

// NewService creates a catalog service
func NewService(
	repo *repository.Repository,
	engine *search.Engine,
	fetcher RepositoryFetcher,
	provider embedding.Provider,
	config Config,
	logger observability.Logger,
) *Service {
	if config.DefaultCategory == "" {
		config.DefaultCategory = defaultCategory
	}
	if config.ListDefaultLimit <= 0 {
		config.ListDefaultLimit = defaultListLimit
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &Service{
		repo:     repo,
		engine:   engine,
		github:   fetcher,
		provider: provider,
		config:   config,
		logger:   logger.WithPrefix("catalog"),
		now:      time.Now,
	}
}

// AddItem fetches repository metadata, computes the description,
// repository-name and combined embeddings, and stores the item. Nothing
// is written unless all three embeddings succeed.
func (s *Service) AddItem(ctx context.Context, req AddRequest) (item repository.ItemView, err error) {
	const op = "catalog.AddItem"

	ctx, span := observability.StartSpan(ctx, op)
	defer func() { observability.EndSpan(span, err) }()

	repoURL := strings.TrimSpace(req.GitHubRepositoryURL)
	tenantURL := strings.TrimSpace(req.URL)
	if repoURL == "" || tenantURL == "" {
		return repository.ItemView{}, apperrors.Validation(op, "github_repository_url and url are required.")
	}

	owner, name, err := github.ParseRepositoryURL(repoURL)
	if err != nil {
		return repository.ItemView{}, apperrors.Validation(op,
			"Invalid GitHub repository URL format. Expected: https://github.com/owner/repo")
	}

	metadata, err := s.github.GetRepository(ctx, owner, name)
	if err != nil {
		return repository.ItemView{}, err
	}

	description := metadata.Description
	if description == "" {
		description = defaultDescription
	}
	fullName := metadata.FullName
	if fullName == "" {
		fullName = owner + "/" + name
	}

	texts := []string{description, fullName, description + " " + fullName}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vector, embedErr := s.provider.Embed(ctx, text)
		if embedErr == nil && len(vector) == 0 {
			embedErr = apperrors.New(apperrors.ErrorTypeEmbeddingFailure, op, "empty embedding", nil)
		}
		if embedErr != nil {
			s.logger.Error("Failed to generate embeddings", map[string]interface{}{
				"repository": fullName,
				"error":      embedErr.Error(),
			})
			return repository.ItemView{}, apperrors.EmbeddingFailure(op,
				"Failed to generate embeddings for GitHub content.", embedErr)
		}
		vectors[i] = vector
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = s.config.DefaultCategory
	}

	now := s.now()
	timestamp := repository.FormatTimestamp(now)
	record := &repository.Item{
		ID:                    repository.NewItemID(now),
		RepositoryName:        fullName,
		Description:           description,
		HomepageURL:           metadata.Homepage,
		URL:                   tenantURL,
		IsTemplate:            metadata.IsTemplate,
		Category:              category,
		CreatedAt:             timestamp,
		UpdatedAt:             timestamp,
		DescriptionEmbeddings: vectors[0],
		RepositoryEmbeddings:  vectors[1],
		CombinedEmbeddings:    vectors[2],
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return repository.ItemView{}, err
	}

	span.SetAttributes(observability.ItemIDAttributeKey.String(record.ID))
	return record.View(), nil
}

// GetItem returns a single item
func (s *Service) GetItem(ctx context.Context, id string) (repository.ItemView, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return repository.ItemView{}, apperrors.Validation("catalog.GetItem", "Item ID is required")
	}
	return s.repo.Get(ctx, id)
}

// DeleteItem removes an item and returns what was deleted
func (s *Service) DeleteItem(ctx context.Context, id string) (repository.ItemView, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return repository.ItemView{}, apperrors.Validation("catalog.DeleteItem", "Item ID is required")
	}
	return s.repo.Delete(ctx, id)
}

type listEntry struct {
	view    repository.ItemView
	created time.Time
	valid   bool
}

// ListByURL returns the items registered for a tenant URL, newest first.
// Items whose creation time cannot be parsed sort last.
func (s *Service) ListByURL(ctx context.Context, url string, limit int) ([]repository.ItemView, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, apperrors.Validation("catalog.ListByURL", "URL parameter is required.")
	}
	if limit <= 0 {
		limit = s.config.ListDefaultLimit
	}

	project := func(key string, record repository.Record) (listEntry, bool) {
		if record[repository.FieldURL] != url {
			return listEntry{}, false
		}
		created, ok := record.CreatedAt()
		return listEntry{view: record.View(key), created: created, valid: ok}, true
	}
	newestFirst := func(a, b listEntry) bool {
		if a.valid != b.valid {
			return a.valid
		}
		return a.created.After(b.created)
	}

	entries, err := repository.Collect(ctx, s.repo, project, newestFirst, limit)
	if err != nil {
		return nil, err
	}

	views := make([]repository.ItemView, len(entries))
	for i, entry := range entries {
		views[i] = entry.view
	}
	return views, nil
}

// Search runs a similarity search
func (s *Service) Search(ctx context.Context, req search.Request) ([]search.Result, error) {
	return s.engine.Search(ctx, req)
}

// ListKeys returns every stored item key
func (s *Service) ListKeys(ctx context.Context) ([]string, error) {
	return s.repo.ListAllKeys(ctx, repository.KeyPattern)
}

// InitIndex bootstraps the auxiliary index sets
func (s *Service) InitIndex(ctx context.Context) (repository.IndexStatus, error) {
	return s.repo.EnsureIndex(ctx)
}
