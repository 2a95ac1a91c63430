// Package github fetches repository metadata from the GitHub REST API.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/boilerplate-hub/repo-catalog/internal/apperrors"
	"github.com/boilerplate-hub/repo-catalog/internal/observability"
	"github.com/boilerplate-hub/repo-catalog/internal/resilience"
	gogithub "github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.github.com"

// Config holds GitHub API client configuration
type Config struct {
	BaseURL        string                          `mapstructure:"base_url"`
	Token          string                          `mapstructure:"token"`
	RequestTimeout time.Duration                   `mapstructure:"request_timeout"`
	RateLimit      float64                         `mapstructure:"rate_limit"`
	RateBurst      int                             `mapstructure:"rate_burst"`
	CircuitBreaker resilience.CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// Repository is the subset of GitHub repository metadata the catalog keeps.
// Field tags follow the GitHub REST payload.
type Repository struct {
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	Homepage    string `json:"homepage"`
	IsTemplate  bool   `json:"is_template"`
}

var repositoryURLPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)(?:\.git)?(?:/.*)?$`)

// ParseRepositoryURL extracts owner and repository name from a GitHub URL.
// A trailing ".git" and any extra path segments are ignored.
func ParseRepositoryURL(raw string) (string, string, error) {
	match := repositoryURLPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return "", "", apperrors.Validation("github.ParseRepositoryURL", "Invalid GitHub repository URL")
	}

	owner := match[1]
	repo := strings.TrimSuffix(match[2], ".git")
	if owner == "" || repo == "" {
		return "", "", apperrors.Validation("github.ParseRepositoryURL", "Invalid GitHub repository URL")
	}
	return owner, repo, nil
}

// Client calls the GitHub REST API
type Client struct {
	client  *gogithub.Client
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	logger  observability.Logger
}

// NewClient creates a GitHub client. A base URL other than the public API
// is used as the REST root, which is how Enterprise hosts and local fakes
// are reached.
func NewClient(config Config, logger observability.Logger) (*Client, error) {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}

	httpClient := &http.Client{Timeout: config.RequestTimeout}
	if config.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.Token})
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, ts)
		httpClient.Timeout = config.RequestTimeout
	}

	client := gogithub.NewClient(httpClient)
	if base := strings.TrimRight(config.BaseURL, "/"); base != defaultBaseURL {
		parsed, err := url.Parse(base + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL: %w", err)
		}
		client.BaseURL = parsed
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}
	burst := config.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		breaker: resilience.NewCircuitBreaker("github", config.CircuitBreaker, logger),
		logger:  logger.WithPrefix("github"),
	}, nil
}

type fetchResult struct {
	repository *Repository
	status     int
}

// GetRepository fetches metadata for owner/repo. A non-success response is
// reported as UpstreamRejected; a transport failure as UpstreamUnavailable.
// Rejections do not count against the circuit breaker.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	const op = "github.GetRepository"

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.New(apperrors.ErrorTypeUpstreamUnavailable, op, "Failed to fetch GitHub repository", err)
	}

	result, err := resilience.Execute(ctx, c.breaker, func(ctx context.Context) (fetchResult, error) {
		return c.fetch(ctx, owner, repo)
	})
	if err != nil {
		c.logger.Error("GitHub request failed", map[string]interface{}{
			"owner": owner,
			"repo":  repo,
			"error": err.Error(),
		})
		return nil, apperrors.New(apperrors.ErrorTypeUpstreamUnavailable, op, "Failed to fetch GitHub repository", err)
	}

	if result.repository == nil {
		c.logger.Warn("GitHub rejected repository lookup", map[string]interface{}{
			"owner":  owner,
			"repo":   repo,
			"status": result.status,
		})
		return nil, apperrors.New(apperrors.ErrorTypeUpstreamRejected, op,
			fmt.Sprintf("Failed to fetch GitHub repository: %d", result.status), nil)
	}

	repository := result.repository
	if repository.FullName == "" {
		repository.FullName = owner + "/" + repo
	}
	return repository, nil
}

func (c *Client) fetch(ctx context.Context, owner, repo string) (fetchResult, error) {
	ghRepo, resp, err := c.client.Repositories.Get(ctx, owner, repo)
	if resp != nil && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return fetchResult{status: resp.StatusCode}, nil
	}
	if err != nil {
		return fetchResult{}, err
	}

	return fetchResult{
		repository: &Repository{
			FullName:    ghRepo.GetFullName(),
			Description: ghRepo.GetDescription(),
			Homepage:    ghRepo.GetHomepage(),
			IsTemplate:  ghRepo.GetIsTemplate(),
		},
		status: resp.StatusCode,
	}, nil
}
