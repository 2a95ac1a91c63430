package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/boilerplate-hub/repo-catalog/internal/api"
	"github.com/boilerplate-hub/repo-catalog/internal/auth"
	"github.com/boilerplate-hub/repo-catalog/internal/catalog"
	"github.com/boilerplate-hub/repo-catalog/internal/embedding"
	"github.com/boilerplate-hub/repo-catalog/internal/github"
	"github.com/boilerplate-hub/repo-catalog/internal/observability"
	"github.com/boilerplate-hub/repo-catalog/internal/search"
	"github.com/boilerplate-hub/repo-catalog/internal/store"
	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Environment string                      `mapstructure:"environment"`
	API         api.Config                  `mapstructure:"api"`
	Store       store.Config                `mapstructure:"store"`
	Search      search.Config               `mapstructure:"search"`
	Catalog     catalog.Config              `mapstructure:"catalog"`
	Embedding   embedding.Config            `mapstructure:"embedding"`
	GitHub      github.Config               `mapstructure:"github"`
	Auth        auth.Config                 `mapstructure:"auth"`
	Logging     LoggingConfig               `mapstructure:"logging"`
	Tracing     observability.TracingConfig `mapstructure:"tracing"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// envAliases binds config keys to the unprefixed variable names used by
// existing deployments
var envAliases = map[string][]string{
	"store.url":           {"CATALOG_STORE_URL", "REDIS_URL"},
	"embedding.api_key":   {"CATALOG_EMBEDDING_API_KEY", "NOMIC_API_KEY"},
	"auth.jwt_public_key": {"CATALOG_AUTH_JWT_PUBLIC_KEY", "CLERK_JWT_KEY"},
	"github.token":        {"CATALOG_GITHUB_TOKEN", "GITHUB_TOKEN"},
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	configFile := os.Getenv("CATALOG_CONFIG_FILE")
	if configFile == "" {
		configFile = "configs/config.yaml"
	}
	v.SetConfigFile(configFile)

	// Read from environment variables prefixed with CATALOG_
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; SetConfigFile reports a missing file as a path error
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects configurations the service cannot start with
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Store.URL) == "" {
		return fmt.Errorf("store.url is required (set REDIS_URL or CATALOG_STORE_URL)")
	}

	switch c.Embedding.Provider {
	case "", embedding.ProviderNomic, embedding.ProviderOpenAI, embedding.ProviderBedrock:
	default:
		return fmt.Errorf("unknown embedding provider: %s", c.Embedding.Provider)
	}

	limits := map[string]int{
		"search.default_limit":       c.Search.DefaultLimit,
		"search.max_limit":           c.Search.MaxLimit,
		"search.scan_workers":        c.Search.ScanWorkers,
		"catalog.list_default_limit": c.Catalog.ListDefaultLimit,
		"store.scan_count":           int(c.Store.ScanCount),
	}
	for key, value := range limits {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", key, value)
		}
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// API defaults
	v.SetDefault("api.listen_address", ":8080")
	v.SetDefault("api.read_timeout", 30*time.Second)
	v.SetDefault("api.write_timeout", 60*time.Second)
	v.SetDefault("api.idle_timeout", 90*time.Second)
	v.SetDefault("api.allowed_origins", []string{"*"})

	// API rate limiting defaults
	v.SetDefault("api.rate_limit.enabled", false)
	v.SetDefault("api.rate_limit.limit", 10)
	v.SetDefault("api.rate_limit.burst", 20)
	v.SetDefault("api.rate_limit.expiration", 1*time.Hour)

	// Store defaults
	v.SetDefault("store.url", "")
	v.SetDefault("store.scan_count", 100)
	v.SetDefault("store.dial_timeout", 5*time.Second)
	v.SetDefault("store.read_timeout", 3*time.Second)
	v.SetDefault("store.write_timeout", 3*time.Second)
	v.SetDefault("store.pool_size", 10)

	// Search defaults
	v.SetDefault("search.eligible_category", "my awesome boilerplate")
	v.SetDefault("search.default_limit", 5)
	v.SetDefault("search.max_limit", 100)
	v.SetDefault("search.scan_workers", 4)

	// Catalog defaults
	v.SetDefault("catalog.default_category", "my awesome boilerplate")
	v.SetDefault("catalog.list_default_limit", 50)

	// Embedding defaults
	v.SetDefault("embedding.provider", embedding.ProviderNomic)
	v.SetDefault("embedding.endpoint", "")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.task_type", "search_document")
	v.SetDefault("embedding.region", "us-east-1")
	v.SetDefault("embedding.request_timeout", 30*time.Second)
	v.SetDefault("embedding.cache_size", 1000)
	v.SetDefault("embedding.circuit_breaker.enabled", true)
	v.SetDefault("embedding.circuit_breaker.max_requests", 1)
	v.SetDefault("embedding.circuit_breaker.interval", 60*time.Second)
	v.SetDefault("embedding.circuit_breaker.timeout", 30*time.Second)
	v.SetDefault("embedding.circuit_breaker.failure_ratio", 0.6)
	v.SetDefault("embedding.circuit_breaker.min_requests", 5)

	// GitHub defaults
	v.SetDefault("github.base_url", "https://api.github.com")
	v.SetDefault("github.token", "")
	v.SetDefault("github.request_timeout", 15*time.Second)
	v.SetDefault("github.rate_limit", 0)
	v.SetDefault("github.rate_burst", 1)
	v.SetDefault("github.circuit_breaker.enabled", true)
	v.SetDefault("github.circuit_breaker.max_requests", 1)
	v.SetDefault("github.circuit_breaker.interval", 60*time.Second)
	v.SetDefault("github.circuit_breaker.timeout", 30*time.Second)
	v.SetDefault("github.circuit_breaker.failure_ratio", 0.6)
	v.SetDefault("github.circuit_breaker.min_requests", 5)

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_public_key", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.allowed_usernames", []string{})

	// Observability defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "repo-catalog")
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("tracing.endpoint", "localhost:4317")
}
