// Package api exposes the catalog operations over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/boilerplate-hub/repo-catalog/internal/auth"
	"github.com/boilerplate-hub/repo-catalog/internal/catalog"
	"github.com/boilerplate-hub/repo-catalog/internal/observability"
	"github.com/boilerplate-hub/repo-catalog/internal/repository"
	"github.com/boilerplate-hub/repo-catalog/internal/search"
	"github.com/gin-gonic/gin"
)

// Catalog is the set of operations served by the API
type Catalog interface {
	AddItem(ctx context.Context, req catalog.AddRequest) (repository.ItemView, error)
	GetItem(ctx context.Context, id string) (repository.ItemView, error)
	DeleteItem(ctx context.Context, id string) (repository.ItemView, error)
	ListByURL(ctx context.Context, url string, limit int) ([]repository.ItemView, error)
	Search(ctx context.Context, req search.Request) ([]search.Result, error)
	InitIndex(ctx context.Context) (repository.IndexStatus, error)
}

// Server represents the API server
type Server struct {
	router   *gin.Engine
	server   *http.Server
	catalog  Catalog
	verifier auth.Verifier
	config   Config
	logger   observability.Logger
}

// NewServer creates a new API server
func NewServer(cat Catalog, verifier auth.Verifier, cfg Config, logger observability.Logger) *Server {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	logger = logger.WithPrefix("api")

	router := gin.New()
	router.Use(Recovery(logger))
	router.Use(RequestID())
	router.Use(RequestLogger(logger))
	router.Use(TracingMiddleware())
	router.Use(CORSMiddleware(cfg.AllowedOrigins))
	if cfg.RateLimit.Enabled {
		router.Use(RateLimiter(cfg.RateLimit))
	}

	s := &Server{
		router:   router,
		catalog:  cat,
		verifier: verifier,
		config:   cfg,
		logger:   logger,
		server: &http.Server{
			Addr:         cfg.ListenAddress,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}

	s.setupRoutes()
	return s
}

type endpoint struct {
	path          string
	methods       []string
	methodMessage string
	protected     bool
	handler       gin.HandlerFunc
}

func (s *Server) endpoints() []endpoint {
	return []endpoint{
		{
			path:          "/add-item",
			methods:       []string{http.MethodPost},
			methodMessage: "Method not allowed. Use POST to add items.",
			protected:     true,
			handler:       s.handleAddItem,
		},
		{
			path:          "/delete-item",
			methods:       []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			methodMessage: "Method not allowed. Use DELETE or POST to delete an item.",
			protected:     true,
			handler:       s.handleDeleteItem,
		},
		{
			path:          "/get-item",
			methods:       []string{http.MethodGet, http.MethodPost},
			methodMessage: "Method not allowed. Use GET or POST to retrieve an item.",
			protected:     true,
			handler:       s.handleGetItem,
		},
		{
			path:          "/list-items-by-url",
			methods:       []string{http.MethodGet, http.MethodPost},
			methodMessage: "Method not allowed. Use GET or POST to list items by URL.",
			handler:       s.handleListItemsByURL,
		},
		{
			path:          "/search-items",
			methods:       []string{http.MethodGet, http.MethodPost},
			methodMessage: "Method not allowed. Use GET or POST to search items.",
			handler:       s.handleSearchItems,
		},
		{
			path:          "/init-index",
			methods:       []string{http.MethodPost},
			methodMessage: "Method not allowed. Use POST to initialize the index.",
			protected:     true,
			handler:       s.handleInitIndex,
		},
	}
}

// setupRoutes mounts every endpoint at the root and under /functions
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)

	authenticate := auth.GinMiddleware(s.verifier, s.logger)
	groups := []*gin.RouterGroup{
		s.router.Group("/"),
		s.router.Group("/functions"),
	}

	for _, group := range groups {
		for _, ep := range s.endpoints() {
			chain := []gin.HandlerFunc{AllowMethods(ep.methodMessage, ep.methods...)}
			if ep.protected {
				chain = append(chain, authenticate)
			}
			chain = append(chain, ep.handler)
			group.Any(ep.path, chain...)
		}
	}
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the API server
func (s *Server) Start() error {
	s.logger.Info("Starting API server", map[string]interface{}{"address": s.config.ListenAddress})
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the API server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": timestamp(),
	})
}
