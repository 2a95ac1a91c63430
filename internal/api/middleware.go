package api

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/boilerplate-hub/repo-catalog/internal/apperrors"
	"github.com/boilerplate-hub/repo-catalog/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/time/rate"
)

// RequestID assigns each request an id, reusing the caller's X-Request-ID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// RequestLogger middleware logs HTTP requests
func RequestLogger(logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := map[string]interface{}{
			"client_ip": c.ClientIP(),
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"method":    c.Request.Method,
			"path":      path,
		}
		if requestID := c.GetString("request_id"); requestID != "" {
			fields["request_id"] = requestID
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
			logger.Error("Request failed", fields)
			return
		}
		logger.Info("Request handled", fields)
	}
}

// Recovery turns panics into the generic error envelope
func Recovery(logger observability.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Recovered from panic", map[string]interface{}{
			"path":  c.Request.URL.Path,
			"panic": fmt.Sprint(recovered),
		})
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success":   false,
			"message":   "Internal server error",
			"timestamp": timestamp(),
		})
	})
}

// TracingMiddleware starts a span per request, continuing any trace
// propagated by the caller
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := observability.StartSpan(ctx, fmt.Sprintf("%s %s", c.Request.Method, path),
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.path", path),
			attribute.String("http.user_agent", c.Request.UserAgent()),
			attribute.String("http.client_ip", c.ClientIP()),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
	}
}

type limiterEntry struct {
	limiter *rate.Limiter
	expiry  time.Time
}

// RateLimiterStorage keeps one token bucket per client
type RateLimiterStorage struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	config   RateLimitConfig
}

// NewRateLimiterStorage creates a new rate limiter storage
func NewRateLimiterStorage(config RateLimitConfig) *RateLimiterStorage {
	if config.Limit <= 0 {
		config.Limit = 10
	}
	if config.Burst <= 0 {
		config.Burst = 20
	}
	if config.Expiration <= 0 {
		config.Expiration = time.Hour
	}
	return &RateLimiterStorage{
		limiters: make(map[string]*limiterEntry),
		config:   config,
	}
}

// GetLimiter returns the limiter for key, replacing it once expired
func (s *RateLimiterStorage) GetLimiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if entry, exists := s.limiters[key]; exists && now.Before(entry.expiry) {
		return entry.limiter
	}

	for k, entry := range s.limiters {
		if !now.Before(entry.expiry) {
			delete(s.limiters, k)
		}
	}

	entry := &limiterEntry{
		limiter: rate.NewLimiter(rate.Limit(s.config.Limit), s.config.Burst),
		expiry:  now.Add(s.config.Expiration),
	}
	s.limiters[key] = entry
	return entry.limiter
}

// RateLimiter middleware limits requests per client IP
func RateLimiter(config RateLimitConfig) gin.HandlerFunc {
	storage := NewRateLimiterStorage(config)

	return func(c *gin.Context) {
		if !storage.GetLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":   false,
				"message":   "Rate limit exceeded",
				"timestamp": timestamp(),
			})
			return
		}
		c.Next()
	}
}

// CORSMiddleware sets CORS headers and answers preflight requests with 204
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[strings.TrimSpace(origin)] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "":
			if _, ok := allowed[origin]; ok {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// AllowMethods rejects requests whose method is not listed with a 405 envelope
func AllowMethods(message string, methods ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		allowed[m] = struct{}{}
	}
	allowHeader := strings.Join(methods, ", ")

	return func(c *gin.Context) {
		if _, ok := allowed[c.Request.Method]; ok {
			c.Next()
			return
		}
		c.Header("Allow", allowHeader)
		respondError(c, apperrors.New(apperrors.ErrorTypeMethodNotAllowed, "api.AllowMethods", message, nil), message)
	}
}
