package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/boilerplate-hub/repo-catalog/internal/apperrors"
	"github.com/boilerplate-hub/repo-catalog/internal/observability"
	"github.com/gin-gonic/gin"
)

const userContextKey = "auth_user"

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. It returns "" when the header is absent or malformed.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// GinMiddleware rejects requests without a verified, authorized session
func GinMiddleware(verifier Verifier, logger observability.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}

	return func(c *gin.Context) {
		token := BearerToken(c.GetHeader("Authorization"))

		user, err := verifier.VerifySession(c.Request.Context(), token)
		if err != nil {
			logger.Warn("Rejected unauthenticated request", map[string]interface{}{
				"path":   c.Request.URL.Path,
				"reason": apperrors.MessageOf(err),
			})
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success":   false,
				"message":   apperrors.MessageOf(err),
				"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
			})
			return
		}

		logger.Info("Authenticated request", map[string]interface{}{
			"path":     c.Request.URL.Path,
			"username": user.Username,
		})
		c.Set(userContextKey, user)
		c.Next()
	}
}

// UserFromContext returns the user stored by GinMiddleware
func UserFromContext(c *gin.Context) (*User, bool) {
	value, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	user, ok := value.(*User)
	return user, ok
}
