package api

import (
	"net/http"
	"time"

	"github.com/boilerplate-hub/repo-catalog/internal/apperrors"
	"github.com/gin-gonic/gin"
)

func timestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// respond writes a success envelope. Extra keys are merged into the body.
func respond(c *gin.Context, status int, message string, extra gin.H) {
	body := gin.H{
		"success":   true,
		"message":   message,
		"timestamp": timestamp(),
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}

// respondError maps err to a status and writes the error envelope.
// Unclassified errors are reported with fallback as the message.
func respondError(c *gin.Context, err error, fallback string) {
	status := apperrors.HTTPStatus(err)

	message := fallback
	if apperrors.TypeOf(err) != apperrors.ErrorTypeInternal {
		message = apperrors.MessageOf(err)
	}

	body := gin.H{
		"success":   false,
		"message":   message,
		"timestamp": timestamp(),
	}
	if status >= http.StatusInternalServerError {
		body["error"] = err.Error()
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, body)
}
