package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"validation", Validation("op", "bad"), http.StatusBadRequest},
		{"unauthorized", Unauthorized("op", "no token", nil), http.StatusUnauthorized},
		{"not found", NotFound("op", "missing"), http.StatusNotFound},
		{"method", New(ErrorTypeMethodNotAllowed, "op", "", nil), http.StatusMethodNotAllowed},
		{"github rejected", New(ErrorTypeUpstreamRejected, "op", "404", nil), http.StatusBadRequest},
		{"github down", New(ErrorTypeUpstreamUnavailable, "op", "dial", nil), http.StatusInternalServerError},
		{"embedding", EmbeddingFailure("op", "failed", errors.New("boom")), http.StatusInternalServerError},
		{"storage", StorageUnavailable("op", errors.New("refused")), http.StatusInternalServerError},
		{"plain", errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestErrorsIsMatchesSentinelThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFound("repository.Get", "item not found"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.True(t, IsNotFound(err))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := StorageUnavailable("store.Open", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "store.Open")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "query is required", MessageOf(Validation("search", "query is required")))
	assert.Equal(t, "raw", MessageOf(errors.New("raw")))
}
