// Package embeddingtest provides a deterministic embedding provider for tests.
package embeddingtest

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
)

// Dimensions of vectors produced for texts without a fixed mapping
const Dimensions = 8

// StubProvider returns fixed vectors for known texts and a stable
// hash-derived vector for anything else
type StubProvider struct {
	mu      sync.Mutex
	vectors map[string][]float32
	failOn  map[string]error
	calls   []string
}

// NewStubProvider creates a stub with the given text-to-vector mapping
func NewStubProvider(vectors map[string][]float32) *StubProvider {
	if vectors == nil {
		vectors = make(map[string][]float32)
	}
	return &StubProvider{
		vectors: vectors,
		failOn:  make(map[string]error),
	}
}

// Set maps text to a fixed vector
func (s *StubProvider) Set(text string, vector []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors[text] = vector
}

// FailOn makes Embed return err for text
func (s *StubProvider) FailOn(text string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[text] = err
}

// Calls returns the texts embedded so far, in order
func (s *StubProvider) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Name returns "stub"
func (s *StubProvider) Name() string {
	return "stub"
}

// Embed implements embedding.Provider
func (s *StubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, text)

	if err, ok := s.failOn[text]; ok {
		return nil, err
	}
	if vector, ok := s.vectors[text]; ok {
		return append([]float32(nil), vector...), nil
	}
	return HashVector(text), nil
}

// HashVector derives a stable pseudo-random vector from text
func HashVector(text string) []float32 {
	vector := make([]float32, Dimensions)
	for i := range vector {
		h := fnv.New64a()
		_, _ = fmt.Fprintf(h, "%d:%s", i, text)
		vector[i] = float32(h.Sum64()%2000)/1000 - 1
	}
	return vector
}
