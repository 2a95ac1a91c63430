package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultNomicEndpoint = "https://api-atlas.nomic.ai"
	defaultNomicModel    = "nomic-embed-text-v1.5"
	defaultNomicTaskType = "search_document"
)

// NomicProvider calls the Nomic Atlas text embedding API
type NomicProvider struct {
	endpoint   string
	apiKey     string
	model      string
	taskType   string
	httpClient *http.Client
}

type nomicRequest struct {
	Texts    []string `json:"texts"`
	Model    string   `json:"model"`
	TaskType string   `json:"task_type,omitempty"`
}

type nomicResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewNomicProvider creates a Nomic provider
func NewNomicProvider(config Config) (*NomicProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("nomic API key is required")
	}
	if config.Endpoint == "" {
		config.Endpoint = defaultNomicEndpoint
	}
	if config.Model == "" {
		config.Model = defaultNomicModel
	}
	if config.TaskType == "" {
		config.TaskType = defaultNomicTaskType
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 30 * time.Second
	}

	return &NomicProvider{
		endpoint: strings.TrimRight(config.Endpoint, "/"),
		apiKey:   config.APIKey,
		model:    config.Model,
		taskType: config.TaskType,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
	}, nil
}

// Name returns the provider name
func (p *NomicProvider) Name() string {
	return ProviderNomic
}

// Embed returns the first embedding of a single-text request
func (p *NomicProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	jsonData, err := json.Marshal(nomicRequest{
		Texts:    []string{text},
		Model:    p.model,
		TaskType: p.taskType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/v1/embedding/text", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderNomic, Message: err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider:   ProviderNomic,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	var parsed nomicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Embeddings) == 0 || len(parsed.Embeddings[0]) == 0 {
		return nil, emptyVectorError(ProviderNomic)
	}

	return parsed.Embeddings[0], nil
}
