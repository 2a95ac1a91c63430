package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const (
	defaultBedrockModel  = "amazon.titan-embed-text-v2:0"
	defaultBedrockRegion = "us-east-1"
)

// InvokeModelAPI is the subset of the Bedrock Runtime client used here
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockProvider computes embeddings with Amazon Titan through AWS Bedrock
type BedrockProvider struct {
	client InvokeModelAPI
	model  string
}

type titanEmbeddingRequest struct {
	InputText string `json:"inputText"`
}

type titanEmbeddingResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// NewBedrockProvider loads the default AWS credential chain for the
// configured region and creates a Bedrock provider
func NewBedrockProvider(ctx context.Context, config Config) (*BedrockProvider, error) {
	if config.Region == "" {
		config.Region = defaultBedrockRegion
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 30 * time.Second
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(config.Region),
		awsconfig.WithHTTPClient(&http.Client{
			Timeout: config.RequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewBedrockProviderWithClient(bedrockruntime.NewFromConfig(cfg), config.Model), nil
}

// NewBedrockProviderWithClient creates a provider on an existing client
func NewBedrockProviderWithClient(client InvokeModelAPI, model string) *BedrockProvider {
	if model == "" {
		model = defaultBedrockModel
	}
	return &BedrockProvider{client: client, model: model}
}

// Name returns the provider name
func (p *BedrockProvider) Name() string {
	return ProviderBedrock
}

// Embed invokes the Titan embedding model
func (p *BedrockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	requestBody, err := json.Marshal(titanEmbeddingRequest{InputText: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(p.model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        requestBody,
	})
	if err != nil {
		return nil, &ProviderError{Provider: ProviderBedrock, Message: err.Error()}
	}

	var titanResp titanEmbeddingResponse
	if err := json.Unmarshal(resp.Body, &titanResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(titanResp.Embedding) == 0 {
		return nil, emptyVectorError(ProviderBedrock)
	}

	return titanResp.Embedding, nil
}
