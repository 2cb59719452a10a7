package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/podsmith/podsmith/internal/platform/observability"
)

const (
	// ModelTextEmbedding3Small supports dimension reduction via the API
	// parameter, which is how the 768-dim output is produced.
	ModelTextEmbedding3Small = "text-embedding-3-small"

	mockAPIKey       = "mock"
	rateLimiterBurst = 5
)

type openaiClient struct {
	client      *openai.Client
	model       string
	dimensions  int
	rateLimiter *rate.Limiter
	circuit     *CircuitBreaker
	logger      *zerolog.Logger
}

func newOpenAIClient(cfg Config, logger *zerolog.Logger) *openaiClient {
	if cfg.Model == "" {
		cfg.Model = ModelTextEmbedding3Small
	}

	if cfg.RateLimit == 0 {
		cfg.RateLimit = 1
	}

	return &openaiClient{
		client:      openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		dimensions:  cfg.Dimensions,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), rateLimiterBurst),
		circuit:     NewCircuitBreaker(cfg.CircuitBreaker, logger),
		logger:      logger,
	}
}

// Dimensions returns the configured output dimensions.
func (c *openaiClient) Dimensions() int {
	return c.dimensions
}

// GetEmbedding generates an embedding for the given text.
func (c *openaiClient) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if err := c.circuit.CheckCircuit(); err != nil {
		return nil, err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding rate limiter: %w", err)
	}

	start := time.Now()

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: c.dimensions,
	})

	observability.EmbeddingRequestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		c.circuit.RecordFailure()

		return nil, fmt.Errorf("create embeddings: %w", err)
	}

	if len(resp.Data) == 0 {
		c.circuit.RecordFailure()

		return nil, ErrEmptyEmbeddingResponse
	}

	c.circuit.RecordSuccess()

	return resp.Data[0].Embedding, nil
}
