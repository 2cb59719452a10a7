// Package embeddings provides text embedding generation for the
// clustering pipeline.
//
// Features:
//   - Circuit breaker for provider resilience
//   - Rate limiting
//   - Configurable output dimensions (768 by default, matching the
//     articles.embedding column)
package embeddings

import (
	"context"

	"github.com/rs/zerolog"
)

// DefaultDimensions matches the vector(768) column in the articles table.
const DefaultDimensions = 768

// Client defines the interface for embedding operations.
type Client interface {
	// GetEmbedding generates an embedding for the given text.
	// Returns a vector with consistent dimensions (768 by default).
	GetEmbedding(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the output vector size.
	Dimensions() int
}

// Config holds configuration for creating an embedding client.
type Config struct {
	APIKey     string
	Model      string
	Dimensions int
	RateLimit  int // requests per second

	CircuitBreaker CircuitBreakerConfig
}

// NewClient creates an embedding client. Without an API key a mock
// client is returned, which keeps local development working offline.
func NewClient(cfg Config, logger *zerolog.Logger) Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	if cfg.APIKey == "" || cfg.APIKey == mockAPIKey {
		logger.Warn().Msg("no embedding API key configured, using mock provider")

		return NewMock(cfg.Dimensions)
	}

	return newOpenAIClient(cfg, logger)
}
