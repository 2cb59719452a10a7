// Package llm provides the chat completion client used by the
// clustering judge and the script writer.
package llm

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/podsmith/podsmith/internal/core/embeddings"
)

// Task labels requests for metrics and logging.
const (
	TaskClusteringJudge = "clustering_judge"
	TaskMetadata        = "metadata"
	TaskSummary         = "summary"
	TaskFraming         = "framing"
	TaskTopicBody       = "topic_body"
)

// Client is the chat completion interface.
type Client interface {
	// Complete sends a prompt and returns the raw text response.
	Complete(ctx context.Context, task, prompt string) (string, error)

	// CompleteJSON sends a prompt with a JSON-object response format
	// and returns the raw response body.
	CompleteJSON(ctx context.Context, task, prompt string) (string, error)
}

// Config holds configuration for creating an LLM client.
type Config struct {
	APIKey       string
	Model        string
	RateLimitRPS int

	CircuitBreaker embeddings.CircuitBreakerConfig
}

const mockAPIKey = "mock"

// New creates an LLM client. Without an API key a mock client is
// returned so the rest of the system can run offline.
func New(cfg Config, logger *zerolog.Logger) Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if cfg.APIKey == "" || cfg.APIKey == mockAPIKey {
		logger.Warn().Msg("no LLM API key configured, using mock client")

		return NewMock()
	}

	return newOpenAIClient(cfg, logger)
}
