package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/podsmith/podsmith/internal/core/embeddings"
	apperrors "github.com/podsmith/podsmith/internal/core/errors"
	"github.com/podsmith/podsmith/internal/platform/observability"
)

const rateLimiterBurst = 5

type openaiClient struct {
	client      *openai.Client
	model       string
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
	circuit     *embeddings.CircuitBreaker
}

func newOpenAIClient(cfg Config, logger *zerolog.Logger) *openaiClient {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}

	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 1
	}

	return &openaiClient{
		client:      openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(cfg.RateLimitRPS)), rateLimiterBurst),
		circuit:     embeddings.NewCircuitBreaker(cfg.CircuitBreaker, logger),
	}
}

func (c *openaiClient) Complete(ctx context.Context, task, prompt string) (string, error) {
	return c.complete(ctx, task, prompt, nil)
}

func (c *openaiClient) CompleteJSON(ctx context.Context, task, prompt string) (string, error) {
	format := &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	}

	return c.complete(ctx, task, prompt, format)
}

func (c *openaiClient) complete(ctx context.Context, task, prompt string, format *openai.ChatCompletionResponseFormat) (string, error) {
	if err := c.circuit.CheckCircuit(); err != nil {
		return "", err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm rate limiter: %w", err)
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		ResponseFormat: format,
	})

	observability.LLMRequestDuration.WithLabelValues(task).Observe(time.Since(start).Seconds())

	if err != nil {
		c.circuit.RecordFailure()

		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	c.circuit.RecordSuccess()

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", task, apperrors.ErrEmptyResponse)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%s: %w", task, apperrors.ErrEmptyResponse)
	}

	c.logger.Debug().Str("task", task).Int("chars", len(content)).Msg("llm response")

	return content, nil
}
