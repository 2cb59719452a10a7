package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/podsmith/podsmith/internal/core/domain"
	"github.com/podsmith/podsmith/internal/core/embeddings"
	apperrors "github.com/podsmith/podsmith/internal/core/errors"
	"github.com/podsmith/podsmith/internal/platform/observability"
)

// ClientConfig configures the HTTP synthesis client.
type ClientConfig struct {
	BaseURL      string
	APIKey       string
	Voice        string
	SampleRate   int
	RateLimitRPS int
	Timeout      time.Duration

	CircuitBreaker embeddings.CircuitBreakerConfig
}

const (
	defaultSampleRate = 24000
	defaultTimeout    = 2 * time.Minute
	defaultRPS        = 4
	limiterBurst      = 4
	maxResponseBytes  = 64 << 20
)

type httpClient struct {
	cfg     ClientConfig
	http    *http.Client
	limiter *rate.Limiter
	circuit *embeddings.CircuitBreaker
	logger  *zerolog.Logger
}

// NewClient creates the HTTP synthesis client. Without a base URL a
// deterministic mock is returned so the pipeline can run offline.
func NewClient(cfg ClientConfig, logger *zerolog.Logger) Client {
	if cfg.BaseURL == "" {
		logger.Warn().Msg("no TTS endpoint configured, using mock synthesis")

		return NewMock(cfg.SampleRate)
	}

	if cfg.SampleRate == 0 {
		cfg.SampleRate = defaultSampleRate
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = defaultRPS
	}

	return &httpClient{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), limiterBurst),
		circuit: embeddings.NewCircuitBreaker(cfg.CircuitBreaker, logger),
		logger:  logger,
	}
}

func (c *httpClient) SampleRate() int {
	return c.cfg.SampleRate
}

type synthesisRequest struct {
	Text             string `json:"text"`
	Voice            string `json:"preset_voice"`
	OutputFormat     string `json:"output_format"`
	SampleRate       int    `json:"sample_rate"`
	ReturnTimestamps bool   `json:"return_timestamps"`
}

type synthesisResponse struct {
	Audio string             `json:"audio"`
	Words []domain.WordStamp `json:"words"`
}

func (c *httpClient) Synthesize(ctx context.Context, text string) (Chunk, error) {
	if err := c.circuit.CheckCircuit(); err != nil {
		return Chunk{}, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Chunk{}, fmt.Errorf("tts rate limit: %w", err)
	}

	started := time.Now()

	chunk, err := c.call(ctx, text)

	observability.TTSRequestDuration.Observe(time.Since(started).Seconds())

	if err != nil {
		c.circuit.RecordFailure()

		return Chunk{}, err
	}

	c.circuit.RecordSuccess()

	return chunk, nil
}

func (c *httpClient) call(ctx context.Context, text string) (Chunk, error) {
	payload, err := json.Marshal(synthesisRequest{
		Text:             text,
		Voice:            c.cfg.Voice,
		OutputFormat:     "pcm",
		SampleRate:       c.cfg.SampleRate,
		ReturnTimestamps: true,
	})
	if err != nil {
		return Chunk{}, fmt.Errorf("encode tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return Chunk{}, fmt.Errorf("build tts request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Chunk{}, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Chunk{}, fmt.Errorf("read tts response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return Chunk{}, apperrors.ErrRateLimited
	}

	if resp.StatusCode != http.StatusOK {
		return Chunk{}, fmt.Errorf("tts status %d: %s", resp.StatusCode, firstBytes(body, 200))
	}

	var parsed synthesisResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Chunk{}, fmt.Errorf("decode tts response: %w", err)
	}

	if parsed.Audio == "" {
		return Chunk{}, fmt.Errorf("tts: %w", apperrors.ErrEmptyResponse)
	}

	pcm, err := decodePCM(parsed.Audio)
	if err != nil {
		return Chunk{}, err
	}

	return Chunk{PCM: pcm, SampleRate: c.cfg.SampleRate, Words: parsed.Words}, nil
}

// decodePCM turns the base64 response payload into little-endian
// 16-bit samples.
func decodePCM(encoded string) ([]int16, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode tts audio: %w", err)
	}

	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}

	return samples, nil
}

func firstBytes(b []byte, max int) string {
	if len(b) > max {
		b = b[:max]
	}

	return string(b)
}
