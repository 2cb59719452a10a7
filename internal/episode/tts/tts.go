// Package tts renders script paragraphs to speech. Paragraphs are
// synthesized in parallel batches; a failed paragraph degrades to a
// short stretch of silence instead of failing the episode.
package tts

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/podsmith/podsmith/internal/core/domain"
	"github.com/podsmith/podsmith/internal/platform/observability"
)

// Chunk is one synthesized paragraph: 16-bit mono PCM samples plus the
// provider's word timings when it supplies them.
type Chunk struct {
	PCM        []int16
	SampleRate int
	Words      []domain.WordStamp
	// Silence marks a chunk substituted after a synthesis failure.
	Silence bool
}

// Seconds returns the chunk duration.
func (c Chunk) Seconds() float64 {
	if c.SampleRate == 0 {
		return 0
	}

	return float64(len(c.PCM)) / float64(c.SampleRate)
}

// Client synthesizes a single paragraph.
type Client interface {
	Synthesize(ctx context.Context, text string) (Chunk, error)
	SampleRate() int
}

const (
	defaultBatchSize      = 8
	defaultSilenceSeconds = 2
)

// RendererConfig tunes the fan-out.
type RendererConfig struct {
	BatchSize      int
	SilenceSeconds float64
}

// Renderer fans paragraphs out to the TTS client in batches.
type Renderer struct {
	client Client
	cfg    RendererConfig
	logger *zerolog.Logger
}

// NewRenderer creates a batch renderer.
func NewRenderer(client Client, cfg RendererConfig, logger *zerolog.Logger) *Renderer {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaultBatchSize
	}

	if cfg.SilenceSeconds == 0 {
		cfg.SilenceSeconds = defaultSilenceSeconds
	}

	return &Renderer{client: client, cfg: cfg, logger: logger}
}

// RenderAll synthesizes every paragraph, preserving order. Paragraphs
// are processed in batches of BatchSize, each batch fully in parallel.
// A failed paragraph is replaced with silence and flagged on the chunk.
func (r *Renderer) RenderAll(ctx context.Context, texts []string) ([]Chunk, error) {
	chunks := make([]Chunk, len(texts))

	for start := 0; start < len(texts); start += r.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + r.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		r.renderBatch(ctx, texts[start:end], chunks[start:end])
	}

	return chunks, nil
}

func (r *Renderer) renderBatch(ctx context.Context, texts []string, out []Chunk) {
	done := make(chan struct{})

	for i, text := range texts {
		go func() {
			defer func() { done <- struct{}{} }()

			chunk, err := r.client.Synthesize(ctx, text)
			if err != nil {
				observability.TTSSegmentFailures.Inc()
				r.logger.Warn().Err(err).Int("chars", len(text)).Msg("synthesis failed, substituting silence")

				chunk = r.silence()
			}

			out[i] = chunk
		}()
	}

	for range texts {
		<-done
	}
}

func (r *Renderer) silence() Chunk {
	rate := r.client.SampleRate()

	return Chunk{
		PCM:        make([]int16, int(r.cfg.SilenceSeconds*float64(rate))),
		SampleRate: rate,
		Silence:    true,
	}
}
