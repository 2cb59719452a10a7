// Package script drafts the episode text: metadata, description, and
// framing first, then one body writer per topic fanned out in parallel.
package script

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/podsmith/podsmith/internal/core/domain"
	apperrors "github.com/podsmith/podsmith/internal/core/errors"
	"github.com/podsmith/podsmith/internal/core/llm"
	"github.com/podsmith/podsmith/internal/episode/content"
)

// Canned framing used when the framing writer fails. The episode still
// ships; only the greeting loses its personality.
const (
	fallbackIntro = "Welcome to your briefing. Here is what is happening today."
	fallbackOutro = "That is all for now. Thanks for listening."
)

const (
	defaultWordsPerMinute  = 120
	defaultDurationMinutes = 10
	secondsPerMinute       = 60
)

// Config tunes script drafting.
type Config struct {
	WordsPerMinute         int
	DefaultDurationMinutes int
}

// Options carries per-episode drafting inputs.
type Options struct {
	DurationMinutes int
	ListenerName    string
}

// Orchestrator runs the drafting graph against the LLM client.
type Orchestrator struct {
	llm    llm.Client
	cfg    Config
	logger *zerolog.Logger
}

// NewOrchestrator creates a script orchestrator.
func NewOrchestrator(chat llm.Client, cfg Config, logger *zerolog.Logger) *Orchestrator {
	if cfg.WordsPerMinute == 0 {
		cfg.WordsPerMinute = defaultWordsPerMinute
	}

	if cfg.DefaultDurationMinutes == 0 {
		cfg.DefaultDurationMinutes = defaultDurationMinutes
	}

	return &Orchestrator{llm: chat, cfg: cfg, logger: logger}
}

type episodeMetadata struct {
	Title string `json:"title"`
	Tone  string `json:"tone"`
}

type framing struct {
	Intro string `json:"intro"`
	Outro string `json:"outro"`
}

// Draft produces the full episode script. Metadata failure and any
// topic writer failure abort the draft; description and framing
// failures degrade to fallbacks.
func (o *Orchestrator) Draft(ctx context.Context, articles []content.SourcedArticle, opts Options) (*domain.Script, error) {
	if len(articles) == 0 {
		return nil, apperrors.ErrNoNewArticles
	}

	minutes := opts.DurationMinutes
	if minutes <= 0 {
		minutes = o.cfg.DefaultDurationMinutes
	}

	topics := GroupTopics(articles, minutes*o.cfg.WordsPerMinute)

	meta, err := o.draftMetadata(ctx, articles)
	if err != nil {
		return nil, fmt.Errorf("draft metadata: %w", err)
	}

	var (
		description string
		frame       framing
	)

	// Description and framing only depend on the metadata and can run
	// side by side.
	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		description = o.draftDescription(gctx, meta, articles)

		return nil
	})

	group.Go(func() error {
		frame = o.draftFraming(gctx, meta.Tone, opts.ListenerName)

		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}

	bodies, err := o.draftTopicBodies(ctx, topics, meta.Tone)
	if err != nil {
		return nil, err
	}

	script := &domain.Script{
		Title:       meta.Title,
		Tone:        meta.Tone,
		Description: description,
		Sections:    assemble(frame, topics, bodies),
	}
	script.EstimatedSeconds = float64(script.WordCount()) / float64(o.cfg.WordsPerMinute) * secondsPerMinute

	return script, nil
}

func (o *Orchestrator) draftMetadata(ctx context.Context, articles []content.SourcedArticle) (episodeMetadata, error) {
	raw, err := o.llm.CompleteJSON(ctx, llm.TaskMetadata, buildMetadataPrompt(articles))
	if err != nil {
		return episodeMetadata{}, err
	}

	var meta episodeMetadata
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &meta); err != nil {
		return episodeMetadata{}, fmt.Errorf("parse metadata: %w", err)
	}

	if meta.Title == "" {
		return episodeMetadata{}, fmt.Errorf("parse metadata: %w", apperrors.ErrEmptyResponse)
	}

	if meta.Tone == "" {
		meta.Tone = "calm and informative"
	}

	return meta, nil
}

func (o *Orchestrator) draftDescription(ctx context.Context, meta episodeMetadata, articles []content.SourcedArticle) string {
	description, err := o.llm.Complete(ctx, llm.TaskSummary, buildSummaryPrompt(meta.Title, meta.Tone, articles))
	if err != nil || description == "" {
		o.logger.Warn().Err(err).Msg("description draft failed, using title")

		return meta.Title
	}

	return description
}

func (o *Orchestrator) draftFraming(ctx context.Context, tone, listenerName string) framing {
	raw, err := o.llm.CompleteJSON(ctx, llm.TaskFraming, buildFramingPrompt(tone, listenerName))
	if err == nil {
		var frame framing
		if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &frame); err == nil && frame.Intro != "" && frame.Outro != "" {
			return frame
		}
	}

	o.logger.Warn().Err(err).Msg("framing draft failed, using canned intro and outro")

	return framing{Intro: fallbackIntro, Outro: fallbackOutro}
}

// draftTopicBodies fans out one writer per topic. Rate limiting lives
// in the LLM client, so the fan-out is unbounded here. A single
// failure aborts the whole draft.
func (o *Orchestrator) draftTopicBodies(ctx context.Context, topics []Topic, tone string) ([]string, error) {
	bodies := make([]string, len(topics))

	group, gctx := errgroup.WithContext(ctx)

	for i, topic := range topics {
		group.Go(func() error {
			body, err := o.llm.Complete(gctx, llm.TaskTopicBody, buildTopicPrompt(topic, tone))
			if err != nil {
				return fmt.Errorf("draft topic %q: %w", topic.Name, err)
			}

			if body == "" {
				return fmt.Errorf("draft topic %q: %w", topic.Name, apperrors.ErrEmptyResponse)
			}

			bodies[i] = body

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return bodies, nil
}

func assemble(frame framing, topics []Topic, bodies []string) []domain.ScriptSection {
	sections := make([]domain.ScriptSection, 0, len(topics)+2)

	sections = append(sections, domain.ScriptSection{Kind: domain.SectionIntro, Text: frame.Intro})

	for i, topic := range topics {
		clusterIDs := make([]string, 0, len(topic.Articles))
		for _, article := range topic.Articles {
			clusterIDs = append(clusterIDs, article.ClusterID)
		}

		sections = append(sections, domain.ScriptSection{
			Kind:       domain.SectionTopic,
			Topic:      topic.Name,
			Category:   topic.Category,
			Text:       bodies[i],
			ClusterIDs: clusterIDs,
		})
	}

	return append(sections, domain.ScriptSection{Kind: domain.SectionOutro, Text: frame.Outro})
}
