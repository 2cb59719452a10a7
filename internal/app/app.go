// Package app wires the application together and exposes one Run
// method per operational mode:
//
//   - Ingest mode: polls RSS feeds and clusters incoming articles
//   - Builder mode: serves the episode API and runs generation
//
// Both modes share the database, configuration, and health server; they
// can run in one process or be deployed separately.
package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/podsmith/podsmith/internal/core/embeddings"
	"github.com/podsmith/podsmith/internal/core/links"
	"github.com/podsmith/podsmith/internal/core/llm"
	"github.com/podsmith/podsmith/internal/episode/audio"
	"github.com/podsmith/podsmith/internal/episode/builder"
	"github.com/podsmith/podsmith/internal/episode/content"
	"github.com/podsmith/podsmith/internal/episode/script"
	"github.com/podsmith/podsmith/internal/episode/store"
	"github.com/podsmith/podsmith/internal/episode/tts"
	"github.com/podsmith/podsmith/internal/ingest"
	"github.com/podsmith/podsmith/internal/platform/config"
	"github.com/podsmith/podsmith/internal/platform/observability"
	db "github.com/podsmith/podsmith/internal/storage"
)

const storageBackendGCS = "gcs"

// App holds the shared dependencies of all modes.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger
}

// New creates the application.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// StartHealthServer serves liveness, readiness, and metrics endpoints
// until ctx is canceled.
func (a *App) StartHealthServer(ctx context.Context) error {
	return observability.NewServer(a.database, a.cfg.HealthPort, a.logger).Start(ctx)
}

// RunIngest polls the configured feeds and runs each new article
// through the clustering pipeline.
func (a *App) RunIngest(ctx context.Context) error {
	emb := embeddings.NewClient(embeddings.Config{
		APIKey:     a.cfg.LLMAPIKey,
		Model:      a.cfg.EmbeddingModel,
		Dimensions: a.cfg.EmbeddingDimensions,
		RateLimit:  a.cfg.EmbeddingRateLimit,
		CircuitBreaker: embeddings.CircuitBreakerConfig{
			Threshold:  a.cfg.LLMCircuitThreshold,
			ResetAfter: a.cfg.LLMCircuitTimeout,
		},
	}, a.logger)

	pipeline := ingest.NewPipeline(a.database, emb, a.newLLMClient(), ingest.PipelineConfig{
		SimilarityThreshold: a.cfg.SimilarityThreshold,
		NeighborLimit:       a.cfg.NeighborLimit,
		JudgeNeighborLimit:  a.cfg.JudgeNeighborLimit,
		FreshnessWindow:     a.cfg.FreshnessWindow(),
	}, a.logger)

	// An empty FEED_URLS falls back to the curated catalog.
	poller := ingest.NewPoller(pipeline, a.cfg.FeedURLs, a.cfg.FeedPollInterval, a.logger)

	a.logger.Info().Int("feed_overrides", len(a.cfg.FeedURLs)).Msg("ingest mode started")

	return poller.Run(ctx)
}

// RunBuilder serves the episode API until ctx is canceled.
func (a *App) RunBuilder(ctx context.Context) error {
	objects, err := a.newObjectStore(ctx)
	if err != nil {
		return err
	}

	fetcher := links.NewWebFetcher(a.cfg.WebFetchRPS, a.cfg.WebFetchTimeout)

	resolver := content.NewResolver(fetcher, a.database, a.database, content.Config{
		MinLength:   a.cfg.MinContentLength,
		MaxLength:   a.cfg.MaxContentLength,
		BackupLimit: a.cfg.ClusterBackupLimit,
	}, a.logger)

	drafter := script.NewOrchestrator(a.newLLMClient(), script.Config{
		WordsPerMinute:         a.cfg.WordsPerMinute,
		DefaultDurationMinutes: a.cfg.TargetDurationMinutes,
	}, a.logger)

	voice := tts.NewClient(tts.ClientConfig{
		BaseURL:      a.cfg.TTSBaseURL,
		APIKey:       a.cfg.TTSAPIKey,
		Voice:        a.cfg.TTSVoice,
		SampleRate:   a.cfg.TTSSampleRate,
		RateLimitRPS: a.cfg.TTSRateLimitRPS,
		Timeout:      a.cfg.TTSRequestTimeout,
		CircuitBreaker: embeddings.CircuitBreakerConfig{
			Threshold:  a.cfg.LLMCircuitThreshold,
			ResetAfter: a.cfg.LLMCircuitTimeout,
		},
	}, a.logger)

	renderer := tts.NewRenderer(voice, tts.RendererConfig{
		BatchSize:      a.cfg.TTSBatchSize,
		SilenceSeconds: float64(a.cfg.SilenceFallbackSeconds),
	}, a.logger)

	encoder := audio.NewFFmpegEncoder(a.cfg.FFmpegPath, a.cfg.MP3Bitrate, a.logger)

	episodes := builder.New(a.database, resolver, drafter, renderer, encoder, objects, builder.Config{
		FreshnessWindow:    a.cfg.FreshnessWindow(),
		MinImportance:      a.cfg.MinImportance,
		TargetArticleCount: a.cfg.TargetArticleCount,
		MinWorldNewsCount:  a.cfg.MinWorldNewsCount,
		CoverageBoost:      a.cfg.CoverageBoost,
		DecayOverrides:     a.cfg.DecayOverrides(),
		SampleRate:         a.cfg.TTSSampleRate,
		CrossfadeMillis:    a.cfg.CrossfadeMillis,
	}, a.logger)

	a.logger.Info().Str("storage", a.cfg.StorageBackend).Msg("builder mode started")

	return builder.NewServer(episodes, a.database, a.cfg.BuilderPort, a.logger).Start(ctx)
}

func (a *App) newLLMClient() llm.Client {
	return llm.New(llm.Config{
		APIKey:       a.cfg.LLMAPIKey,
		Model:        a.cfg.LLMModel,
		RateLimitRPS: a.cfg.LLMRateLimitRPS,
		CircuitBreaker: embeddings.CircuitBreakerConfig{
			Threshold:  a.cfg.LLMCircuitThreshold,
			ResetAfter: a.cfg.LLMCircuitTimeout,
		},
	}, a.logger)
}

func (a *App) newObjectStore(ctx context.Context) (store.ObjectStore, error) {
	if a.cfg.StorageBackend == storageBackendGCS {
		return store.NewGCSStore(ctx, a.cfg.GCSBucket, a.logger)
	}

	return store.NewLocalStore(a.cfg.LocalStoreDir)
}
