// Package builder runs the episode pipeline end to end: select
// clusters, resolve content, draft the script, synthesize and mix the
// audio, align the transcript, upload artifacts, and track the episode
// state machine throughout.
package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/podsmith/podsmith/internal/core/domain"
	apperrors "github.com/podsmith/podsmith/internal/core/errors"
	"github.com/podsmith/podsmith/internal/episode/audio"
	"github.com/podsmith/podsmith/internal/episode/content"
	"github.com/podsmith/podsmith/internal/episode/script"
	"github.com/podsmith/podsmith/internal/episode/selector"
	"github.com/podsmith/podsmith/internal/episode/store"
	"github.com/podsmith/podsmith/internal/episode/transcript"
	"github.com/podsmith/podsmith/internal/episode/tts"
	"github.com/podsmith/podsmith/internal/platform/observability"
	"github.com/podsmith/podsmith/internal/storage"
)

// Request asks for one episode. Idempotent on EpisodeID.
type Request struct {
	EpisodeID       string   `json:"episode_id"`
	UserID          string   `json:"user_id"`
	Subcategories   []string `json:"subcategories"`
	DurationMinutes int      `json:"duration_minutes"`
	CustomTags      []string `json:"custom_tags"`
	ListenerName    string   `json:"listener_name"`
}

// EpisodeStore is the persistence surface the builder needs.
type EpisodeStore interface {
	CreateEpisode(ctx context.Context, episode *domain.Episode) error
	GetEpisode(ctx context.Context, id string) (*domain.Episode, error)
	UpdateEpisodeStatus(ctx context.Context, id string, status domain.EpisodeStatus, progress int) error
	FailEpisode(ctx context.Context, id, message string) error
	SetEpisodeMetadata(ctx context.Context, id, title, description string) error
	CompleteEpisode(ctx context.Context, episode *domain.Episode) error
	RecordEpisodePlayback(ctx context.Context, id string, progress float64) error
	SaveEpisodeClusters(ctx context.Context, episodeID string, clusterIDs []string) error
	HeardClusterIDs(ctx context.Context, userID string) ([]string, error)
	EpisodeCandidates(ctx context.Context, cutoff time.Time, minImportance float64, heardClusterIDs []string) ([]storage.EpisodeCandidate, error)
}

// ContentResolver fills in article bodies.
type ContentResolver interface {
	Resolve(ctx context.Context, candidates []selector.Candidate) ([]content.SourcedArticle, error)
}

// ScriptDrafter produces the episode script.
type ScriptDrafter interface {
	Draft(ctx context.Context, articles []content.SourcedArticle, opts script.Options) (*domain.Script, error)
}

// AudioRenderer synthesizes script paragraphs.
type AudioRenderer interface {
	RenderAll(ctx context.Context, texts []string) ([]tts.Chunk, error)
}

// Config tunes the pipeline.
type Config struct {
	FreshnessWindow    time.Duration
	MinImportance      float64
	TargetArticleCount int
	MinWorldNewsCount  int
	CoverageBoost      float64
	DecayOverrides     map[string]float64
	SampleRate         int
	CrossfadeMillis    int
}

// Builder assembles episodes.
type Builder struct {
	db       EpisodeStore
	resolver ContentResolver
	scripts  ScriptDrafter
	renderer AudioRenderer
	encoder  audio.MP3Encoder
	objects  store.ObjectStore
	cfg      Config
	logger   *zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

// New creates an episode builder.
func New(db EpisodeStore, resolver ContentResolver, scripts ScriptDrafter, renderer AudioRenderer,
	encoder audio.MP3Encoder, objects store.ObjectStore, cfg Config, logger *zerolog.Logger,
) *Builder {
	if cfg.CrossfadeMillis == 0 {
		cfg.CrossfadeMillis = audio.DefaultCrossfadeMillis
	}

	return &Builder{
		db:       db,
		resolver: resolver,
		scripts:  scripts,
		renderer: renderer,
		encoder:  encoder,
		objects:  objects,
		cfg:      cfg,
		logger:   logger,
		inFlight: make(map[string]bool),
	}
}

// Generate runs the pipeline for one request. Re-delivery of a known
// episode id is a no-op: in-flight and terminal episodes are never
// restarted. Any stage error marks the episode failed and is returned.
func (b *Builder) Generate(ctx context.Context, req Request) error {
	if req.EpisodeID == "" {
		return fmt.Errorf("episode id: %w", apperrors.ErrInvalidInput)
	}

	if !b.acquire(req.EpisodeID) {
		return fmt.Errorf("episode %s: %w", req.EpisodeID, apperrors.ErrEpisodeInFlight)
	}
	defer b.release(req.EpisodeID)

	episode, err := b.prepare(ctx, req)
	if err != nil {
		return err
	}

	if err := b.run(ctx, episode, req); err != nil {
		b.fail(ctx, episode.ID, err)

		return err
	}

	observability.EpisodesGenerated.WithLabelValues(string(domain.StatusCompleted)).Inc()

	return nil
}

func (b *Builder) acquire(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inFlight[id] {
		return false
	}

	b.inFlight[id] = true

	return true
}

func (b *Builder) release(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.inFlight, id)
}

// prepare loads or creates the episode row and enforces idempotency.
func (b *Builder) prepare(ctx context.Context, req Request) (*domain.Episode, error) {
	existing, err := b.db.GetEpisode(ctx, req.EpisodeID)

	switch {
	case err == nil && existing.Status != domain.StatusPending:
		return nil, fmt.Errorf("episode %s already %s: %w", req.EpisodeID, existing.Status, apperrors.ErrEpisodeInFlight)
	case err == nil:
		return existing, nil
	case !apperrors.Is(err, apperrors.ErrEpisodeNotFound):
		return nil, err
	}

	episode := &domain.Episode{
		ID:            req.EpisodeID,
		UserID:        req.UserID,
		Status:        domain.StatusPending,
		Subcategories: req.Subcategories,
	}

	if err := b.db.CreateEpisode(ctx, episode); err != nil {
		return nil, err
	}

	return episode, nil
}

//nolint:funlen // the stage sequence reads best in one place
func (b *Builder) run(ctx context.Context, episode *domain.Episode, req Request) error {
	stageStarted := time.Now()

	// transition leaves the current stage, recording how long it took,
	// and persists the next one.
	transition := func(to domain.EpisodeStatus) error {
		observability.EpisodeStageDuration.WithLabelValues(string(episode.Status)).
			Observe(time.Since(stageStarted).Seconds())

		stageStarted = time.Now()

		return b.transition(ctx, episode, to)
	}

	// Stage 1: selection.
	if err := transition(domain.StatusDiscoveringArticles); err != nil {
		return err
	}

	selected, err := b.discover(ctx, req)
	if err != nil {
		return err
	}

	observability.EpisodeSelectedClusters.Set(float64(len(selected)))

	// Stage 2: content.
	if err := transition(domain.StatusExtractingContent); err != nil {
		return err
	}

	articles, err := b.resolver.Resolve(ctx, selected)
	if err != nil {
		return err
	}

	// Stage 3: script.
	if err := transition(domain.StatusGeneratingScript); err != nil {
		return err
	}

	draft, err := b.scripts.Draft(ctx, articles, script.Options{
		DurationMinutes: req.DurationMinutes,
		ListenerName:    req.ListenerName,
	})
	if err != nil {
		return err
	}

	if err := b.db.SetEpisodeMetadata(ctx, episode.ID, draft.Title, draft.Description); err != nil {
		return err
	}

	// Stage 4: audio.
	if err := transition(domain.StatusGeneratingAudio); err != nil {
		return err
	}

	texts := make([]string, len(draft.Sections))
	for i, section := range draft.Sections {
		texts[i] = section.Text
	}

	chunks, err := b.renderer.RenderAll(ctx, texts)
	if err != nil {
		return err
	}

	mixed := audio.Mix(chunks, b.sampleRate(chunks), b.cfg.CrossfadeMillis)

	mp3, err := b.encoder.EncodeMP3(ctx, audio.EncodeWAV(mixed.PCM, mixed.SampleRate))
	if err != nil {
		return err
	}

	// Stage 5: transcript and chapters.
	if err := transition(domain.StatusGeneratingTimestamps); err != nil {
		return err
	}

	segments := transcript.Build(draft.Sections, chunks)

	transcriptJSON, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}

	// Stage 6: upload.
	if err := transition(domain.StatusUploadingFiles); err != nil {
		return err
	}

	uploaded, err := store.Upload(ctx, b.objects, episode.ID, req.UserID, store.Artifacts{
		MP3:        mp3,
		Transcript: transcriptJSON,
		Chapters:   []byte(transcript.WriteVTT(segments)),
	})
	if err != nil {
		return err
	}

	// Stage 7: finalize.
	if err := transition(domain.StatusFinalizing); err != nil {
		return err
	}

	clusterIDs := make([]string, 0, len(selected))
	for _, c := range selected {
		clusterIDs = append(clusterIDs, c.ClusterID)
	}

	if err := b.db.SaveEpisodeClusters(ctx, episode.ID, clusterIDs); err != nil {
		return err
	}

	episode.AudioPath = uploaded.AudioPath
	episode.TranscriptPath = uploaded.TranscriptPath
	episode.ChaptersPath = uploaded.ChaptersPath
	episode.DurationSeconds = mixed.Seconds()

	if err := b.db.CompleteEpisode(ctx, episode); err != nil {
		return err
	}

	episode.Status = domain.StatusCompleted

	b.logger.Info().
		Str("episode_id", episode.ID).
		Int("clusters", len(clusterIDs)).
		Float64("duration_seconds", episode.DurationSeconds).
		Msg("episode completed")

	return nil
}

// discover selects the clusters anchoring this episode.
func (b *Builder) discover(ctx context.Context, req Request) ([]selector.Candidate, error) {
	heard, err := b.db.HeardClusterIDs(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-b.cfg.FreshnessWindow)

	rows, err := b.db.EpisodeCandidates(ctx, cutoff, b.cfg.MinImportance, heard)
	if err != nil {
		return nil, err
	}

	candidates := make([]selector.Candidate, len(rows))
	for i, row := range rows {
		candidates[i] = selector.Candidate(row)
	}

	prefs := selector.Preferences{
		Subcategories: req.Subcategories,
		CustomTags:    req.CustomTags,
	}

	opts := selector.Options{
		CoverageBoost:      b.cfg.CoverageBoost,
		DecayOverrides:     b.cfg.DecayOverrides,
		WorldNewsGuarantee: b.cfg.MinWorldNewsCount,
	}

	selected := selector.Select(candidates, prefs, b.cfg.TargetArticleCount, time.Now(), opts, b.logger)
	if len(selected) == 0 {
		return nil, apperrors.ErrNoNewArticles
	}

	return selected, nil
}

// transition advances the state machine and persists the new stage.
func (b *Builder) transition(ctx context.Context, episode *domain.Episode, to domain.EpisodeStatus) error {
	if err := validateTransition(episode.Status, to); err != nil {
		return err
	}

	if err := b.db.UpdateEpisodeStatus(ctx, episode.ID, to, Progress(to)); err != nil {
		return err
	}

	episode.Status = to
	episode.Progress = Progress(to)

	b.logger.Debug().Str("episode_id", episode.ID).Str("stage", string(to)).Msg("episode stage")

	return nil
}

func (b *Builder) fail(ctx context.Context, id string, cause error) {
	observability.EpisodesGenerated.WithLabelValues(string(domain.StatusFailed)).Inc()
	b.logger.Error().Err(cause).Str("episode_id", id).Msg("episode failed")

	// Persist the failure even when the request context is gone.
	failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := b.db.FailEpisode(failCtx, id, cause.Error()); err != nil {
		b.logger.Error().Err(err).Str("episode_id", id).Msg("could not persist episode failure")
	}
}

func (b *Builder) sampleRate(chunks []tts.Chunk) int {
	for _, chunk := range chunks {
		if chunk.SampleRate != 0 {
			return chunk.SampleRate
		}
	}

	if b.cfg.SampleRate != 0 {
		return b.cfg.SampleRate
	}

	return 24000
}
