package builder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podsmith/podsmith/internal/core/domain"
	apperrors "github.com/podsmith/podsmith/internal/core/errors"
	"github.com/podsmith/podsmith/internal/episode/content"
	"github.com/podsmith/podsmith/internal/episode/script"
	"github.com/podsmith/podsmith/internal/episode/selector"
	"github.com/podsmith/podsmith/internal/episode/tts"
	"github.com/podsmith/podsmith/internal/storage"
)

type fakeEpisodeStore struct {
	mu sync.Mutex

	episodes   map[string]*domain.Episode
	candidates []storage.EpisodeCandidate
	heard      []string

	transitions []domain.EpisodeStatus
	savedOrder  []string
	failMessage string
	metadata    [2]string
}

func newFakeEpisodeStore() *fakeEpisodeStore {
	return &fakeEpisodeStore{episodes: make(map[string]*domain.Episode)}
}

func (f *fakeEpisodeStore) CreateEpisode(_ context.Context, e *domain.Episode) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := *e
	f.episodes[e.ID] = &copied

	return nil
}

func (f *fakeEpisodeStore) GetEpisode(_ context.Context, id string) (*domain.Episode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.episodes[id]
	if !ok {
		return nil, fmt.Errorf("episode %s: %w", id, apperrors.ErrEpisodeNotFound)
	}

	copied := *e

	return &copied, nil
}

func (f *fakeEpisodeStore) UpdateEpisodeStatus(_ context.Context, id string, status domain.EpisodeStatus, progress int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	e := f.episodes[id]
	e.Status = status
	e.Progress = progress

	f.transitions = append(f.transitions, status)

	return nil
}

func (f *fakeEpisodeStore) FailEpisode(_ context.Context, id, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.episodes[id].Status = domain.StatusFailed
	f.failMessage = message

	return nil
}

func (f *fakeEpisodeStore) SetEpisodeMetadata(_ context.Context, _, title, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.metadata = [2]string{title, description}

	return nil
}

func (f *fakeEpisodeStore) CompleteEpisode(_ context.Context, e *domain.Episode) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored := f.episodes[e.ID]
	stored.Status = domain.StatusCompleted
	stored.Progress = 100
	stored.AudioPath = e.AudioPath
	stored.TranscriptPath = e.TranscriptPath
	stored.ChaptersPath = e.ChaptersPath
	stored.DurationSeconds = e.DurationSeconds

	return nil
}

func (f *fakeEpisodeStore) RecordEpisodePlayback(_ context.Context, id string, progress float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	episode, ok := f.episodes[id]
	if !ok {
		return fmt.Errorf("episode %s: %w", id, apperrors.ErrEpisodeNotFound)
	}

	episode.PlayProgress = progress

	if episode.PlayedAt == nil {
		now := time.Now()
		episode.PlayedAt = &now
	}

	return nil
}

func (f *fakeEpisodeStore) SaveEpisodeClusters(_ context.Context, _ string, clusterIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.savedOrder = clusterIDs

	return nil
}

func (f *fakeEpisodeStore) HeardClusterIDs(context.Context, string) ([]string, error) {
	return f.heard, nil
}

func (f *fakeEpisodeStore) EpisodeCandidates(context.Context, time.Time, float64, []string) ([]storage.EpisodeCandidate, error) {
	return f.candidates, nil
}

type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, candidates []selector.Candidate) ([]content.SourcedArticle, error) {
	articles := make([]content.SourcedArticle, len(candidates))
	for i, c := range candidates {
		articles[i] = content.SourcedArticle{Candidate: c, Body: c.Title + " body"}
	}

	return articles, nil
}

type fakeDrafter struct {
	err error
}

func (f *fakeDrafter) Draft(_ context.Context, articles []content.SourcedArticle, _ script.Options) (*domain.Script, error) {
	if f.err != nil {
		return nil, f.err
	}

	sections := []domain.ScriptSection{
		{Kind: domain.SectionIntro, Text: "hello there"},
	}

	for _, a := range articles {
		sections = append(sections, domain.ScriptSection{
			Kind:       domain.SectionTopic,
			Topic:      a.Subcategory,
			Text:       a.Body,
			ClusterIDs: []string{a.ClusterID},
		})
	}

	sections = append(sections, domain.ScriptSection{Kind: domain.SectionOutro, Text: "goodbye"})

	return &domain.Script{Title: "Test Brief", Description: "desc", Tone: "calm", Sections: sections}, nil
}

type fakeRenderer struct{}

func (fakeRenderer) RenderAll(_ context.Context, texts []string) ([]tts.Chunk, error) {
	chunks := make([]tts.Chunk, len(texts))
	for i := range texts {
		chunks[i] = tts.Chunk{PCM: make([]int16, 24000), SampleRate: 24000}
	}

	return chunks, nil
}

type fakeEncoder struct{}

func (fakeEncoder) EncodeMP3(_ context.Context, wav []byte) ([]byte, error) {
	return append([]byte("MP3"), wav[:4]...), nil
}

type fakeObjects struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeObjects) Put(_ context.Context, key, _ string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.keys = append(f.keys, key)

	return "mem://" + key, nil
}

func candidateRow(clusterID, subcategory, category string, importance float64) storage.EpisodeCandidate {
	return storage.EpisodeCandidate{
		ArticleID:    clusterID + "-a",
		ClusterID:    clusterID,
		URL:          "https://example.com/" + clusterID,
		Title:        clusterID + " title",
		Summary:      clusterID + " summary",
		Category:     category,
		Subcategory:  subcategory,
		Importance:   importance,
		ArticleCount: 1,
		PublishedAt:  time.Now(),
	}
}

func newBuilderForTest(db *fakeEpisodeStore, drafter ScriptDrafter) (*Builder, *fakeObjects) {
	logger := zerolog.Nop()
	objects := &fakeObjects{}

	cfg := Config{
		FreshnessWindow:    120 * time.Hour,
		MinImportance:      40,
		TargetArticleCount: 8,
	}

	return New(db, fakeResolver{}, drafter, fakeRenderer{}, fakeEncoder{}, objects, cfg, &logger), objects
}

func TestGenerateHappyPath(t *testing.T) {
	db := newFakeEpisodeStore()
	db.candidates = []storage.EpisodeCandidate{
		candidateRow("c1", "Europe", "World News", 90),
		candidateRow("c2", "Tennis", "Sports", 70),
	}

	b, objects := newBuilderForTest(db, &fakeDrafter{})

	req := Request{
		EpisodeID:     "ep1",
		UserID:        "u1",
		Subcategories: []string{"Europe", "Tennis"},
	}

	require.NoError(t, b.Generate(context.Background(), req))

	assert.Equal(t, []domain.EpisodeStatus{
		domain.StatusDiscoveringArticles,
		domain.StatusExtractingContent,
		domain.StatusGeneratingScript,
		domain.StatusGeneratingAudio,
		domain.StatusGeneratingTimestamps,
		domain.StatusUploadingFiles,
		domain.StatusFinalizing,
	}, db.transitions)

	episode := db.episodes["ep1"]
	assert.Equal(t, domain.StatusCompleted, episode.Status)
	assert.Equal(t, 100, episode.Progress)
	assert.Equal(t, "mem://users/u1/audio/ep1.mp3", episode.AudioPath)
	assert.Greater(t, episode.DurationSeconds, 0.0)

	assert.Equal(t, [2]string{"Test Brief", "desc"}, db.metadata)
	// Cluster order follows the selection (importance desc).
	assert.Equal(t, []string{"c1", "c2"}, db.savedOrder)

	require.Len(t, objects.keys, 3)
}

func TestGenerateNoCandidatesFails(t *testing.T) {
	db := newFakeEpisodeStore()

	b, _ := newBuilderForTest(db, &fakeDrafter{})

	err := b.Generate(context.Background(), Request{EpisodeID: "ep1", Subcategories: []string{"Tennis"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNoNewArticles)

	assert.Equal(t, domain.StatusFailed, db.episodes["ep1"].Status)
	assert.Equal(t, "no new articles available", db.failMessage)
}

func TestGenerateScriptFailureMarksEpisodeFailed(t *testing.T) {
	db := newFakeEpisodeStore()
	db.candidates = []storage.EpisodeCandidate{candidateRow("c1", "Tennis", "Sports", 70)}

	b, _ := newBuilderForTest(db, &fakeDrafter{err: errors.New("llm exploded")})

	err := b.Generate(context.Background(), Request{EpisodeID: "ep1", Subcategories: []string{"Tennis"}})
	require.Error(t, err)

	assert.Equal(t, domain.StatusFailed, db.episodes["ep1"].Status)
	assert.Contains(t, db.failMessage, "llm exploded")
}

func TestGenerateIsIdempotentOnEpisodeID(t *testing.T) {
	db := newFakeEpisodeStore()
	db.episodes["ep1"] = &domain.Episode{ID: "ep1", Status: domain.StatusCompleted}

	b, _ := newBuilderForTest(db, &fakeDrafter{})

	err := b.Generate(context.Background(), Request{EpisodeID: "ep1"})
	assert.ErrorIs(t, err, apperrors.ErrEpisodeInFlight)

	// The stored row is untouched.
	assert.Equal(t, domain.StatusCompleted, db.episodes["ep1"].Status)
	assert.Empty(t, db.transitions)
}

func TestGenerateRejectsEmptyID(t *testing.T) {
	db := newFakeEpisodeStore()
	b, _ := newBuilderForTest(db, &fakeDrafter{})

	err := b.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestGenerateConcurrentDuplicateRejected(t *testing.T) {
	db := newFakeEpisodeStore()
	b, _ := newBuilderForTest(db, &fakeDrafter{})

	require.True(t, b.acquire("ep1"))
	defer b.release("ep1")

	err := b.Generate(context.Background(), Request{EpisodeID: "ep1"})
	assert.ErrorIs(t, err, apperrors.ErrEpisodeInFlight)
}
