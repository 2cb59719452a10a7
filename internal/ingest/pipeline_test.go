package ingest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podsmith/podsmith/internal/core/domain"
	"github.com/podsmith/podsmith/internal/core/embeddings"
	apperrors "github.com/podsmith/podsmith/internal/core/errors"
	"github.com/podsmith/podsmith/internal/core/llm"
)

type fakeStore struct {
	hashes    map[string]bool
	neighbors []domain.SimilarArticle
	clusters  map[string]*domain.StoryCluster
	articles  []*domain.Article

	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		hashes:   make(map[string]bool),
		clusters: make(map[string]*domain.StoryCluster),
	}
}

func (s *fakeStore) HashExists(_ context.Context, hash string) (bool, error) {
	return s.hashes[hash], nil
}

func (s *fakeStore) InsertArticle(_ context.Context, article *domain.Article) error {
	if s.insertErr != nil {
		return s.insertErr
	}

	s.hashes[article.UniquenessHash] = true
	s.articles = append(s.articles, article)

	return nil
}

func (s *fakeStore) SimilarArticles(context.Context, []float32, time.Time, float64, int) ([]domain.SimilarArticle, error) {
	return s.neighbors, nil
}

func (s *fakeStore) CreateCluster(_ context.Context, cluster *domain.StoryCluster) error {
	s.clusters[cluster.ID] = cluster

	return nil
}

func (s *fakeStore) JoinCluster(_ context.Context, clusterID string, importance float64) error {
	cluster, ok := s.clusters[clusterID]
	if !ok {
		return fmt.Errorf("cluster %s: %w", clusterID, apperrors.ErrClusterNotFound)
	}

	cluster.ArticleCount++
	if importance > cluster.Importance {
		cluster.Importance = importance
	}

	return nil
}

// recordingEmbedder captures the exact text handed to the provider.
type recordingEmbedder struct {
	embeddings.Client

	texts []string
}

func (r *recordingEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	r.texts = append(r.texts, text)

	return r.Client.GetEmbedding(ctx, text)
}

func newTestPipeline(store *fakeStore, chat *llm.Mock) *Pipeline {
	logger := zerolog.Nop()

	cfg := PipelineConfig{
		SimilarityThreshold: 0.85,
		NeighborLimit:       10,
		JudgeNeighborLimit:  5,
		FreshnessWindow:     120 * time.Hour,
	}

	return NewPipeline(store, embeddings.NewMock(8), chat, cfg, &logger)
}

func testItem() FeedItem {
	return FeedItem{
		URL:         "https://news.example.com/story",
		Title:       "Quake hits coast",
		Summary:     "A magnitude 6.1 earthquake struck the coast.",
		SourceName:  "Example News",
		PublishedAt: time.Now(),
	}
}

func TestProcessItemCreatesCluster(t *testing.T) {
	store := newFakeStore()
	chat := llm.NewMock().Respond(llm.TaskClusteringJudge,
		`{"action": "create_new", "subcategory": "Asia", "tags": ["earthquake"],
		  "factor_scores": {"surprise": 70, "prominence": 60, "magnitude": 50, "emotion": 40},
		  "importance": 55.0}`)

	pipeline := newTestPipeline(store, chat)

	require.NoError(t, pipeline.ProcessItem(context.Background(), testItem()))

	require.Len(t, store.articles, 1)
	require.Len(t, store.clusters, 1)

	article := store.articles[0]
	assert.Equal(t, "World News", article.Category)
	assert.Equal(t, "Asia", article.Subcategory)
	assert.InDelta(t, 55.0, article.Importance, 1e-9)
	assert.NotEmpty(t, article.ClusterID)
	assert.Equal(t, UniquenessHash("https://news.example.com/story"), article.UniquenessHash)

	// The founding article's title becomes the cluster title.
	cluster := store.clusters[article.ClusterID]
	require.NotNil(t, cluster)
	assert.Equal(t, "Quake hits coast", cluster.Title)
}

func TestProcessItemTruncatesEmbeddingText(t *testing.T) {
	store := newFakeStore()
	chat := llm.NewMock().Respond(llm.TaskClusteringJudge,
		`{"action": "create_new", "subcategory": "Asia", "tags": [], "importance": 50}`)

	emb := &recordingEmbedder{Client: embeddings.NewMock(8)}
	logger := zerolog.Nop()

	pipeline := NewPipeline(store, emb, chat, PipelineConfig{
		SimilarityThreshold: 0.85,
		NeighborLimit:       10,
		JudgeNeighborLimit:  5,
		FreshnessWindow:     120 * time.Hour,
	}, &logger)

	item := testItem()
	item.Summary = strings.Repeat("a", 20000)

	require.NoError(t, pipeline.ProcessItem(context.Background(), item))

	require.Len(t, emb.texts, 1)
	assert.Len(t, []rune(emb.texts[0]), embeddingTextLimit)
	assert.True(t, strings.HasPrefix(emb.texts[0], "Quake hits coast "))
}

func TestProcessItemDropsDuplicate(t *testing.T) {
	store := newFakeStore()
	store.hashes[UniquenessHash("https://news.example.com/story")] = true

	chat := llm.NewMock()
	pipeline := newTestPipeline(store, chat)

	require.NoError(t, pipeline.ProcessItem(context.Background(), testItem()))

	assert.Empty(t, store.articles)
	// The judge is never consulted for duplicates.
	assert.Empty(t, chat.Calls)
}

func TestProcessItemJoinsNamedCluster(t *testing.T) {
	store := newFakeStore()
	store.clusters["c1"] = &domain.StoryCluster{ID: "c1", Importance: 40, ArticleCount: 2}
	store.neighbors = []domain.SimilarArticle{
		{Article: domain.Article{ClusterID: "c1", Title: "Coastal quake"}, Similarity: 0.95},
	}

	chat := llm.NewMock().Respond(llm.TaskClusteringJudge,
		`{"action": "join_existing", "cluster_id": "c1", "subcategory": "Asia",
		  "tags": ["earthquake"], "factor_scores": {"surprise": 70, "prominence": 60, "magnitude": 50, "emotion": 40},
		  "importance": 60}`)

	pipeline := newTestPipeline(store, chat)

	require.NoError(t, pipeline.ProcessItem(context.Background(), testItem()))

	require.Len(t, store.articles, 1)
	assert.Equal(t, "c1", store.articles[0].ClusterID)
	assert.Equal(t, 3, store.clusters["c1"].ArticleCount)
	// Cluster importance is raised to the new article's.
	assert.InDelta(t, 60.0, store.clusters["c1"].Importance, 1e-9)
}

func TestProcessItemJoinWithoutClusterIDUsesNearestNeighbor(t *testing.T) {
	store := newFakeStore()
	store.clusters["c2"] = &domain.StoryCluster{ID: "c2", Importance: 80, ArticleCount: 1}
	store.neighbors = []domain.SimilarArticle{
		{Article: domain.Article{ClusterID: "c2"}, Similarity: 0.91},
		{Article: domain.Article{ClusterID: "c3"}, Similarity: 0.87},
	}

	chat := llm.NewMock().Respond(llm.TaskClusteringJudge,
		`{"action": "join_existing", "cluster_id": null, "subcategory": "Asia",
		  "tags": [], "factor_scores": {"surprise": 50, "prominence": 50, "magnitude": 50, "emotion": 50},
		  "importance": 50}`)

	pipeline := newTestPipeline(store, chat)

	require.NoError(t, pipeline.ProcessItem(context.Background(), testItem()))

	require.Len(t, store.articles, 1)
	assert.Equal(t, "c2", store.articles[0].ClusterID)
}

func TestProcessItemUnparsableJudgeFallsBack(t *testing.T) {
	store := newFakeStore()
	chat := llm.NewMock().Respond(llm.TaskClusteringJudge, "cannot comply")

	pipeline := newTestPipeline(store, chat)

	require.NoError(t, pipeline.ProcessItem(context.Background(), testItem()))

	require.Len(t, store.articles, 1)
	article := store.articles[0]
	assert.InDelta(t, 50.0, article.Importance, 1e-9)
	// Unknown subcategory maps to the General category.
	assert.Equal(t, "General", article.Category)
	assert.Empty(t, article.Subcategory)
	require.Len(t, store.clusters, 1)
}

func TestProcessItemInsertRaceTreatedAsDuplicate(t *testing.T) {
	store := newFakeStore()
	store.insertErr = fmt.Errorf("insert article: %w", apperrors.ErrDuplicateArticle)

	chat := llm.NewMock().Respond(llm.TaskClusteringJudge,
		`{"action": "create_new", "subcategory": "Asia", "tags": [],
		  "factor_scores": {"surprise": 50, "prominence": 50, "magnitude": 50, "emotion": 50}, "importance": 50}`)

	pipeline := newTestPipeline(store, chat)

	assert.NoError(t, pipeline.ProcessItem(context.Background(), testItem()))
}

func TestUniquenessHash(t *testing.T) {
	// md5 of the exact URL string, hex encoded.
	assert.Equal(t, "8c4a75b67ff04f1a24c08f622ad65fdf", UniquenessHash("https://example.com/a"))
	assert.NotEqual(t, UniquenessHash("https://example.com/a"), UniquenessHash("https://example.com/b"))
	assert.Len(t, UniquenessHash("x"), 32)
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "Hello world", stripTags("<p>Hello <b>world</b></p>"))
	assert.Equal(t, "plain text", stripTags("plain text"))
}
