// Package ingest polls the feed catalog and runs the clustering
// pipeline: dedup by URL hash, embed, neighbour search, judge, persist.
package ingest

import (
	"context"
	"crypto/md5" //nolint:gosec // content fingerprint, not cryptographic use
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/podsmith/podsmith/internal/core/domain"
	"github.com/podsmith/podsmith/internal/core/embeddings"
	apperrors "github.com/podsmith/podsmith/internal/core/errors"
	"github.com/podsmith/podsmith/internal/core/llm"
	"github.com/podsmith/podsmith/internal/core/taxonomy"
	"github.com/podsmith/podsmith/internal/platform/observability"
)

// FeedItem is one feed entry submitted to the pipeline.
type FeedItem struct {
	URL          string
	Title        string
	Summary      string
	SourceName   string
	Language     string
	CategoryHint string
	PublishedAt  time.Time
}

// Store is the persistence surface the pipeline needs.
type Store interface {
	HashExists(ctx context.Context, hash string) (bool, error)
	InsertArticle(ctx context.Context, article *domain.Article) error
	SimilarArticles(ctx context.Context, embedding []float32, cutoff time.Time, threshold float64, limit int) ([]domain.SimilarArticle, error)
	CreateCluster(ctx context.Context, cluster *domain.StoryCluster) error
	JoinCluster(ctx context.Context, clusterID string, importance float64) error
}

// PipelineConfig holds clustering tunables.
type PipelineConfig struct {
	SimilarityThreshold float64
	NeighborLimit       int
	JudgeNeighborLimit  int
	FreshnessWindow     time.Duration
}

// Pipeline clusters incoming articles.
type Pipeline struct {
	store      Store
	embeddings embeddings.Client
	llm        llm.Client
	cfg        PipelineConfig
	logger     *zerolog.Logger
}

// NewPipeline creates a clustering pipeline.
func NewPipeline(store Store, emb embeddings.Client, chat llm.Client, cfg PipelineConfig, logger *zerolog.Logger) *Pipeline {
	return &Pipeline{
		store:      store,
		embeddings: emb,
		llm:        chat,
		cfg:        cfg,
		logger:     logger,
	}
}

// embeddingTextLimit caps the text sent to the embedding provider.
// Oversized summaries would otherwise fail the embed call on every
// poll cycle, since the hash is only written after a successful insert.
const embeddingTextLimit = 8192

func embeddingText(item FeedItem) string {
	text := item.Title + " " + item.Summary

	runes := []rune(text)
	if len(runes) > embeddingTextLimit {
		return string(runes[:embeddingTextLimit])
	}

	return text
}

// UniquenessHash returns the dedup fingerprint for an article URL.
func UniquenessHash(url string) string {
	sum := md5.Sum([]byte(url)) //nolint:gosec // content fingerprint, not cryptographic use

	return hex.EncodeToString(sum[:])
}

// ProcessItem runs one feed entry through the clustering pipeline.
// Duplicates are dropped silently; any other failure leaves the hash
// unwritten so the next poll cycle retries the article.
func (p *Pipeline) ProcessItem(ctx context.Context, item FeedItem) error {
	hash := UniquenessHash(item.URL)

	exists, err := p.store.HashExists(ctx, hash)
	if err != nil {
		return fmt.Errorf("dedup check: %w", err)
	}

	if exists {
		observability.ArticlesIngested.WithLabelValues("duplicate").Inc()

		return nil
	}

	embedding, err := p.embeddings.GetEmbedding(ctx, embeddingText(item))
	if err != nil {
		observability.ArticlesIngested.WithLabelValues("embed_error").Inc()

		return fmt.Errorf("embed article: %w", err)
	}

	cutoff := time.Now().Add(-p.cfg.FreshnessWindow)

	neighbors, err := p.store.SimilarArticles(ctx, embedding, cutoff, p.cfg.SimilarityThreshold, p.cfg.NeighborLimit)
	if err != nil {
		return fmt.Errorf("neighbour search: %w", err)
	}

	decision := p.judge(ctx, item, neighbors)

	return p.persist(ctx, item, hash, embedding, neighbors, decision)
}

func (p *Pipeline) judge(ctx context.Context, item FeedItem, neighbors []domain.SimilarArticle) domain.ClusterDecision {
	prompt := BuildJudgePrompt(item, neighbors, p.cfg.JudgeNeighborLimit)

	raw, err := p.llm.CompleteJSON(ctx, llm.TaskClusteringJudge, prompt)
	if err != nil {
		p.logger.Warn().Err(err).Str("url", item.URL).Msg("judge call failed, using fallback decision")

		return FallbackDecision()
	}

	decision, err := ParseDecision(raw)
	if err != nil {
		p.logger.Warn().Err(err).Str("url", item.URL).Msg("judge response unparsable, using fallback decision")
	}

	return decision
}

//nolint:cyclop // the decision branches mirror the judge's action space
func (p *Pipeline) persist(ctx context.Context, item FeedItem, hash string, embedding []float32, neighbors []domain.SimilarArticle, decision domain.ClusterDecision) error {
	category, known := taxonomy.CategoryFor(decision.Subcategory)

	subcategory := ""

	switch {
	case known:
		subcategory = taxonomy.CanonicalSubcategory(decision.Subcategory)
	case decision.Subcategory == "" && item.CategoryHint != "":
		// The judge gave no subcategory (typically the fallback
		// decision); the feed's category hint is better than General.
		category = item.CategoryHint
	}

	clusterID := ""

	if decision.Action == domain.ActionJoinExisting {
		clusterID = p.resolveJoinTarget(ctx, decision, neighbors)
	}

	if clusterID == "" {
		clusterID = domain.NewID()
		cluster := &domain.StoryCluster{
			ID:           clusterID,
			Title:        item.Title,
			Category:     category,
			Subcategory:  subcategory,
			Tags:         decision.Tags,
			Importance:   decision.Importance,
			ArticleCount: 1,
		}

		if err := p.store.CreateCluster(ctx, cluster); err != nil {
			return fmt.Errorf("create cluster: %w", err)
		}

		observability.ClustersCreated.Inc()
	}

	article := &domain.Article{
		ID:             domain.NewID(),
		ClusterID:      clusterID,
		URL:            item.URL,
		UniquenessHash: hash,
		Title:          item.Title,
		Summary:        item.Summary,
		SourceName:     item.SourceName,
		Category:       category,
		Subcategory:    subcategory,
		Tags:           decision.Tags,
		FactorScores:   decision.FactorScores,
		Importance:     decision.Importance,
		Language:       item.Language,
		Embedding:      embedding,
		PublishedAt:    item.PublishedAt,
	}

	if err := p.store.InsertArticle(ctx, article); err != nil {
		// A concurrent worker ingested the same URL between the dedup
		// check and the insert. Not an error.
		if apperrors.Is(err, apperrors.ErrDuplicateArticle) {
			observability.ArticlesIngested.WithLabelValues("duplicate").Inc()

			return nil
		}

		return fmt.Errorf("persist article: %w", err)
	}

	observability.ArticlesIngested.WithLabelValues("stored").Inc()
	p.logger.Info().
		Str("url", item.URL).
		Str("cluster_id", clusterID).
		Str("action", decision.Action).
		Float64("importance", decision.Importance).
		Msg("article clustered")

	return nil
}

// resolveJoinTarget picks the cluster to join: the judge's cluster id
// when it names a real one, otherwise the nearest neighbour's cluster.
// Returns empty when nothing can be joined.
func (p *Pipeline) resolveJoinTarget(ctx context.Context, decision domain.ClusterDecision, neighbors []domain.SimilarArticle) string {
	clusterID := decision.ClusterID
	if clusterID != "" && !knownCluster(clusterID, neighbors) {
		p.logger.Warn().Str("cluster_id", clusterID).Msg("judge named an unknown cluster, falling back to nearest neighbour")

		clusterID = ""
	}

	if clusterID == "" && len(neighbors) > 0 {
		clusterID = neighbors[0].ClusterID
	}

	if clusterID == "" {
		return ""
	}

	if err := p.store.JoinCluster(ctx, clusterID, decision.Importance); err != nil {
		p.logger.Warn().Err(err).Str("cluster_id", clusterID).Msg("join failed, creating a new cluster instead")

		return ""
	}

	observability.ClusterJoins.Inc()

	return clusterID
}

func knownCluster(clusterID string, neighbors []domain.SimilarArticle) bool {
	for _, n := range neighbors {
		if n.ClusterID == clusterID {
			return true
		}
	}

	return false
}
