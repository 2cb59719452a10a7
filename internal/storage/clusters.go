package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/podsmith/podsmith/internal/core/domain"
	apperrors "github.com/podsmith/podsmith/internal/core/errors"
)

// CreateCluster persists a new story cluster.
func (db *DB) CreateCluster(ctx context.Context, cluster *domain.StoryCluster) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO story_clusters (id, title, category, subcategory, tags, importance_score, article_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())`,
		toUUID(cluster.ID),
		SanitizeUTF8(cluster.Title),
		cluster.Category,
		toText(cluster.Subcategory),
		cluster.Tags,
		cluster.Importance,
		cluster.ArticleCount,
	)
	if err != nil {
		return fmt.Errorf("create cluster: %w", err)
	}

	return nil
}

// JoinCluster increments a cluster's article count and raises its
// importance to the new article's importance when higher.
func (db *DB) JoinCluster(ctx context.Context, clusterID string, importance float64) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE story_clusters
		SET article_count = article_count + 1,
		    importance_score = GREATEST(importance_score, $2),
		    updated_at = now()
		WHERE id = $1`,
		toUUID(clusterID), importance,
	)
	if err != nil {
		return fmt.Errorf("join cluster: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cluster %s: %w", clusterID, apperrors.ErrClusterNotFound)
	}

	return nil
}

// GetCluster loads one story cluster.
func (db *DB) GetCluster(ctx context.Context, id string) (*domain.StoryCluster, error) {
	var (
		c                  domain.StoryCluster
		clusterID          pgtype.UUID
		subcategory        pgtype.Text
		createdAt, updated pgtype.Timestamptz
	)

	err := db.Pool.QueryRow(ctx, `
		SELECT id, title, category, subcategory, tags, importance_score, article_count, created_at, updated_at
		FROM story_clusters WHERE id = $1`,
		toUUID(id),
	).Scan(&clusterID, &c.Title, &c.Category, &subcategory, &c.Tags, &c.Importance, &c.ArticleCount, &createdAt, &updated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("cluster %s: %w", id, apperrors.ErrClusterNotFound)
		}

		return nil, fmt.Errorf("get cluster: %w", err)
	}

	c.ID = fromUUID(clusterID)
	c.Subcategory = fromText(subcategory)
	c.CreatedAt = fromTimestamptz(createdAt)
	c.UpdatedAt = fromTimestamptz(updated)

	return &c, nil
}

// EpisodeCandidate is the representative article of one cluster,
// eligible for episode selection.
type EpisodeCandidate struct {
	ArticleID    string
	ClusterID    string
	URL          string
	Title        string
	Summary      string
	Category     string
	Subcategory  string
	Tags         []string
	Importance   float64
	ArticleCount int
	PublishedAt  time.Time
}

// EpisodeCandidates returns one representative article per cluster
// (highest importance, latest published) from the freshness window,
// filtered by minimum cluster importance and excluding already heard
// clusters. The cutoff is inclusive: an article published exactly at
// the window boundary is still eligible.
func (db *DB) EpisodeCandidates(ctx context.Context, cutoff time.Time, minImportance float64, heardClusterIDs []string) ([]EpisodeCandidate, error) {
	heard := make([]pgtype.UUID, 0, len(heardClusterIDs))
	for _, id := range heardClusterIDs {
		heard = append(heard, toUUID(id))
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT DISTINCT ON (a.cluster_id)
		       a.id, a.cluster_id, a.url, a.title, a.summary,
		       a.category, a.subcategory, a.tags,
		       c.importance_score, c.article_count, a.published_at
		FROM articles a
		JOIN story_clusters c ON c.id = a.cluster_id
		WHERE a.published_at >= $1
		  AND c.importance_score >= $2
		  AND NOT (a.cluster_id = ANY($3::uuid[]))
		ORDER BY a.cluster_id, a.importance_score DESC, a.published_at DESC`,
		toTimestamptz(cutoff), minImportance, heard,
	)
	if err != nil {
		return nil, fmt.Errorf("query episode candidates: %w", err)
	}
	defer rows.Close()

	var candidates []EpisodeCandidate

	for rows.Next() {
		var (
			cand                 EpisodeCandidate
			id, clusterID        pgtype.UUID
			summary              pgtype.Text
			category, subcat     pgtype.Text
			publishedAt          pgtype.Timestamptz
		)

		if err := rows.Scan(&id, &clusterID, &cand.URL, &cand.Title, &summary,
			&category, &subcat, &cand.Tags,
			&cand.Importance, &cand.ArticleCount, &publishedAt); err != nil {
			return nil, fmt.Errorf("scan episode candidate: %w", err)
		}

		cand.ArticleID = fromUUID(id)
		cand.ClusterID = fromUUID(clusterID)
		cand.Summary = fromText(summary)
		cand.Category = fromText(category)
		cand.Subcategory = fromText(subcat)
		cand.PublishedAt = fromTimestamptz(publishedAt)

		candidates = append(candidates, cand)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate episode candidates: %w", err)
	}

	return candidates, nil
}

// ClusterBackups returns up to limit additional articles from a cluster,
// excluding the representative, ordered importance desc then most recent.
func (db *DB) ClusterBackups(ctx context.Context, clusterID, excludeArticleID string, limit int) ([]domain.Article, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, url, title, summary, content, source_name, importance_score, published_at
		FROM articles
		WHERE cluster_id = $1 AND id <> $2
		ORDER BY importance_score DESC, published_at DESC
		LIMIT $3`,
		toUUID(clusterID), toUUID(excludeArticleID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query cluster backups: %w", err)
	}
	defer rows.Close()

	var backups []domain.Article

	for rows.Next() {
		var (
			a                domain.Article
			id               pgtype.UUID
			summary, content pgtype.Text
			source           pgtype.Text
			publishedAt      pgtype.Timestamptz
		)

		if err := rows.Scan(&id, &a.URL, &a.Title, &summary, &content, &source, &a.Importance, &publishedAt); err != nil {
			return nil, fmt.Errorf("scan cluster backup: %w", err)
		}

		a.ID = fromUUID(id)
		a.ClusterID = clusterID
		a.Summary = fromText(summary)
		a.Content = fromText(content)
		a.SourceName = fromText(source)
		a.PublishedAt = fromTimestamptz(publishedAt)

		backups = append(backups, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cluster backups: %w", err)
	}

	return backups, nil
}
