package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/podsmith/podsmith/internal/core/domain"
	apperrors "github.com/podsmith/podsmith/internal/core/errors"
)

const pgUniqueViolation = "23505"

// HashExists reports whether an article with the given uniqueness hash
// is already stored.
func (db *DB) HashExists(ctx context.Context, hash string) (bool, error) {
	var exists bool

	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM articles WHERE uniqueness_hash = $1)`,
		hash,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check uniqueness hash: %w", err)
	}

	return exists, nil
}

// InsertArticle persists a judged article. A concurrent insert of the
// same uniqueness hash surfaces as ErrDuplicateArticle.
func (db *DB) InsertArticle(ctx context.Context, article *domain.Article) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO articles (
			id, cluster_id, url, uniqueness_hash, title, summary, content,
			source_name, category, subcategory, tags,
			surprise_score, prominence_score, magnitude_score, emotion_score,
			importance_score, language, embedding, published_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18::vector, $19, now())`,
		toUUID(article.ID),
		toUUID(article.ClusterID),
		article.URL,
		article.UniquenessHash,
		SanitizeUTF8(article.Title),
		toText(article.Summary),
		toText(article.Content),
		toText(article.SourceName),
		toText(article.Category),
		toText(article.Subcategory),
		article.Tags,
		article.FactorScores.Surprise,
		article.FactorScores.Prominence,
		article.FactorScores.Magnitude,
		article.FactorScores.Emotion,
		article.Importance,
		toText(article.Language),
		pgvector.NewVector(article.Embedding),
		toTimestamptz(article.PublishedAt),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("insert article %s: %w", article.URL, apperrors.ErrDuplicateArticle)
		}

		return fmt.Errorf("insert article: %w", err)
	}

	return nil
}

// SimilarArticles returns the most similar clustered articles published
// at or after the cutoff, ordered most similar first. Only articles
// with cosine similarity strictly greater than threshold are returned.
func (db *DB) SimilarArticles(ctx context.Context, embedding []float32, cutoff time.Time, threshold float64, limit int) ([]domain.SimilarArticle, error) {
	vec := pgvector.NewVector(embedding)

	rows, err := db.Pool.Query(ctx, `
		SELECT a.id, a.cluster_id, a.title, a.summary, a.subcategory, a.tags,
		       a.importance_score, a.published_at,
		       1 - (a.embedding <=> $1::vector) AS similarity
		FROM articles a
		WHERE a.cluster_id IS NOT NULL
		  AND a.published_at >= $2
		  AND (1 - (a.embedding <=> $1::vector)) > $3
		ORDER BY a.embedding <=> $1::vector
		LIMIT $4`,
		vec, toTimestamptz(cutoff), threshold, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query similar articles: %w", err)
	}
	defer rows.Close()

	var similar []domain.SimilarArticle

	for rows.Next() {
		var (
			s                    domain.SimilarArticle
			id, clusterID        pgtype.UUID
			summary, subcategory pgtype.Text
			publishedAt          pgtype.Timestamptz
		)

		if err := rows.Scan(&id, &clusterID, &s.Title, &summary, &subcategory, &s.Tags,
			&s.Importance, &publishedAt, &s.Similarity); err != nil {
			return nil, fmt.Errorf("scan similar article: %w", err)
		}

		s.ID = fromUUID(id)
		s.ClusterID = fromUUID(clusterID)
		s.Summary = fromText(summary)
		s.Subcategory = fromText(subcategory)
		s.PublishedAt = fromTimestamptz(publishedAt)

		similar = append(similar, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate similar articles: %w", err)
	}

	return similar, nil
}

// GetArticle loads a single article without its embedding.
func (db *DB) GetArticle(ctx context.Context, id string) (*domain.Article, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, cluster_id, url, uniqueness_hash, title, summary, content,
		       source_name, category, subcategory, tags,
		       surprise_score, prominence_score, magnitude_score, emotion_score,
		       importance_score, language, published_at, created_at
		FROM articles WHERE id = $1`,
		toUUID(id),
	)

	article, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("article %s: %w", id, apperrors.ErrArticleNotFound)
		}

		return nil, fmt.Errorf("get article: %w", err)
	}

	return article, nil
}

// SetArticleContent stores extracted body text for an article.
func (db *DB) SetArticleContent(ctx context.Context, id, content string) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE articles SET content = $2 WHERE id = $1`,
		toUUID(id), toText(content),
	)
	if err != nil {
		return fmt.Errorf("set article content: %w", err)
	}

	return nil
}

func scanArticle(row pgx.Row) (*domain.Article, error) {
	var (
		a                    domain.Article
		id, clusterID        pgtype.UUID
		summary, content     pgtype.Text
		source, category     pgtype.Text
		subcategory, lang    pgtype.Text
		publishedAt, created pgtype.Timestamptz
	)

	err := row.Scan(&id, &clusterID, &a.URL, &a.UniquenessHash, &a.Title, &summary, &content,
		&source, &category, &subcategory, &a.Tags,
		&a.FactorScores.Surprise, &a.FactorScores.Prominence, &a.FactorScores.Magnitude, &a.FactorScores.Emotion,
		&a.Importance, &lang, &publishedAt, &created)
	if err != nil {
		return nil, err
	}

	a.ID = fromUUID(id)
	a.ClusterID = fromUUID(clusterID)
	a.Summary = fromText(summary)
	a.Content = fromText(content)
	a.SourceName = fromText(source)
	a.Category = fromText(category)
	a.Subcategory = fromText(subcategory)
	a.Language = fromText(lang)
	a.PublishedAt = fromTimestamptz(publishedAt)
	a.CreatedAt = fromTimestamptz(created)

	return &a, nil
}
