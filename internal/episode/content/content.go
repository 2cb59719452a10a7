// Package content resolves the full article body for each selected
// cluster: fetch and extract the anchor article, fall back to cluster
// backups, and keep the feed summary when everything fails.
package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/podsmith/podsmith/internal/core/domain"
	apperrors "github.com/podsmith/podsmith/internal/core/errors"
	"github.com/podsmith/podsmith/internal/core/links"
	"github.com/podsmith/podsmith/internal/episode/selector"
	"github.com/podsmith/podsmith/internal/platform/observability"
)

// Fetcher downloads a page body.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// BackupSource lists substitute articles within a cluster.
type BackupSource interface {
	ClusterBackups(ctx context.Context, clusterID, excludeArticleID string, limit int) ([]domain.Article, error)
}

// ContentCache persists an extracted body so later episodes skip the
// fetch.
type ContentCache interface {
	SetArticleContent(ctx context.Context, articleID, content string) error
}

// SourcedArticle is a selected candidate with its resolved body.
type SourcedArticle struct {
	selector.Candidate

	Body       string
	FromBackup bool
	// SummaryOnly marks a body that is just the feed summary because
	// no article in the cluster could be extracted.
	SummaryOnly bool
}

// Config tunes the resolver.
type Config struct {
	MinLength   int
	MaxLength   int
	BackupLimit int
	Parallelism int
}

const (
	defaultMinLength   = 100
	defaultMaxLength   = 5000
	defaultBackupLimit = 3
	defaultParallelism = 4
	fetchRetries       = 1
)

// Resolver fills in article bodies for an episode.
type Resolver struct {
	fetcher Fetcher
	backups BackupSource
	cache   ContentCache
	cfg     Config
	logger  *zerolog.Logger
}

// NewResolver creates a content resolver. cache may be nil.
func NewResolver(fetcher Fetcher, backups BackupSource, cache ContentCache, cfg Config, logger *zerolog.Logger) *Resolver {
	if cfg.MinLength == 0 {
		cfg.MinLength = defaultMinLength
	}

	if cfg.MaxLength == 0 {
		cfg.MaxLength = defaultMaxLength
	}

	if cfg.BackupLimit == 0 {
		cfg.BackupLimit = defaultBackupLimit
	}

	if cfg.Parallelism == 0 {
		cfg.Parallelism = defaultParallelism
	}

	return &Resolver{
		fetcher: fetcher,
		backups: backups,
		cache:   cache,
		cfg:     cfg,
		logger:  logger,
	}
}

// Resolve returns one sourced article per candidate, in the input
// order. It never drops a candidate: when neither the anchor nor any
// backup yields a usable body, the feed summary is used.
func (r *Resolver) Resolve(ctx context.Context, candidates []selector.Candidate) ([]SourcedArticle, error) {
	results := make([]SourcedArticle, len(candidates))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(r.cfg.Parallelism)

	for i, candidate := range candidates {
		group.Go(func() error {
			results[i] = r.resolveOne(gctx, candidate)

			return gctx.Err()
		})
	}

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("resolve content: %w", err)
	}

	return results, nil
}

func (r *Resolver) resolveOne(ctx context.Context, candidate selector.Candidate) SourcedArticle {
	result := SourcedArticle{Candidate: candidate}

	body, err := r.extract(ctx, candidate.URL)
	if err == nil {
		result.Body = body
		r.cacheBody(ctx, candidate.ArticleID, body)

		return result
	}

	observability.ContentExtractionFailures.Inc()
	r.logger.Warn().Err(err).Str("url", candidate.URL).Str("cluster_id", candidate.ClusterID).
		Msg("anchor extraction failed, trying cluster backups")

	if body, backup, ok := r.tryBackups(ctx, candidate); ok {
		result.Body = body
		result.FromBackup = true
		r.cacheBody(ctx, backup.ID, body)

		return result
	}

	result.Body = candidate.Summary
	result.SummaryOnly = true

	return result
}

// tryBackups walks the cluster's substitute articles in importance
// order and returns the first extractable body.
func (r *Resolver) tryBackups(ctx context.Context, candidate selector.Candidate) (string, domain.Article, bool) {
	backups, err := r.backups.ClusterBackups(ctx, candidate.ClusterID, candidate.ArticleID, r.cfg.BackupLimit)
	if err != nil {
		r.logger.Warn().Err(err).Str("cluster_id", candidate.ClusterID).Msg("backup lookup failed")

		return "", domain.Article{}, false
	}

	for _, backup := range backups {
		// A previously cached body skips the fetch entirely.
		if len(backup.Content) >= r.cfg.MinLength {
			return truncateBody(backup.Content, r.cfg.MaxLength), backup, true
		}

		body, err := r.extract(ctx, backup.URL)
		if err != nil {
			observability.ContentExtractionFailures.Inc()

			continue
		}

		return body, backup, true
	}

	return "", domain.Article{}, false
}

// extract fetches a URL and returns its readable body. Transient fetch
// errors are retried once; extraction and short-body failures are not.
func (r *Resolver) extract(ctx context.Context, rawURL string) (string, error) {
	var htmlBytes []byte

	fetch := func() error {
		var err error

		htmlBytes, err = r.fetcher.Fetch(ctx, rawURL)
		if err != nil {
			if apperrors.Is(err, links.ErrUnsupportedScheme) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}

			return err
		}

		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), fetchRetries), ctx)
	if err := backoff.Retry(fetch, policy); err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	extracted, err := links.ExtractWebContent(htmlBytes, rawURL, r.cfg.MaxLength)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", rawURL, err)
	}

	body := strings.TrimSpace(extracted.Content)
	if len(body) < r.cfg.MinLength {
		return "", fmt.Errorf("%s: %w", rawURL, apperrors.ErrContentTooShort)
	}

	return body, nil
}

func (r *Resolver) cacheBody(ctx context.Context, articleID, body string) {
	if r.cache == nil {
		return
	}

	if err := r.cache.SetArticleContent(ctx, articleID, body); err != nil {
		r.logger.Warn().Err(err).Str("article_id", articleID).Msg("content cache write failed")
	}
}

func truncateBody(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	return string(runes[:max])
}
