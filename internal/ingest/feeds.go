package ingest

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"github.com/podsmith/podsmith/internal/core/taxonomy"
	"github.com/podsmith/podsmith/internal/platform/observability"
	"github.com/podsmith/podsmith/internal/platform/worker"
)

// Poller polls the feed catalog and feeds new entries to the pipeline.
type Poller struct {
	parser   *gofeed.Parser
	pipeline *Pipeline
	feeds    []taxonomy.Feed
	interval time.Duration
	logger   *zerolog.Logger
}

// NewPoller creates a feed poller. When urls is non-empty it replaces
// the default catalog (entries carry no category hint in that case).
func NewPoller(pipeline *Pipeline, urls []string, interval time.Duration, logger *zerolog.Logger) *Poller {
	feeds := taxonomy.DefaultFeeds

	if len(urls) > 0 {
		feeds = make([]taxonomy.Feed, 0, len(urls))
		for _, u := range urls {
			u = strings.TrimSpace(u)
			if u != "" {
				feeds = append(feeds, taxonomy.Feed{URL: u})
			}
		}
	}

	return &Poller{
		parser:   gofeed.NewParser(),
		pipeline: pipeline,
		feeds:    feeds,
		interval: interval,
		logger:   logger,
	}
}

// Run polls all feeds on the configured interval until ctx is canceled.
func (p *Poller) Run(ctx context.Context) error {
	return worker.SingleTickerLoop(ctx, worker.SingleTickerConfig{
		Name:       "feed-poller",
		Interval:   p.interval,
		RunOnStart: true,
		OnTick:     p.pollAll,
		Logger:     p.logger,
	})
}

func (p *Poller) pollAll(ctx context.Context) {
	defer worker.RecoverPanic(p.logger, "feed poll")

	for _, feed := range p.feeds {
		if ctx.Err() != nil {
			return
		}

		p.pollFeed(ctx, feed)
	}
}

func (p *Poller) pollFeed(ctx context.Context, feed taxonomy.Feed) {
	parsed, err := p.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		observability.FeedPollErrors.WithLabelValues(feedHost(feed.URL)).Inc()
		p.logger.Warn().Err(err).Str("feed", feed.URL).Msg("feed poll failed")

		return
	}

	for _, item := range parsed.Items {
		if item.Link == "" {
			continue
		}

		if err := p.pipeline.ProcessItem(ctx, feedItemFrom(parsed, item, feed.Category)); err != nil {
			p.logger.Warn().Err(err).Str("url", item.Link).Msg("article processing failed")
		}
	}
}

func feedItemFrom(feed *gofeed.Feed, item *gofeed.Item, categoryHint string) FeedItem {
	return FeedItem{
		URL:          item.Link,
		Title:        strings.TrimSpace(item.Title),
		Summary:      strings.TrimSpace(stripTags(item.Description)),
		SourceName:   feed.Title,
		Language:     feed.Language,
		CategoryHint: categoryHint,
		PublishedAt:  itemPublishedAt(item),
	}
}

func itemPublishedAt(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}

	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}

	if item.Published != "" {
		if t, err := dateparse.ParseAny(item.Published); err == nil {
			return t
		}
	}

	return time.Now()
}

// stripTags removes markup from feed descriptions, which frequently
// embed HTML.
func stripTags(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return s
	}

	var sb strings.Builder

	inTag := false

	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			sb.WriteRune(' ')
		case !inTag:
			sb.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(sb.String()), " ")
}

func feedHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}

	return u.Hostname()
}
