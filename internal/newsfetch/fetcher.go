package newsfetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"newsreel/internal/artifacts"
	"newsreel/internal/config"
	"newsreel/internal/logging"
	"newsreel/internal/services"
	"newsreel/internal/stage"
	"newsreel/internal/textutil"
)

const (
	stageName        = "fetch-news"
	maxSummaryRunes  = 500
	defaultTitle     = "No Title"
	defaultHoursAgo  = 24
	timestampLayout  = time.RFC3339
	defaultUserAgent = "newsreel/1.0"
)

// Article is one feed entry inside the time window.
type Article struct {
	Source    string `json:"source"`
	Category  string `json:"category"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	Published string `json:"published"`
	Summary   string `json:"summary"`
}

// Result is the persisted articles.json document.
type Result struct {
	FetchTime     string    `json:"fetch_time"`
	TotalArticles int       `json:"total_articles"`
	Articles      []Article `json:"articles"`
}

// Context flattens the result into step output keys.
func (r Result) Context() stage.Context {
	articles := r.Articles
	if articles == nil {
		articles = []Article{}
	}
	return stage.Context{
		stage.KeyArticles:      articles,
		stage.KeyFetchTime:     r.FetchTime,
		stage.KeyTotalArticles: r.TotalArticles,
	}
}

// FeedParser fetches and parses one feed URL. *gofeed.Parser satisfies it.
type FeedParser interface {
	ParseURLWithContext(feedURL string, ctx context.Context) (*gofeed.Feed, error)
}

type input struct {
	HoursAgo int `json:"hours_ago"`
}

// Fetcher is the fetch-news step handler.
type Fetcher struct {
	sources  []config.FeedSource
	hoursAgo int
	timeout  time.Duration
	layout   artifacts.Layout
	parser   FeedParser
	logger   *slog.Logger
	now      func() time.Time
}

// NewFetcher constructs the step using a gofeed parser with the configured
// timeout and user agent.
func NewFetcher(cfg *config.Config, logger *slog.Logger) *Fetcher {
	parser := gofeed.NewParser()
	timeout := time.Duration(cfg.Feeds.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = strings.TrimSpace(cfg.Feeds.UserAgent)
	if parser.UserAgent == "" {
		parser.UserAgent = defaultUserAgent
	}
	return NewFetcherWithDependencies(cfg, logger, parser, time.Now)
}

// NewFetcherWithDependencies allows injecting the parser and clock (used in tests).
func NewFetcherWithDependencies(cfg *config.Config, logger *slog.Logger, parser FeedParser, now func() time.Time) *Fetcher {
	if now == nil {
		now = time.Now
	}
	f := &Fetcher{
		sources:  append([]config.FeedSource(nil), cfg.Feeds.Sources...),
		hoursAgo: cfg.Feeds.HoursAgo,
		timeout:  time.Duration(cfg.Feeds.TimeoutSeconds) * time.Second,
		layout:   artifacts.NewLayout(cfg.Paths.OutputDir, cfg.Paths.PresentationsDir),
		parser:   parser,
		now:      now,
	}
	f.SetLogger(logger)
	return f
}

// SetLogger swaps the step logger.
func (f *Fetcher) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.NewNop()
	}
	f.logger = logging.NewComponentLogger(logger, "newsfetch")
}

// Execute fetches every feed and writes articles.json.
func (f *Fetcher) Execute(ctx context.Context, in stage.Context) (stage.Context, error) {
	logger := logging.WithContext(ctx, f.logger)
	params, err := stage.Decode[input](in)
	if err != nil {
		return nil, services.Wrap(services.ErrParse, stageName, "decode input", "hours_ago must be an integer", err)
	}
	hours := params.HoursAgo
	if hours <= 0 {
		hours = f.hoursAgo
	}
	if hours <= 0 {
		hours = defaultHoursAgo
	}

	now := f.now()
	cutoff := now.Add(-time.Duration(hours) * time.Hour)
	result := Result{FetchTime: now.Format(timestampLayout), Articles: []Article{}}

	group := ""
	for _, source := range f.sources {
		if err := ctx.Err(); err != nil {
			return nil, services.Wrap(services.ErrTimeout, stageName, "fetch feeds", "canceled", err)
		}
		if source.Group != group {
			group = source.Group
			logger.Debug("feed group", logging.String("group", group))
		}
		articles, err := f.fetchFeed(ctx, source, cutoff)
		if err != nil {
			logging.WarnWithContext(logger, "feed skipped", "feed_fetch_failed",
				logging.String("feed", source.Name),
				logging.String("url", source.URL),
				logging.Error(err),
				logging.String(logging.FieldImpact, "articles from this feed are missing from the report"),
			)
			continue
		}
		logger.Info("feed fetched",
			logging.String("feed", source.Name),
			logging.Int("recent_articles", len(articles)),
		)
		result.Articles = append(result.Articles, articles...)
	}
	result.TotalArticles = len(result.Articles)

	if err := artifacts.SaveJSON(f.layout.ArticlesPath(), result); err != nil {
		return nil, services.Wrap(services.ErrExternalService, stageName, "save articles", f.layout.ArticlesPath(), err)
	}
	logger.Info("research completed",
		logging.String(logging.FieldEventType, "articles_saved"),
		logging.Int("articles", result.TotalArticles),
		logging.Int("hours_ago", hours),
		logging.String("path", f.layout.ArticlesPath()),
	)
	return result.Context(), nil
}

func (f *Fetcher) fetchFeed(ctx context.Context, source config.FeedSource, cutoff time.Time) ([]Article, error) {
	if f.parser == nil {
		return nil, errors.New("feed parser unavailable")
	}
	feedCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		feedCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	feed, err := f.parser.ParseURLWithContext(source.URL, feedCtx)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", source.URL, err)
	}
	return FilterItems(feed.Items, source, cutoff), nil
}

// FilterItems converts feed items published at or after cutoff. Items
// without a published or updated time are dropped.
func FilterItems(items []*gofeed.Item, source config.FeedSource, cutoff time.Time) []Article {
	var out []Article
	for _, item := range items {
		if item == nil {
			continue
		}
		published := itemTime(item)
		if published == nil || published.Before(cutoff) {
			continue
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = defaultTitle
		}
		summary := item.Description
		if strings.TrimSpace(summary) == "" {
			summary = item.Content
		}
		out = append(out, Article{
			Source:    source.Name,
			Category:  source.Category,
			Title:     title,
			Link:      strings.TrimSpace(item.Link),
			Published: published.Format(timestampLayout),
			Summary:   textutil.Truncate(summary, maxSummaryRunes, ""),
		})
	}
	return out
}

func itemTime(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

// Hydrate reloads articles.json.
func (f *Fetcher) Hydrate(context.Context) (stage.Context, error) {
	var result Result
	if err := artifacts.LoadJSON(f.layout.ArticlesPath(), &result); err != nil {
		return nil, err
	}
	return result.Context(), nil
}

// LoadArticles reads an articles.json file supplied on the command line.
func LoadArticles(path string) (stage.Context, error) {
	var result Result
	if err := artifacts.LoadJSON(path, &result); err != nil {
		return nil, err
	}
	return result.Context(), nil
}

// HealthCheck reports whether any feed is configured.
func (f *Fetcher) HealthCheck(context.Context) stage.Health {
	if len(f.sources) == 0 {
		return stage.Unhealthy(stageName, "no feeds configured")
	}
	if f.parser == nil {
		return stage.Unhealthy(stageName, "feed parser unavailable")
	}
	return stage.Healthy(stageName)
}
