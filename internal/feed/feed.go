// Package feed fetches RSS/Atom feeds and reddit JSON listings and normalizes
// their entries into Articles ready for classification.
//
// Fetching is rate limited per Fetcher instance, entries are deduplicated
// inline against a known-URL set, and every per-entry failure is logged and
// skipped so one bad entry never aborts a batch.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/technews/aggregator/internal/htmlutils"
)

const (
	maxDescriptionLen = 500
	maxBodySize       = 10 * 1024 * 1024
)

var errHTTPStatus = errors.New("unexpected HTTP status")

// Article is a normalized feed entry before classification.
type Article struct {
	Title         string
	URL           string
	Description   string
	ImageURL      string
	PublishedDate *time.Time
	SourceName    string
}

// FetchRequest describes one feed fetch.
type FetchRequest struct {
	URL             string
	MaxArticles     int
	SourceName      string
	DefaultImageURL string
	KnownURLs       map[string]struct{}
}

// Fetcher retrieves and normalizes feeds. A single instance enforces a
// minimum delay between its fetches regardless of caller behavior.
type Fetcher struct {
	client     *http.Client
	pageClient *http.Client
	parser     *gofeed.Parser
	limiter    *rate.Limiter
	userAgent  string
	logger     *zerolog.Logger
}

// Options configures a Fetcher.
type Options struct {
	Delay       time.Duration
	Timeout     time.Duration
	PageTimeout time.Duration
	UserAgent   string
}

// NewFetcher creates a Fetcher with the given options. Zero values fall back
// to conservative defaults.
func NewFetcher(opts Options, logger *zerolog.Logger) *Fetcher {
	if opts.Delay <= 0 {
		opts.Delay = 500 * time.Millisecond
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 10 * time.Second
	}

	if opts.UserAgent == "" {
		opts.UserAgent = "TechNewsAggregator/1.0 (RSS Fetcher)"
	}

	return &Fetcher{
		client:     &http.Client{Timeout: opts.Timeout},
		pageClient: &http.Client{Timeout: opts.PageTimeout},
		parser:     gofeed.NewParser(),
		limiter:    rate.NewLimiter(rate.Every(opts.Delay), 1),
		userAgent:  opts.UserAgent,
		logger:     logger,
	}
}

// Fetch retrieves one feed and returns its normalized, deduplicated entries in
// feed-native order, capped at req.MaxArticles entries examined.
//
// Transport failures return an error; a malformed feed document is logged as a
// warning and yields an empty slice.
func (f *Fetcher) Fetch(ctx context.Context, req FetchRequest) ([]Article, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	f.logger.Info().Str("url", req.URL).Str("source", req.SourceName).Msg("fetching feed")

	if isRedditListing(req.URL) {
		return f.fetchRedditListing(ctx, req)
	}

	feed, err := f.parseFeed(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	if feed == nil || len(feed.Items) == 0 {
		f.logger.Warn().Str("url", req.URL).Msg("no entries found in feed")
		return nil, nil
	}

	items := feed.Items
	if req.MaxArticles > 0 && len(items) > req.MaxArticles {
		items = items[:req.MaxArticles]
	}

	articles := make([]Article, 0, len(items))

	for _, item := range items {
		article, ok := f.normalizeItem(ctx, item, feed, req)
		if !ok {
			continue
		}

		articles = append(articles, article)
	}

	f.logger.Info().Str("url", req.URL).Int("count", len(articles)).Msg("processed feed entries")

	return articles, nil
}

// parseFeed fetches the feed document and parses it. Parse failures are
// treated as a warning, not an error: callers get a nil feed.
func (f *Fetcher) parseFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", errHTTPStatus, resp.StatusCode)
	}

	feed, err := f.parser.Parse(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		f.logger.Warn().Err(err).Str("url", feedURL).Msg("feed parsing failed")
		return nil, nil
	}

	return feed, nil
}

// normalizeItem converts one feed entry into an Article. Entries without a
// title or link, entries whose normalized URL is already known, and entries
// that fail normalization are skipped.
func (f *Fetcher) normalizeItem(ctx context.Context, item *gofeed.Item, feed *gofeed.Feed, req FetchRequest) (Article, bool) {
	title := htmlutils.StripTags(item.Title)
	if title == "" || item.Link == "" {
		return Article{}, false
	}

	normalizedURL := NormalizeURL(item.Link)
	if normalizedURL == "" {
		return Article{}, false
	}

	if _, exists := req.KnownURLs[normalizedURL]; exists {
		f.logger.Debug().Str("url", normalizedURL).Msg("skipping known URL")
		return Article{}, false
	}

	description := f.extractDescription(ctx, item, normalizedURL, req.SourceName)

	imageURL := extractImage(item, feed)
	if imageURL == "" {
		imageURL = req.DefaultImageURL
	}

	return Article{
		Title:         title,
		URL:           normalizedURL,
		Description:   description,
		ImageURL:      imageURL,
		PublishedDate: f.extractPublished(item, title),
		SourceName:    req.SourceName,
	}, true
}

// extractPublished picks the entry's publish time, falling back to the update
// time, then to lenient parsing of the raw strings. Unparseable dates are
// logged and left absent.
func (f *Fetcher) extractPublished(item *gofeed.Item, title string) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}

	if item.UpdatedParsed != nil {
		return item.UpdatedParsed
	}

	for _, raw := range []string{item.Published, item.Updated} {
		if raw == "" {
			continue
		}

		ts, err := dateparse.ParseAny(raw)
		if err != nil {
			f.logger.Warn().Str("title", title).Str("date", raw).Msg("invalid publication date")
			continue
		}

		return &ts
	}

	return nil
}

// extractImage tries media extensions, enclosures, inline HTML images and the
// feed-level image, in that order.
func extractImage(item *gofeed.Item, feed *gofeed.Feed) string {
	if url := mediaExtensionImage(item); url != "" {
		return url
	}

	for _, enc := range item.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}

	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}

	for _, htmlContent := range []string{item.Content, item.Description} {
		if url := htmlutils.FirstImageSrc(htmlContent); url != "" {
			return url
		}
	}

	if feed != nil && feed.Image != nil && feed.Image.URL != "" {
		return feed.Image.URL
	}

	return ""
}

// mediaExtensionImage reads media:content / media:thumbnail extension fields.
func mediaExtensionImage(item *gofeed.Item) string {
	media, ok := item.Extensions["media"]
	if !ok {
		return ""
	}

	for _, key := range []string{"content", "thumbnail"} {
		for _, ext := range media[key] {
			url := ext.Attrs["url"]
			if url == "" {
				continue
			}

			// media:content may carry video; only accept declared images or
			// bare thumbnails.
			if mediaType, ok := ext.Attrs["type"]; ok && !strings.HasPrefix(mediaType, "image/") {
				continue
			}

			return url
		}
	}

	return ""
}
