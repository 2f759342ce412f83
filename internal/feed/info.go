package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Info summarizes a feed for diagnostics.
type Info struct {
	Title       string
	Description string
	Link        string
	EntryCount  int
	ParseOK     bool
	ParseError  string
}

// TestConnection reports whether the feed is reachable and yields at least
// one entry.
func (f *Fetcher) TestConnection(ctx context.Context, feedURL string) bool {
	if err := f.limiter.Wait(ctx); err != nil {
		return false
	}

	if isRedditListing(feedURL) {
		info, err := f.redditInfo(ctx, feedURL)
		return err == nil && info.EntryCount > 0
	}

	feed, err := f.parseFeed(ctx, feedURL)

	return err == nil && feed != nil && len(feed.Items) > 0
}

// FeedInfo retrieves feed-level metadata for diagnostics.
func (f *Fetcher) FeedInfo(ctx context.Context, feedURL string) (Info, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return Info{}, fmt.Errorf("rate limit wait: %w", err)
	}

	if isRedditListing(feedURL) {
		return f.redditInfo(ctx, feedURL)
	}

	feed, err := f.parseFeed(ctx, feedURL)
	if err != nil {
		return Info{}, err
	}

	if feed == nil {
		return Info{Title: "Unknown Feed", ParseOK: false, ParseError: "malformed feed document"}, nil
	}

	return Info{
		Title:       feed.Title,
		Description: feed.Description,
		Link:        feed.Link,
		EntryCount:  len(feed.Items),
		ParseOK:     true,
	}, nil
}

// redditInfo builds diagnostics for the JSON listing path.
func (f *Fetcher) redditInfo(ctx context.Context, listingURL string) (Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listingURL, nil)
	if err != nil {
		return Info{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return Info{}, fmt.Errorf("fetch listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Info{}, fmt.Errorf("%w: %d", errHTTPStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Info{}, fmt.Errorf("read body: %w", err)
	}

	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return Info{Title: "Unknown Listing", ParseOK: false, ParseError: err.Error()}, nil
	}

	posts := 0

	for _, child := range listing.Data.Children {
		if child.Kind == redditPostKind {
			posts++
		}
	}

	return Info{
		Title:      listingURL,
		EntryCount: posts,
		ParseOK:    true,
	}, nil
}
