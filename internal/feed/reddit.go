package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/technews/aggregator/internal/htmlutils"
)

const redditPostKind = "t3"

type redditListing struct {
	Data struct {
		Children []struct {
			Kind string     `json:"kind"`
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Selftext   string  `json:"selftext"`
	Thumbnail  string  `json:"thumbnail"`
	CreatedUTC float64 `json:"created_utc"`
	Preview    struct {
		Images []struct {
			Source struct {
				URL string `json:"url"`
			} `json:"source"`
		} `json:"images"`
	} `json:"preview"`
}

// fetchRedditListing handles the subreddit JSON listing path. Only post
// entries (kind "t3") are considered.
func (f *Fetcher) fetchRedditListing(ctx context.Context, req FetchRequest) ([]Article, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", errHTTPStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		f.logger.Warn().Err(err).Str("url", req.URL).Msg("listing parsing failed")
		return nil, nil
	}

	children := listing.Data.Children
	if req.MaxArticles > 0 && len(children) > req.MaxArticles {
		children = children[:req.MaxArticles]
	}

	articles := make([]Article, 0, len(children))

	for _, child := range children {
		if child.Kind != redditPostKind {
			continue
		}

		article, ok := f.normalizePost(child.Data, req)
		if !ok {
			continue
		}

		articles = append(articles, article)
	}

	f.logger.Info().Str("url", req.URL).Int("count", len(articles)).Msg("processed listing posts")

	return articles, nil
}

func (f *Fetcher) normalizePost(post redditPost, req FetchRequest) (Article, bool) {
	title := htmlutils.StripTags(post.Title)
	if title == "" || post.URL == "" {
		return Article{}, false
	}

	normalizedURL := NormalizeURL(post.URL)
	if normalizedURL == "" {
		return Article{}, false
	}

	if _, exists := req.KnownURLs[normalizedURL]; exists {
		f.logger.Debug().Str("url", normalizedURL).Msg("skipping known URL")
		return Article{}, false
	}

	description := htmlutils.StripTags(post.Selftext)
	if description == "" {
		description = "Discussion from " + req.SourceName
	}

	description = htmlutils.Truncate(description, maxDescriptionLen)

	imageURL := postImage(post)
	if imageURL == "" {
		imageURL = req.DefaultImageURL
	}

	var published *time.Time

	if post.CreatedUTC > 0 {
		ts := time.Unix(int64(post.CreatedUTC), 0).UTC()
		published = &ts
	}

	return Article{
		Title:         title,
		URL:           normalizedURL,
		Description:   description,
		ImageURL:      imageURL,
		PublishedDate: published,
		SourceName:    req.SourceName,
	}, true
}

// postImage returns the post thumbnail when it is a real URL (reddit uses
// sentinel values like "self" and "default"), else the first preview image.
func postImage(post redditPost) string {
	if strings.HasPrefix(post.Thumbnail, "http") {
		return post.Thumbnail
	}

	if len(post.Preview.Images) > 0 {
		return post.Preview.Images[0].Source.URL
	}

	return ""
}
