package feed

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"

	"github.com/technews/aggregator/internal/htmlutils"
)

const (
	minUsefulDescriptionLen = 20
	maxPageBodySize         = 256 * 1024
)

// boilerplateOpeners mark descriptions that carry no real content. A
// description starting with one of these is treated as absent.
var boilerplateOpeners = []string{
	"read more",
	"click here",
	"continue reading",
	"a blog post by",
	"the post ",
	"appeared first on",
	"submitted by",
	"comments",
}

// pageFetchHosts is the fixed set of hosts for which fetching the live
// webpage is permitted as a last-resort description source.
var pageFetchHosts = map[string]struct{}{
	"techcrunch.com":  {},
	"arstechnica.com": {},
	"theverge.com":    {},
	"wired.com":       {},
	"venturebeat.com": {},
	"thenextweb.com":  {},
	"engadget.com":    {},
	"zdnet.com":       {},
}

// extractDescription tries description sources in priority order: full
// content, summary/description, category metadata, then (for allowlisted
// hosts only) the live webpage. A placeholder is synthesized when nothing
// usable turns up. The result is truncated to 500 characters.
func (f *Fetcher) extractDescription(ctx context.Context, item *gofeed.Item, articleURL, sourceName string) string {
	candidates := []string{
		htmlutils.StripTags(item.Content),
		htmlutils.StripTags(item.Description),
		categoryPhrase(item),
	}

	description := ""

	for _, candidate := range candidates {
		if usableDescription(candidate) {
			description = candidate
			break
		}
	}

	if description == "" {
		if _, allowed := pageFetchHosts[hostOf(articleURL)]; allowed {
			description = f.pageDescription(ctx, articleURL)
		}
	}

	if description == "" {
		description = "Article from " + sourceName
	}

	return htmlutils.Truncate(description, maxDescriptionLen)
}

// categoryPhrase synthesizes a description from entry tag metadata.
func categoryPhrase(item *gofeed.Item) string {
	if len(item.Categories) == 0 {
		return ""
	}

	return "Article about " + strings.Join(item.Categories, ", ")
}

// usableDescription rejects empty, too-short and boilerplate descriptions.
func usableDescription(description string) bool {
	if len(description) < minUsefulDescriptionLen {
		return false
	}

	lower := strings.ToLower(description)
	for _, opener := range boilerplateOpeners {
		if strings.HasPrefix(lower, opener) {
			return false
		}
	}

	return true
}

// pageDescription fetches the article's webpage and extracts a description
// from its meta tags, falling back to a readable-text excerpt. Any failure
// yields "".
func (f *Fetcher) pageDescription(ctx context.Context, pageURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.pageClient.Do(req)
	if err != nil {
		f.logger.Debug().Err(err).Str("url", pageURL).Msg("webpage fetch failed")
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Debug().Int("status", resp.StatusCode).Str("url", pageURL).Msg("webpage fetch failed")
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBodySize))
	if err != nil {
		return ""
	}

	return extractPageDescription(body, pageURL)
}

// extractPageDescription pulls a description out of an HTML document:
// meta description, then og:description, then twitter:description, then the
// first paragraph of the readable article text.
func extractPageDescription(body []byte, pageURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return ""
	}

	selectors := []string{
		`meta[name="description"]`,
		`meta[property="og:description"]`,
		`meta[name="twitter:description"]`,
	}

	for _, selector := range selectors {
		if content, ok := doc.Find(selector).First().Attr("content"); ok {
			if clean := htmlutils.StripTags(content); usableDescription(clean) {
				return clean
			}
		}
	}

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		parsedURL = nil
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return ""
	}

	paragraph, _, _ := strings.Cut(strings.TrimSpace(article.TextContent), "\n")

	paragraph = htmlutils.StripTags(paragraph)
	if !usableDescription(paragraph) {
		return ""
	}

	return paragraph
}
