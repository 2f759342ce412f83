package feed

import (
	"errors"
	"net/url"
	"strings"
)

var errInvalidFeedURL = errors.New("invalid feed URL")

// NormalizeURL reduces a URL to scheme+host+path+query with the fragment
// dropped. The result is the deduplication key for articles. Unparseable
// input yields "".
func NormalizeURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	normalized := parsed.Scheme + "://" + parsed.Host + parsed.Path
	if parsed.RawQuery != "" {
		normalized += "?" + parsed.RawQuery
	}

	return normalized
}

// ValidateFeedURL checks that a feed URL is a well-formed http(s) URL.
func ValidateFeedURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errInvalidFeedURL
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errInvalidFeedURL
	}

	if parsed.Host == "" {
		return errInvalidFeedURL
	}

	return nil
}

// isRedditListing reports whether a URL points at a subreddit JSON listing
// rather than an RSS/Atom document. Routing is purely by URL shape.
func isRedditListing(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	return strings.Contains(parsed.Path, "/r/") && strings.HasSuffix(parsed.Path, ".json")
}

// hostOf returns the lowercased host of a URL without any www prefix.
func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	return strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
}
