// Package htmlutils provides helpers for turning feed HTML into plain text.
package htmlutils

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagRegex        = regexp.MustCompile(`<[^>]+>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	imgSrcRegex     = regexp.MustCompile(`(?i)<img[^>]+src="([^"]+)"`)
)

// StripTags removes HTML tags, decodes entities and collapses whitespace.
func StripTags(text string) string {
	if text == "" {
		return ""
	}

	clean := tagRegex.ReplaceAllString(text, " ")
	clean = html.UnescapeString(clean)
	clean = whitespaceRegex.ReplaceAllString(clean, " ")

	return strings.TrimSpace(clean)
}

// FirstImageSrc returns the src of the first <img> tag in the HTML, or "".
func FirstImageSrc(htmlContent string) string {
	m := imgSrcRegex.FindStringSubmatch(htmlContent)
	if m == nil {
		return ""
	}

	return m[1]
}

// Truncate cuts s to at most limit runes, appending "..." when it was cut.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit]) + "..."
}
