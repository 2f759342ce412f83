package analyzer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	maxCategories      = 3
	maxCategoryLen     = 50
	maxFilterReasonLen = 200

	defaultScore = 3
	defaultTone  = "news"
)

var validTones = map[string]struct{}{
	"informative": {},
	"promotional": {},
	"opinion":     {},
	"technical":   {},
	"news":        {},
}

// Verdict is the classification result for a single article.
type Verdict struct {
	Categories     []string `json:"categories"`
	RelevanceScore int      `json:"relevance_score"`
	Tone           string   `json:"tone"`
	Filtered       bool     `json:"filtered"`
	FilterReason   string   `json:"filter_reason"`

	// Err carries the classification failure that led to a fallback verdict.
	// Diagnostic only, never persisted.
	Err string `json:"-"`
}

// fallbackVerdict is used whenever classification cannot produce a usable
// result. Articles are never dropped on analyzer failure.
func fallbackVerdict() Verdict {
	return Verdict{
		Categories:     []string{"GENERAL"},
		RelevanceScore: defaultScore,
		Tone:           defaultTone,
	}
}

// parseVerdict decodes raw model output into a Verdict. Markdown code fences
// around the JSON object are tolerated. Fields are decoded individually so a
// single wrong-typed field costs only that field, never the whole verdict.
func parseVerdict(content string) (Verdict, error) {
	payload := extractJSON(content)
	if payload == "" {
		return Verdict{}, fmt.Errorf("no JSON object in model output")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}

	v := Verdict{
		Categories:     decodeCategories(fields["categories"]),
		RelevanceScore: decodeScore(fields["relevance_score"]),
		Tone:           decodeString(fields["tone"]),
		Filtered:       decodeBool(fields["filtered"]),
		FilterReason:   decodeString(fields["filter_reason"]),
	}

	return coerceVerdict(v), nil
}

func decodeCategories(raw json.RawMessage) []string {
	var list []string
	if raw == nil || json.Unmarshal(raw, &list) != nil {
		return nil
	}

	return list
}

// decodeScore accepts a JSON number or a numeric string. Anything else falls
// back to the default score.
func decodeScore(raw json.RawMessage) int {
	if raw == nil {
		return defaultScore
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return parsed
		}
	}

	return defaultScore
}

func decodeString(raw json.RawMessage) string {
	var s string
	if raw == nil || json.Unmarshal(raw, &s) != nil {
		return ""
	}

	return s
}

func decodeBool(raw json.RawMessage) bool {
	var b bool
	if raw == nil || json.Unmarshal(raw, &b) != nil {
		return false
	}

	return b
}

// coerceVerdict normalizes field values into the ranges storage accepts.
func coerceVerdict(v Verdict) Verdict {
	categories := make([]string, 0, maxCategories)

	for _, c := range v.Categories {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" || len(c) > maxCategoryLen {
			continue
		}

		categories = append(categories, c)
		if len(categories) == maxCategories {
			break
		}
	}

	if len(categories) == 0 {
		categories = []string{"GENERAL"}
	}

	v.Categories = categories

	if v.RelevanceScore < 1 {
		v.RelevanceScore = 1
	} else if v.RelevanceScore > 5 {
		v.RelevanceScore = 5
	}

	v.Tone = strings.ToLower(strings.TrimSpace(v.Tone))
	if _, ok := validTones[v.Tone]; !ok {
		v.Tone = defaultTone
	}

	if !v.Filtered {
		v.FilterReason = ""
	} else if runes := []rune(v.FilterReason); len(runes) > maxFilterReasonLen {
		v.FilterReason = string(runes[:maxFilterReasonLen])
	}

	return v
}

// extractJSON returns the first JSON object in s, stripping markdown code
// fences when the model wraps its answer in one.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		ch := s[i]

		if escaped {
			escaped = false
			continue
		}

		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}

	return ""
}
