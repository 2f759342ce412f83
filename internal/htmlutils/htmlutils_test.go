package htmlutils

import (
	"strings"
	"testing"
)

func TestStripTags(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain text untouched",
			input: "hello world",
			want:  "hello world",
		},
		{
			name:  "tags removed",
			input: "<p>hello <b>world</b></p>",
			want:  "hello world",
		},
		{
			name:  "entities decoded",
			input: "a &amp; b &lt;c&gt; &quot;d&quot; &#39;e&#39;&nbsp;f",
			want:  "a & b <c> \"d\" 'e' f",
		},
		{
			name:  "whitespace collapsed",
			input: "a\n\n  b\t\tc",
			want:  "a b c",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripTags(tt.input); got != tt.want {
				t.Errorf("StripTags(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFirstImageSrc(t *testing.T) {
	htmlContent := `<p>intro</p><img alt="x" src="https://example.com/a.png"><img src="https://example.com/b.png">`
	if got := FirstImageSrc(htmlContent); got != "https://example.com/a.png" {
		t.Errorf("FirstImageSrc() = %q", got)
	}

	if got := FirstImageSrc("<p>no image</p>"); got != "" {
		t.Errorf("FirstImageSrc() = %q, want empty", got)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 600)

	got := Truncate(long, 500)
	if len([]rune(got)) != 503 {
		t.Errorf("Truncate length = %d, want 503", len([]rune(got)))
	}

	if !strings.HasSuffix(got, "...") {
		t.Error("Truncate should append ellipsis")
	}

	if Truncate("short", 500) != "short" {
		t.Error("Truncate should leave short strings unchanged")
	}

	// Rune-safe: multi-byte characters are never split.
	cyr := strings.Repeat("я", 10)
	if Truncate(cyr, 5) != "яяяяя..." {
		t.Errorf("Truncate(%q, 5) = %q", cyr, Truncate(cyr, 5))
	}
}
