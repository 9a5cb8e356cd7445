package security

import (
	"strings"
	"testing"
)

func TestContentSanitizer_StripsMarkup(t *testing.T) {
	s := NewContentSanitizer()

	got := s.Sanitize("<b>great</b> match")
	if strings.Contains(got, "<b>") || strings.Contains(got, "</b>") {
		t.Errorf("markup should be stripped: %q", got)
	}
	if !strings.Contains(got, "great") || !strings.Contains(got, "match") {
		t.Errorf("text content should survive: %q", got)
	}
}

func TestContentSanitizer_RemovesScriptWithContent(t *testing.T) {
	s := NewContentSanitizer()

	got := s.Sanitize("nice <script>alert(1)</script> goal")
	if strings.Contains(got, "<script") {
		t.Errorf("script tag should be removed: %q", got)
	}
	if strings.Contains(got, "alert(1)") {
		t.Errorf("script content should be removed with the tag: %q", got)
	}
	if !strings.Contains(got, "nice") || !strings.Contains(got, "goal") {
		t.Errorf("surrounding text should survive: %q", got)
	}
}

func TestContentSanitizer_PlainTextPassesThrough(t *testing.T) {
	s := NewContentSanitizer()

	got := s.Sanitize("What a derby yesterday!")
	if got != "What a derby yesterday!" {
		t.Errorf("plain text should pass through unchanged: %q", got)
	}
}

func TestContentSanitizer_EmptyInput(t *testing.T) {
	s := NewContentSanitizer()

	if got := s.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want empty string", got)
	}
}

func TestContentSanitizer_Idempotent(t *testing.T) {
	s := NewContentSanitizer()

	input := `<img src="x" onerror="alert(1)">hello`
	once := s.Sanitize(input)
	twice := s.Sanitize(once)
	if once != twice {
		t.Errorf("Sanitize should be idempotent: %q != %q", once, twice)
	}
}
