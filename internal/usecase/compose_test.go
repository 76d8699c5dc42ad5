package usecase

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/laurentvv/twitter-post-trending-auto/internal/domain"
)

func TestComposeMainText(t *testing.T) {
	t.Parallel()

	repo := domain.Repo{Name: "widget", Language: "Go", Stars: 12345}
	text := ComposeMainText(repo, "Un outil qui fait gagner du temps")

	if len(text) > mainTextLimit {
		t.Fatalf("main text is %d chars, limit %d", len(text), mainTextLimit)
	}
	for _, want := range []string{"⚡", "widget", "12,345 stars", "#GitHub"} {
		if !strings.Contains(text, want) {
			t.Errorf("main text missing %q: %s", want, text)
		}
	}
}

func TestComposeMainTextUnknownLanguage(t *testing.T) {
	t.Parallel()

	text := ComposeMainText(domain.Repo{Name: "thing", Language: "COBOL", Stars: 7}, "ok")
	if !strings.Contains(text, "💻") {
		t.Errorf("expected generic emoji, got %s", text)
	}
}

func TestComposeMainTextTruncatesAtWordBoundary(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("framework moderne ", 20)
	text := ComposeMainText(domain.Repo{Name: "big", Language: "Rust", Stars: 999}, long)

	if len(text) > mainTextLimit {
		t.Fatalf("main text is %d chars, limit %d", len(text), mainTextLimit)
	}
	if strings.Contains(text, "framewor...") {
		t.Errorf("truncation split a word: %s", text)
	}
}

func TestComposeReplyText(t *testing.T) {
	t.Parallel()

	repo := domain.Repo{Description: "A widget maker"}
	features := []string{"Rapide", "Léger", "Extensible", "Ignoré"}
	text := ComposeReplyText(repo, features, "https://github.com/acme/widget")

	if len(text) > replyTextLimit {
		t.Fatalf("reply is %d chars, limit %d", len(text), replyTextLimit)
	}
	if got := strings.Count(text, "•"); got != 3 {
		t.Errorf("reply holds %d bullets, want 3", got)
	}
	for _, want := range []string{"Rapide", "https://github.com/acme/widget", "#Code"} {
		if !strings.Contains(text, want) {
			t.Errorf("reply missing %q: %s", want, text)
		}
	}
	if strings.Contains(text, "Ignoré") {
		t.Errorf("reply kept a fourth feature: %s", text)
	}
}

func TestComposeReplyTextCompactsWhenTooLong(t *testing.T) {
	t.Parallel()

	repo := domain.Repo{Description: strings.Repeat("long description ", 10)}
	features := []string{
		strings.Repeat("a", 120),
		strings.Repeat("b", 120),
		strings.Repeat("c", 120),
	}
	text := ComposeReplyText(repo, features, "https://github.com/acme/widget")

	if len(text) > replyTextLimit {
		t.Fatalf("reply is %d chars, limit %d", len(text), replyTextLimit)
	}
}

func TestTruncateAtWordKeepsRunesWhole(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"spaceless CJK": strings.Repeat("分散型タスクスケジューラ", 10),
		"accents":       strings.Repeat("déployé ", 30),
		"mixed":         "outil " + strings.Repeat("概要", 60),
	}
	for name, in := range cases {
		got := truncateAtWord(in, 80, 20)
		if !utf8.ValidString(got) {
			t.Errorf("%s: truncation produced invalid UTF-8: %q", name, got)
		}
		if len(got) > 80 {
			t.Errorf("%s: truncated to %d bytes, limit 80", name, len(got))
		}
	}
}

func TestComposeReplyTextCompactKeepsValidUTF8(t *testing.T) {
	t.Parallel()

	repo := domain.Repo{Description: strings.Repeat("分散型タスクスケジューラ", 10)}
	features := []string{
		strings.Repeat("同時実行", 40),
		strings.Repeat("拡張可能", 40),
		strings.Repeat("高速処理", 40),
	}
	text := ComposeReplyText(repo, features, "https://github.com/acme/widget")

	if !utf8.ValidString(text) {
		t.Fatalf("reply holds invalid UTF-8: %q", text)
	}
	if len(text) > replyTextLimit {
		t.Fatalf("reply is %d chars, limit %d", len(text), replyTextLimit)
	}
}

func TestGroupDigits(t *testing.T) {
	t.Parallel()

	cases := map[int]string{
		0:       "0",
		999:     "999",
		1000:    "1,000",
		12345:   "12,345",
		1234567: "1,234,567",
	}
	for in, want := range cases {
		if got := groupDigits(in); got != want {
			t.Errorf("groupDigits(%d) = %q, want %q", in, got, want)
		}
	}
}
