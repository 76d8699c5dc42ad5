package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/laurentvv/twitter-post-trending-auto/internal/domain"
)

const (
	mainTextLimit  = 200
	replyTextLimit = 280
	summaryLimit   = 100
)

var languageEmojis = map[string]string{
	"Python":     "🐍",
	"JavaScript": "📜",
	"Go":         "⚡",
	"Rust":       "🦀",
	"Java":       "☕",
	"TypeScript": "📝",
	"C++":        "⚙️",
	"C":          "🔧",
	"Swift":      "🍎",
	"Kotlin":     "🎯",
}

// ComposeMainText builds the main post: language emoji, star count, then
// the AI catchphrase, kept under the platform limit with word-boundary
// truncation.
func ComposeMainText(repo domain.Repo, summary string) string {
	emoji, ok := languageEmojis[repo.Language]
	if !ok {
		emoji = "💻"
	}

	name := repo.Name
	if name == "" {
		name = "Project"
	}

	base := fmt.Sprintf("%s %s\n⭐ %s stars", emoji, name, groupDigits(repo.Stars))
	hashtags := "\n#GitHub"

	summary = truncateAtWord(summary, summaryLimit, 50)

	text := fmt.Sprintf("%s\n\n%s%s", base, summary, hashtags)
	if len(text) <= mainTextLimit {
		return text
	}

	available := mainTextLimit - len(base) - len(hashtags) - 4
	if available > 20 {
		summary = truncateAtWord(summary, available, 15)
	} else {
		summary = "Projet intéressant..."
	}
	return fmt.Sprintf("%s\n\n%s%s", base, summary, hashtags)
}

// ComposeReplyText builds the reply: bulleted features and the repository
// link, capped at the platform limit.
func ComposeReplyText(repo domain.Repo, features []string, url string) string {
	text := fmt.Sprintf("%s\n\nLien: %s\n#Code", bullets(features, 3), url)
	if len(text) <= replyTextLimit {
		return text
	}

	description := truncateAtWord(repo.Description, 80, 20)
	short := make([]string, 0, 2)
	for i, f := range features {
		if i == 2 {
			break
		}
		short = append(short, truncateAtWord(f, 60, 15))
	}
	text = fmt.Sprintf("📌 %s\n\n%s\n\n🔗 %s\n#Code", description, bullets(short, 2), url)
	if len(text) <= replyTextLimit {
		return text
	}
	return fmt.Sprintf("🔗 %s\n#Code", url)
}

func bullets(features []string, max int) string {
	if len(features) > max {
		features = features[:max]
	}
	lines := make([]string, 0, len(features))
	for _, f := range features {
		lines = append(lines, "• "+f)
	}
	return strings.Join(lines, "\n")
}

// truncateAtWord cuts text to limit bytes, backing up to the last space
// when it falls past minKeep so words stay whole. Without a usable space
// the cut still lands on a rune boundary.
func truncateAtWord(text string, limit, minKeep int) string {
	if len(text) <= limit {
		return text
	}

	end := limit - 3
	for end > 0 && !utf8.RuneStart(text[end]) {
		end--
	}
	cut := text[:end]
	if idx := strings.LastIndex(cut, " "); idx > minKeep {
		cut = cut[:idx]
	}
	return cut + "..."
}

// groupDigits renders 1234567 as "1,234,567".
func groupDigits(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
