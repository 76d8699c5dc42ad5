package ports

import (
	"context"
	"time"

	"github.com/laurentvv/twitter-post-trending-auto/internal/domain"
)

// RepoSource pulls candidate repositories from upstream providers.
type RepoSource interface {
	FetchTrending(ctx context.Context, limit int) ([]domain.Repo, error)
}

// ReadmeFetcher retrieves the raw README text of a repository.
type ReadmeFetcher interface {
	FetchReadme(ctx context.Context, repoURL string) (string, error)
}

// HistoryStore persists which repositories were already posted.
type HistoryStore interface {
	IsAlreadyPosted(url string) bool
	MarkAsPosted(url, postID string) error
	FilterUnposted(candidates []domain.Repo) []domain.Repo
	EvictOlderThan(days int) (int, error)
}

// PublishChannel delivers a main post and a reply through one transport.
type PublishChannel interface {
	PublishMain(ctx context.Context, text, mediaPath string) (string, error)
	PublishReply(ctx context.Context, parentID, text string) (string, error)
}

// TextGenerator produces text from a prompt; providers are tried in order.
type TextGenerator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// ContentGenerator turns a README into post-ready French copy.
type ContentGenerator interface {
	SummarizeReadme(ctx context.Context, readme string) string
	ExtractKeyFeatures(ctx context.Context, readme string) []string
}

// Screenshotter captures a page rendering to a local image file.
type Screenshotter interface {
	Capture(ctx context.Context, pageURL, outPath string) error
}

// Notifier reports posting outcomes to an operator channel.
type Notifier interface {
	NotifyPosted(ctx context.Context, message string) error
}

// Scheduler controls when the workflow executes.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
