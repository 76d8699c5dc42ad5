package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/laurentvv/twitter-post-trending-auto/internal/domain"
	"github.com/laurentvv/twitter-post-trending-auto/internal/ports"
)

// WorkflowDeps wires all driven adapters into the posting workflow.
type WorkflowDeps struct {
	Source     ports.RepoSource
	Readme     ports.ReadmeFetcher
	History    ports.HistoryStore
	Content    ports.ContentGenerator
	Screenshot ports.Screenshotter
	Publisher  *Publisher
	Notifier   ports.Notifier
	Logger     *slog.Logger

	CandidateLimit int
	RetentionDays  int
	ScreenshotDir  string
}

// Workflow implements one end-to-end posting run: pick an unposted
// trending repository, generate the copy, and publish it.
type Workflow struct {
	source     ports.RepoSource
	readme     ports.ReadmeFetcher
	history    ports.HistoryStore
	content    ports.ContentGenerator
	screenshot ports.Screenshotter
	publisher  *Publisher
	notifier   ports.Notifier
	logger     *slog.Logger

	candidateLimit int
	retentionDays  int
	screenshotDir  string
	pick           func(n int) int
}

// NewWorkflow constructs the orchestration component.
func NewWorkflow(deps WorkflowDeps) *Workflow {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := deps.CandidateLimit
	if limit <= 0 {
		limit = 10
	}
	retention := deps.RetentionDays
	if retention <= 0 {
		retention = 60
	}
	return &Workflow{
		source:         deps.Source,
		readme:         deps.Readme,
		history:        deps.History,
		content:        deps.Content,
		screenshot:     deps.Screenshot,
		publisher:      deps.Publisher,
		notifier:       deps.Notifier,
		logger:         logger,
		candidateLimit: limit,
		retentionDays:  retention,
		screenshotDir:  deps.ScreenshotDir,
		pick:           rand.Intn,
	}
}

// RunOnce executes a single posting run.
func (w *Workflow) RunOnce(ctx context.Context, trigger time.Time) error {
	repos, err := w.source.FetchTrending(ctx, w.candidateLimit)
	if err != nil {
		return fmt.Errorf("fetch trending: %w", err)
	}
	if len(repos) == 0 {
		w.logger.Info("no trending repositories available", "step", "fetch")
		return nil
	}

	candidates := w.history.FilterUnposted(repos)
	if len(candidates) == 0 {
		// Everything recent was already posted. Age out old records once
		// and look again before giving up on this run.
		evicted, evictErr := w.history.EvictOlderThan(w.retentionDays)
		if evictErr != nil {
			w.logger.Warn("history eviction failed", "step", "evict", "error", evictErr)
		}
		w.logger.Info("all candidates already posted",
			"step", "evict",
			"evicted", evicted)
		candidates = w.history.FilterUnposted(repos)
		if len(candidates) == 0 {
			return nil
		}
	}

	repo := candidates[w.pick(len(candidates))]
	w.logger.Info("selected repository",
		"step", "select",
		"repo", repo.URL,
		"stars", repo.Stars,
		"candidates", len(candidates))

	mediaPath := w.captureScreenshot(ctx, repo)

	readme := ""
	if w.readme != nil {
		readme, err = w.readme.FetchReadme(ctx, repo.URL)
		if err != nil {
			w.logger.Warn("readme unavailable, using defaults",
				"step", "readme",
				"repo", repo.URL,
				"error", err)
			readme = ""
		}
	}

	summary := w.content.SummarizeReadme(ctx, readme)
	features := w.content.ExtractKeyFeatures(ctx, readme)

	req := domain.PublishRequest{
		RepoURL:   repo.URL,
		MainText:  ComposeMainText(repo, summary),
		ReplyText: ComposeReplyText(repo, features, repo.URL),
		MediaPath: mediaPath,
	}

	result, err := w.publisher.Publish(ctx, req)
	if err != nil {
		return fmt.Errorf("record history for %s: %w", repo.URL, err)
	}
	if !result.Succeeded() {
		return fmt.Errorf("publish %s: %w", repo.URL, result.Failure)
	}

	w.logger.Info("run complete",
		"step", "done",
		"repo", repo.URL,
		"channel", string(result.Channel),
		"main_post_id", result.MainPostID,
		"reply_post_id", result.ReplyPostID,
		"triggered_at", trigger.Format(time.RFC3339))

	if w.notifier != nil {
		message := fmt.Sprintf("Posted *%s* via %s\n%s", repo.FullName, result.Channel, repo.URL)
		if err := w.notifier.NotifyPosted(ctx, message); err != nil {
			w.logger.Warn("notification failed", "step", "notify", "error", err)
		}
	}
	return nil
}

// captureScreenshot renders the repository page to a PNG. Failures only
// cost the post its media.
func (w *Workflow) captureScreenshot(ctx context.Context, repo domain.Repo) string {
	if w.screenshot == nil || w.screenshotDir == "" {
		return ""
	}

	name := strings.ReplaceAll(repo.FullName, "/", "_")
	if name == "" {
		name = repo.Name
	}
	outPath := filepath.Join(w.screenshotDir, name+".png")

	if err := w.screenshot.Capture(ctx, repo.URL, outPath); err != nil {
		w.logger.Warn("screenshot failed, posting without media",
			"step", "screenshot",
			"repo", repo.URL,
			"error", err)
		return ""
	}
	return outPath
}
