package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/laurentvv/twitter-post-trending-auto/internal/config"
	"github.com/laurentvv/twitter-post-trending-auto/internal/infrastructure/browser"
	"github.com/laurentvv/twitter-post-trending-auto/internal/infrastructure/history"
	"github.com/laurentvv/twitter-post-trending-auto/internal/infrastructure/llm"
	"github.com/laurentvv/twitter-post-trending-auto/internal/infrastructure/scheduler"
	"github.com/laurentvv/twitter-post-trending-auto/internal/infrastructure/screenshot"
	"github.com/laurentvv/twitter-post-trending-auto/internal/infrastructure/telegram"
	"github.com/laurentvv/twitter-post-trending-auto/internal/infrastructure/trendingsrc"
	"github.com/laurentvv/twitter-post-trending-auto/internal/infrastructure/twitter"
	"github.com/laurentvv/twitter-post-trending-auto/internal/logging"
	"github.com/laurentvv/twitter-post-trending-auto/internal/ports"
	"github.com/laurentvv/twitter-post-trending-auto/internal/ratelimit"
	"github.com/laurentvv/twitter-post-trending-auto/internal/trending"
	"github.com/laurentvv/twitter-post-trending-auto/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	runner   *usecase.Runner
	workflow *usecase.Workflow
	db       *sql.DB
	shots    *screenshot.Service
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	a := &Application{cfg: cfg, logger: baseLogger}

	if err := a.prepareDirs(); err != nil {
		return nil, err
	}

	store, err := a.buildHistory(baseLogger)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	github := trendingsrc.NewGitHubAPI(cfg.GitHub.Token, httpClient)
	source := trending.NewSource([]trending.Strategy{
		github,
		trendingsrc.NewTrendingPage(httpClient),
		trendingsrc.NewLibHunt(httpClient),
		trendingsrc.NewGitstar(httpClient),
	}, baseLogger.With("component", "trending"))

	var primary ports.PublishChannel
	creds := twitter.Credentials{
		APIKey:            cfg.Twitter.APIKey,
		APISecret:         cfg.Twitter.APISecret,
		AccessToken:       cfg.Twitter.AccessToken,
		AccessTokenSecret: cfg.Twitter.AccessTokenSecret,
	}
	if creds.Configured() {
		primary = twitter.NewClient(creds, baseLogger.With("component", "twitter"))
	} else {
		baseLogger.Warn("api credentials incomplete, browser channel only")
	}

	browserLogger := baseLogger.With("component", "browser")
	fallback := func(ctx context.Context) (ports.PublishChannel, func(), error) {
		session, err := browser.NewSession(cfg.Browser.ProfileDir, cfg.Browser.Headless, browserLogger)
		if err != nil {
			return nil, nil, err
		}
		return browser.NewPublisher(session, cfg.Browser.Handle, browserLogger), session.Close, nil
	}

	tracker := ratelimit.NewTracker(cfg.Scheduler.Interval(), baseLogger.With("component", "ratelimit"))
	publisher := usecase.NewPublisher(primary, fallback, store, tracker, baseLogger.With("component", "publisher"))

	var shooter ports.Screenshotter
	if cfg.Screenshot.Enabled {
		svc, err := screenshot.NewService(baseLogger.With("component", "screenshot"))
		if err != nil {
			baseLogger.Warn("screenshot service unavailable, posting without media", "error", err)
		} else {
			a.shots = svc
			shooter = svc
		}
	}

	providers := make([]ports.TextGenerator, 0, 2)
	if cfg.LLM.OpenAI.APIKey != "" {
		providers = append(providers, llm.NewOpenAIGenerator(
			"openai", cfg.LLM.OpenAI.Endpoint, cfg.LLM.OpenAI.Model, cfg.LLM.OpenAI.APIKey, ""))
	}
	if cfg.LLM.Ollama.Host != "" {
		providers = append(providers, llm.NewOllamaGenerator(cfg.LLM.Ollama.Host, cfg.LLM.Ollama.Model))
	}
	content := llm.NewService(providers, baseLogger.With("component", "llm"))

	var notifier ports.Notifier
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	}

	a.workflow = usecase.NewWorkflow(usecase.WorkflowDeps{
		Source:        source,
		Readme:        github,
		History:       store,
		Content:       content,
		Screenshot:    shooter,
		Publisher:     publisher,
		Notifier:      notifier,
		Logger:        baseLogger.With("component", "workflow"),
		RetentionDays: cfg.History.RetentionDays,
		ScreenshotDir: cfg.Screenshot.Dir,
	})

	driver := scheduler.NewIntervalScheduler(tracker.AdjustedInterval, baseLogger.With("component", "scheduler"))
	activeStart, activeEnd := cfg.Scheduler.ActiveHours()
	a.runner = usecase.NewRunner(driver, a.workflow, cfg.Scheduler.Location(), activeStart, activeEnd, baseLogger.With("component", "runner"))

	return a, nil
}

// Run starts the scheduler and blocks until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.runner.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.runner.Stop(stopCtx); err != nil {
		a.logger.Warn("scheduler stop failed", "error", err)
	}
	a.close()
	return nil
}

// RunOnce executes a single posting run and exits, for cron-style use.
func (a *Application) RunOnce(ctx context.Context) error {
	defer a.close()
	return a.workflow.RunOnce(ctx, time.Now().In(a.cfg.Scheduler.Location()))
}

func (a *Application) prepareDirs() error {
	dirs := []string{a.cfg.Browser.ProfileDir}
	if a.cfg.Screenshot.Enabled {
		dirs = append(dirs, a.cfg.Screenshot.Dir)
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// buildHistory selects the Postgres backend when a DSN is configured and
// the JSON file otherwise.
func (a *Application) buildHistory(logger *slog.Logger) (ports.HistoryStore, error) {
	historyLogger := logger.With("component", "history")

	if a.cfg.History.DSN != "" {
		db, err := sql.Open("postgres", a.cfg.History.DSN)
		if err != nil {
			return nil, fmt.Errorf("open history database: %w", err)
		}
		a.db = db

		store := history.NewPostgresStore(db, historyLogger)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}

	return history.NewFileStore(a.cfg.History.FilePath, historyLogger), nil
}

func (a *Application) close() {
	if a.shots != nil {
		a.shots.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
