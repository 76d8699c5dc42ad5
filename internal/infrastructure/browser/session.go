package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"github.com/laurentvv/twitter-post-trending-auto/internal/domain"
)

const (
	pageLoadTimeout = 30 * time.Second
	settleDuration  = 500 * time.Millisecond
)

// Session owns one headless browser process bound to a pre-authenticated
// user profile. Authentication state is an external precondition: the
// profile must already hold a logged-in session, this code never touches
// credentials. The session must be released with Close on every exit path.
type Session struct {
	browser *rod.Browser
	logger  *slog.Logger
}

// NewSession launches the browser against profileDir. A launch or connect
// failure is a ResourceUnavailable error: the fallback channel as a whole
// is unusable for this run.
func NewSession(profileDir string, headless bool, logger *slog.Logger) (*Session, error) {
	l := launcher.New().
		Headless(headless).
		Set("no-sandbox").
		Set("disable-gpu").
		Set("disable-dev-shm-usage")
	if profileDir != "" {
		l = l.UserDataDir(profileDir)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, domain.NewPublishError(domain.ErrResourceUnavailable,
			fmt.Errorf("launch browser: %w", err))
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, domain.NewPublishError(domain.ErrResourceUnavailable,
			fmt.Errorf("connect to browser: %w", err))
	}

	if logger != nil {
		logger.Info("browser session ready",
			"step", "fallback_browser_ready", "profile", profileDir, "headless", headless)
	}
	return &Session{browser: b, logger: logger}, nil
}

// newPage opens a stealth tab bound to ctx with the page-load timeout.
func (s *Session) newPage(ctx context.Context) (*rod.Page, error) {
	page, err := stealth.Page(s.browser)
	if err != nil {
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return page.Context(ctx).Timeout(pageLoadTimeout), nil
}

// Close shuts the browser process down. Safe to call more than once.
func (s *Session) Close() {
	if s.browser == nil {
		return
	}
	if err := s.browser.Close(); err != nil && s.logger != nil {
		s.logger.Warn("browser close failed",
			"step", "fallback_browser_close_error", "error", err.Error())
	}
	s.browser = nil
	if s.logger != nil {
		s.logger.Info("browser session closed", "step", "fallback_browser_closed")
	}
}
