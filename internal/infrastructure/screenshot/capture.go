package screenshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/laurentvv/twitter-post-trending-auto/internal/ports"
)

const (
	captureTimeout = 30 * time.Second
	settleDuration = 500 * time.Millisecond

	viewportWidth  = 1280
	viewportHeight = 800
)

// Service renders repository pages in a headless browser and writes PNG
// captures. Failures here are non-fatal for the workflow: a missing image
// only degrades the post to text-only.
type Service struct {
	browser *rod.Browser
	logger  *slog.Logger
}

var _ ports.Screenshotter = (*Service)(nil)

// NewService launches a dedicated headless browser for captures. It is
// independent of the fallback channel's session on purpose: capture and
// publish have different profiles and lifecycles.
func NewService(logger *slog.Logger) (*Service, error) {
	u, err := launcher.New().
		Headless(true).
		Set("no-sandbox").
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Launch()
	if err != nil {
		return nil, fmt.Errorf("launch screenshot browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to screenshot browser: %w", err)
	}

	return &Service{browser: b, logger: logger}, nil
}

// Capture renders pageURL and writes a PNG to outPath.
func (s *Service) Capture(ctx context.Context, pageURL, outPath string) error {
	page, err := stealth.Page(s.browser)
	if err != nil {
		return fmt.Errorf("open capture tab: %w", err)
	}
	defer page.Close()

	captureCtx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()
	page = page.Context(captureCtx)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  viewportWidth,
		Height: viewportHeight,
	}); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}

	if err := page.Navigate(pageURL); err != nil {
		return fmt.Errorf("navigate to %s: %w", pageURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait for %s: %w", pageURL, err)
	}
	_ = page.WaitStable(settleDuration)

	data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return fmt.Errorf("capture %s: %w", pageURL, err)
	}

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create screenshots dir: %w", err)
		}
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	if s.logger != nil {
		s.logger.Info("screenshot captured",
			"step", "screenshot_success", "url", pageURL, "path", outPath)
	}
	return nil
}

// Close shuts down the capture browser.
func (s *Service) Close() {
	if s.browser != nil {
		_ = s.browser.Close()
		s.browser = nil
	}
}
