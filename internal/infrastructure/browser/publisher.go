package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/laurentvv/twitter-post-trending-auto/internal/domain"
	"github.com/laurentvv/twitter-post-trending-auto/internal/ports"
)

const (
	baseURL    = "https://x.com"
	composeURL = baseURL + "/compose/post"

	// interactionAttempts bounds each DOM interaction; element lookup on
	// the live UI is inherently flaky.
	interactionAttempts = 3
	interactionDelay    = time.Second
)

var (
	composeButtonSelectors = []string{
		`a[data-testid="SideNav_NewTweet_Button"]`,
		`a[href="/compose/post"]`,
	}
	textboxSelectors = []string{
		`div[data-testid="tweetTextarea_0"]`,
		`div[role="textbox"]`,
	}
	submitSelectors = []string{
		`button[data-testid="tweetButton"]`,
		`div[data-testid="tweetButton"]`,
	}
	replySelectors = []string{
		`button[data-testid="reply"]`,
		`div[data-testid="reply"]`,
	}
	fileInputSelectors = []string{
		`input[data-testid="fileInput"]`,
		`input[type="file"]`,
	}

	statusIDExpr = regexp.MustCompile(`/status/(\d+)`)
)

// Publisher is the fallback channel: it drives a logged-in browser session
// against the live web UI. Its errors are never classified RateLimited;
// the browser path has no concept of API rate limiting.
type Publisher struct {
	session *Session
	// handle is the profile's own account name, used to recover a post id
	// from the timeline when the compose flow does not navigate to the
	// new post's permalink.
	handle string
	logger *slog.Logger
	retry  retrypolicy.RetryPolicy[any]
}

var _ ports.PublishChannel = (*Publisher)(nil)

// NewPublisher wires an exclusively-owned session. The caller releases it
// through Close once the run is over.
func NewPublisher(session *Session, handle string, logger *slog.Logger) *Publisher {
	retry := retrypolicy.NewBuilder[any]().
		WithDelay(interactionDelay).
		WithMaxRetries(interactionAttempts - 1).
		Build()

	return &Publisher{
		session: session,
		handle:  handle,
		logger:  logger,
		retry:   retry,
	}
}

// Close releases the underlying browser session.
func (p *Publisher) Close() {
	p.session.Close()
}

// PublishMain posts through the compose surface and recovers the new post
// identifier. An empty returned id with an ErrIdentifierRecovery error
// means the post itself went out; callers degrade the reply step instead
// of failing the publish.
func (p *Publisher) PublishMain(ctx context.Context, text, mediaPath string) (string, error) {
	page, err := p.session.newPage(ctx)
	if err != nil {
		return "", domain.NewPublishError(domain.ErrResourceUnavailable, err)
	}
	defer page.Close()

	p.info("fallback main post start", "step", "fallback_post_start", "text_length", len(text))

	if err := p.navigate(page, composeURL); err != nil {
		return "", domain.NewPublishError(domain.ErrTransient, err)
	}

	if err := p.fillTextbox(page, text); err != nil {
		return "", domain.NewPublishError(domain.ErrTransient, err)
	}

	if mediaPath != "" {
		if _, statErr := os.Stat(mediaPath); statErr == nil {
			if err := p.attachMedia(page, mediaPath); err != nil {
				p.warn("media attach failed, posting text only",
					"step", "fallback_media_error", "error", err.Error())
			}
		}
	}

	if err := p.clickFirst(page, submitSelectors, "post button"); err != nil {
		return "", domain.NewPublishError(domain.ErrTransient, err)
	}

	_ = page.WaitStable(settleDuration)

	id, err := p.recoverPostID(page)
	if err != nil {
		p.warn("post went out but id recovery failed",
			"step", "fallback_id_recovery_failed", "error", err.Error())
		return "", domain.NewPublishError(domain.ErrIdentifierRecovery, err)
	}

	p.info("fallback main post success", "step", "fallback_post_success", "tweet_id", id)
	return id, nil
}

// PublishReply addresses the reply to parentID's permalink. An empty
// parentID is the explicit "identifier unknown" case: the reply falls
// back to the generic compose surface right after the main post, relying
// on UI adjacency. That mode can reply to the wrong thread; it is a
// documented best-effort degradation.
func (p *Publisher) PublishReply(ctx context.Context, parentID, text string) (string, error) {
	page, err := p.session.newPage(ctx)
	if err != nil {
		return "", domain.NewPublishError(domain.ErrResourceUnavailable, err)
	}
	defer page.Close()

	if parentID == "" {
		p.warn("no parent id, replying via compose shortcut", "step", "fallback_reply_adjacent")
		return p.replyViaCompose(page, text)
	}

	p.info("fallback reply start", "step", "fallback_reply_start", "parent_id", parentID)

	if err := p.navigate(page, fmt.Sprintf("%s/i/status/%s", baseURL, parentID)); err != nil {
		return "", domain.NewPublishError(domain.ErrTransient, err)
	}

	if err := p.clickFirst(page, replySelectors, "reply button"); err != nil {
		return "", domain.NewPublishError(domain.ErrTransient, err)
	}

	if err := p.fillTextbox(page, text); err != nil {
		return "", domain.NewPublishError(domain.ErrTransient, err)
	}

	if err := p.clickFirst(page, submitSelectors, "reply post button"); err != nil {
		return "", domain.NewPublishError(domain.ErrTransient, err)
	}

	_ = page.WaitStable(settleDuration)

	p.info("fallback reply success", "step", "fallback_reply_success")
	// Reply permalinks are not surfaced by the UI flow; the id stays
	// unknown and the caller records the reply as sent without one.
	return "", nil
}

func (p *Publisher) replyViaCompose(page *rod.Page, text string) (string, error) {
	if err := p.navigate(page, composeURL); err != nil {
		return "", domain.NewPublishError(domain.ErrTransient, err)
	}
	if err := p.fillTextbox(page, text); err != nil {
		return "", domain.NewPublishError(domain.ErrTransient, err)
	}
	if err := p.clickFirst(page, submitSelectors, "post button"); err != nil {
		return "", domain.NewPublishError(domain.ErrTransient, err)
	}
	_ = page.WaitStable(settleDuration)

	p.info("fallback adjacent reply posted", "step", "fallback_reply_adjacent_success")
	return "", nil
}

// recoverPostID tries, in order: the post-submission URL, then the
// profile timeline's most recent permalink. The compose flow does not
// reliably navigate to the new post, hence the second strategy.
func (p *Publisher) recoverPostID(page *rod.Page) (string, error) {
	if info, err := page.Info(); err == nil {
		if id := extractStatusID(info.URL); id != "" {
			return id, nil
		}
	}

	if p.handle == "" {
		return "", fmt.Errorf("post url carried no id and no profile handle configured")
	}

	if err := p.navigate(page, baseURL+"/"+p.handle); err != nil {
		return "", fmt.Errorf("open profile timeline: %w", err)
	}

	link, err := page.Element(`article[data-testid="tweet"] a[href*="/status/"]`)
	if err != nil {
		return "", fmt.Errorf("locate latest post permalink: %w", err)
	}

	href, err := link.Attribute("href")
	if err != nil || href == nil {
		return "", fmt.Errorf("read permalink href: %w", err)
	}

	if id := extractStatusID(*href); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("permalink %q carried no status id", *href)
}

func extractStatusID(u string) string {
	m := statusIDExpr.FindStringSubmatch(u)
	if len(m) != 2 {
		return ""
	}
	return m[1]
}

func (p *Publisher) navigate(page *rod.Page, u string) error {
	if err := page.Navigate(u); err != nil {
		return fmt.Errorf("navigate to %s: %w", u, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait for %s: %w", u, err)
	}
	_ = page.WaitStable(settleDuration)
	return nil
}

func (p *Publisher) fillTextbox(page *rod.Page, text string) error {
	return p.withRetry("textbox input", func() error {
		el, sel, err := findFirst(page.Element, textboxSelectors)
		if err != nil {
			return err
		}
		if err := el.Input(text); err != nil {
			return fmt.Errorf("input via %s: %w", sel, err)
		}
		return nil
	})
}

func (p *Publisher) clickFirst(page *rod.Page, selectors []string, desc string) error {
	return p.withRetry(desc, func() error {
		el, sel, err := findFirst(page.Element, selectors)
		if err != nil {
			return err
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return fmt.Errorf("click %s via %s: %w", desc, sel, err)
		}
		return nil
	})
}

func (p *Publisher) attachMedia(page *rod.Page, path string) error {
	return p.withRetry("media attach", func() error {
		el, sel, err := findFirst(page.Element, fileInputSelectors)
		if err != nil {
			return err
		}
		if err := el.SetFiles([]string{path}); err != nil {
			return fmt.Errorf("set files via %s: %w", sel, err)
		}
		_ = page.WaitStable(settleDuration)
		return nil
	})
}

func (p *Publisher) withRetry(desc string, fn func() error) error {
	err := failsafe.With(p.retry).Run(fn)
	if err != nil {
		return fmt.Errorf("%s failed after %d attempts: %w", desc, interactionAttempts, err)
	}
	return nil
}

func (p *Publisher) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Publisher) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
