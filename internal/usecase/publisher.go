package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/laurentvv/twitter-post-trending-auto/internal/domain"
	"github.com/laurentvv/twitter-post-trending-auto/internal/ports"
	"github.com/laurentvv/twitter-post-trending-auto/internal/ratelimit"
)

// FallbackFactory opens the browser channel on demand. The release func
// must be called when the run is over, on every exit path.
type FallbackFactory func(ctx context.Context) (ports.PublishChannel, func(), error)

// Publisher drives a single publish run across the two delivery channels.
// The API channel is tried first unless the rate-limit tracker says
// otherwise; the browser channel is opened lazily and only when needed.
// Publisher is not safe for concurrent runs.
type Publisher struct {
	primary  ports.PublishChannel
	fallback FallbackFactory
	history  ports.HistoryStore
	tracker  *ratelimit.Tracker
	logger   *slog.Logger
}

func NewPublisher(primary ports.PublishChannel, fallback FallbackFactory, history ports.HistoryStore, tracker *ratelimit.Tracker, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		primary:  primary,
		fallback: fallback,
		history:  history,
		tracker:  tracker,
		logger:   logger,
	}
}

// publishRun holds per-run state so the Publisher itself stays stateless
// between runs.
type publishRun struct {
	p           *Publisher
	fallbackCh  ports.PublishChannel
	release     func()
	rateLimited bool
}

// Publish posts the main text and then the reply for a single repository.
// The returned result always reflects what actually went out; the error is
// non-nil only when recording the post to history failed after the main
// post succeeded.
func (p *Publisher) Publish(ctx context.Context, req domain.PublishRequest) (domain.PublishResult, error) {
	run := &publishRun{p: p}
	defer run.close()

	mainID, channel, err := run.trial(ctx, run.primaryAllowed(), func(ch ports.PublishChannel) (string, error) {
		return ch.PublishMain(ctx, req.MainText, req.MediaPath)
	})
	if err != nil {
		if domain.KindOf(err) == domain.ErrIdentifierRecovery {
			// The post is live, only its identifier is unknown.
			p.logger.Warn("main post published without a recoverable id", "repo", req.RepoURL)
			mainID = ""
			channel = domain.ChannelFallback
		} else {
			p.logger.Error("publish failed on both channels", "repo", req.RepoURL, "error", err)
			return domain.PublishResult{
				Failure: domain.NewPublishError(domain.ErrTotalFailure, fmt.Errorf("publish %s: %w", req.RepoURL, err)),
			}, nil
		}
	}

	result := domain.PublishResult{Channel: channel, MainPostID: mainID}

	// Record before attempting the reply so a reply crash can never cause
	// the same repository to be posted twice.
	if err := p.history.MarkAsPosted(req.RepoURL, mainID); err != nil {
		p.logger.Error("posted but failed to record history", "repo", req.RepoURL, "error", err)
		return result, domain.NewPublishError(domain.ErrPersistence, err)
	}

	if req.ReplyText != "" {
		replyID, _, err := run.trial(ctx, run.primaryAllowed() && mainID != "", func(ch ports.PublishChannel) (string, error) {
			return ch.PublishReply(ctx, mainID, req.ReplyText)
		})
		if err != nil {
			// Partial success: the main post is out and recorded.
			p.logger.Warn("reply failed on both channels", "repo", req.RepoURL, "error", err)
		} else {
			result.ReplyPostID = replyID
		}
	}

	if channel == domain.ChannelPrimary && !run.rateLimited {
		p.tracker.RecordSuccess()
	}
	return result, nil
}

// primaryAllowed reports whether the API channel should be attempted at
// this point in the run.
func (r *publishRun) primaryAllowed() bool {
	return r.p.primary != nil && !r.p.tracker.ShouldPreferFallback()
}

// skipReason names why the API channel is being bypassed.
func (r *publishRun) skipReason() string {
	switch {
	case r.p.primary == nil:
		return "not configured"
	case r.p.tracker.ShouldPreferFallback():
		return "recent rate limits"
	default:
		return "no parent post id"
	}
}

// trial runs attempt against the primary channel (when allowed) and falls
// back to the browser channel on any failure. A rate-limit failure on the
// primary is recorded before failing over.
func (r *publishRun) trial(ctx context.Context, usePrimary bool, attempt func(ports.PublishChannel) (string, error)) (string, domain.Channel, error) {
	if usePrimary {
		id, err := attempt(r.p.primary)
		if err == nil {
			return id, domain.ChannelPrimary, nil
		}
		if domain.KindOf(err) == domain.ErrRateLimited {
			r.rateLimited = true
			r.p.tracker.RecordRateLimit(domain.RetryAfterOf(err))
			r.p.logger.Warn("api channel rate limited, switching to browser", "error", err)
		} else {
			r.p.logger.Warn("api channel failed, switching to browser", "error", err)
		}
	} else {
		r.p.logger.Info("skipping api channel", "reason", r.skipReason())
	}

	ch, err := r.open(ctx)
	if err != nil {
		return "", "", err
	}
	id, err := attempt(ch)
	if err != nil {
		return "", "", err
	}
	return id, domain.ChannelFallback, nil
}

// open returns the browser channel, starting it on first use.
func (r *publishRun) open(ctx context.Context) (ports.PublishChannel, error) {
	if r.fallbackCh != nil {
		return r.fallbackCh, nil
	}
	if r.p.fallback == nil {
		return nil, domain.NewPublishError(domain.ErrResourceUnavailable, fmt.Errorf("no fallback channel configured"))
	}
	ch, release, err := r.p.fallback(ctx)
	if err != nil {
		return nil, fmt.Errorf("open fallback channel: %w", err)
	}
	r.fallbackCh = ch
	r.release = release
	return ch, nil
}

func (r *publishRun) close() {
	if r.release != nil {
		r.release()
		r.release = nil
	}
	r.fallbackCh = nil
}
