package ratelimit

import (
	"log/slog"
	"time"
)

const (
	fallbackAfterStreak = 2
	fallbackWindow      = time.Hour
)

// Tracker records rate-limit occurrences across publish runs and derives
// an adaptive scheduling interval plus a prefer-fallback hint. One writer
// (the publisher) is assumed; the scheduler only reads between runs.
type Tracker struct {
	baseInterval time.Duration
	now          func() time.Time
	logger       *slog.Logger

	lastRateLimitAt      time.Time
	consecutiveRateLimit int
}

// NewTracker builds a tracker with zero state. baseInterval is the
// scheduler's unconstrained polling period.
func NewTracker(baseInterval time.Duration, logger *slog.Logger) *Tracker {
	if baseInterval <= 0 {
		baseInterval = 30 * time.Minute
	}
	return &Tracker{
		baseInterval: baseInterval,
		now:          time.Now,
		logger:       logger,
	}
}

// RecordRateLimit notes one rate-limit detection. retryAfter is the
// server-suggested wait when the API provided one, zero otherwise.
func (t *Tracker) RecordRateLimit(retryAfter time.Duration) {
	t.consecutiveRateLimit++
	t.lastRateLimitAt = t.now()

	if t.logger != nil {
		t.logger.Warn("rate limit recorded",
			"step", "rate_limit_recorded",
			"streak", t.consecutiveRateLimit,
			"retry_after", retryAfter.String())
	}
}

// RecordSuccess resets the streak after a clean primary-channel run.
func (t *Tracker) RecordSuccess() {
	if t.consecutiveRateLimit == 0 {
		return
	}
	if t.logger != nil {
		t.logger.Info("rate limit streak broken",
			"step", "rate_limit_reset",
			"streak", t.consecutiveRateLimit)
	}
	t.consecutiveRateLimit = 0
}

// ShouldPreferFallback reports whether the publisher should skip the
// primary channel entirely on the next attempt.
func (t *Tracker) ShouldPreferFallback() bool {
	if t.consecutiveRateLimit >= fallbackAfterStreak {
		return true
	}
	if !t.lastRateLimitAt.IsZero() && t.now().Sub(t.lastRateLimitAt) < fallbackWindow {
		return true
	}
	return false
}

// ConsecutiveRateLimits exposes the current streak for observability.
func (t *Tracker) ConsecutiveRateLimits() int {
	return t.consecutiveRateLimit
}

// AdjustedInterval maps the streak to a scheduling interval. The scheduler
// reads this between runs; the tracker itself never reschedules anything.
func (t *Tracker) AdjustedInterval() time.Duration {
	switch {
	case t.consecutiveRateLimit >= 3:
		return 120 * time.Minute
	case t.consecutiveRateLimit == 2:
		return 90 * time.Minute
	case t.consecutiveRateLimit == 1:
		return 60 * time.Minute
	default:
		return t.baseInterval
	}
}
