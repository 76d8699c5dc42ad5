package ratelimit

import (
	"testing"
	"time"
)

func TestTrackerStreak(t *testing.T) {
	t.Parallel()

	tr := NewTracker(30*time.Minute, nil)

	if tr.ConsecutiveRateLimits() != 0 {
		t.Fatalf("fresh tracker should start at zero")
	}

	tr.RecordRateLimit(0)
	tr.RecordRateLimit(15 * time.Minute)
	if got := tr.ConsecutiveRateLimits(); got != 2 {
		t.Fatalf("expected streak 2, got %d", got)
	}

	tr.RecordSuccess()
	if got := tr.ConsecutiveRateLimits(); got != 0 {
		t.Fatalf("expected streak reset to 0, got %d", got)
	}

	tr.RecordSuccess()
	if got := tr.ConsecutiveRateLimits(); got != 0 {
		t.Fatalf("success on empty streak must stay 0, got %d", got)
	}
}

func TestAdjustedInterval(t *testing.T) {
	t.Parallel()

	tr := NewTracker(30*time.Minute, nil)

	cases := []struct {
		streak int
		want   time.Duration
	}{
		{0, 30 * time.Minute},
		{1, 60 * time.Minute},
		{2, 90 * time.Minute},
		{3, 120 * time.Minute},
		{7, 120 * time.Minute},
	}

	for _, tc := range cases {
		tr.consecutiveRateLimit = tc.streak
		if got := tr.AdjustedInterval(); got != tc.want {
			t.Fatalf("streak %d: expected %v, got %v", tc.streak, tc.want, got)
		}
	}
}

func TestShouldPreferFallback(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

	tr := NewTracker(30*time.Minute, nil)
	tr.now = func() time.Time { return base }

	if tr.ShouldPreferFallback() {
		t.Fatal("fresh tracker must not prefer fallback")
	}

	tr.RecordRateLimit(0)
	if !tr.ShouldPreferFallback() {
		t.Fatal("recent rate limit must prefer fallback within the hour")
	}

	// Streak of 1 and the window elapsed: back to primary.
	tr.now = func() time.Time { return base.Add(2 * time.Hour) }
	if tr.ShouldPreferFallback() {
		t.Fatal("single stale rate limit must not prefer fallback")
	}

	// Streak of 2 prefers fallback no matter how old the last hit is.
	tr.RecordRateLimit(0)
	tr.consecutiveRateLimit = 2
	tr.now = func() time.Time { return base.Add(48 * time.Hour) }
	if !tr.ShouldPreferFallback() {
		t.Fatal("streak >= 2 must prefer fallback")
	}
}
