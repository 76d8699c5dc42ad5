package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/laurentvv/twitter-post-trending-auto/internal/ports"
)

// IntervalScheduler runs the job on a delay that is re-read before every
// wait, so the gap between runs can stretch while the upstream API is
// rate limiting and shrink back afterwards.
type IntervalScheduler struct {
	interval func() time.Duration
	logger   *slog.Logger
	stop     chan struct{}
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler builds a scheduler whose period comes from the
// interval func, queried after each run.
func NewIntervalScheduler(interval func() time.Duration, logger *slog.Logger) *IntervalScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntervalScheduler{interval: interval, logger: logger}
}

// Start runs the job once immediately, then keeps rescheduling it. Start
// is a no-op when already running.
func (s *IntervalScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if s.stop != nil {
		return nil
	}

	stop := make(chan struct{})
	s.stop = stop
	go func() {
		job(time.Now())
		for {
			delay := s.interval()
			s.logger.Info("next run scheduled",
				"step", "schedule",
				"delay", delay.String())

			timer := time.NewTimer(delay)
			select {
			case t := <-timer.C:
				job(t)
			case <-ctx.Done():
				timer.Stop()
				return
			case <-stop:
				timer.Stop()
				return
			}
		}
	}()

	return nil
}

// Stop halts the scheduling goroutine.
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	if s.stop == nil {
		return nil
	}
	close(s.stop)
	s.stop = nil
	return nil
}
