package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestIntervalSchedulerRunsImmediatelyAndReschedules(t *testing.T) {
	t.Parallel()

	var reads atomic.Int32
	interval := func() time.Duration {
		reads.Add(1)
		return 5 * time.Millisecond
	}

	var runs atomic.Int32
	s := NewIntervalScheduler(interval, nil)
	if err := s.Start(context.Background(), func(time.Time) { runs.Add(1) }); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = s.Stop(context.Background()) }()

	deadline := time.After(time.Second)
	for runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("only %d runs before the deadline", runs.Load())
		case <-time.After(time.Millisecond):
		}
	}
	if reads.Load() == 0 {
		t.Error("interval func never consulted")
	}
}

func TestIntervalSchedulerStopHaltsRuns(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := NewIntervalScheduler(func() time.Duration { return time.Millisecond }, nil)
	if err := s.Start(context.Background(), func(time.Time) { runs.Add(1) }); err != nil {
		t.Fatalf("start: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	// One in-flight run may still land right after Stop; let it settle.
	time.Sleep(5 * time.Millisecond)
	settled := runs.Load()
	time.Sleep(20 * time.Millisecond)
	if runs.Load() != settled {
		t.Errorf("runs continued after stop: %d -> %d", settled, runs.Load())
	}

	// Stop is idempotent.
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("second stop: %v", err)
	}
}

func TestIntervalSchedulerNilJobIsNoop(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(func() time.Duration { return time.Minute }, nil)
	if err := s.Start(context.Background(), nil); err != nil {
		t.Fatalf("start with nil job: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
