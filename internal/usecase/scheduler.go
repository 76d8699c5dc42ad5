package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/laurentvv/twitter-post-trending-auto/internal/ports"
)

// Runner wires the interval driver with the posting workflow and gates
// runs to the configured active hours.
type Runner struct {
	driver    ports.Scheduler
	workflow  *Workflow
	location  *time.Location
	startHour int
	endHour   int
	logger    *slog.Logger
}

// NewRunner returns a helper to start/stop the recurring posting job.
// location defaults to the local timezone; startHour/endHour bound the
// posting window and may wrap past midnight.
func NewRunner(driver ports.Scheduler, workflow *Workflow, location *time.Location, startHour, endHour int, logger *slog.Logger) *Runner {
	if location == nil {
		location = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		driver:    driver,
		workflow:  workflow,
		location:  location,
		startHour: startHour,
		endHour:   endHour,
		logger:    logger,
	}
}

// Start registers the workflow with the provided scheduler.
func (r *Runner) Start(ctx context.Context) error {
	if r.driver == nil || r.workflow == nil {
		return nil
	}

	job := func(trigger time.Time) {
		local := trigger.In(r.location)
		if !withinActiveHours(local, r.startHour, r.endHour) {
			r.logger.Info("outside active hours, skipping run",
				"step", "schedule",
				"local_time", local.Format("15:04"))
			return
		}
		if err := r.workflow.RunOnce(ctx, trigger); err != nil {
			r.logger.Error("run failed", "step", "schedule", "error", err)
		}
	}

	return r.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (r *Runner) Stop(ctx context.Context) error {
	if r.driver == nil {
		return nil
	}
	return r.driver.Stop(ctx)
}

// withinActiveHours reports whether t falls in the posting window. A
// start after the end wraps the window past midnight; equal bounds mean
// the whole day.
func withinActiveHours(t time.Time, start, end int) bool {
	h := t.Hour()
	switch {
	case start == end:
		return true
	case start < end:
		return h >= start && h < end
	default:
		return h >= start || h < end
	}
}
