// Package scheduler runs the recurring generation job once a day inside the
// API process.
package scheduler

import (
	"context"
	"sync"
	"time"

	apperrors "treasury/internal/errors"
	"treasury/internal/logger"
	"treasury/internal/services"
)

// Runner fires the recurring job daily at a fixed UTC hour. It also
// implements services.RecurringJobServicer so the HTTP trigger shares its
// lock: two runs never overlap within one process.
type Runner struct {
	job  services.RecurringJobServicer
	hour int
	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) bool

	mu sync.Mutex
}

// NewRunner creates a Runner that fires at hour:00 UTC.
func NewRunner(job services.RecurringJobServicer, hour int) *Runner {
	return &Runner{
		job:  job,
		hour: hour,
		now:  time.Now,
		wait: sleepContext,
	}
}

// Run executes one generation pass unless another one is in flight, in
// which case it returns ErrJobAlreadyRunning.
func (r *Runner) Run(ctx context.Context, now time.Time) (*services.JobResult, error) {
	if !r.mu.TryLock() {
		return nil, apperrors.ErrJobAlreadyRunning
	}
	defer r.mu.Unlock()
	return r.job.Run(ctx, now)
}

// Start blocks, running the job every day at the configured hour until ctx
// is cancelled.
func (r *Runner) Start(ctx context.Context) {
	log := logger.Named("scheduler")
	log.Infow("recurring generation scheduled", "hour_utc", r.hour)

	for {
		next := NextRun(r.now(), r.hour)
		if !r.wait(ctx, next.Sub(r.now())) {
			log.Info("scheduler stopped")
			return
		}

		start := time.Now()
		result, err := r.Run(ctx, r.now())
		if err != nil {
			log.Errorw("scheduled recurring generation failed", "error", err)
			continue
		}
		log.Infow("scheduled recurring generation finished",
			"generated", result.Generated,
			"auto_approved", result.AutoApproved,
			"pending", result.Pending,
			"skipped", result.Skipped,
			"errors", result.Errors,
			"duration", time.Since(start).String(),
		)
	}
}

// NextRun returns the first hour:00 UTC strictly after now.
func NextRun(now time.Time, hour int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// sleepContext waits for d and reports false if ctx ended first.
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
