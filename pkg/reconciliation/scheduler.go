package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner runs a reconciliation job.
type Runner interface {
	Run(ctx context.Context, job Job) (*Output, error)
}

// Scheduler runs a job on a cron schedule. A tick that fires while the
// previous run is still going is skipped.
type Scheduler struct {
	runner   Runner
	schedule string
	job      Job
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewScheduler creates a scheduler for job on a standard five-field cron
// expression. An empty schedule makes Start a no-op.
func NewScheduler(runner Runner, schedule string, job Job, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runner:   runner,
		schedule: schedule,
		job:      job,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:   logger.With("component", "reconciliation.scheduler"),
	}
}

// Start schedules the job and stops it when ctx is cancelled.
//
// Common expressions:
//   - "*/15 * * * *" - every 15 minutes
//   - "0 * * * *"    - hourly
//   - "30 2 * * *"   - daily at 02:30
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("reconciliation schedule not configured, skipping scheduler")
		return nil
	}
	if s.running {
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}
	if _, err := s.cron.AddFunc(s.schedule, func() { s.runJob(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule reconciliation: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("reconciliation scheduler started", "schedule", s.schedule, "job_type", s.job.Type)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) runJob(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	out, err := s.runner.Run(ctx, s.job)
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.Info("scheduled reconciliation skipped, another run holds the lock")
	case err != nil:
		s.logger.Error("scheduled reconciliation failed", "error", err)
	default:
		s.logger.Info("scheduled reconciliation completed",
			"run_id", out.RunID,
			"auto_matched", out.AutoMatched,
			"needs_review", out.NeedsReview,
			"risk_flags", len(out.RiskFlags),
			"truncated", out.Truncated,
		)
	}
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("reconciliation scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled run, or nil when not scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
