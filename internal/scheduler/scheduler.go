package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a unit of scheduled work.
type Job func(ctx context.Context) error

// Scheduler runs a single job on a cron schedule. Specs use the six-field
// form with a leading seconds field.
type Scheduler struct {
	Cron    *cron.Cron
	name    string
	job     Job
	ctx     context.Context
	timeout time.Duration
}

// New registers job under spec. Each run gets a context derived from ctx
// bounded by timeout; a zero timeout leaves it unbounded.
func New(ctx context.Context, name, spec string, timeout time.Duration, job Job) (*Scheduler, error) {
	s := &Scheduler{
		Cron:    cron.New(cron.WithSeconds()),
		name:    name,
		job:     job,
		ctx:     ctx,
		timeout: timeout,
	}
	if _, err := s.Cron.AddFunc(spec, s.RunNow); err != nil {
		return nil, fmt.Errorf("register %s task: %w", name, err)
	}
	return s, nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	slog.Info("scheduler started", "job", s.name)
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	slog.Info("scheduler stopped", "job", s.name)
}

// RunNow executes the job immediately.
func (s *Scheduler) RunNow() {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := s.job(ctx); err != nil {
		slog.Error("scheduled job failed", "job", s.name, "duration", time.Since(start), "error", err)
		return
	}
	slog.Info("scheduled job finished", "job", s.name, "duration", time.Since(start))
}
