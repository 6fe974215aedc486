package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	robfig "github.com/robfig/cron/v3"
)

// Job is a named function run on a schedule.
type Job struct {
	Name     string
	Schedule robfig.Schedule
	Fn       func(ctx context.Context) error
}

// Scheduler runs registered jobs until stopped. A job that is still running
// when its next tick arrives skips that tick.
type Scheduler struct {
	jobs     []Job
	location *time.Location
	logger   *slog.Logger
	cron     *robfig.Cron
	cancel   context.CancelFunc
	mu       sync.Mutex
}

// NewScheduler evaluates cron expressions in loc; nil means time.Local.
func NewScheduler(logger *slog.Logger, loc *time.Location) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		jobs:     make([]Job, 0),
		location: loc,
		logger:   logger.With("component", "cron"),
	}
}

// AddJob registers a job. Jobs with a non-positive interval are skipped.
// Intervals are rounded down to whole seconds, with one second as the floor.
func (s *Scheduler) AddJob(name string, interval time.Duration, fn func(ctx context.Context) error) {
	if interval <= 0 {
		s.logger.Info("Cron job disabled", "name", name)
		return
	}
	s.add(Job{Name: name, Schedule: robfig.Every(interval), Fn: fn})
	s.logger.Info("Cron job registered", "name", name, "interval", interval)
}

// AddCronJob registers a job on a standard five-field cron expression or a
// descriptor such as "@daily".
func (s *Scheduler) AddCronJob(name, expr string, fn func(ctx context.Context) error) error {
	schedule, err := ParseSchedule(expr)
	if err != nil {
		return fmt.Errorf("cron job %s: %w", name, err)
	}
	s.add(Job{Name: name, Schedule: schedule, Fn: fn})
	s.logger.Info("Cron job registered", "name", name, "schedule", expr)
	return nil
}

// ParseSchedule validates a cron expression without registering anything.
func ParseSchedule(expr string) (robfig.Schedule, error) {
	schedule, err := robfig.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return schedule, nil
}

func (s *Scheduler) add(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
}

// Start launches every registered job. Jobs stop when ctx is cancelled or
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, s.cancel = context.WithCancel(ctx)
	cronLogger := slogAdapter{s.logger}
	s.cron = robfig.New(
		robfig.WithLocation(s.location),
		robfig.WithLogger(cronLogger),
		robfig.WithChain(robfig.Recover(cronLogger), robfig.SkipIfStillRunning(cronLogger)),
	)
	for _, job := range s.jobs {
		job := job
		s.cron.Schedule(job.Schedule, robfig.FuncJob(func() {
			if ctx.Err() != nil {
				return
			}
			s.executeJob(ctx, job)
		}))
	}
	s.cron.Start()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("Cron scheduler started", "job_count", len(s.jobs))
}

// Stop cancels all jobs and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, c := s.cancel, s.cron
	s.cancel, s.cron = nil, nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	s.logger.Info("Cron scheduler stopped")
}

func (s *Scheduler) executeJob(ctx context.Context, job Job) {
	start := time.Now()
	if err := job.Fn(ctx); err != nil {
		s.logger.Error("Cron job failed", "name", job.Name, "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Debug("Cron job completed", "name", job.Name, "duration", time.Since(start))
}

// RunOnce runs every job synchronously, once.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	jobs := append([]Job(nil), s.jobs...)
	s.mu.Unlock()

	for _, job := range jobs {
		s.executeJob(ctx, job)
	}
}

// slogAdapter satisfies robfig's logger with slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug(msg, keysAndValues...)
}

func (a slogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, append(keysAndValues, "error", err)...)
}
