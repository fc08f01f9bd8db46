// Package jobs provides background job scheduling.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	// ErrJobNotFound is returned for an unregistered job name.
	ErrJobNotFound = errors.New("job not found")
	// ErrStopped is returned by RunNow once the scheduler is stopping.
	ErrStopped = errors.New("scheduler stopped")
)

// JobFunc is the function signature for jobs.
type JobFunc func(ctx context.Context) error

// Job represents a scheduled job.
type Job struct {
	Name    string
	Trigger Trigger
	Func    JobFunc
	EntryID cron.EntryID

	running   bool
	lastRun   time.Time
	lastError error
}

// JobInfo describes a registered job and its next fire time.
type JobInfo struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	NextRun   time.Time  `json:"next_run"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	Running   bool       `json:"running"`
}

// Scheduler manages background jobs. A job that fails or panics is logged
// and does not stop the scheduler or later firings.
type Scheduler struct {
	cron    *cron.Cron
	jobs    map[string]*Job
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
	mu      sync.RWMutex

	manual  sync.WaitGroup
	stopped bool
}

// NewScheduler creates a new job scheduler. Each run is bounded by timeout.
func NewScheduler(timeout time.Duration, logger *slog.Logger) *Scheduler {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Scheduler{
		cron:    cron.New(cron.WithParser(parser)),
		jobs:    make(map[string]*Job),
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock replaces the clock used for next-run lookahead.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Register adds a job to the scheduler.
func (s *Scheduler) Register(name, schedule string, fn JobFunc) error {
	trigger, err := ParseTrigger(schedule)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	job := &Job{
		Name:    name,
		Trigger: trigger,
		Func:    fn,
	}
	job.EntryID = s.cron.Schedule(trigger, cron.FuncJob(func() {
		_ = s.runJob(context.Background(), job)
	}))
	s.jobs[name] = job

	s.logger.Info("job registered", "name", name, "schedule", schedule)
	return nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() error {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop stops the scheduler and waits for running jobs, scheduled or
// started by RunNow, to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.manual.Wait()
	s.logger.Info("scheduler stopped")
}

// RunNow starts a job in the background, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	job, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	s.manual.Add(1)
	go func() {
		defer s.manual.Done()
		_ = s.runJob(context.Background(), job)
	}()
	return nil
}

// Run executes a job synchronously and returns its error.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	job, err := s.job(name)
	if err != nil {
		return err
	}
	return s.runJob(ctx, job)
}

func (s *Scheduler) job(name string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return job, nil
}

func (s *Scheduler) runJob(parent context.Context, job *Job) (err error) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	start := time.Now()
	s.setRunning(job, true, start, nil)
	s.logger.Info("job started", "name", job.Name)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}

		duration := time.Since(start)
		s.setRunning(job, false, start, err)
		if err != nil {
			s.logger.Error("job failed", "name", job.Name, "duration", duration, "error", err)
		} else {
			s.logger.Info("job completed", "name", job.Name, "duration", duration)
		}
	}()

	return job.Func(ctx)
}

func (s *Scheduler) setRunning(job *Job, running bool, start time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.running = running
	if !running {
		job.lastRun = start
		job.lastError = err
	}
}

// ListJobs returns all registered jobs ordered by name.
func (s *Scheduler) ListJobs() []JobInfo {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]JobInfo, 0, len(s.jobs))
	for _, job := range s.jobs {
		info := JobInfo{
			Name:     job.Name,
			Schedule: job.Trigger.String(),
			NextRun:  job.Trigger.Next(now),
			Running:  job.running,
		}
		if !job.lastRun.IsZero() {
			last := job.lastRun
			info.LastRun = &last
		}
		if job.lastError != nil {
			info.LastError = job.lastError.Error()
		}
		jobs = append(jobs, info)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}
