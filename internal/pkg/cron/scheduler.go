package cron

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"
)

var (
	ErrJobNotFound   = errors.New("cron job not found")
	ErrJobRunning    = errors.New("cron job is already running")
	ErrDuplicateJob  = errors.New("cron job already registered")
	ErrAlreadyActive = errors.New("cron scheduler already started")
)

// JobFunc runs one scheduled execution. scheduledFor is the trigger instant,
// or the current time for a manual run.
type JobFunc func(ctx context.Context, scheduledFor time.Time) error

// Job represents a scheduled job that fires once per day at a wall-clock
// time in Location.
type Job struct {
	Name     string
	Hour     int
	Minute   int
	Location *time.Location
	Fn       JobFunc
}

// JobStatus is the observable state of one job.
type JobStatus struct {
	Name         string     `json:"name"`
	At           string     `json:"at"`
	Timezone     string     `json:"timezone"`
	NextRun      *time.Time `json:"next_run,omitempty"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastDuration string     `json:"last_duration,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	Runs         int        `json:"runs"`
	Running      bool       `json:"running"`
}

// Status is the observable state of the scheduler.
type Status struct {
	Running bool        `json:"running"`
	Jobs    []JobStatus `json:"jobs"`
}

type jobState struct {
	job          Job
	mu           sync.Mutex
	running      bool
	nextRun      time.Time
	lastRun      time.Time
	lastDuration time.Duration
	lastErr      error
	runs         int
}

// Scheduler manages daily jobs. It is owned by the composition root and can
// be started and stopped explicitly.
type Scheduler struct {
	jobs    map[string]*jobState
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	now     func() time.Time
}

// NewScheduler creates a new cron scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{
		jobs: make(map[string]*jobState),
		now:  time.Now,
	}
}

// AddJob adds a daily job to the scheduler
func (s *Scheduler) AddJob(name string, hour, minute int, loc *time.Location, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return ErrDuplicateJob
	}
	if loc == nil {
		loc = time.UTC
	}
	s.jobs[name] = &jobState{job: Job{Name: name, Hour: hour, Minute: minute, Location: loc, Fn: fn}}
	slog.Info("Cron job registered", "name", name, "at", clockString(hour, minute), "timezone", loc.String())
	return nil
}

// Start begins running all scheduled jobs
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyActive
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.running = true

	for _, st := range s.jobs {
		s.wg.Add(1)
		go s.runJob(s.ctx, st)
	}

	slog.Info("Cron scheduler started", "job_count", len(s.jobs))
	return nil
}

// Stop gracefully stops all scheduled jobs, waiting for running ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	slog.Info("Stopping cron scheduler...")
	cancel()
	s.wg.Wait()
	slog.Info("Cron scheduler stopped")
}

// Status reports the scheduler and per-job state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{Running: s.running, Jobs: make([]JobStatus, 0, len(s.jobs))}
	for _, st := range s.jobs {
		st.mu.Lock()
		js := JobStatus{
			Name:     st.job.Name,
			At:       clockString(st.job.Hour, st.job.Minute),
			Timezone: st.job.Location.String(),
			Runs:     st.runs,
			Running:  st.running,
		}
		if !st.nextRun.IsZero() {
			next := st.nextRun
			js.NextRun = &next
		}
		if !st.lastRun.IsZero() {
			last := st.lastRun
			js.LastRun = &last
			js.LastDuration = st.lastDuration.String()
		}
		if st.lastErr != nil {
			js.LastError = st.lastErr.Error()
		}
		st.mu.Unlock()
		status.Jobs = append(status.Jobs, js)
	}
	sort.Slice(status.Jobs, func(i, j int) bool { return status.Jobs[i].Name < status.Jobs[j].Name })
	return status
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	st, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return ErrJobNotFound
	}
	return s.executeJob(ctx, st, s.now())
}

// runJob waits for each next daily trigger until ctx is cancelled.
func (s *Scheduler) runJob(ctx context.Context, st *jobState) {
	defer s.wg.Done()

	for {
		next := NextRun(s.now(), st.job.Hour, st.job.Minute, st.job.Location)
		st.mu.Lock()
		st.nextRun = next
		st.mu.Unlock()

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("Cron job stopping", "name", st.job.Name)
			return
		case <-timer.C:
			if err := s.executeJob(ctx, st, next); err != nil && !errors.Is(err, ErrJobRunning) {
				slog.Error("Cron job failed", "name", st.job.Name, "error", err)
			}
		}
	}
}

// executeJob executes a job and logs results. Runs of the same job never overlap.
func (s *Scheduler) executeJob(ctx context.Context, st *jobState, scheduledFor time.Time) error {
	st.mu.Lock()
	if st.running {
		st.mu.Unlock()
		slog.Info("Cron job already running, skipping", "name", st.job.Name)
		return ErrJobRunning
	}
	st.running = true
	st.mu.Unlock()

	start := s.now()
	slog.Debug("Cron job starting", "name", st.job.Name, "scheduled_for", scheduledFor)
	err := st.job.Fn(ctx, scheduledFor)
	duration := s.now().Sub(start)

	st.mu.Lock()
	st.running = false
	st.lastRun = start
	st.lastDuration = duration
	st.lastErr = err
	st.runs++
	st.mu.Unlock()

	if err != nil {
		slog.Error("Cron job failed", "name", st.job.Name, "error", err, "duration", duration)
		return err
	}
	slog.Debug("Cron job completed", "name", st.job.Name, "duration", duration)
	return nil
}

// NextRun returns the first instant strictly after now whose wall clock in
// loc reads hour:minute. Days are stepped on the calendar, not by 24h, so a
// DST change never moves the trigger off its wall-clock time.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	y, m, d := local.Date()
	next := time.Date(y, m, d, hour, minute, 0, 0, loc)
	for !next.After(now) {
		d++
		next = time.Date(y, m, d, hour, minute, 0, 0, loc)
	}
	return next
}

func clockString(hour, minute int) string {
	return time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC).Format("15:04")
}
