package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a named housekeeping task run on a cron schedule.
type Job struct {
	// Name identifies the job in logs and NextRun.
	Name string

	// Schedule is a standard five-field cron expression. An empty
	// schedule disables the job.
	Schedule string

	// Run performs one cycle and returns how many items it removed.
	Run func(ctx context.Context) (int64, error)
}

// Scheduler runs housekeeping jobs on their cron schedules.
type Scheduler struct {
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool

	jobs    map[string]Job
	entries map[string]cron.EntryID
	ctx     context.Context
}

// NewScheduler creates a scheduler with no jobs.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(),
		logger:  logger.With("component", "maintenance"),
		jobs:    make(map[string]Job),
		entries: make(map[string]cron.EntryID),
		ctx:     context.Background(),
	}
}

// Add registers a job. Jobs with an empty schedule are skipped.
func (s *Scheduler) Add(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("maintenance job requires a name and a run function")
	}
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("maintenance job %q already registered", job.Name)
	}
	if job.Schedule == "" {
		s.logger.Info("schedule not configured, skipping job", "job", job.Name)
		return nil
	}

	if _, err := cron.ParseStandard(job.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q for job %s: %w", job.Schedule, job.Name, err)
	}

	id, err := s.cron.AddFunc(job.Schedule, func() {
		s.run(s.context(), job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", job.Name, err)
	}

	s.jobs[job.Name] = job
	s.entries[job.Name] = id
	return nil
}

// Start begins running scheduled jobs. The scheduler stops when ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.ctx = ctx
	s.cron.Start()
	s.running = true

	s.logger.Info("maintenance scheduler started", "jobs", s.jobNames())

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop stops the scheduler and waits for running jobs to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("maintenance scheduler stopped")
}

// IsRunning reports whether the scheduler has been started.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled time of the named job, or nil when
// the job is unknown or the scheduler is not running.
func (s *Scheduler) NextRun(name string) *time.Time {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	entry := s.cron.Entry(id)
	if !entry.Valid() || entry.Next.IsZero() {
		return nil
	}
	next := entry.Next
	return &next
}

// RunNow runs the named job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("unknown maintenance job %q", name)
	}
	return job.Run(ctx)
}

func (s *Scheduler) run(ctx context.Context, job Job) {
	start := time.Now()
	removed, err := job.Run(ctx)
	if err != nil {
		s.logger.Error("maintenance job failed", "job", job.Name, "error", err)
		return
	}

	if removed > 0 {
		s.logger.Info("maintenance job completed",
			"job", job.Name,
			"removed", removed,
			"duration", time.Since(start),
		)
	} else {
		s.logger.Debug("maintenance job completed, nothing removed", "job", job.Name)
	}
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Scheduler) jobNames() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
