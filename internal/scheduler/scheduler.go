package scheduler

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Padelicious/internal/clock"
)

var (
	ErrNotInitialized = errors.New("scheduler not initialized")
	ErrEmptyJobName   = errors.New("job name is required")
	ErrEmptyCronExpr  = errors.New("cron expression is required")
	ErrDuplicateJob   = errors.New("job already registered")
)

// JobStats are the run counters of one job.
type JobStats struct {
	Name      string    `json:"name"`
	Cron      string    `json:"cron"`
	Successes int64     `json:"successes"`
	Failures  int64     `json:"failures"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

type jobCounters struct {
	cron      string
	successes atomic.Int64
	failures  atomic.Int64

	mu        sync.Mutex
	lastRun   time.Time
	lastError string
}

// Service wraps a gocron scheduler for the lifecycle jobs.
type Service struct {
	scheduler gocron.Scheduler
	clock     *clock.Clock
	timeout   time.Duration
	stopOnce  sync.Once
	stopErr   error

	mu   sync.RWMutex
	jobs map[string]*jobCounters
}

// New builds a scheduler that reads time from clk and evaluates cron
// expressions in clk's timezone. Each run gets timeout as its deadline.
func New(clk *clock.Clock, timeout time.Duration) (*Service, error) {
	if clk == nil {
		return nil, errors.New("scheduler requires clock")
	}
	sched, err := gocron.NewScheduler(
		gocron.WithClock(clk.Source()),
		gocron.WithLocation(clk.Location()),
		gocron.WithGlobalJobOptions(
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					log.Error().
						Str("job_id", jobID.String()).
						Str("job_name", jobName).
						Interface("panic", recoverData).
						Msg("Scheduler job panicked")
				}),
			),
		),
	)
	if err != nil {
		return nil, err
	}
	log.Info().Str("timezone", clk.Location().String()).Msg("Scheduler initialized")
	return &Service{
		scheduler: sched,
		clock:     clk,
		timeout:   timeout,
		jobs:      make(map[string]*jobCounters),
	}, nil
}

// Start begins running scheduled jobs.
func (s *Service) Start() {
	if s == nil {
		log.Error().Msg("Scheduler start requested before initialization")
		return
	}
	log.Info().Msg("Scheduler starting")
	s.scheduler.Start()
}

// Stop shuts down the scheduler and waits for running jobs.
func (s *Service) Stop() error {
	if s == nil {
		return ErrNotInitialized
	}
	s.stopOnce.Do(func() {
		log.Info().Msg("Scheduler stopping")
		s.stopErr = s.scheduler.Shutdown()
	})
	return s.stopErr
}

// AddJob registers a cron-based job. task receives a context carrying the
// job logger and the per-run deadline; its error is logged and counted.
func (s *Service) AddJob(name, cronExpr string, task func(ctx context.Context) error, opts ...gocron.JobOption) (gocron.Job, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyJobName
	}
	if strings.TrimSpace(cronExpr) == "" {
		return nil, ErrEmptyCronExpr
	}

	s.mu.Lock()
	if _, exists := s.jobs[name]; exists {
		s.mu.Unlock()
		return nil, ErrDuplicateJob
	}
	counters := &jobCounters{cron: cronExpr}
	s.jobs[name] = counters
	s.mu.Unlock()

	jobLogger := log.With().Str("job_name", name).Str("cron", cronExpr).Logger()
	jobLogger.Info().Msg("Registering scheduler job")

	job, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() { s.run(name, counters, task) }),
		append([]gocron.JobOption{gocron.WithName(name)}, opts...)...,
	)
	if err != nil {
		s.mu.Lock()
		delete(s.jobs, name)
		s.mu.Unlock()
		jobLogger.Error().Err(err).Msg("Failed to register scheduler job")
		return nil, err
	}
	jobLogger.Info().Msg("Scheduler job registered")
	return job, nil
}

func (s *Service) run(name string, counters *jobCounters, task func(ctx context.Context) error) error {
	jobLogger := log.With().Str("component", "scheduler").Str("job_name", name).Logger()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	ctx = jobLogger.WithContext(ctx)

	jobLogger.Debug().Msg("Scheduler job started")
	err := task(ctx)

	counters.mu.Lock()
	counters.lastRun = s.clock.Now()
	if err != nil {
		counters.lastError = err.Error()
	} else {
		counters.lastError = ""
	}
	counters.mu.Unlock()

	if err != nil {
		counters.failures.Add(1)
		jobLogger.Error().Err(err).Msg("Scheduler job failed")
		return err
	}
	counters.successes.Add(1)
	jobLogger.Debug().Msg("Scheduler job completed")
	return nil
}

// Stats returns the counters of every registered job, by name.
func (s *Service) Stats() []JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := make([]JobStats, 0, len(s.jobs))
	for name, c := range s.jobs {
		c.mu.Lock()
		stats = append(stats, JobStats{
			Name:      name,
			Cron:      c.cron,
			Successes: c.successes.Load(),
			Failures:  c.failures.Load(),
			LastRun:   c.lastRun,
			LastError: c.lastError,
		})
		c.mu.Unlock()
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}
