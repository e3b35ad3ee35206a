// Package scheduler implements the Scheduler of spec §4.8: a fixed set
// of named, crontab-scheduled jobs running in a cooperative worker pool
// with at-most-once overlap semantics and per-job crash isolation.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tcmaker/core/internal/apperr"
	"github.com/tcmaker/core/internal/logx"
)

// Outcome is a job run's terminal state, persisted in the job registry
// (spec §4.8).
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeError     Outcome = "error"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeOverlap   Outcome = "overlap"
	OutcomeDisabled  Outcome = "disabled"
)

// Record is one job's persisted bookkeeping: last run start/end/outcome
// and a NextRun field for the next scheduled firing, which Scheduler
// itself never sets (it stays zero in the records Scheduler writes). The
// registry survives process restarts;
// on startup a missed firing is never retroactively executed — only the
// next scheduled firing runs (spec §4.8 Persistence).
type Record struct {
	LastStart time.Time
	LastEnd   time.Time
	Outcome   Outcome
	NextRun   time.Time
}

// Handler is a job's body. It must check ctx for cancellation between
// Series (outer loop) and Episodes (inner loop) — spec §4.8's
// cooperative cancellation checkpoints.
type Handler func(ctx context.Context) error

// Job is one named, crontab-scheduled unit of work.
type Job struct {
	Name    string
	Cron    string // standard 5-field crontab expression
	Handler Handler
	Enabled bool
}

// Registry persists Records across restarts. A caller supplies an
// implementation backed by however jobs are stored (out of scope per
// spec §1); InMemoryRegistry is provided for tests and as the reference
// shape.
type Registry interface {
	Get(jobName string) (Record, bool)
	Set(jobName string, rec Record)
}

// InMemoryRegistry is a Registry with no persistence, useful for tests
// and as a drop-in default.
type InMemoryRegistry struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewInMemoryRegistry constructs an empty InMemoryRegistry.
func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{records: make(map[string]Record)}
}

func (r *InMemoryRegistry) Get(jobName string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[jobName]
	return rec, ok
}

func (r *InMemoryRegistry) Set(jobName string, rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[jobName] = rec
}

// Scheduler drives a fixed set of Jobs on robfig/cron/v3 schedules,
// executing each firing under its own suture.Service for crash isolation
// (spec §4.8 Isolation — grounded on tomtom215-cartographus's use of
// suture for supervised worker trees) and tracking at-most-once overlap
// semantics per job.
type Scheduler struct {
	logger   zerolog.Logger
	cron     *cron.Cron
	registry Registry

	supervisor *suture.Supervisor

	mu      sync.Mutex
	ctx     context.Context    // the lifetime ctx passed to Start; parent of every firing
	running map[string]struct{} // present while a job's handler is in flight
	jobs    map[string]*Job
}

// New constructs a Scheduler. Call AddJob for each job, then Start.
func New(logger zerolog.Logger, registry Registry) *Scheduler {
	return &Scheduler{
		logger:     logger,
		cron:       cron.New(),
		registry:   registry,
		supervisor: suture.New("scheduler", suture.Spec{}),
		ctx:        context.Background(),
		running:    make(map[string]struct{}),
		jobs:       make(map[string]*Job),
	}
}

// Registry returns the job registry this Scheduler records into, for
// status/trigger endpoints that need a job's last-run Record.
func (s *Scheduler) Registry() Registry { return s.registry }

// AddJob registers job on its crontab schedule. Disabled jobs are
// recorded but never fire.
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	s.jobs[job.Name] = &job
	s.mu.Unlock()

	if !job.Enabled {
		s.registry.Set(job.Name, Record{Outcome: OutcomeDisabled})
		return nil
	}

	_, err := s.cron.AddFunc(job.Cron, func() { s.fire(job.Name) })
	if err != nil {
		return apperr.New("scheduler.AddJob", apperr.InvalidRecipe, fmt.Errorf("job %q: %w", job.Name, err))
	}
	return nil
}

// Start begins the cron loop and the supervisor tree. ctx is every
// firing's lifetime: canceling it signals every in-flight job's Handler
// via its ctx (spec §4.8 Cancellation), the same way suture propagates
// its Serve ctx down to each supervised service's Serve call
// (cartographus's PlexSyncServiceWrapper.Serve "blocks until context is
// canceled").
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	go s.supervisor.Serve(ctx)
	s.cron.Start()
}

// Stop halts the cron loop. It does not itself cancel in-flight jobs —
// callers cancel the ctx given to Start (as cmd/tcmcore's shutdown
// sequence does) before calling Stop, so every running Handler already
// observes cancellation through its own ctx by the time Stop returns.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// TriggerNow fires job immediately, outside its crontab schedule (the
// External API layer's per-job trigger endpoints consume this, spec
// §4.8/§"External API layer"). Subject to the same overlap rule as a
// cron firing.
func (s *Scheduler) TriggerNow(jobName string) error {
	s.mu.Lock()
	_, ok := s.jobs[jobName]
	s.mu.Unlock()
	if !ok {
		return apperr.New("scheduler.TriggerNow", apperr.NotFound, fmt.Errorf("unknown job %q", jobName))
	}
	s.fire(jobName)
	return nil
}

// fire runs job under suture supervision, enforcing the at-most-once
// overlap rule: if the job is already running, this firing is recorded
// as overlap and skipped entirely (spec §4.8 Scheduling, §8 Scheduler
// at-most-once invariant).
func (s *Scheduler) fire(jobName string) {
	s.mu.Lock()
	job := s.jobs[jobName]
	if _, inFlight := s.running[jobName]; inFlight {
		s.mu.Unlock()
		s.registry.Set(jobName, Record{
			LastStart: s.lastStart(jobName),
			LastEnd:   time.Now(),
			Outcome:   OutcomeOverlap,
		})
		s.logger.Warn().Str("job", jobName).Msg("skipped firing: previous run still in flight")
		return
	}
	s.running[jobName] = struct{}{}
	s.mu.Unlock()

	start := time.Now()
	s.supervisor.Add(jobService{name: jobName, run: func(ctx context.Context) error {
		return s.runOnce(ctx, *job, start)
	}})
}

func (s *Scheduler) lastStart(jobName string) time.Time {
	rec, ok := s.registry.Get(jobName)
	if !ok {
		return time.Time{}
	}
	return rec.LastStart
}

func (s *Scheduler) runOnce(ctx context.Context, job Job, start time.Time) error {
	ctx = logx.WithJob(ctx, job.Name, uuid.New().String())
	logger := logx.FromContext(ctx)
	logger.Info().Msg("job started")

	err := job.Handler(ctx)

	s.mu.Lock()
	delete(s.running, job.Name)
	s.mu.Unlock()

	outcome := OutcomeOK
	switch {
	case err != nil && apperr.Is(err, apperr.Cancelled):
		outcome = OutcomeCancelled
	case err != nil:
		outcome = OutcomeError
	}

	s.registry.Set(job.Name, Record{
		LastStart: start,
		LastEnd:   time.Now(),
		Outcome:   outcome,
	})

	if err != nil {
		logger.Error().Err(err).Str("outcome", string(outcome)).Msg("job finished")
	} else {
		logger.Info().Msg("job finished")
	}
	// Swallow the error at the suture boundary: outcome bookkeeping above
	// already captured it, and a job failure must never cascade into a
	// supervisor restart storm for an inherently one-shot unit of work.
	return nil
}

// jobService adapts one job firing into a suture.Service: a single run
// that ends with suture.ErrDoNotRestart whether it succeeded or failed,
// so the supervisor never restarts a completed firing, while a handler panic is
// still caught and logged by suture rather than crashing the process.
// Serve honors the ctx suture hands it, the same way
// PlexSyncServiceWrapper.Serve does — that ctx is already derived from
// the Scheduler's Start ctx, so shutdown cancellation reaches run.
type jobService struct {
	name string
	run  func(ctx context.Context) error
}

func (j jobService) Serve(ctx context.Context) error {
	if err := j.run(ctx); err != nil {
		return err
	}
	return suture.ErrDoNotRestart
}

func (j jobService) String() string { return j.name }
