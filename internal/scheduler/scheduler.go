// Package scheduler is the execution engine behind every time-triggered
// state transition: one-shot delayed jobs, fixed-interval recurrences and
// cron schedules, dispatched with at-most-one-concurrent-instance per job
// key.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"turnq/internal/clock"
	"turnq/internal/models"
	"turnq/internal/state"
	"turnq/internal/trigger"
)

// Handler executes one job payload. Returned errors mark the record
// failed; they never stop the dispatch loop.
type Handler func(ctx context.Context, payload models.JobPayload) error

type Config struct {
	Instance string

	// WorkerCount bounds concurrent job executions.
	WorkerCount int64

	// OverwriteExisting makes ScheduleOnce replace an existing record
	// atomically instead of failing with ErrDuplicateJob.
	OverwriteExisting bool

	// ExecutionTimeout caps a single job body run. Zero leaves runs
	// unbounded.
	ExecutionTimeout time.Duration

	// Retention is how long completed one-shot records stay visible in
	// ListAll before they are garbage-collected.
	Retention time.Duration
}

const (
	DefaultWorkerCount = 5
	defaultRetention   = time.Hour
	resultBuffer       = 1000
)

type Scheduler struct {
	cfg      Config
	clk      clock.Clock
	journal  Journal
	store    *jobStore
	handlers map[models.JobKind]Handler
	results  chan execResult
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
}

func New(cfg Config, clk clock.Clock, journal Journal) *Scheduler {
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Scheduler{
		cfg:      cfg,
		clk:      clk,
		journal:  journal,
		store:    newJobStore(),
		handlers: make(map[models.JobKind]Handler),
		results:  make(chan execResult, resultBuffer),
		sem:      semaphore.NewWeighted(cfg.WorkerCount),
	}
}

// RegisterHandler binds a job kind to its body. Register everything
// before calling Run; the map is not guarded afterwards.
func (s *Scheduler) RegisterHandler(kind models.JobKind, fn Handler) {
	s.handlers[kind] = fn
}

// ScheduleOnce registers a job that fires a single time at the given
// instant. A past instant fires at the next loop pass (misfire policy).
func (s *Scheduler) ScheduleOnce(ctx context.Context, id, group string, at time.Time, payload models.JobPayload) (models.ScheduleResult, error) {
	now := s.clk.Now()
	rule := trigger.Once{At: at}
	record := models.JobRecord{
		Key:        models.JobKey{ID: id, Group: group},
		Trigger:    rule,
		Payload:    payload,
		Status:     state.StatusScheduled,
		NextFireAt: rule.Next(now, nil),
		CreatedAt:  now,
	}

	if err := s.store.insert(record, s.cfg.OverwriteExisting); err != nil {
		return failedResult(id, group, now, err), err
	}
	if err := s.journalRecord(ctx, record); err != nil {
		s.store.remove(record.Key)
		return failedResult(id, group, now, err), err
	}

	triggerAt := at
	return models.ScheduleResult{
		JobID:       id,
		JobGroup:    group,
		Message:     "job scheduled",
		ScheduledAt: now,
		TriggerAt:   &triggerAt,
		Success:     true,
	}, nil
}

// ScheduleRecurring registers or replaces a recurring job. Re-registering
// the same id and group updates trigger and payload without producing a
// second execution.
func (s *Scheduler) ScheduleRecurring(ctx context.Context, id, group string, rule trigger.Rule, payload models.JobPayload) (models.ScheduleResult, error) {
	now := s.clk.Now()
	if !rule.Recurring() {
		err := fmt.Errorf("trigger %s is not recurring", rule.Describe())
		return failedResult(id, group, now, err), err
	}

	record := models.JobRecord{
		Key:        models.JobKey{ID: id, Group: group},
		Trigger:    rule,
		Payload:    payload,
		Status:     state.StatusScheduled,
		NextFireAt: rule.Next(now, nil),
		CreatedAt:  now,
	}
	stored := s.store.upsert(record)

	return models.ScheduleResult{
		JobID:       id,
		JobGroup:    group,
		Message:     "recurring job registered: " + rule.Describe(),
		ScheduledAt: now,
		TriggerAt:   stored.NextFireAt,
		Success:     true,
	}, nil
}

// Pause suspends future fires; the frozen NextFireAt is kept as-is.
func (s *Scheduler) Pause(ctx context.Context, id, group string) error {
	record, err := s.store.setStatus(models.JobKey{ID: id, Group: group}, state.StatusPaused)
	if err != nil {
		return err
	}
	if err := s.journalRecord(ctx, record); err != nil {
		log.Printf("scheduler %s: journal update for %s failed: %v", s.cfg.Instance, record.Key, err)
	}
	return nil
}

// Resume makes a paused job eligible again. A frozen fire time in the
// past fires once immediately, then the cadence restarts from now.
func (s *Scheduler) Resume(ctx context.Context, id, group string) error {
	record, err := s.store.setStatus(models.JobKey{ID: id, Group: group}, state.StatusScheduled)
	if err != nil {
		return err
	}
	if err := s.journalRecord(ctx, record); err != nil {
		log.Printf("scheduler %s: journal update for %s failed: %v", s.cfg.Instance, record.Key, err)
	}
	return nil
}

// Cancel removes the record. It reports false for unknown keys and never
// interrupts an in-flight execution; the orphaned result is dropped.
func (s *Scheduler) Cancel(ctx context.Context, id, group string) bool {
	key := models.JobKey{ID: id, Group: group}
	removed := s.store.remove(key)
	if removed {
		if err := s.journalRemove(ctx, key); err != nil {
			log.Printf("scheduler %s: journal remove for %s failed: %v", s.cfg.Instance, key, err)
		}
	}
	return removed
}

// TriggerNow runs the job out of band without disturbing its schedule. A
// fire requested while the job is running is coalesced into one re-fire.
func (s *Scheduler) TriggerNow(ctx context.Context, id, group string) (models.ScheduleResult, error) {
	now := s.clk.Now()
	key := models.JobKey{ID: id, Group: group}

	claimed, ok, err := s.store.claimManual(key)
	if err != nil {
		return failedResult(id, group, now, err), err
	}

	message := "job triggered"
	if !ok {
		message = "job is running, fire coalesced"
	} else {
		s.dispatch(ctx, claimed, now)
	}
	return models.ScheduleResult{
		JobID:       id,
		JobGroup:    group,
		Message:     message,
		ScheduledAt: now,
		TriggerAt:   &now,
		Success:     true,
	}, nil
}

// Get returns a snapshot of one record.
func (s *Scheduler) Get(id, group string) (models.JobRecord, bool) {
	return s.store.get(models.JobKey{ID: id, Group: group})
}

// ListAll returns snapshots of every record, optionally filtered by
// group, with computed next and previous fire times.
func (s *Scheduler) ListAll(group string) []models.JobRecord {
	return s.store.snapshot(group)
}

// Restore reloads pending one-shot jobs from the journal. Call it before
// Run; recurring jobs are re-registered by the caller instead.
func (s *Scheduler) Restore(ctx context.Context) (int, error) {
	if s.journal == nil {
		return 0, nil
	}
	records, err := s.journal.Restore(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore jobs: %w", err)
	}
	restored := 0
	for _, record := range records {
		if record.Status.Terminal() || record.Trigger == nil || record.Trigger.Recurring() {
			continue
		}
		if err := s.store.insert(record, true); err != nil {
			continue
		}
		restored++
	}
	if restored > 0 {
		log.Printf("scheduler %s: restored %d pending jobs from journal", s.cfg.Instance, restored)
	}
	return restored, nil
}

// Run executes the dispatch loop until ctx is cancelled. It blocks; run
// it on its own goroutine. The loop sleeps until the earliest due fire
// and wakes early whenever the store mutates.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Printf("scheduler %s: dispatch loop started", s.cfg.Instance)

	for {
		var timer *time.Timer
		var timerC <-chan time.Time
		if next, ok := s.store.nextDue(); ok {
			wait := next.Sub(s.clk.Now())
			if wait < 0 {
				wait = 0
			}
			timer = time.NewTimer(wait)
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			s.wg.Wait()
			s.drainResults()
			log.Printf("scheduler %s: dispatch loop stopped", s.cfg.Instance)
			return ctx.Err()
		case <-s.store.wake:
			stopTimer(timer)
		case res := <-s.results:
			stopTimer(timer)
			s.processResult(ctx, res)
		case <-timerC:
			s.fireDue(ctx)
		}
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

func (s *Scheduler) fireDue(ctx context.Context) {
	now := s.clk.Now()
	for _, claimed := range s.store.claimDue(now) {
		s.dispatch(ctx, claimed, now)
	}
	for _, key := range s.store.reap(now, s.cfg.Retention) {
		if err := s.journalRemove(ctx, key); err != nil {
			log.Printf("scheduler %s: journal remove for %s failed: %v", s.cfg.Instance, key, err)
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, claimed claimedJob, firedAt time.Time) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if err := s.sem.Acquire(ctx, 1); err != nil {
			// shutting down; report so the record does not stay running
			s.results <- execResult{
				key: claimed.record.Key, gen: claimed.gen, manual: claimed.manual,
				err: err, firedAt: firedAt, finishedAt: s.clk.Now(),
			}
			return
		}
		defer s.sem.Release(1)

		s.results <- s.execute(ctx, claimed, firedAt)
	}()
}

func (s *Scheduler) execute(ctx context.Context, claimed claimedJob, firedAt time.Time) (res execResult) {
	res = execResult{
		key:     claimed.record.Key,
		gen:     claimed.gen,
		manual:  claimed.manual,
		firedAt: firedAt,
	}
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("panic in job %s: %v", claimed.record.Key, r)
		}
		res.finishedAt = s.clk.Now()
	}()

	handler, ok := s.handlers[claimed.record.Payload.Kind]
	if !ok {
		res.err = fmt.Errorf("%w: %s", ErrHandlerNotFound, claimed.record.Payload.Kind)
		return res
	}

	execCtx := ctx
	if s.cfg.ExecutionTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, s.cfg.ExecutionTimeout)
		defer cancel()
	}
	res.err = handler(execCtx, claimed.record.Payload)
	return res
}

func (s *Scheduler) processResult(ctx context.Context, res execResult) {
	record, ok := s.store.settle(res)
	if !ok {
		// cancelled or replaced while running
		return
	}
	if res.err != nil {
		log.Printf("scheduler %s: job %s (kind=%s) failed: %v",
			s.cfg.Instance, record.Key, record.Payload.Kind, res.err)
	}
	if err := s.journalRecord(ctx, record); err != nil {
		log.Printf("scheduler %s: journal update for %s failed: %v", s.cfg.Instance, record.Key, err)
	}
}

func (s *Scheduler) drainResults() {
	for {
		select {
		case res := <-s.results:
			s.processResult(context.Background(), res)
		default:
			return
		}
	}
}

func (s *Scheduler) journalRecord(ctx context.Context, record models.JobRecord) error {
	if s.journal == nil {
		return nil
	}
	return s.journal.Record(ctx, record)
}

func (s *Scheduler) journalRemove(ctx context.Context, key models.JobKey) error {
	if s.journal == nil {
		return nil
	}
	return s.journal.Remove(ctx, key)
}

func failedResult(id, group string, now time.Time, err error) models.ScheduleResult {
	return models.ScheduleResult{
		JobID:       id,
		JobGroup:    group,
		Message:     err.Error(),
		ScheduledAt: now,
		Success:     false,
	}
}
