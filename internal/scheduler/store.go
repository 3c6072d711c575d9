package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"turnq/internal/models"
	"turnq/internal/state"
)

// jobEntry wraps a record with the bookkeeping the dispatch loop needs.
// gen distinguishes a replaced record from the one an in-flight execution
// belongs to, so a stale result never touches the replacement.
type jobEntry struct {
	record models.JobRecord
	gen    uint64
	// rerun marks a fire that arrived while the job was running; it is
	// coalesced into exactly one immediate re-fire after completion.
	rerun bool
}

// jobStore holds every job record behind a single mutex. All mutation
// paths (schedule, pause, resume, cancel, dispatch transitions) go
// through it; wake is signalled on each mutation so the dispatch loop
// re-arms its timer.
type jobStore struct {
	mu      sync.Mutex
	jobs    map[models.JobKey]*jobEntry
	wake    chan struct{}
	lastGen uint64
}

func newJobStore() *jobStore {
	return &jobStore{
		jobs: make(map[models.JobKey]*jobEntry),
		wake: make(chan struct{}, 1),
	}
}

func (s *jobStore) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// insert adds a one-shot record. An existing non-terminal record with the
// same key is a duplicate unless overwrite is set, in which case it is
// replaced atomically (an in-flight execution of the old record finishes
// but its result is dropped).
func (s *jobStore) insert(record models.JobRecord, overwrite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[record.Key]; ok && !existing.record.Status.Terminal() && !overwrite {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, record.Key)
	}
	s.lastGen++
	s.jobs[record.Key] = &jobEntry{record: record, gen: s.lastGen}
	s.notify()
	return nil
}

// upsert registers a recurring record idempotently. Re-registering an
// existing key replaces trigger and payload without producing a second
// execution; a running instance finishes first, a paused key stays
// paused with its fire time frozen.
func (s *jobStore) upsert(record models.JobRecord) models.JobRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[record.Key]
	if !ok || entry.record.Status.Terminal() {
		s.lastGen++
		entry = &jobEntry{record: record, gen: s.lastGen}
		s.jobs[record.Key] = entry
		s.notify()
		return entry.record
	}

	entry.record.Trigger = record.Trigger
	entry.record.Payload = record.Payload
	if entry.record.Status == state.StatusScheduled {
		entry.record.NextFireAt = record.NextFireAt
	}
	s.notify()
	return entry.record
}

func (s *jobStore) get(key models.JobKey) (models.JobRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[key]
	if !ok {
		return models.JobRecord{}, false
	}
	return entry.record, true
}

func (s *jobStore) remove(key models.JobKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[key]; !ok {
		return false
	}
	delete(s.jobs, key)
	s.notify()
	return true
}

// setStatus applies a guarded status transition.
func (s *jobStore) setStatus(key models.JobKey, to state.JobStatus) (models.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[key]
	if !ok {
		return models.JobRecord{}, fmt.Errorf("%w: %s", ErrJobNotFound, key)
	}
	if !state.IsValidTransition(entry.record.Status, to) {
		return models.JobRecord{}, fmt.Errorf("%w: job %s is %s, cannot move to %s", ErrInvalidTransition, key, entry.record.Status, to)
	}
	entry.record.Status = to
	s.notify()
	return entry.record, nil
}

// nextDue returns the earliest fire time across all scheduled entries.
func (s *jobStore) nextDue() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var earliest time.Time
	found := false
	for _, entry := range s.jobs {
		if entry.record.Status != state.StatusScheduled || entry.record.NextFireAt == nil {
			continue
		}
		if !found || entry.record.NextFireAt.Before(earliest) {
			earliest = *entry.record.NextFireAt
			found = true
		}
	}
	return earliest, found
}

// claimDue transitions every due scheduled entry to running and returns
// the claimed records. A due entry that is already running gets its rerun
// flag set instead of a second concurrent execution.
func (s *jobStore) claimDue(now time.Time) []claimedJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	var claimed []claimedJob
	for _, entry := range s.jobs {
		if entry.record.NextFireAt == nil || entry.record.NextFireAt.After(now) {
			continue
		}
		switch entry.record.Status {
		case state.StatusScheduled:
			entry.record.Status = state.StatusRunning
			fireAt := now
			entry.record.PreviousFireAt = &fireAt
			claimed = append(claimed, claimedJob{record: entry.record, gen: entry.gen})
		case state.StatusRunning:
			entry.rerun = true
		}
	}
	sort.Slice(claimed, func(i, j int) bool {
		return claimed[i].record.Key.String() < claimed[j].record.Key.String()
	})
	return claimed
}

// claimManual forces one out-of-band execution of the given key without
// touching NextFireAt. When the job is mid-run the fire is coalesced and
// no new claim is returned.
func (s *jobStore) claimManual(key models.JobKey) (claimedJob, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[key]
	if !ok {
		return claimedJob{}, false, fmt.Errorf("%w: %s", ErrJobNotFound, key)
	}
	if entry.record.Status == state.StatusRunning {
		entry.rerun = true
		return claimedJob{}, false, nil
	}
	if !state.IsValidTransition(entry.record.Status, state.StatusRunning) {
		return claimedJob{}, false, fmt.Errorf("%w: job %s is %s and cannot be triggered", ErrInvalidTransition, key, entry.record.Status)
	}
	entry.record.Status = state.StatusRunning
	return claimedJob{record: entry.record, gen: entry.gen, manual: true}, true, nil
}

// settle applies the outcome of an execution. Stale results (cancelled or
// replaced records) are dropped. The next fire is computed under the lock
// from the record's current trigger so a concurrent re-registration wins.
func (s *jobStore) settle(res execResult) (models.JobRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[res.key]
	if !ok || entry.gen != res.gen {
		return models.JobRecord{}, false
	}

	if res.err != nil {
		entry.record.LastError = res.err.Error()
	} else {
		entry.record.LastError = ""
	}

	switch {
	case entry.rerun:
		// coalesced fire: run once more immediately
		entry.rerun = false
		fireAt := res.finishedAt
		entry.record.Status = state.StatusScheduled
		entry.record.NextFireAt = &fireAt
	case res.manual:
		// out-of-band run, regular schedule untouched
		entry.record.Status = state.StatusScheduled
	case entry.record.Trigger.Recurring():
		// misfire policy lives here: the next fire derives from the
		// actual completion time, never from missed ticks
		next := entry.record.Trigger.Next(res.finishedAt, &res.firedAt)
		if next == nil {
			s.finish(entry, res)
		} else {
			entry.record.Status = state.StatusScheduled
			entry.record.NextFireAt = next
		}
	default:
		s.finish(entry, res)
	}

	s.notify()
	return entry.record, true
}

func (s *jobStore) finish(entry *jobEntry, res execResult) {
	if res.err != nil {
		entry.record.Status = state.StatusFailed
	} else {
		entry.record.Status = state.StatusSucceeded
	}
	entry.record.NextFireAt = nil
	finishedAt := res.finishedAt
	entry.record.FinishedAt = &finishedAt
}

func (s *jobStore) snapshot(group string) []models.JobRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]models.JobRecord, 0, len(s.jobs))
	for _, entry := range s.jobs {
		if group != "" && entry.record.Key.Group != group {
			continue
		}
		records = append(records, entry.record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Key.String() < records[j].Key.String()
	})
	return records
}

// reap removes terminal records whose retention window has elapsed and
// returns the removed keys.
func (s *jobStore) reap(now time.Time, retention time.Duration) []models.JobKey {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reaped []models.JobKey
	for key, entry := range s.jobs {
		if !entry.record.Status.Terminal() || entry.record.FinishedAt == nil {
			continue
		}
		if now.Sub(*entry.record.FinishedAt) >= retention {
			delete(s.jobs, key)
			reaped = append(reaped, key)
		}
	}
	return reaped
}

type claimedJob struct {
	record models.JobRecord
	gen    uint64
	manual bool
}

type execResult struct {
	key        models.JobKey
	gen        uint64
	manual     bool
	err        error
	firedAt    time.Time
	finishedAt time.Time
}
