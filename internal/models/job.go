package models

import (
	"time"

	"turnq/internal/state"
	"turnq/internal/trigger"
)

// JobKey identifies a job inside the scheduler. The same ID may exist in
// different groups.
type JobKey struct {
	ID    string
	Group string
}

func (k JobKey) String() string {
	return k.Group + "/" + k.ID
}

// JobKind tags the payload with the work to perform. Payloads are plain
// data so the store can serialize and list them without reflection.
type JobKind string

const (
	KindNotifyPostponed         JobKind = "notify_postponed"
	KindRetryNotification       JobKind = "retry_notification"
	KindRecalculateWaitingTimes JobKind = "recalculate_waiting_times"
	KindCleanExpiredClients     JobKind = "clean_expired_clients"
)

// JobPayload carries the arguments of a job body. Unused fields stay zero.
type JobPayload struct {
	Kind             JobKind `json:"kind"`
	ClientID         int64   `json:"client_id,omitempty"`
	QueueID          int64   `json:"queue_id,omitempty"`
	NotificationType string  `json:"notification_type,omitempty"`
	Attempt          int     `json:"attempt,omitempty"`
}

// JobRecord is one schedulable unit of work held by the JobStore.
type JobRecord struct {
	Key            JobKey
	Trigger        trigger.Rule
	Payload        JobPayload
	Status         state.JobStatus
	NextFireAt     *time.Time
	PreviousFireAt *time.Time
	LastError      string
	CreatedAt      time.Time
	FinishedAt     *time.Time
}

// ScheduleResult is returned by every scheduling call and by the control
// surface.
type ScheduleResult struct {
	JobID       string     `json:"job_id"`
	JobGroup    string     `json:"job_group"`
	Message     string     `json:"message"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	TriggerAt   *time.Time `json:"trigger_at,omitempty"`
	Success     bool       `json:"success"`
}
