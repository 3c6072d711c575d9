// Package postgres persists scheduler job records so pending one-shot
// work survives a restart.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"turnq/internal/models"
	"turnq/internal/state"
	"turnq/internal/trigger"
)

const (
	triggerOnce  = "once"
	triggerEvery = "every"
	triggerCron  = "cron"
)

type PostgresJobJournal struct {
	db *sql.DB
}

func NewPostgresJobJournal(db *sql.DB) *PostgresJobJournal {
	return &PostgresJobJournal{db: db}
}

// Record upserts a snapshot of the job record keyed by (group, id).
func (j *PostgresJobJournal) Record(ctx context.Context, record models.JobRecord) error {
	payload, err := json.Marshal(record.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	kind, fireAt, intervalSeconds, expression := describeTrigger(record.Trigger)

	query := `
		INSERT INTO turnq_schema.scheduled_jobs (
			job_id, job_group, kind, payload, status,
			trigger_kind, fire_at, interval_seconds, expression,
			next_fire_at, previous_fire_at, last_error, created_at, finished_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (job_group, job_id) DO UPDATE SET
			kind = $3,
			payload = $4,
			status = $5,
			trigger_kind = $6,
			fire_at = $7,
			interval_seconds = $8,
			expression = $9,
			next_fire_at = $10,
			previous_fire_at = $11,
			last_error = $12,
			finished_at = $14
	`
	_, err = j.db.ExecContext(ctx, query,
		record.Key.ID, record.Key.Group, record.Payload.Kind, payload, record.Status,
		kind, fireAt, intervalSeconds, expression,
		record.NextFireAt, record.PreviousFireAt, nullableError(record.LastError),
		record.CreatedAt, record.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to journal job %s: %w", record.Key, err)
	}
	return nil
}

func (j *PostgresJobJournal) Remove(ctx context.Context, key models.JobKey) error {
	_, err := j.db.ExecContext(ctx,
		`DELETE FROM turnq_schema.scheduled_jobs WHERE job_group = $1 AND job_id = $2`,
		key.Group, key.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove journaled job %s: %w", key, err)
	}
	return nil
}

// Restore loads pending one-shot records. Recurring jobs are skipped:
// they are re-registered idempotently at startup instead.
func (j *PostgresJobJournal) Restore(ctx context.Context) ([]models.JobRecord, error) {
	query := `
		SELECT job_id, job_group, payload, status,
		       fire_at, next_fire_at, previous_fire_at, last_error, created_at
		FROM turnq_schema.scheduled_jobs
		WHERE trigger_kind = $1 AND status IN ($2, $3)
	`
	rows, err := j.db.QueryContext(ctx, query, triggerOnce, state.StatusScheduled, state.StatusPaused)
	if err != nil {
		return nil, fmt.Errorf("failed to load journaled jobs: %w", err)
	}
	defer rows.Close()

	var records []models.JobRecord
	for rows.Next() {
		var (
			record    models.JobRecord
			payload   []byte
			fireAt    time.Time
			lastError sql.NullString
		)
		err := rows.Scan(
			&record.Key.ID, &record.Key.Group, &payload, &record.Status,
			&fireAt, &record.NextFireAt, &record.PreviousFireAt, &lastError, &record.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &record.Payload); err != nil {
			return nil, fmt.Errorf("invalid payload for job %s: %w", record.Key, err)
		}
		record.Trigger = trigger.Once{At: fireAt}
		record.LastError = lastError.String
		records = append(records, record)
	}
	return records, rows.Err()
}

func describeTrigger(rule trigger.Rule) (kind string, fireAt *time.Time, intervalSeconds *int64, expression *string) {
	switch r := rule.(type) {
	case trigger.Once:
		at := r.At
		return triggerOnce, &at, nil, nil
	case trigger.Every:
		seconds := int64(r.Interval / time.Second)
		return triggerEvery, nil, &seconds, nil
	case trigger.Cron:
		expr := r.Expression
		return triggerCron, nil, nil, &expr
	default:
		return "unknown", nil, nil, nil
	}
}

func nullableError(message string) sql.NullString {
	return sql.NullString{String: message, Valid: message != ""}
}
