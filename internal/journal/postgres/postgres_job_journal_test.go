package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnq/internal/models"
	"turnq/internal/state"
	"turnq/internal/trigger"
)

func TestRecordUpsertsOneShotJob(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fireAt := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	record := models.JobRecord{
		Key:        models.JobKey{ID: "postpone-client-7", Group: "postponed-clients"},
		Trigger:    trigger.Once{At: fireAt},
		Payload:    models.JobPayload{Kind: models.KindNotifyPostponed, ClientID: 7},
		Status:     state.StatusScheduled,
		NextFireAt: &fireAt,
		CreatedAt:  fireAt.Add(-15 * time.Minute),
	}

	mock.ExpectExec("INSERT INTO turnq_schema\\.scheduled_jobs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	journal := NewPostgresJobJournal(db)
	require.NoError(t, journal.Record(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveDeletesByKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM turnq_schema\\.scheduled_jobs").
		WithArgs("postponed-clients", "postpone-client-7").
		WillReturnResult(sqlmock.NewResult(0, 1))

	journal := NewPostgresJobJournal(db)
	require.NoError(t, journal.Remove(context.Background(), models.JobKey{ID: "postpone-client-7", Group: "postponed-clients"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRestoreRebuildsOnceTriggers(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fireAt := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	createdAt := fireAt.Add(-15 * time.Minute)
	payload, err := json.Marshal(models.JobPayload{Kind: models.KindNotifyPostponed, ClientID: 7})
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{
		"job_id", "job_group", "payload", "status",
		"fire_at", "next_fire_at", "previous_fire_at", "last_error", "created_at",
	}).AddRow(
		"postpone-client-7", "postponed-clients", payload, "scheduled",
		fireAt, fireAt, nil, nil, createdAt,
	)

	mock.ExpectQuery("SELECT job_id, job_group, payload, status").
		WithArgs(triggerOnce, state.StatusScheduled, state.StatusPaused).
		WillReturnRows(rows)

	journal := NewPostgresJobJournal(db)
	records, err := journal.Restore(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, models.JobKey{ID: "postpone-client-7", Group: "postponed-clients"}, record.Key)
	assert.Equal(t, models.KindNotifyPostponed, record.Payload.Kind)
	assert.Equal(t, int64(7), record.Payload.ClientID)
	assert.Equal(t, state.StatusScheduled, record.Status)
	require.IsType(t, trigger.Once{}, record.Trigger)
	assert.Equal(t, fireAt, record.Trigger.(trigger.Once).At)
	assert.False(t, record.Trigger.Recurring())
}

func TestDescribeTrigger(t *testing.T) {
	fireAt := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	kind, at, interval, expr := describeTrigger(trigger.Once{At: fireAt})
	assert.Equal(t, triggerOnce, kind)
	require.NotNil(t, at)
	assert.Equal(t, fireAt, *at)
	assert.Nil(t, interval)
	assert.Nil(t, expr)

	kind, at, interval, expr = describeTrigger(trigger.Every{Interval: 5 * time.Minute})
	assert.Equal(t, triggerEvery, kind)
	assert.Nil(t, at)
	require.NotNil(t, interval)
	assert.Equal(t, int64(300), *interval)
	assert.Nil(t, expr)

	cronRule, err := trigger.NewCron("0 0 2 * * *")
	require.NoError(t, err)
	kind, _, _, expr = describeTrigger(cronRule)
	assert.Equal(t, triggerCron, kind)
	require.NotNil(t, expr)
	assert.Equal(t, "0 0 2 * * *", *expr)
}
