package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnq/internal/clock"
	"turnq/internal/models"
	"turnq/internal/repository/memory"
	"turnq/internal/retry"
)

type scriptedTransport struct {
	outcomes []bool
	calls    int
	types    []string
}

func (t *scriptedTransport) Send(_ context.Context, _ *models.Client, notifType, _ string) (bool, error) {
	t.types = append(t.types, notifType)
	outcome := false
	if t.calls < len(t.outcomes) {
		outcome = t.outcomes[t.calls]
	}
	t.calls++
	return outcome, nil
}

type recordedSchedule struct {
	id      string
	group   string
	at      time.Time
	payload models.JobPayload
}

type recorderScheduler struct {
	scheduled []recordedSchedule
}

func (r *recorderScheduler) ScheduleOnce(_ context.Context, id, group string, at time.Time, payload models.JobPayload) (models.ScheduleResult, error) {
	r.scheduled = append(r.scheduled, recordedSchedule{id: id, group: group, at: at, payload: payload})
	return models.ScheduleResult{JobID: id, JobGroup: group, Success: true, TriggerAt: &at}, nil
}

func newTestDispatcher(t *testing.T, outcomes ...bool) (*Dispatcher, *memory.MemoryClientRepository, *scriptedTransport, *recorderScheduler, *clock.Fake) {
	t.Helper()
	clients := memory.NewMemoryClientRepository()
	transport := &scriptedTransport{outcomes: outcomes}
	sched := &recorderScheduler{}
	clk := clock.NewFake(time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC))
	d := NewDispatcher(clients, transport, sched, retry.DefaultPolicy(), clk)
	return d, clients, transport, sched, clk
}

func seedPostponedClient(t *testing.T, clients *memory.MemoryClientRepository, clk clock.Clock) *models.Client {
	t.Helper()
	postponedAt := clk.Now().Add(-10 * time.Minute)
	minutes := 10
	client := &models.Client{
		Name:            "Ada",
		Email:           "ada@example.com",
		QueueID:         1,
		Position:        3,
		Status:          models.ClientPostponed,
		JoinedAt:        clk.Now().Add(-time.Hour),
		PostponedAt:     &postponedAt,
		PostponeMinutes: &minutes,
	}
	require.NoError(t, clients.Save(context.Background(), client))
	return client
}

func TestNotifyPostponedClientDelivers(t *testing.T) {
	d, clients, transport, sched, clk := newTestDispatcher(t, true)
	client := seedPostponedClient(t, clients, clk)

	require.NoError(t, d.NotifyPostponedClient(context.Background(), client.ID))

	stored, err := clients.FindByID(context.Background(), client.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClientNotified, stored.Status)
	require.NotNil(t, stored.NotifiedAt)
	assert.Equal(t, clk.Now(), *stored.NotifiedAt)
	assert.Equal(t, 1, transport.calls)
	assert.Empty(t, sched.scheduled)
}

func TestNotifyPostponedClientSchedulesFirstRetry(t *testing.T) {
	d, clients, _, sched, clk := newTestDispatcher(t, false)
	client := seedPostponedClient(t, clients, clk)

	require.NoError(t, d.NotifyPostponedClient(context.Background(), client.ID))

	require.Len(t, sched.scheduled, 1)
	job := sched.scheduled[0]
	assert.Equal(t, RetryJobID(client.ID, 1), job.id)
	assert.Equal(t, RetryGroup, job.group)
	assert.Equal(t, clk.Now().Add(time.Minute), job.at)
	assert.Equal(t, models.KindRetryNotification, job.payload.Kind)
	assert.Equal(t, client.ID, job.payload.ClientID)
	assert.Equal(t, 1, job.payload.Attempt)

	stored, err := clients.FindByID(context.Background(), client.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClientPostponed, stored.Status)
}

func TestRetryDelaysGrowExponentially(t *testing.T) {
	d, clients, _, sched, clk := newTestDispatcher(t, false, false)
	client := seedPostponedClient(t, clients, clk)

	require.NoError(t, d.RetryNotification(context.Background(), client.ID, TypeYourTurn, 1))
	require.NoError(t, d.RetryNotification(context.Background(), client.ID, TypeYourTurn, 2))

	require.Len(t, sched.scheduled, 2)
	assert.Equal(t, RetryJobID(client.ID, 2), sched.scheduled[0].id)
	assert.Equal(t, clk.Now().Add(5*time.Minute), sched.scheduled[0].at)
	assert.Equal(t, RetryJobID(client.ID, 3), sched.scheduled[1].id)
	assert.Equal(t, clk.Now().Add(25*time.Minute), sched.scheduled[1].at)
}

func TestFinalRetryFailureIsTerminal(t *testing.T) {
	d, clients, _, sched, clk := newTestDispatcher(t, false)
	client := seedPostponedClient(t, clients, clk)

	err := d.RetryNotification(context.Background(), client.ID, TypeYourTurn, 3)
	require.ErrorIs(t, err, ErrTerminalDelivery)
	assert.Empty(t, sched.scheduled)

	stored, findErr := clients.FindByID(context.Background(), client.ID)
	require.NoError(t, findErr)
	assert.Equal(t, models.ClientPostponed, stored.Status)
}

func TestRetrySucceedsMidway(t *testing.T) {
	d, clients, _, sched, clk := newTestDispatcher(t, true)
	client := seedPostponedClient(t, clients, clk)

	require.NoError(t, d.RetryNotification(context.Background(), client.ID, TypeYourTurn, 2))

	assert.Empty(t, sched.scheduled)
	stored, err := clients.FindByID(context.Background(), client.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClientNotified, stored.Status)
}

func TestNotifyPostponedClientSkipsMissingClient(t *testing.T) {
	d, _, transport, sched, _ := newTestDispatcher(t, true)

	require.NoError(t, d.NotifyPostponedClient(context.Background(), 404))
	assert.Zero(t, transport.calls)
	assert.Empty(t, sched.scheduled)
}

func TestRetrySkipsWhenClientNoLongerPostponed(t *testing.T) {
	d, clients, transport, sched, clk := newTestDispatcher(t, true)
	client := seedPostponedClient(t, clients, clk)
	client.Status = models.ClientCancelled
	require.NoError(t, clients.Save(context.Background(), client))

	require.NoError(t, d.RetryNotification(context.Background(), client.ID, TypeYourTurn, 1))
	assert.Zero(t, transport.calls)
	assert.Empty(t, sched.scheduled)
}

func TestNotifyJoinFailedIsBestEffort(t *testing.T) {
	d, _, transport, sched, _ := newTestDispatcher(t, false)

	d.NotifyJoinFailed(context.Background(), "ada", "ada@example.com", 1, "queue is not active")

	assert.Equal(t, 1, transport.calls)
	assert.Equal(t, []string{TypeJoinFailure}, transport.types)
	assert.Empty(t, sched.scheduled)
}

func TestNotifyJoinedIsBestEffort(t *testing.T) {
	d, clients, transport, sched, clk := newTestDispatcher(t, false)
	client := seedPostponedClient(t, clients, clk)

	d.NotifyJoined(context.Background(), client, 3, 30)

	assert.Equal(t, 1, transport.calls)
	assert.Equal(t, []string{TypeJoinSuccess}, transport.types)
	assert.Empty(t, sched.scheduled)
}
