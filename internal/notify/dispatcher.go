package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"turnq/internal/clock"
	"turnq/internal/models"
	"turnq/internal/repository"
	"turnq/internal/retry"
)

// ErrTerminalDelivery marks a notification whose retry budget ran out.
// The client record is left untouched so staff can reach out manually.
var ErrTerminalDelivery = errors.New("notification delivery failed after final retry")

const (
	// RetryGroup holds the one-shot retry jobs spawned by failed deliveries.
	RetryGroup = "notification-retries"

	yourTurnMessage = "It's your turn! Please proceed to the counter."
)

// RetryJobID names the retry job for a given client and attempt. Attempt
// numbers start at 1 for the first retry, so repeated failures produce
// distinct job ids inside RetryGroup.
func RetryJobID(clientID int64, attempt int) string {
	return fmt.Sprintf("notify-retry-%d-%d", clientID, attempt)
}

// JobScheduler is the slice of the scheduler the dispatcher needs to
// enqueue retries.
type JobScheduler interface {
	ScheduleOnce(ctx context.Context, id, group string, at time.Time, payload models.JobPayload) (models.ScheduleResult, error)
}

// Dispatcher sends turn notifications and turns failed deliveries into
// scheduled retries with exponentially growing delays.
type Dispatcher struct {
	clients   repository.ClientRepository
	transport Transport
	sched     JobScheduler
	policy    retry.Policy
	clk       clock.Clock
}

func NewDispatcher(clients repository.ClientRepository, transport Transport, sched JobScheduler, policy retry.Policy, clk clock.Clock) *Dispatcher {
	return &Dispatcher{
		clients:   clients,
		transport: transport,
		sched:     sched,
		policy:    policy,
		clk:       clk,
	}
}

// NotifyPostponedClient is the body of a postpone-client job. It re-reads
// the client at fire time: a client that left the queue or was served in
// the meantime makes the job a no-op.
func (d *Dispatcher) NotifyPostponedClient(ctx context.Context, clientID int64) error {
	client, err := d.clients.FindByID(ctx, clientID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Printf("notify: client %d gone before postpone fired, skipping", clientID)
		return nil
	}
	if err != nil {
		return err
	}
	if client.Status != models.ClientPostponed {
		log.Printf("notify: client %d is %s, not postponed, skipping", clientID, client.Status)
		return nil
	}
	return d.attempt(ctx, client, TypeYourTurn, 0)
}

// RetryNotification is the body of a notification-retry job. Attempt is
// the retry number the job represents (1-based).
func (d *Dispatcher) RetryNotification(ctx context.Context, clientID int64, notifType string, attempt int) error {
	client, err := d.clients.FindByID(ctx, clientID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Printf("notify: client %d gone before retry %d fired, skipping", clientID, attempt)
		return nil
	}
	if err != nil {
		return err
	}
	if client.Status != models.ClientPostponed {
		log.Printf("notify: client %d is %s, retry %d obsolete, skipping", clientID, client.Status, attempt)
		return nil
	}
	return d.attempt(ctx, client, notifType, attempt)
}

// NotifyJoined confirms a successful queue join. Delivery here is best
// effort and never retried.
func (d *Dispatcher) NotifyJoined(ctx context.Context, client *models.Client, position int, estimatedWaitMinutes int) {
	message := fmt.Sprintf("You joined the queue at position %d. Estimated wait: %d minutes.", position, estimatedWaitMinutes)
	delivered, err := d.transport.Send(ctx, client, TypeJoinSuccess, message)
	if err != nil || !delivered {
		log.Printf("notify: join confirmation for client %d not delivered", client.ID)
	}
}

// NotifyJoinFailed tells a would-be client why their join was rejected.
// No client record exists yet, so the send goes to the contact details
// from the request. Best effort, never retried.
func (d *Dispatcher) NotifyJoinFailed(ctx context.Context, name, email string, queueID int64, reason string) {
	client := &models.Client{Name: name, Email: email, QueueID: queueID}
	message := fmt.Sprintf("Could not join the queue: %s.", reason)
	delivered, err := d.transport.Send(ctx, client, TypeJoinFailure, message)
	if err != nil || !delivered {
		log.Printf("notify: join failure notice for %s not delivered", email)
	}
}

// attempt sends one notification. On success the client becomes notified;
// on failure the next retry is scheduled, or ErrTerminalDelivery is
// returned once the policy is exhausted.
func (d *Dispatcher) attempt(ctx context.Context, client *models.Client, notifType string, attempt int) error {
	delivered, err := d.transport.Send(ctx, client, notifType, yourTurnMessage)
	if err != nil {
		log.Printf("notify: transport error for client %d attempt %d: %v", client.ID, attempt, err)
		delivered = false
	}

	if delivered {
		if err := client.Transition(models.ClientNotified); err != nil {
			return err
		}
		now := d.clk.Now()
		client.NotifiedAt = &now
		if err := d.clients.Save(ctx, client); err != nil {
			return fmt.Errorf("failed to persist notified client %d: %w", client.ID, err)
		}
		log.Printf("notify: client %d notified on attempt %d", client.ID, attempt)
		return nil
	}

	if d.policy.Exhausted(attempt) {
		return fmt.Errorf("client %d, attempt %d: %w", client.ID, attempt, ErrTerminalDelivery)
	}

	next := attempt + 1
	fireAt := d.clk.Now().Add(d.policy.NextDelay(next))
	_, err = d.sched.ScheduleOnce(ctx, RetryJobID(client.ID, next), RetryGroup, fireAt, models.JobPayload{
		Kind:             models.KindRetryNotification,
		ClientID:         client.ID,
		NotificationType: notifType,
		Attempt:          next,
	})
	if err != nil {
		return fmt.Errorf("failed to schedule retry %d for client %d: %w", next, client.ID, err)
	}
	log.Printf("notify: client %d attempt %d failed, retry %d at %s", client.ID, attempt, next, fireAt.Format(time.RFC3339))
	return nil
}
