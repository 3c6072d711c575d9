// Package service implements the queue workflows: joining, postponing,
// attending, and the recurring maintenance sweeps.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"turnq/internal/clock"
	"turnq/internal/models"
	"turnq/internal/notify"
	"turnq/internal/repository"
	"turnq/internal/validation"
)

const (
	// PostponeGroup holds the one-shot jobs that wake postponed clients.
	PostponeGroup = "postponed-clients"

	// waitingExpiry is how long an unnotified client may sit in waiting
	// before the cleanup sweep expires them.
	waitingExpiry = 30 * time.Minute
)

var (
	ErrQueueNotActive     = errors.New("queue is not active")
	ErrNoNotifiedClient   = errors.New("no notified client to attend")
	ErrInvalidPostpone    = errors.New("postpone minutes must be positive")
	ErrClientNotInWaiting = errors.New("client is not waiting")
)

// PostponeJobID names the one-shot job that notifies a postponed client
// when their chosen delay elapses.
func PostponeJobID(clientID int64) string {
	return fmt.Sprintf("postpone-client-%d", clientID)
}

// WaitEstimate is one row of a waiting-time recalculation.
type WaitEstimate struct {
	ClientID             int64 `json:"client_id"`
	Position             int   `json:"position"`
	EstimatedWaitMinutes int   `json:"estimated_wait_minutes"`
}

// JobScheduler is the slice of the scheduler the service needs.
type JobScheduler interface {
	ScheduleOnce(ctx context.Context, id, group string, at time.Time, payload models.JobPayload) (models.ScheduleResult, error)
	Cancel(ctx context.Context, id, group string) bool
}

type QueueService struct {
	queues     repository.QueueRepository
	clients    repository.ClientRepository
	sched      JobScheduler
	dispatcher *notify.Dispatcher
	clk        clock.Clock
}

func NewQueueService(queues repository.QueueRepository, clients repository.ClientRepository, sched JobScheduler, dispatcher *notify.Dispatcher, clk clock.Clock) *QueueService {
	return &QueueService{
		queues:     queues,
		clients:    clients,
		sched:      sched,
		dispatcher: dispatcher,
		clk:        clk,
	}
}

// Join adds a client to the back of an active queue. Position is a
// join-order marker: it is assigned once and never reshuffled when
// earlier clients leave.
func (s *QueueService) Join(ctx context.Context, queueID int64, name, email, phone string) (*models.Client, error) {
	queue, err := s.queues.FindByID(ctx, queueID)
	if err != nil {
		return nil, err
	}
	if queue.Status != models.QueueActive {
		s.dispatcher.NotifyJoinFailed(ctx, name, email, queueID, "queue is not active")
		return nil, fmt.Errorf("queue %d: %w", queueID, ErrQueueNotActive)
	}

	waiting, err := s.clients.FindByQueueIDAndStatus(ctx, queueID, models.ClientWaiting)
	if err != nil {
		return nil, err
	}
	position := nextPosition(waiting)

	client := &models.Client{
		Name:     name,
		Email:    email,
		Phone:    phone,
		QueueID:  queueID,
		Position: position,
		Status:   models.ClientWaiting,
		JoinedAt: s.clk.Now(),
	}
	if err := s.clients.Save(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to save joining client: %w", err)
	}

	estimated := (len(waiting) + 1) * queue.ServiceTimeMinutes()
	s.dispatcher.NotifyJoined(ctx, client, position, estimated)
	log.Printf("service: client %d joined queue %d at position %d", client.ID, queueID, position)
	return client, nil
}

// Postpone moves a waiting client aside and schedules their turn
// notification after the requested delay. Repeated postpones of the same
// client are rejected by the status guard.
func (s *QueueService) Postpone(ctx context.Context, clientID int64, minutes int) (*models.Client, error) {
	if minutes <= 0 {
		return nil, ErrInvalidPostpone
	}

	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if client.Status != models.ClientWaiting {
		return nil, fmt.Errorf("client %d is %s: %w", clientID, client.Status, ErrClientNotInWaiting)
	}

	now := s.clk.Now()
	if err := client.Transition(models.ClientPostponed); err != nil {
		return nil, err
	}
	client.PostponedAt = &now
	client.PostponeMinutes = &minutes
	if err := s.clients.Save(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to save postponed client %d: %w", clientID, err)
	}

	fireAt := now.Add(time.Duration(minutes) * time.Minute)
	_, err = s.sched.ScheduleOnce(ctx, PostponeJobID(clientID), PostponeGroup, fireAt, models.JobPayload{
		Kind:     models.KindNotifyPostponed,
		ClientID: clientID,
		QueueID:  client.QueueID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule postpone job for client %d: %w", clientID, err)
	}
	log.Printf("service: client %d postponed %d minutes, notification at %s", clientID, minutes, fireAt.Format(time.RFC3339))
	return client, nil
}

// AttendNext calls up the earliest notified client of a queue.
func (s *QueueService) AttendNext(ctx context.Context, queueID int64) (*models.Client, error) {
	notified, err := s.clients.FindByQueueIDAndStatus(ctx, queueID, models.ClientNotified)
	if err != nil {
		return nil, err
	}
	if len(notified) == 0 {
		return nil, fmt.Errorf("queue %d: %w", queueID, ErrNoNotifiedClient)
	}

	client := notified[0]
	if err := client.Transition(models.ClientAttending); err != nil {
		return nil, err
	}
	if err := s.clients.Save(ctx, &client); err != nil {
		return nil, fmt.Errorf("failed to save attending client %d: %w", client.ID, err)
	}
	return &client, nil
}

// MarkAttended finishes a client's visit.
func (s *QueueService) MarkAttended(ctx context.Context, clientID int64) (*models.Client, error) {
	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if err := client.Transition(models.ClientAttended); err != nil {
		return nil, err
	}
	if err := s.clients.Save(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to save attended client %d: %w", clientID, err)
	}
	return client, nil
}

// Leave cancels a waiting client. Any pending postpone job is dropped as
// well, though a waiting client normally has none.
func (s *QueueService) Leave(ctx context.Context, clientID int64) (*models.Client, error) {
	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if err := client.Transition(models.ClientCancelled); err != nil {
		return nil, err
	}
	if err := s.clients.Save(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to save leaving client %d: %w", clientID, err)
	}
	s.sched.Cancel(ctx, PostponeJobID(clientID), PostponeGroup)
	return client, nil
}

// RecalculateWaitingTimes recomputes the estimated wait of every waiting
// client of one queue, ordered by position, and stamps the queue as
// refreshed.
func (s *QueueService) RecalculateWaitingTimes(ctx context.Context, queueID int64) ([]WaitEstimate, error) {
	queue, err := s.queues.FindByID(ctx, queueID)
	if err != nil {
		return nil, err
	}

	waiting, err := s.clients.FindByQueueIDAndStatus(ctx, queueID, models.ClientWaiting)
	if err != nil {
		return nil, err
	}

	perClient := queue.ServiceTimeMinutes()
	estimates := make([]WaitEstimate, 0, len(waiting))
	for i, client := range waiting {
		estimates = append(estimates, WaitEstimate{
			ClientID:             client.ID,
			Position:             client.Position,
			EstimatedWaitMinutes: (i + 1) * perClient,
		})
	}

	now := s.clk.Now()
	queue.UpdatedAt = &now
	if err := s.queues.Save(ctx, queue); err != nil {
		return nil, fmt.Errorf("failed to stamp queue %d: %w", queueID, err)
	}
	return estimates, nil
}

// RecalculateAllWaitingTimes sweeps every active queue. A failing queue
// is logged and skipped so one bad row cannot starve the others.
func (s *QueueService) RecalculateAllWaitingTimes(ctx context.Context) error {
	queues, err := s.queues.FindByStatus(ctx, models.QueueActive)
	if err != nil {
		return err
	}

	var failed int
	for _, queue := range queues {
		if _, err := s.RecalculateWaitingTimes(ctx, queue.ID); err != nil {
			failed++
			log.Printf("service: waiting-time sweep failed for queue %d: %v", queue.ID, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("waiting-time sweep failed for %d of %d queues", failed, len(queues))
	}
	return nil
}

// CleanExpiredClients expires waiting clients that were never notified
// and have sat in the queue past the expiry window. Returns how many
// clients were expired.
func (s *QueueService) CleanExpiredClients(ctx context.Context) (int, error) {
	waiting, err := s.clients.FindByStatus(ctx, models.ClientWaiting)
	if err != nil {
		return 0, err
	}

	cutoff := s.clk.Now().Add(-waitingExpiry)
	errs := &validation.Error{}
	var expired int
	for _, client := range waiting {
		if client.NotifiedAt != nil || client.JoinedAt.After(cutoff) {
			continue
		}
		if err := client.Transition(models.ClientExpired); err != nil {
			log.Printf("service: cannot expire client %d: %v", client.ID, err)
			continue
		}
		// one bad record must not abort the sweep
		if err := s.clients.Save(ctx, &client); err != nil {
			log.Printf("service: failed to expire client %d: %v", client.ID, err)
			errs.Add(fmt.Errorf("failed to expire client %d: %w", client.ID, err))
			continue
		}
		expired++
	}
	if expired > 0 {
		log.Printf("service: cleanup expired %d clients", expired)
	}
	return expired, errs.ErrOrNil()
}

func nextPosition(waiting []models.Client) int {
	highest := 0
	for _, client := range waiting {
		if client.Position > highest {
			highest = client.Position
		}
	}
	return highest + 1
}
