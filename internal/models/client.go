package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrIllegalTransition rejects a status change the state machine does not
// allow.
var ErrIllegalTransition = errors.New("illegal status transition")

type ClientStatus string

const (
	ClientWaiting   ClientStatus = "waiting"
	ClientPostponed ClientStatus = "postponed"
	ClientNotified  ClientStatus = "notified"
	ClientAttending ClientStatus = "attending"
	ClientAttended  ClientStatus = "attended"
	ClientCancelled ClientStatus = "cancelled"
	ClientExpired   ClientStatus = "expired"
)

func (s ClientStatus) String() string {
	return string(s)
}

// clientTransitions lists the legal status edges. Waiting has two direct
// terminal shortcuts (cancelled, expired); every other move goes through
// the intermediate states.
var clientTransitions = map[ClientStatus][]ClientStatus{
	ClientWaiting:   {ClientPostponed, ClientCancelled, ClientExpired},
	ClientPostponed: {ClientNotified},
	ClientNotified:  {ClientAttending},
	ClientAttending: {ClientAttended},
}

func (s ClientStatus) CanTransitionTo(to ClientStatus) bool {
	for _, allowed := range clientTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

type Client struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name"`
	Email           string       `json:"email"`
	Phone           string       `json:"phone"`
	QueueID         int64        `json:"queue_id"`
	Position        int          `json:"position"`
	Status          ClientStatus `json:"status"`
	JoinedAt        time.Time    `json:"joined_at"`
	PostponedAt     *time.Time   `json:"postponed_at,omitempty"`
	PostponeMinutes *int         `json:"postpone_minutes,omitempty"`
	NotifiedAt      *time.Time   `json:"notified_at,omitempty"`
}

// Transition moves the client to the given status, rejecting edges that
// are not in the state machine.
func (c *Client) Transition(to ClientStatus) error {
	if !c.Status.CanTransitionTo(to) {
		return fmt.Errorf("client %d: %w: %s -> %s", c.ID, ErrIllegalTransition, c.Status, to)
	}
	c.Status = to
	return nil
}
