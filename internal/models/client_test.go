package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientTransitions(t *testing.T) {
	tests := []struct {
		from  ClientStatus
		to    ClientStatus
		valid bool
	}{
		{ClientWaiting, ClientPostponed, true},
		{ClientWaiting, ClientCancelled, true},
		{ClientWaiting, ClientExpired, true},
		{ClientPostponed, ClientNotified, true},
		{ClientNotified, ClientAttending, true},
		{ClientAttending, ClientAttended, true},
		{ClientWaiting, ClientNotified, false},
		{ClientWaiting, ClientAttending, false},
		{ClientPostponed, ClientAttending, false},
		{ClientPostponed, ClientExpired, false},
		{ClientAttended, ClientWaiting, false},
		{ClientCancelled, ClientWaiting, false},
		{ClientExpired, ClientWaiting, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestClientTransitionGuards(t *testing.T) {
	c := &Client{ID: 7, Status: ClientWaiting}

	assert.NoError(t, c.Transition(ClientPostponed))
	assert.Equal(t, ClientPostponed, c.Status)

	err := c.Transition(ClientAttending)
	assert.Error(t, err)
	assert.Equal(t, ClientPostponed, c.Status, "status must be unchanged after a rejected transition")
}

func TestQueueServiceTimeDefaults(t *testing.T) {
	q := &Queue{}
	assert.Equal(t, DefaultAverageServiceTimeMinutes, q.ServiceTimeMinutes())

	fifteen := 15
	q.AverageServiceTimeMinutes = &fifteen
	assert.Equal(t, 15, q.ServiceTimeMinutes())

	zero := 0
	q.AverageServiceTimeMinutes = &zero
	assert.Equal(t, DefaultAverageServiceTimeMinutes, q.ServiceTimeMinutes())
}
