package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from  JobStatus
		to    JobStatus
		valid bool
	}{
		{StatusScheduled, StatusRunning, true},
		{StatusRunning, StatusSucceeded, true},
		{StatusRunning, StatusFailed, true},
		{StatusRunning, StatusScheduled, true},
		{StatusScheduled, StatusPaused, true},
		{StatusPaused, StatusScheduled, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusPaused, StatusCancelled, true},
		{StatusScheduled, StatusSucceeded, false},
		{StatusPaused, StatusRunning, false},
		{StatusCancelled, StatusScheduled, false},
		{StatusCancelled, StatusRunning, false},
	}

	for _, tt := range tests {
		got := IsValidTransition(tt.from, tt.to)
		assert.Equal(t, tt.valid, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, StatusSucceeded.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusScheduled.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.False(t, StatusPaused.Terminal())
}

func TestStatusString(t *testing.T) {
	for _, s := range AllStatuses {
		assert.NotEmpty(t, s.String())
	}
}
