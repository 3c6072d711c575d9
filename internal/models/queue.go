package models

import "time"

type QueueType string

const (
	QueueFIFO     QueueType = "fifo"
	QueueLIFO     QueueType = "lifo"
	QueuePriority QueueType = "priority"
	QueueVIP      QueueType = "vip"
)

type QueueStatus string

const (
	QueueActive QueueStatus = "active"
	QueuePaused QueueStatus = "paused"
	QueueClosed QueueStatus = "closed"
)

const DefaultAverageServiceTimeMinutes = 10

type Queue struct {
	ID                        int64       `json:"id"`
	Name                      string      `json:"name"`
	Description               string      `json:"description,omitempty"`
	Type                      QueueType   `json:"type"`
	Status                    QueueStatus `json:"status"`
	WorkspaceID               int64       `json:"workspace_id"`
	AverageServiceTimeMinutes *int        `json:"average_service_time_minutes,omitempty"`
	CreatedAt                 time.Time   `json:"created_at"`
	UpdatedAt                 *time.Time  `json:"updated_at,omitempty"`
}

// ServiceTimeMinutes returns the configured average service time, falling
// back to the default when unset.
func (q *Queue) ServiceTimeMinutes() int {
	if q.AverageServiceTimeMinutes == nil || *q.AverageServiceTimeMinutes <= 0 {
		return DefaultAverageServiceTimeMinutes
	}
	return *q.AverageServiceTimeMinutes
}
