// Package repository defines the persistence contracts for clients and
// queues. The core treats storage as strongly consistent read-your-writes;
// job bodies use plain read-then-write, no multi-row transactions.
package repository

import (
	"context"
	"errors"

	"turnq/internal/models"
)

var ErrNotFound = errors.New("record not found")

type ClientRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Client, error)

	// Save inserts the client when its ID is zero and updates it
	// otherwise.
	Save(ctx context.Context, client *models.Client) error

	FindByStatus(ctx context.Context, status models.ClientStatus) ([]models.Client, error)

	// FindByQueueIDAndStatus returns matching clients in join order
	// (ascending position).
	FindByQueueIDAndStatus(ctx context.Context, queueID int64, status models.ClientStatus) ([]models.Client, error)
}

type QueueRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Queue, error)
	FindByStatus(ctx context.Context, status models.QueueStatus) ([]models.Queue, error)
	FindAll(ctx context.Context) ([]models.Queue, error)
	Save(ctx context.Context, queue *models.Queue) error
}
