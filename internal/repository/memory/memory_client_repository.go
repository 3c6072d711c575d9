// Package memory holds map-backed repositories used by tests and by the
// standalone (database-less) mode.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"turnq/internal/models"
	"turnq/internal/repository"
)

type MemoryClientRepository struct {
	mu      sync.Mutex
	clients map[int64]models.Client
	nextID  int64
}

func NewMemoryClientRepository() *MemoryClientRepository {
	return &MemoryClientRepository{clients: make(map[int64]models.Client)}
}

func (r *MemoryClientRepository) FindByID(ctx context.Context, id int64) (*models.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[id]
	if !ok {
		return nil, fmt.Errorf("client %d: %w", id, repository.ErrNotFound)
	}
	return &client, nil
}

func (r *MemoryClientRepository) Save(ctx context.Context, client *models.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client.ID == 0 {
		r.nextID++
		client.ID = r.nextID
	} else if _, ok := r.clients[client.ID]; !ok {
		return fmt.Errorf("client %d: %w", client.ID, repository.ErrNotFound)
	}
	r.clients[client.ID] = *client
	return nil
}

func (r *MemoryClientRepository) FindByStatus(ctx context.Context, status models.ClientStatus) ([]models.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []models.Client
	for _, client := range r.clients {
		if client.Status == status {
			matched = append(matched, client)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].JoinedAt.Before(matched[j].JoinedAt)
	})
	return matched, nil
}

func (r *MemoryClientRepository) FindByQueueIDAndStatus(ctx context.Context, queueID int64, status models.ClientStatus) ([]models.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []models.Client
	for _, client := range r.clients {
		if client.QueueID == queueID && client.Status == status {
			matched = append(matched, client)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Position < matched[j].Position
	})
	return matched, nil
}
