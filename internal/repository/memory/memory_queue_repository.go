package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"turnq/internal/models"
	"turnq/internal/repository"
)

type MemoryQueueRepository struct {
	mu     sync.Mutex
	queues map[int64]models.Queue
	nextID int64
}

func NewMemoryQueueRepository() *MemoryQueueRepository {
	return &MemoryQueueRepository{queues: make(map[int64]models.Queue)}
}

func (r *MemoryQueueRepository) FindByID(ctx context.Context, id int64) (*models.Queue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	queue, ok := r.queues[id]
	if !ok {
		return nil, fmt.Errorf("queue %d: %w", id, repository.ErrNotFound)
	}
	return &queue, nil
}

func (r *MemoryQueueRepository) FindByStatus(ctx context.Context, status models.QueueStatus) ([]models.Queue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []models.Queue
	for _, queue := range r.queues {
		if queue.Status == status {
			matched = append(matched, queue)
		}
	}
	sortQueues(matched)
	return matched, nil
}

func (r *MemoryQueueRepository) FindAll(ctx context.Context) ([]models.Queue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	queues := make([]models.Queue, 0, len(r.queues))
	for _, queue := range r.queues {
		queues = append(queues, queue)
	}
	sortQueues(queues)
	return queues, nil
}

func (r *MemoryQueueRepository) Save(ctx context.Context, queue *models.Queue) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if queue.ID == 0 {
		r.nextID++
		queue.ID = r.nextID
	} else if _, ok := r.queues[queue.ID]; !ok {
		return fmt.Errorf("queue %d: %w", queue.ID, repository.ErrNotFound)
	}
	r.queues[queue.ID] = *queue
	return nil
}

func sortQueues(queues []models.Queue) {
	sort.Slice(queues, func(i, j int) bool {
		return queues[i].ID < queues[j].ID
	})
}
