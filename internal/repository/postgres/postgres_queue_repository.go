package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"turnq/internal/models"
	"turnq/internal/repository"
)

type PostgresQueueRepository struct {
	db *sql.DB
}

func NewPostgresQueueRepository(db *sql.DB) *PostgresQueueRepository {
	return &PostgresQueueRepository{db: db}
}

const queueColumns = `
	id, name, description, type, status, workspace_id,
	average_service_time_minutes, created_at, updated_at
`

func (r *PostgresQueueRepository) FindByID(ctx context.Context, id int64) (*models.Queue, error) {
	query := `SELECT ` + queueColumns + ` FROM turnq_schema.queues WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	queue, err := scanQueue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("queue %d: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load queue %d: %w", id, err)
	}
	return queue, nil
}

func (r *PostgresQueueRepository) FindByStatus(ctx context.Context, status models.QueueStatus) ([]models.Queue, error) {
	query := `SELECT ` + queueColumns + `
		FROM turnq_schema.queues
		WHERE status = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQueues(rows)
}

func (r *PostgresQueueRepository) FindAll(ctx context.Context) ([]models.Queue, error) {
	query := `SELECT ` + queueColumns + ` FROM turnq_schema.queues ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQueues(rows)
}

func (r *PostgresQueueRepository) Save(ctx context.Context, queue *models.Queue) error {
	if queue.ID == 0 {
		query := `
			INSERT INTO turnq_schema.queues
				(name, description, type, status, workspace_id,
				 average_service_time_minutes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`
		return r.db.QueryRowContext(ctx, query,
			queue.Name, queue.Description, queue.Type, queue.Status,
			queue.WorkspaceID, queue.AverageServiceTimeMinutes,
			queue.CreatedAt, queue.UpdatedAt,
		).Scan(&queue.ID)
	}

	query := `
		UPDATE turnq_schema.queues
		SET name = $1, description = $2, type = $3, status = $4,
		    workspace_id = $5, average_service_time_minutes = $6, updated_at = $7
		WHERE id = $8
	`
	result, err := r.db.ExecContext(ctx, query,
		queue.Name, queue.Description, queue.Type, queue.Status,
		queue.WorkspaceID, queue.AverageServiceTimeMinutes, queue.UpdatedAt,
		queue.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update queue %d: %w", queue.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("queue %d: %w", queue.ID, repository.ErrNotFound)
	}
	return nil
}

func scanQueue(row rowScanner) (*models.Queue, error) {
	var queue models.Queue
	err := row.Scan(
		&queue.ID, &queue.Name, &queue.Description, &queue.Type,
		&queue.Status, &queue.WorkspaceID, &queue.AverageServiceTimeMinutes,
		&queue.CreatedAt, &queue.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &queue, nil
}

func scanQueues(rows *sql.Rows) ([]models.Queue, error) {
	var queues []models.Queue
	for rows.Next() {
		queue, err := scanQueue(rows)
		if err != nil {
			return nil, err
		}
		queues = append(queues, *queue)
	}
	return queues, rows.Err()
}
