package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"turnq/internal/models"
	"turnq/internal/repository"
)

type PostgresClientRepository struct {
	db *sql.DB
}

func NewPostgresClientRepository(db *sql.DB) *PostgresClientRepository {
	return &PostgresClientRepository{db: db}
}

const clientColumns = `
	id, name, email, phone, queue_id, position, status,
	joined_at, postponed_at, postpone_minutes, notified_at
`

func (r *PostgresClientRepository) FindByID(ctx context.Context, id int64) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM turnq_schema.clients WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	client, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("client %d: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load client %d: %w", id, err)
	}
	return client, nil
}

func (r *PostgresClientRepository) Save(ctx context.Context, client *models.Client) error {
	if client.ID == 0 {
		query := `
			INSERT INTO turnq_schema.clients
				(name, email, phone, queue_id, position, status,
				 joined_at, postponed_at, postpone_minutes, notified_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id
		`
		return r.db.QueryRowContext(ctx, query,
			client.Name, client.Email, client.Phone, client.QueueID,
			client.Position, client.Status, client.JoinedAt,
			client.PostponedAt, client.PostponeMinutes, client.NotifiedAt,
		).Scan(&client.ID)
	}

	query := `
		UPDATE turnq_schema.clients
		SET name = $1, email = $2, phone = $3, queue_id = $4, position = $5,
		    status = $6, joined_at = $7, postponed_at = $8,
		    postpone_minutes = $9, notified_at = $10
		WHERE id = $11
	`
	result, err := r.db.ExecContext(ctx, query,
		client.Name, client.Email, client.Phone, client.QueueID,
		client.Position, client.Status, client.JoinedAt,
		client.PostponedAt, client.PostponeMinutes, client.NotifiedAt,
		client.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update client %d: %w", client.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("client %d: %w", client.ID, repository.ErrNotFound)
	}
	return nil
}

func (r *PostgresClientRepository) FindByStatus(ctx context.Context, status models.ClientStatus) ([]models.Client, error) {
	query := `SELECT ` + clientColumns + `
		FROM turnq_schema.clients
		WHERE status = $1
		ORDER BY joined_at ASC`

	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClients(rows)
}

func (r *PostgresClientRepository) FindByQueueIDAndStatus(ctx context.Context, queueID int64, status models.ClientStatus) ([]models.Client, error) {
	query := `SELECT ` + clientColumns + `
		FROM turnq_schema.clients
		WHERE queue_id = $1 AND status = $2
		ORDER BY position ASC`

	rows, err := r.db.QueryContext(ctx, query, queueID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanClients(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (*models.Client, error) {
	var client models.Client
	err := row.Scan(
		&client.ID, &client.Name, &client.Email, &client.Phone,
		&client.QueueID, &client.Position, &client.Status,
		&client.JoinedAt, &client.PostponedAt, &client.PostponeMinutes, &client.NotifiedAt,
	)
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func scanClients(rows *sql.Rows) ([]models.Client, error) {
	var clients []models.Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *client)
	}
	return clients, rows.Err()
}
