package lock

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const lockTimeout = 5 * time.Second

// PostgresAdvisoryLock maps lock keys onto pg_advisory_lock, blocking
// until the holder releases.
type PostgresAdvisoryLock struct {
	db *sql.DB
}

func NewPostgresAdvisoryLock(db *sql.DB) *PostgresAdvisoryLock {
	return &PostgresAdvisoryLock{db: db}
}

func (l *PostgresAdvisoryLock) Acquire(ctx context.Context, key int64) error {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	if _, err := l.db.ExecContext(ctx, "SELECT pg_advisory_lock($1)", key); err != nil {
		return fmt.Errorf("failed to acquire advisory lock %d: %w", key, err)
	}
	return nil
}

func (l *PostgresAdvisoryLock) Release(ctx context.Context, key int64) error {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	if _, err := l.db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", key); err != nil {
		return fmt.Errorf("failed to release advisory lock %d: %w", key, err)
	}
	return nil
}
