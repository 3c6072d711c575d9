package lock

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("SELECT pg_advisory_lock\\(\\$1\\)").
		WithArgs(SchemaInitLock).
		WillReturnResult(sqlmock.NewResult(1, 1))

	manager := NewPostgresAdvisoryLock(db)
	require.NoError(t, manager.Acquire(context.Background(), SchemaInitLock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquireError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("SELECT pg_advisory_lock\\(\\$1\\)").
		WithArgs(SchemaInitLock).
		WillReturnError(assert.AnError)

	manager := NewPostgresAdvisoryLock(db)
	err = manager.Acquire(context.Background(), SchemaInitLock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to acquire advisory lock")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("SELECT pg_advisory_unlock\\(\\$1\\)").
		WithArgs(SchemaInitLock).
		WillReturnResult(sqlmock.NewResult(1, 1))

	manager := NewPostgresAdvisoryLock(db)
	require.NoError(t, manager.Release(context.Background(), SchemaInitLock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("SELECT pg_advisory_unlock\\(\\$1\\)").
		WithArgs(SchemaInitLock).
		WillReturnError(assert.AnError)

	manager := NewPostgresAdvisoryLock(db)
	err = manager.Release(context.Background(), SchemaInitLock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to release advisory lock")
	assert.NoError(t, mock.ExpectationsWereMet())
}
