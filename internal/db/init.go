// Package db opens the Postgres connection and initializes the schema.
// Initialization runs under a distributed advisory lock so only one
// instance applies the scripts at a time.
package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log"

	_ "github.com/lib/pq"

	"turnq/internal/lock"
)

const schema = "turnq_schema"

//go:embed schema.sql
var schemaSQL string

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, connectionURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connectionURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

// Init creates the schema and tables if they do not exist. The advisory
// lock guards against concurrent instances racing the DDL.
func Init(ctx context.Context, db *sql.DB, locker lock.Manager) error {
	if err := locker.Acquire(ctx, lock.SchemaInitLock); err != nil {
		return err
	}
	defer func() {
		if err := locker.Release(ctx, lock.SchemaInitLock); err != nil {
			log.Printf("db: release schema lock: %v", err)
		}
	}()

	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema scripts: %w", err)
	}
	return nil
}
