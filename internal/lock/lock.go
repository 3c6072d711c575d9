// Package lock serializes cross-instance critical sections, most notably
// schema initialization at boot.
package lock

import "context"

// Well-known advisory lock keys.
const (
	SchemaInitLock int64 = 4217001
)

type Manager interface {
	Acquire(ctx context.Context, key int64) error
	Release(ctx context.Context, key int64) error
}

// Noop satisfies Manager for single-instance, database-less deployments.
type Noop struct{}

func (Noop) Acquire(context.Context, int64) error { return nil }
func (Noop) Release(context.Context, int64) error { return nil }
