package scheduler

import (
	"context"

	"turnq/internal/models"
)

// Journal persists job records so pending one-shot work survives a
// restart. The scheduler writes through on every state change and
// restores pending records at startup. Recurring jobs are not restored;
// callers re-register them idempotently on boot.
type Journal interface {
	Record(ctx context.Context, record models.JobRecord) error
	Remove(ctx context.Context, key models.JobKey) error
	Restore(ctx context.Context) ([]models.JobRecord, error)
}
