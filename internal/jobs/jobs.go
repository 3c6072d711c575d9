// Package jobs binds job kinds to their bodies and registers the
// recurring maintenance sweeps.
package jobs

import (
	"context"
	"fmt"
	"log"

	"turnq/internal/models"
	"turnq/internal/notify"
	"turnq/internal/scheduler"
	"turnq/internal/service"
	"turnq/internal/trigger"
)

const (
	RecurringGroup   = "recurring-jobs"
	MaintenanceGroup = "maintenance-jobs"

	WaitingTimeJobID = "waiting-time-calculator"
	CleanupJobID     = "queue-cleanup"

	// Sweep cadences. Waiting times refresh every five minutes; expired
	// clients are swept nightly at 02:00.
	DefaultWaitingTimeCron = "0 */5 * * * *"
	DefaultCleanupCron     = "0 0 2 * * *"
)

// Register wires every job kind into the scheduler and registers the two
// recurring sweeps. Recurring registration is idempotent, so calling this
// on every boot is safe.
func Register(ctx context.Context, sched *scheduler.Scheduler, queues *service.QueueService, dispatcher *notify.Dispatcher, waitingCron, cleanupCron string) error {
	sched.RegisterHandler(models.KindNotifyPostponed, func(ctx context.Context, payload models.JobPayload) error {
		return dispatcher.NotifyPostponedClient(ctx, payload.ClientID)
	})
	sched.RegisterHandler(models.KindRetryNotification, func(ctx context.Context, payload models.JobPayload) error {
		return dispatcher.RetryNotification(ctx, payload.ClientID, payload.NotificationType, payload.Attempt)
	})
	sched.RegisterHandler(models.KindRecalculateWaitingTimes, func(ctx context.Context, _ models.JobPayload) error {
		return queues.RecalculateAllWaitingTimes(ctx)
	})
	sched.RegisterHandler(models.KindCleanExpiredClients, func(ctx context.Context, _ models.JobPayload) error {
		_, err := queues.CleanExpiredClients(ctx)
		return err
	})

	if waitingCron == "" {
		waitingCron = DefaultWaitingTimeCron
	}
	if cleanupCron == "" {
		cleanupCron = DefaultCleanupCron
	}

	waitingRule, err := trigger.NewCron(waitingCron)
	if err != nil {
		return fmt.Errorf("waiting-time cron %q: %w", waitingCron, err)
	}
	cleanupRule, err := trigger.NewCron(cleanupCron)
	if err != nil {
		return fmt.Errorf("cleanup cron %q: %w", cleanupCron, err)
	}

	if _, err := sched.ScheduleRecurring(ctx, WaitingTimeJobID, RecurringGroup, waitingRule, models.JobPayload{
		Kind: models.KindRecalculateWaitingTimes,
	}); err != nil {
		return err
	}
	if _, err := sched.ScheduleRecurring(ctx, CleanupJobID, MaintenanceGroup, cleanupRule, models.JobPayload{
		Kind: models.KindCleanExpiredClients,
	}); err != nil {
		return err
	}

	log.Printf("jobs: handlers registered, sweeps at %q and %q", waitingCron, cleanupCron)
	return nil
}
