// Package jobs defines the background task types and the Asynq worker that
// processes them.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/shoplytics/shoplytics/internal/audit"
	"github.com/shoplytics/shoplytics/internal/storesync"
	"github.com/shoplytics/shoplytics/internal/webhooks"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeStoreSync reconciles one store against the Admin API.
	TaskTypeStoreSync = "store:sync"
	// TaskTypeAuditRetry re-attempts a webhook log write that failed inline.
	TaskTypeAuditRetry = "audit:retry"
	// TaskTypeDedupeCleanup prunes old webhook delivery claims.
	TaskTypeDedupeCleanup = "dedupe:cleanup"
)

// DeliveryRetention is how long processed delivery ids are kept for dedupe.
const DeliveryRetention = 7 * 24 * time.Hour

// StoreSyncPayload identifies the store to reconcile.
type StoreSyncPayload struct {
	StoreID int64 `json:"store_id"`
}

// AuditRetryPayload carries the webhook log row that failed to write.
type AuditRetryPayload struct {
	StoreID    int64           `json:"store_id"`
	Topic      string          `json:"topic"`
	ExternalID string          `json:"external_id"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}

// NewStoreSyncTask constructs a store sync task.
func NewStoreSyncTask(payload StoreSyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeStoreSync, data), nil
}

// NewAuditRetryTask constructs an audit retry task.
func NewAuditRetryTask(payload AuditRetryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAuditRetry, data), nil
}

// NewDedupeCleanupTask constructs a dedupe cleanup task, typically cron-driven.
func NewDedupeCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeDedupeCleanup, nil)
}

// HandleStoreSyncTask returns the handler for TaskTypeStoreSync.
func HandleStoreSyncTask(syncs *storesync.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload StoreSyncPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		summary, err := syncs.Run(ctx, payload.StoreID)
		if err != nil {
			logger.Error("store sync task failed",
				slog.Int64("store_id", payload.StoreID),
				slog.Any("error", err))
			return err
		}
		logger.Info("store sync task done",
			slog.String("run_id", summary.RunID),
			slog.Int64("store_id", summary.StoreID))
		return nil
	}
}

// HandleAuditRetryTask returns the handler for TaskTypeAuditRetry.
func HandleAuditRetryTask(repo audit.Repository, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AuditRetryPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		err := repo.Insert(ctx, audit.Entry{
			StoreID:    payload.StoreID,
			Topic:      payload.Topic,
			ExternalID: payload.ExternalID,
			Payload:    payload.Payload,
			ReceivedAt: payload.ReceivedAt,
		})
		if err != nil {
			logger.Warn("audit retry failed",
				slog.String("topic", payload.Topic),
				slog.Any("error", err))
		}
		return err
	}
}

// HandleDedupeCleanupTask returns the handler for TaskTypeDedupeCleanup.
func HandleDedupeCleanupTask(deliveries *webhooks.DeliveryStore, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if err := deliveries.Cleanup(ctx, DeliveryRetention); err != nil {
			logger.Error("dedupe cleanup failed", slog.Any("error", err))
			return err
		}
		return nil
	}
}
