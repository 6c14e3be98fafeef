package audit

import (
	"context"
	"log/slog"
)

// RetryEnqueuer schedules a failed log write for a later attempt.
type RetryEnqueuer interface {
	EnqueueAuditRetry(ctx context.Context, e Entry) error
}

// Recorder writes log entries best-effort. The upsert the entry describes
// has already committed by the time Record runs, so a write failure must not
// fail the request — it is logged and handed to the retry queue instead.
type Recorder struct {
	repo    Repository
	logger  *slog.Logger
	retries RetryEnqueuer
}

// NewRecorder constructs a Recorder. retries may be nil; failures are then
// only logged.
func NewRecorder(repo Repository, logger *slog.Logger, retries RetryEnqueuer) *Recorder {
	return &Recorder{repo: repo, logger: logger, retries: retries}
}

// Record appends the entry. The returned flag reports whether the row landed
// synchronously; callers use it for observability only, never for rollback.
func (r *Recorder) Record(ctx context.Context, e Entry) bool {
	err := r.repo.Insert(ctx, e)
	if err == nil {
		return true
	}
	r.logger.Error("webhook log write failed",
		slog.Int64("store_id", e.StoreID),
		slog.String("topic", e.Topic),
		slog.String("external_id", e.ExternalID),
		slog.Any("error", err))
	if r.retries == nil {
		return false
	}
	if err := r.retries.EnqueueAuditRetry(ctx, e); err != nil {
		r.logger.Error("webhook log retry enqueue failed",
			slog.String("topic", e.Topic),
			slog.Any("error", err))
	}
	return false
}
