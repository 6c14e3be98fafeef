package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoplytics/shoplytics/internal/audit"
)

func TestNewStoreSyncTask(t *testing.T) {
	task, err := NewStoreSyncTask(StoreSyncPayload{StoreID: 42})
	require.NoError(t, err)
	assert.Equal(t, TaskTypeStoreSync, task.Type())

	var payload StoreSyncPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, int64(42), payload.StoreID)
}

func TestNewAuditRetryTask(t *testing.T) {
	received := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	task, err := NewAuditRetryTask(AuditRetryPayload{
		StoreID:    7,
		Topic:      "orders/create",
		ExternalID: "900",
		Payload:    json.RawMessage(`{"id":900}`),
		ReceivedAt: received,
	})
	require.NoError(t, err)
	assert.Equal(t, TaskTypeAuditRetry, task.Type())

	var payload AuditRetryPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "orders/create", payload.Topic)
	assert.Equal(t, received, payload.ReceivedAt)
}

type mockAuditRepo struct {
	insertErr error
	inserted  []audit.Entry
}

func (m *mockAuditRepo) Insert(ctx context.Context, e audit.Entry) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, e)
	return nil
}

func (m *mockAuditRepo) ListByStore(ctx context.Context, storeID int64, limit int) ([]audit.Entry, error) {
	return nil, nil
}

func TestHandleAuditRetryTask(t *testing.T) {
	repo := &mockAuditRepo{}
	handle := HandleAuditRetryTask(repo, slog.New(slog.DiscardHandler))

	task, err := NewAuditRetryTask(AuditRetryPayload{
		StoreID:    7,
		Topic:      "customers/delete",
		ExternalID: "123",
		Payload:    json.RawMessage(`{"id":123}`),
		ReceivedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	require.NoError(t, handle(context.Background(), task))
	require.Len(t, repo.inserted, 1)
	assert.Equal(t, "customers/delete", repo.inserted[0].Topic)
	assert.Equal(t, "123", repo.inserted[0].ExternalID)
}

func TestHandleAuditRetryTaskFailurePropagates(t *testing.T) {
	repo := &mockAuditRepo{insertErr: errors.New("still down")}
	handle := HandleAuditRetryTask(repo, slog.New(slog.DiscardHandler))

	task, err := NewAuditRetryTask(AuditRetryPayload{StoreID: 7, Topic: "orders/create"})
	require.NoError(t, err)

	assert.Error(t, handle(context.Background(), task), "error keeps the task on the retry schedule")
}

func TestHandleAuditRetryTaskBadPayloadSkipsRetry(t *testing.T) {
	repo := &mockAuditRepo{}
	handle := HandleAuditRetryTask(repo, slog.New(slog.DiscardHandler))

	err := handle(context.Background(), asynq.NewTask(TaskTypeAuditRetry, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, repo.inserted)
}

func TestHandleStoreSyncTaskBadPayloadSkipsRetry(t *testing.T) {
	handle := HandleStoreSyncTask(nil, slog.New(slog.DiscardHandler))

	err := handle(context.Background(), asynq.NewTask(TaskTypeStoreSync, []byte("nope")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
