package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	insertErr error
	inserted  []Entry
}

func (m *mockRepo) Insert(ctx context.Context, e Entry) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, e)
	return nil
}

func (m *mockRepo) ListByStore(ctx context.Context, storeID int64, limit int) ([]Entry, error) {
	return nil, nil
}

type mockEnqueuer struct {
	enqueueErr error
	entries    []Entry
}

func (m *mockEnqueuer) EnqueueAuditRetry(ctx context.Context, e Entry) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.entries = append(m.entries, e)
	return nil
}

func entry() Entry {
	return Entry{
		StoreID:    7,
		Topic:      "customers/create",
		ExternalID: "123",
		Payload:    json.RawMessage(`{"id":123}`),
	}
}

func TestRecordSyncSuccess(t *testing.T) {
	repo := &mockRepo{}
	retries := &mockEnqueuer{}
	rec := NewRecorder(repo, slog.New(slog.DiscardHandler), retries)

	ok := rec.Record(context.Background(), entry())
	assert.True(t, ok)
	assert.Len(t, repo.inserted, 1)
	assert.Empty(t, retries.entries, "no retry on success")
}

func TestRecordFailureEnqueuesRetry(t *testing.T) {
	repo := &mockRepo{insertErr: errors.New("db down")}
	retries := &mockEnqueuer{}
	rec := NewRecorder(repo, slog.New(slog.DiscardHandler), retries)

	ok := rec.Record(context.Background(), entry())
	assert.False(t, ok)
	require.Len(t, retries.entries, 1)
	assert.Equal(t, "customers/create", retries.entries[0].Topic)
}

func TestRecordFailureWithoutEnqueuer(t *testing.T) {
	repo := &mockRepo{insertErr: errors.New("db down")}
	rec := NewRecorder(repo, slog.New(slog.DiscardHandler), nil)

	assert.False(t, rec.Record(context.Background(), entry()))
}

func TestRecordEnqueueFailureStillReturns(t *testing.T) {
	repo := &mockRepo{insertErr: errors.New("db down")}
	retries := &mockEnqueuer{enqueueErr: errors.New("redis down")}
	rec := NewRecorder(repo, slog.New(slog.DiscardHandler), retries)

	assert.False(t, rec.Record(context.Background(), entry()))
}
