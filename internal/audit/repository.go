package audit

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists webhook log entries.
type Repository interface {
	Insert(ctx context.Context, e Entry) error
	ListByStore(ctx context.Context, storeID int64, limit int) ([]Entry, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db dbtx
}

// NewRepository returns a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) Insert(ctx context.Context, e Entry) error {
	payload := e.Payload
	if payload == nil {
		payload = []byte("null")
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO webhook_logs (store_id, topic, external_id, payload, received_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))`,
		e.StoreID, e.Topic, e.ExternalID, payload, timeOrNil(e))
	return err
}

func (r *repository) ListByStore(ctx context.Context, storeID int64, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, store_id, topic, external_id, payload, received_at
		FROM webhook_logs WHERE store_id = $1 ORDER BY id DESC LIMIT $2`,
		storeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var receivedAt pgtype.Timestamptz
		if err := rows.Scan(&e.ID, &e.StoreID, &e.Topic, &e.ExternalID, &e.Payload, &receivedAt); err != nil {
			return nil, err
		}
		if receivedAt.Valid {
			e.ReceivedAt = receivedAt.Time
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func timeOrNil(e Entry) interface{} {
	if e.ReceivedAt.IsZero() {
		return nil
	}
	return e.ReceivedAt
}
