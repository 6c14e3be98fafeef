package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no order matches the lookup.
var ErrNotFound = errors.New("order not found")

// Repository applies webhook-driven order changes.
type Repository interface {
	Upsert(ctx context.Context, storeID int64, fields Fields) error
	SoftDelete(ctx context.Context, storeID, externalID int64) error
	GetByExternalID(ctx context.Context, storeID, externalID int64) (*Order, error)
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

// Upsert inserts or updates keyed on (store_id, external_id). The conflict
// branch leaves is_deleted untouched, so a late update never resurrects a
// soft-deleted order.
func (r *repository) Upsert(ctx context.Context, storeID int64, fields Fields) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO orders (store_id, external_id, total_price, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (store_id, external_id) DO UPDATE
		SET total_price = EXCLUDED.total_price,
		    currency = EXCLUDED.currency,
		    updated_at = NOW()`,
		storeID, fields.ExternalID, fields.TotalPrice, textOrNull(fields.Currency))
	return err
}

// SoftDelete flips is_deleted; zero rows affected is a success.
func (r *repository) SoftDelete(ctx context.Context, storeID, externalID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE orders SET is_deleted = TRUE, updated_at = NOW()
		WHERE store_id = $1 AND external_id = $2 AND NOT is_deleted`,
		storeID, externalID)
	return err
}

func (r *repository) GetByExternalID(ctx context.Context, storeID, externalID int64) (*Order, error) {
	var o Order
	var total pgtype.Numeric
	var currency pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz

	err := r.db.QueryRow(ctx, `
		SELECT id, store_id, external_id, total_price, currency, is_deleted, created_at, updated_at
		FROM orders WHERE store_id = $1 AND external_id = $2`,
		storeID, externalID).
		Scan(&o.ID, &o.StoreID, &o.ExternalID, &total, &currency, &o.IsDeleted, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if total.Valid {
		f, _ := total.Float64Value()
		o.TotalPrice = &f.Float64
	}
	if currency.Valid {
		o.Currency = &currency.String
	}
	if createdAt.Valid {
		o.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		o.UpdatedAt = updatedAt.Time
	}
	return &o, nil
}

func textOrNull(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}
