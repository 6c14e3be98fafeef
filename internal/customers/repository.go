package customers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no customer matches the lookup.
var ErrNotFound = errors.New("customer not found")

// Repository applies webhook-driven customer changes.
type Repository interface {
	Upsert(ctx context.Context, storeID int64, fields Fields) error
	SoftDelete(ctx context.Context, storeID, externalID int64) error
	GetByExternalID(ctx context.Context, storeID, externalID int64) (*Customer, error)
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
// branch deliberately leaves is_deleted untouched: a late update webhook for
// a soft-deleted customer refreshes the fields without resurrecting the row.
func (r *repository) Upsert(ctx context.Context, storeID int64, fields Fields) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO customers (store_id, external_id, email, first_name, last_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (store_id, external_id) DO UPDATE
		SET email = EXCLUDED.email,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    updated_at = NOW()`,
		storeID, fields.ExternalID, textOrNull(fields.Email), textOrNull(fields.FirstName), textOrNull(fields.LastName))
	return err
}

// SoftDelete flips is_deleted. Zero rows affected is a success: the delete
// may reference a customer never seen, or one already deleted.
func (r *repository) SoftDelete(ctx context.Context, storeID, externalID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE customers SET is_deleted = TRUE, updated_at = NOW()
		WHERE store_id = $1 AND external_id = $2 AND NOT is_deleted`,
		storeID, externalID)
	return err
}

func (r *repository) GetByExternalID(ctx context.Context, storeID, externalID int64) (*Customer, error) {
	var c Customer
	var email, first, last pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz

	err := r.db.QueryRow(ctx, `
		SELECT id, store_id, external_id, email, first_name, last_name, is_deleted, created_at, updated_at
		FROM customers WHERE store_id = $1 AND external_id = $2`,
		storeID, externalID).
		Scan(&c.ID, &c.StoreID, &c.ExternalID, &email, &first, &last, &c.IsDeleted, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if email.Valid {
		c.Email = &email.String
	}
	if first.Valid {
		c.FirstName = &first.String
	}
	if last.Valid {
		c.LastName = &last.String
	}
	if createdAt.Valid {
		c.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		c.UpdatedAt = updatedAt.Time
	}
	return &c, nil
}

func textOrNull(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}
