package webhooks

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateDelivery indicates this webhook delivery id was already
// processed. Shopify delivery is at-least-once; duplicates are answered 200
// without re-applying.
var ErrDuplicateDelivery = errors.New("webhook delivery already processed")

// DeliveryClaimer claims webhook delivery ids exactly once.
type DeliveryClaimer interface {
	Claim(ctx context.Context, deliveryID, domain, topic string) error
	Release(ctx context.Context, deliveryID string) error
}

// DeliveryStore persists delivery claims in Postgres, relying on the unique
// constraint for atomicity across concurrent deliveries.
type DeliveryStore struct {
	pool *pgxpool.Pool
}

// NewDeliveryStore constructs the store.
func NewDeliveryStore(pool *pgxpool.Pool) *DeliveryStore {
	return &DeliveryStore{pool: pool}
}

// Claim inserts the delivery id, returning ErrDuplicateDelivery on a unique
// violation.
func (s *DeliveryStore) Claim(ctx context.Context, deliveryID, domain, topic string) error {
	if s == nil {
		return errors.New("delivery store not initialised")
	}
	if deliveryID == "" {
		return errors.New("delivery id required")
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO webhook_deliveries (delivery_id, domain, topic, created_at) VALUES ($1, $2, $3, NOW())`, deliveryID, domain, topic)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateDelivery
		}
		return err
	}
	return nil
}

// Release removes a claim, used to roll back when the apply step fails so
// the redelivery is processed rather than swallowed as a duplicate.
func (s *DeliveryStore) Release(ctx context.Context, deliveryID string) error {
	if s == nil || deliveryID == "" {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM webhook_deliveries WHERE delivery_id = $1`, deliveryID)
	return err
}

// Cleanup removes claims older than retention.
func (s *DeliveryStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if s == nil {
		return nil
	}
	cutoff := time.Now().Add(-olderThan)
	_, err := s.pool.Exec(ctx, `DELETE FROM webhook_deliveries WHERE created_at < $1`, cutoff)
	return err
}
