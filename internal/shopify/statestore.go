// Package shopify implements the install flow and the Admin API client used
// by store-sync reconciliation.
package shopify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStateUnknown indicates the OAuth state nonce is missing or expired.
var ErrStateUnknown = errors.New("oauth state unknown or expired")

const statePrefix = "oauth_state:"

// StateStore keeps OAuth state nonces in Redis with a short TTL. A nonce is
// single-use: Consume removes it atomically.
type StateStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStateStore constructs the store.
func NewStateStore(rdb *redis.Client, ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateStore{rdb: rdb, ttl: ttl}
}

// Put stores the nonce against the shop domain it was issued for.
func (s *StateStore) Put(ctx context.Context, state, shop string) error {
	if state == "" || shop == "" {
		return errors.New("state and shop required")
	}
	ok, err := s.rdb.SetNX(ctx, statePrefix+state, shop, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("store oauth state: %w", err)
	}
	if !ok {
		return errors.New("oauth state collision")
	}
	return nil
}

// Consume returns the shop the nonce was issued for and deletes it.
func (s *StateStore) Consume(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", ErrStateUnknown
	}
	shop, err := s.rdb.GetDel(ctx, statePrefix+state).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrStateUnknown
		}
		return "", fmt.Errorf("consume oauth state: %w", err)
	}
	return shop, nil
}
