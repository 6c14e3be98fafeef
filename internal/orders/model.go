package orders

import "time"

// Order is the denormalized copy of a Shopify order, scoped to a store.
// Deletes are soft.
type Order struct {
	ID         int64     `json:"id" db:"id"`
	StoreID    int64     `json:"store_id" db:"store_id"`
	ExternalID int64     `json:"external_id" db:"external_id"`
	TotalPrice *float64  `json:"total_price,omitempty" db:"total_price"`
	Currency   *string   `json:"currency,omitempty" db:"currency"`
	IsDeleted  bool      `json:"is_deleted" db:"is_deleted"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Fields carries the mutable order attributes applied by an upsert.
type Fields struct {
	ExternalID int64
	TotalPrice *float64
	Currency   *string
}
