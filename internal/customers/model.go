package customers

import "time"

// Customer is the denormalized copy of a Shopify customer, scoped to a store.
// Deletes are soft: is_deleted flips to true and never silently flips back.
type Customer struct {
	ID         int64     `json:"id" db:"id"`
	StoreID    int64     `json:"store_id" db:"store_id"`
	ExternalID int64     `json:"external_id" db:"external_id"`
	Email      *string   `json:"email,omitempty" db:"email"`
	FirstName  *string   `json:"first_name,omitempty" db:"first_name"`
	LastName   *string   `json:"last_name,omitempty" db:"last_name"`
	IsDeleted  bool      `json:"is_deleted" db:"is_deleted"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Fields carries the mutable customer attributes applied by an upsert.
type Fields struct {
	ExternalID int64
	Email      *string
	FirstName  *string
	LastName   *string
}
