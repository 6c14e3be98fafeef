package products

import "time"

// Product is the denormalized copy of a Shopify product, scoped to a store.
type Product struct {
	ID         int64     `json:"id" db:"id"`
	StoreID    int64     `json:"store_id" db:"store_id"`
	ExternalID int64     `json:"external_id" db:"external_id"`
	Title      string    `json:"title" db:"title"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Variant belongs to exactly one Product. Price and inventory are nullable:
// a payload without them stores NULL, never zero.
type Variant struct {
	ID                int64     `json:"id" db:"id"`
	StoreID           int64     `json:"store_id" db:"store_id"`
	ProductID         int64     `json:"product_id" db:"product_id"`
	ExternalID        int64     `json:"external_id" db:"external_id"`
	Title             *string   `json:"title,omitempty" db:"title"`
	SKU               *string   `json:"sku,omitempty" db:"sku"`
	Price             *float64  `json:"price,omitempty" db:"price"`
	InventoryQuantity *int64    `json:"inventory_quantity,omitempty" db:"inventory_quantity"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// VariantFields carries the mutable variant attributes applied by an upsert.
type VariantFields struct {
	ExternalID        int64
	Title             *string
	SKU               *string
	Price             *float64
	InventoryQuantity *int64
}

// Input is one product webhook's worth of data: the product plus its
// variants in payload order.
type Input struct {
	ExternalID int64
	Title      string
	Variants   []VariantFields
}
