package products

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no product matches the lookup.
var ErrNotFound = errors.New("product not found")

// Repository applies webhook-driven product and variant changes.
type Repository interface {
	UpsertProduct(ctx context.Context, storeID, externalID int64, title string) (int64, error)
	UpsertVariant(ctx context.Context, storeID, productID int64, fields VariantFields) error
	GetByExternalID(ctx context.Context, storeID, externalID int64) (*Product, error)
	ListVariants(ctx context.Context, storeID, productID int64) ([]Variant, error)
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

// UpsertProduct inserts or updates keyed on (store_id, external_id) and
// returns the internal id variants link against.
func (r *repository) UpsertProduct(ctx context.Context, storeID, externalID int64, title string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO products (store_id, external_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (store_id, external_id) DO UPDATE
		SET title = EXCLUDED.title, updated_at = NOW()
		RETURNING id`,
		storeID, externalID, title).Scan(&id)
	return id, err
}

func (r *repository) UpsertVariant(ctx context.Context, storeID, productID int64, fields VariantFields) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO product_variants (store_id, product_id, external_id, title, sku, price, inventory_quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (store_id, external_id) DO UPDATE
		SET product_id = EXCLUDED.product_id,
		    title = EXCLUDED.title,
		    sku = EXCLUDED.sku,
		    price = EXCLUDED.price,
		    inventory_quantity = EXCLUDED.inventory_quantity,
		    updated_at = NOW()`,
		storeID, productID, fields.ExternalID,
		textOrNull(fields.Title), textOrNull(fields.SKU),
		fields.Price, intOrNull(fields.InventoryQuantity))
	return err
}

func (r *repository) GetByExternalID(ctx context.Context, storeID, externalID int64) (*Product, error) {
	var p Product
	var createdAt, updatedAt pgtype.Timestamptz
	err := r.db.QueryRow(ctx, `
		SELECT id, store_id, external_id, title, created_at, updated_at
		FROM products WHERE store_id = $1 AND external_id = $2`,
		storeID, externalID).
		Scan(&p.ID, &p.StoreID, &p.ExternalID, &p.Title, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if createdAt.Valid {
		p.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		p.UpdatedAt = updatedAt.Time
	}
	return &p, nil
}

func (r *repository) ListVariants(ctx context.Context, storeID, productID int64) ([]Variant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, store_id, product_id, external_id, title, sku, price, inventory_quantity, created_at, updated_at
		FROM product_variants WHERE store_id = $1 AND product_id = $2 ORDER BY id`,
		storeID, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Variant
	for rows.Next() {
		var v Variant
		var title, sku pgtype.Text
		var price pgtype.Numeric
		var qty pgtype.Int8
		var createdAt, updatedAt pgtype.Timestamptz
		if err := rows.Scan(&v.ID, &v.StoreID, &v.ProductID, &v.ExternalID, &title, &sku, &price, &qty, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if title.Valid {
			v.Title = &title.String
		}
		if sku.Valid {
			v.SKU = &sku.String
		}
		if price.Valid {
			f, _ := price.Float64Value()
			v.Price = &f.Float64
		}
		if qty.Valid {
			v.InventoryQuantity = &qty.Int64
		}
		if createdAt.Valid {
			v.CreatedAt = createdAt.Time
		}
		if updatedAt.Valid {
			v.UpdatedAt = updatedAt.Time
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func textOrNull(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func intOrNull(i *int64) pgtype.Int8 {
	if i == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *i, Valid: true}
}
