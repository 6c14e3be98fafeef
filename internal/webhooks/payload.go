package webhooks

import (
	"golang.org/x/text/currency"

	"github.com/shoplytics/shoplytics/internal/customers"
	"github.com/shoplytics/shoplytics/internal/orders"
	"github.com/shoplytics/shoplytics/internal/products"
)

// CustomerPayload is the topic-specific body for customers/create and
// customers/update.
type CustomerPayload struct {
	ID        int64   `json:"id" validate:"required,gt=0"`
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// Fields converts the payload into upsert fields.
func (p CustomerPayload) Fields() customers.Fields {
	return customers.Fields{
		ExternalID: p.ID,
		Email:      p.Email,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
	}
}

// VariantPayload is one variant inside a product webhook. Price arrives as a
// decimal string and inventory may be absent entirely.
type VariantPayload struct {
	ID                int64   `json:"id" validate:"required,gt=0"`
	Title             *string `json:"title"`
	SKU               *string `json:"sku"`
	Price             *string `json:"price"`
	InventoryQuantity *int64  `json:"inventory_quantity"`
}

// ProductPayload is the body for products/create and products/update.
type ProductPayload struct {
	ID       int64            `json:"id" validate:"required,gt=0"`
	Title    string           `json:"title" validate:"required"`
	Variants []VariantPayload `json:"variants" validate:"dive"`
}

// Input converts the payload, parsing prices with explicit-absent semantics.
func (p ProductPayload) Input() products.Input {
	in := products.Input{
		ExternalID: p.ID,
		Title:      p.Title,
	}
	for _, v := range p.Variants {
		in.Variants = append(in.Variants, products.VariantFields{
			ExternalID:        v.ID,
			Title:             v.Title,
			SKU:               v.SKU,
			Price:             products.ParsePrice(v.Price),
			InventoryQuantity: v.InventoryQuantity,
		})
	}
	return in
}

// OrderPayload is the body for orders/create and orders/updated.
type OrderPayload struct {
	ID         int64   `json:"id" validate:"required,gt=0"`
	TotalPrice *string `json:"total_price"`
	Currency   *string `json:"currency"`
}

// Fields converts the payload. A currency code that is not valid ISO 4217 is
// stored as NULL rather than propagated.
func (p OrderPayload) Fields() orders.Fields {
	f := orders.Fields{
		ExternalID: p.ID,
		TotalPrice: products.ParsePrice(p.TotalPrice),
	}
	if p.Currency != nil {
		if _, err := currency.ParseISO(*p.Currency); err == nil {
			f.Currency = p.Currency
		}
	}
	return f
}

// DeletePayload is the body for customers/delete and orders/delete.
type DeletePayload struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

// domainPeek extracts the shop domain embedded in a payload, the fallback
// when the domain header is missing.
type domainPeek struct {
	MyshopifyDomain string `json:"myshopify_domain"`
	Domain          string `json:"domain"`
}
