package storesync

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoplytics/shoplytics/internal/customers"
	"github.com/shoplytics/shoplytics/internal/orders"
	"github.com/shoplytics/shoplytics/internal/platform/crypt"
	"github.com/shoplytics/shoplytics/internal/products"
	"github.com/shoplytics/shoplytics/internal/stores"
	"github.com/shoplytics/shoplytics/internal/webhooks"
)

type mockStores struct {
	store *stores.Store
}

func (m *mockStores) Get(ctx context.Context, id int64) (*stores.Store, error) {
	if m.store == nil || m.store.ID != id {
		return nil, stores.ErrNotFound
	}
	return m.store, nil
}

func (m *mockStores) GetByDomain(ctx context.Context, domain string) (*stores.Store, error) {
	return nil, stores.ErrNotFound
}

func (m *mockStores) List(ctx context.Context) ([]stores.Store, error) { return nil, nil }

func (m *mockStores) Upsert(ctx context.Context, domain string, sealedToken []byte, scope string) (int64, error) {
	return 0, errors.New("not implemented")
}

func (m *mockStores) Disconnect(ctx context.Context, id int64) error { return nil }

// mockAPI serves fixed entity sets one page at a time so the since_id loops
// are exercised with more than one round trip.
type mockAPI struct {
	shop      string
	token     string
	pageLimit int
	customers []webhooks.CustomerPayload
	products  []webhooks.ProductPayload
	orders    []webhooks.OrderPayload
	err       error
}

func (m *mockAPI) Customers(ctx context.Context, sinceID int64, limit int) ([]webhooks.CustomerPayload, error) {
	if m.err != nil {
		return nil, m.err
	}
	var page []webhooks.CustomerPayload
	for _, c := range m.customers {
		if c.ID > sinceID {
			page = append(page, c)
			if len(page) == m.pageLimit {
				break
			}
		}
	}
	return page, nil
}

func (m *mockAPI) Products(ctx context.Context, sinceID int64, limit int) ([]webhooks.ProductPayload, error) {
	var page []webhooks.ProductPayload
	for _, p := range m.products {
		if p.ID > sinceID {
			page = append(page, p)
			if len(page) == m.pageLimit {
				break
			}
		}
	}
	return page, nil
}

func (m *mockAPI) Orders(ctx context.Context, sinceID int64, limit int) ([]webhooks.OrderPayload, error) {
	var page []webhooks.OrderPayload
	for _, o := range m.orders {
		if o.ID > sinceID {
			page = append(page, o)
			if len(page) == m.pageLimit {
				break
			}
		}
	}
	return page, nil
}

type mockCustomers struct {
	upserted []int64
	err      error
}

func (m *mockCustomers) Upsert(ctx context.Context, storeID int64, fields customers.Fields) error {
	if m.err != nil {
		return m.err
	}
	m.upserted = append(m.upserted, fields.ExternalID)
	return nil
}

func (m *mockCustomers) SoftDelete(ctx context.Context, storeID, externalID int64) error {
	return nil
}

func (m *mockCustomers) GetByExternalID(ctx context.Context, storeID, externalID int64) (*customers.Customer, error) {
	return nil, customers.ErrNotFound
}

type mockProducts struct {
	applied  []int64
	failures int
}

func (m *mockProducts) Apply(ctx context.Context, storeID int64, in products.Input) (int64, products.BatchReport, error) {
	m.applied = append(m.applied, in.ExternalID)
	var report products.BatchReport
	for i := 0; i < m.failures; i++ {
		report.Failed = append(report.Failed, products.FailedVariant{ExternalID: int64(i), Reason: "x"})
	}
	m.failures = 0
	return in.ExternalID, report, nil
}

type mockOrders struct {
	upserted []int64
}

func (m *mockOrders) Upsert(ctx context.Context, storeID int64, fields orders.Fields) error {
	m.upserted = append(m.upserted, fields.ExternalID)
	return nil
}

func (m *mockOrders) SoftDelete(ctx context.Context, storeID, externalID int64) error { return nil }

func (m *mockOrders) GetByExternalID(ctx context.Context, storeID, externalID int64) (*orders.Order, error) {
	return nil, orders.ErrNotFound
}

type syncFixture struct {
	svc       *Service
	api       *mockAPI
	customers *mockCustomers
	products  *mockProducts
	orders    *mockOrders
	stores    *mockStores
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	sealer, err := crypt.NewSealer(make([]byte, 32))
	require.NoError(t, err)
	sealed, err := sealer.Seal([]byte("shpat_token"))
	require.NoError(t, err)

	f := &syncFixture{
		api:       &mockAPI{pageLimit: 2},
		customers: &mockCustomers{},
		products:  &mockProducts{},
		orders:    &mockOrders{},
		stores: &mockStores{store: &stores.Store{
			ID:          7,
			Domain:      "acme.myshopify.com",
			TokenSealed: sealed,
		}},
	}
	f.svc = NewService(ServiceParams{
		Logger: slog.New(slog.DiscardHandler),
		Stores: f.stores,
		Sealer: sealer,
		Clients: func(shop, token string) AdminAPI {
			f.api.shop = shop
			f.api.token = token
			return f.api
		},
		Customers: f.customers,
		Products:  f.products,
		Orders:    f.orders,
	})
	return f
}

func TestRunPagesAllEntityKinds(t *testing.T) {
	f := newSyncFixture(t)
	f.api.customers = []webhooks.CustomerPayload{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}, {ID: 5}}
	f.api.products = []webhooks.ProductPayload{{ID: 10, Title: "A"}, {ID: 11, Title: "B"}, {ID: 12, Title: "C"}}
	f.api.orders = []webhooks.OrderPayload{{ID: 20}, {ID: 21}}

	summary, err := f.svc.Run(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Customers)
	assert.Equal(t, 3, summary.Products)
	assert.Equal(t, 2, summary.Orders)
	assert.NotEmpty(t, summary.RunID)

	// The pageLimit of 2 forces several round trips; order is preserved.
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, f.customers.upserted)
	assert.Equal(t, []int64{10, 11, 12}, f.products.applied)
	assert.Equal(t, []int64{20, 21}, f.orders.upserted)
}

func TestRunUnsealsTokenForClient(t *testing.T) {
	f := newSyncFixture(t)

	_, err := f.svc.Run(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "acme.myshopify.com", f.api.shop)
	assert.Equal(t, "shpat_token", f.api.token)
}

func TestRunCountsVariantFailures(t *testing.T) {
	f := newSyncFixture(t)
	f.api.products = []webhooks.ProductPayload{{ID: 10, Title: "A"}}
	f.products.failures = 2

	summary, err := f.svc.Run(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.VariantFailures)
}

func TestRunUnknownStore(t *testing.T) {
	f := newSyncFixture(t)

	_, err := f.svc.Run(context.Background(), 99)
	assert.ErrorIs(t, err, stores.ErrNotFound)
}

func TestRunDisconnectedStore(t *testing.T) {
	f := newSyncFixture(t)
	gone := time.Now()
	f.stores.store.DisconnectedAt = &gone

	_, err := f.svc.Run(context.Background(), 7)
	require.Error(t, err)
	assert.Empty(t, f.customers.upserted)
}

func TestRunFetchErrorFailsRun(t *testing.T) {
	f := newSyncFixture(t)
	f.api.err = errors.New("admin api 500")

	_, err := f.svc.Run(context.Background(), 7)
	require.Error(t, err)
}
