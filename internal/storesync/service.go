// Package storesync reconciles a store's entities against the Shopify Admin
// API, replaying pages through the same upsert path webhooks use, so gaps in
// webhook delivery heal on the next run.
package storesync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shoplytics/shoplytics/internal/customers"
	"github.com/shoplytics/shoplytics/internal/orders"
	"github.com/shoplytics/shoplytics/internal/platform/crypt"
	"github.com/shoplytics/shoplytics/internal/products"
	"github.com/shoplytics/shoplytics/internal/stores"
	"github.com/shoplytics/shoplytics/internal/webhooks"
)

const pageSize = 250

// AdminAPI pages entities for one store.
type AdminAPI interface {
	Customers(ctx context.Context, sinceID int64, limit int) ([]webhooks.CustomerPayload, error)
	Products(ctx context.Context, sinceID int64, limit int) ([]webhooks.ProductPayload, error)
	Orders(ctx context.Context, sinceID int64, limit int) ([]webhooks.OrderPayload, error)
}

// ClientFactory builds an AdminAPI for a shop and its unsealed token.
type ClientFactory func(shop, token string) AdminAPI

// ProductApplier applies one product plus its variant batch.
type ProductApplier interface {
	Apply(ctx context.Context, storeID int64, in products.Input) (int64, products.BatchReport, error)
}

// Summary reports one reconciliation run.
type Summary struct {
	RunID           string `json:"run_id"`
	StoreID         int64  `json:"store_id"`
	Customers       int    `json:"customers"`
	Products        int    `json:"products"`
	Orders          int    `json:"orders"`
	VariantFailures int    `json:"variant_failures"`
}

// Service runs store reconciliation.
type Service struct {
	logger    *slog.Logger
	stores    stores.Repository
	sealer    *crypt.Sealer
	clients   ClientFactory
	customers customers.Repository
	products  ProductApplier
	orders    orders.Repository
}

// ServiceParams groups the sync service dependencies.
type ServiceParams struct {
	Logger    *slog.Logger
	Stores    stores.Repository
	Sealer    *crypt.Sealer
	Clients   ClientFactory
	Customers customers.Repository
	Products  ProductApplier
	Orders    orders.Repository
}

// NewService constructs the sync service.
func NewService(p ServiceParams) *Service {
	return &Service{
		logger:    p.Logger,
		stores:    p.Stores,
		sealer:    p.Sealer,
		clients:   p.Clients,
		customers: p.Customers,
		products:  p.Products,
		orders:    p.Orders,
	}
}

// Run reconciles the store. Entity kinds page concurrently; the first error
// cancels the remaining fetches and fails the run so the job layer retries.
func (s *Service) Run(ctx context.Context, storeID int64) (Summary, error) {
	summary := Summary{RunID: uuid.NewString(), StoreID: storeID}

	store, err := s.stores.Get(ctx, storeID)
	if err != nil {
		return summary, fmt.Errorf("storesync: load store %d: %w", storeID, err)
	}
	if !store.Connected() {
		return summary, fmt.Errorf("storesync: store %s is disconnected", store.Domain)
	}

	token, err := s.sealer.Open(store.TokenSealed)
	if err != nil {
		return summary, fmt.Errorf("storesync: unseal token for %s: %w", store.Domain, err)
	}
	api := s.clients(store.Domain, string(token))

	s.logger.Info("store sync started",
		slog.String("run_id", summary.RunID),
		slog.Int64("store_id", storeID),
		slog.String("domain", store.Domain))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.syncCustomers(ctx, api, storeID)
		summary.Customers = n
		return err
	})
	g.Go(func() error {
		n, failures, err := s.syncProducts(ctx, api, storeID)
		summary.Products = n
		summary.VariantFailures = failures
		return err
	})
	g.Go(func() error {
		n, err := s.syncOrders(ctx, api, storeID)
		summary.Orders = n
		return err
	})

	if err := g.Wait(); err != nil {
		return summary, fmt.Errorf("storesync: run %s: %w", summary.RunID, err)
	}

	s.logger.Info("store sync finished",
		slog.String("run_id", summary.RunID),
		slog.Int64("store_id", storeID),
		slog.Int("customers", summary.Customers),
		slog.Int("products", summary.Products),
		slog.Int("orders", summary.Orders),
		slog.Int("variant_failures", summary.VariantFailures))
	return summary, nil
}

func (s *Service) syncCustomers(ctx context.Context, api AdminAPI, storeID int64) (int, error) {
	var count int
	var sinceID int64
	for {
		page, err := api.Customers(ctx, sinceID, pageSize)
		if err != nil {
			return count, fmt.Errorf("customers page since %d: %w", sinceID, err)
		}
		if len(page) == 0 {
			return count, nil
		}
		for _, c := range page {
			if err := s.customers.Upsert(ctx, storeID, c.Fields()); err != nil {
				return count, fmt.Errorf("upsert customer %d: %w", c.ID, err)
			}
			count++
			sinceID = c.ID
		}
	}
}

func (s *Service) syncProducts(ctx context.Context, api AdminAPI, storeID int64) (int, int, error) {
	var count, failures int
	var sinceID int64
	for {
		page, err := api.Products(ctx, sinceID, pageSize)
		if err != nil {
			return count, failures, fmt.Errorf("products page since %d: %w", sinceID, err)
		}
		if len(page) == 0 {
			return count, failures, nil
		}
		for _, p := range page {
			_, report, err := s.products.Apply(ctx, storeID, p.Input())
			if err != nil {
				return count, failures, fmt.Errorf("apply product %d: %w", p.ID, err)
			}
			failures += len(report.Failed)
			count++
			sinceID = p.ID
		}
	}
}

func (s *Service) syncOrders(ctx context.Context, api AdminAPI, storeID int64) (int, error) {
	var count int
	var sinceID int64
	for {
		page, err := api.Orders(ctx, sinceID, pageSize)
		if err != nil {
			return count, fmt.Errorf("orders page since %d: %w", sinceID, err)
		}
		if len(page) == 0 {
			return count, nil
		}
		for _, o := range page {
			if err := s.orders.Upsert(ctx, storeID, o.Fields()); err != nil {
				return count, fmt.Errorf("upsert order %d: %w", o.ID, err)
			}
			count++
			sinceID = o.ID
		}
	}
}
