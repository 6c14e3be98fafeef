package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/shoplytics/shoplytics/internal/audit"
	"github.com/shoplytics/shoplytics/internal/customers"
	"github.com/shoplytics/shoplytics/internal/orders"
	"github.com/shoplytics/shoplytics/internal/products"
	"github.com/shoplytics/shoplytics/internal/stores"
)

// Handled webhook topics.
const (
	TopicCustomersCreate = "customers/create"
	TopicCustomersUpdate = "customers/update"
	TopicCustomersDelete = "customers/delete"
	TopicProductsCreate  = "products/create"
	TopicProductsUpdate  = "products/update"
	TopicOrdersCreate    = "orders/create"
	TopicOrdersUpdated   = "orders/updated"
	TopicOrdersDelete    = "orders/delete"
)

// StoreResolver maps a shop domain to the owning store.
type StoreResolver interface {
	Resolve(ctx context.Context, domain string) (*stores.Store, error)
}

// ProductApplier applies one product webhook's product plus variant batch.
type ProductApplier interface {
	Apply(ctx context.Context, storeID int64, in products.Input) (int64, products.BatchReport, error)
}

// Recorder appends to the webhook log, best-effort.
type Recorder interface {
	Record(ctx context.Context, e audit.Entry) bool
}

// Delivery is one inbound webhook, headers already extracted, body raw.
type Delivery struct {
	Topic      string
	Domain     string
	DeliveryID string
	Signature  string
	Body       []byte
}

// Result is the terminal HTTP outcome of a dispatch.
type Result struct {
	Status int
	Body   any
}

// Dispatcher runs the per-request state machine:
// authenticate -> parse -> resolve store -> claim delivery -> apply -> audit.
// Every topic authenticates, no exemptions.
type Dispatcher struct {
	logger     *slog.Logger
	verifier   *Verifier
	stores     StoreResolver
	deliveries DeliveryClaimer
	customers  customers.Repository
	products   ProductApplier
	orders     orders.Repository
	recorder   Recorder
	validate   *validator.Validate
}

// DispatcherParams groups the dispatcher's injected collaborators.
type DispatcherParams struct {
	Logger     *slog.Logger
	Verifier   *Verifier
	Stores     StoreResolver
	Deliveries DeliveryClaimer
	Customers  customers.Repository
	Products   ProductApplier
	Orders     orders.Repository
	Recorder   Recorder
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(p DispatcherParams) *Dispatcher {
	return &Dispatcher{
		logger:     p.Logger,
		verifier:   p.Verifier,
		stores:     p.Stores,
		deliveries: p.Deliveries,
		customers:  p.Customers,
		products:   p.Products,
		orders:     p.Orders,
		recorder:   p.Recorder,
		validate:   validator.New(),
	}
}

// Dispatch processes one delivery to a terminal result.
func (d *Dispatcher) Dispatch(ctx context.Context, del Delivery) Result {
	if !d.verifier.Verify(del.Body, del.Signature) {
		d.logger.Warn("webhook signature rejected",
			slog.String("topic", del.Topic),
			slog.String("domain", del.Domain))
		return Result{Status: http.StatusUnauthorized, Body: problem("Unauthorized")}
	}

	externalID, apply, res := d.prepare(del)
	if apply == nil {
		return res
	}

	store, err := d.stores.Resolve(ctx, d.domainFor(del))
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			return Result{Status: http.StatusNotFound, Body: problem("Store not found")}
		}
		d.logger.Error("resolve store", slog.String("domain", del.Domain), slog.Any("error", err))
		return Result{Status: http.StatusInternalServerError, Body: problem("Internal error")}
	}

	if del.DeliveryID != "" {
		if err := d.deliveries.Claim(ctx, del.DeliveryID, store.Domain, del.Topic); err != nil {
			if errors.Is(err, ErrDuplicateDelivery) {
				return Result{Status: http.StatusOK, Body: map[string]any{"status": "duplicate"}}
			}
			d.logger.Error("claim delivery", slog.String("delivery_id", del.DeliveryID), slog.Any("error", err))
			return Result{Status: http.StatusInternalServerError, Body: problem("Internal error")}
		}
	}

	res = apply(ctx, store.ID)
	if res.Status >= http.StatusInternalServerError {
		// Give the redelivery a clean slate.
		if del.DeliveryID != "" {
			if err := d.deliveries.Release(ctx, del.DeliveryID); err != nil {
				d.logger.Error("release delivery claim", slog.String("delivery_id", del.DeliveryID), slog.Any("error", err))
			}
		}
		return res
	}

	logged := d.recorder.Record(ctx, audit.Entry{
		StoreID:    store.ID,
		Topic:      del.Topic,
		ExternalID: externalID,
		Payload:    json.RawMessage(del.Body),
	})
	if !logged {
		// The upsert committed; the log write is queued for retry. Report it
		// rather than pretending the ledger is current.
		if body, ok := res.Body.(map[string]any); ok {
			body["audit"] = "deferred"
		}
	}

	return res
}

type applyFunc func(ctx context.Context, storeID int64) Result

// prepare parses and validates the topic-specific body, returning the
// external id for the audit trail and the apply step. A nil applyFunc means
// the request already terminated with the returned result.
func (d *Dispatcher) prepare(del Delivery) (string, applyFunc, Result) {
	switch del.Topic {
	case TopicCustomersCreate, TopicCustomersUpdate:
		var p CustomerPayload
		if res, ok := d.decode(del, &p); !ok {
			return "", nil, res
		}
		return itoa(p.ID), func(ctx context.Context, storeID int64) Result {
			if err := d.customers.Upsert(ctx, storeID, p.Fields()); err != nil {
				return d.persistenceFailure(del, err)
			}
			return okResult()
		}, Result{}

	case TopicCustomersDelete:
		var p DeletePayload
		if res, ok := d.decode(del, &p); !ok {
			return "", nil, res
		}
		return itoa(p.ID), func(ctx context.Context, storeID int64) Result {
			if err := d.customers.SoftDelete(ctx, storeID, p.ID); err != nil {
				return d.persistenceFailure(del, err)
			}
			return okResult()
		}, Result{}

	case TopicProductsCreate, TopicProductsUpdate:
		var p ProductPayload
		if res, ok := d.decode(del, &p); !ok {
			return "", nil, res
		}
		return itoa(p.ID), func(ctx context.Context, storeID int64) Result {
			_, report, err := d.products.Apply(ctx, storeID, p.Input())
			if err != nil {
				return d.persistenceFailure(del, err)
			}
			outcome := report.Outcome()
			if outcome != products.AllSucceeded {
				d.logger.Warn("variant batch incomplete",
					slog.String("topic", del.Topic),
					slog.String("outcome", string(outcome)),
					slog.Int("applied", report.Applied),
					slog.Int("failed", len(report.Failed)))
			}
			return Result{Status: http.StatusOK, Body: map[string]any{
				"status":  "ok",
				"outcome": outcome,
				"report":  report,
			}}
		}, Result{}

	case TopicOrdersCreate, TopicOrdersUpdated:
		var p OrderPayload
		if res, ok := d.decode(del, &p); !ok {
			return "", nil, res
		}
		return itoa(p.ID), func(ctx context.Context, storeID int64) Result {
			if err := d.orders.Upsert(ctx, storeID, p.Fields()); err != nil {
				return d.persistenceFailure(del, err)
			}
			return okResult()
		}, Result{}

	case TopicOrdersDelete:
		var p DeletePayload
		if res, ok := d.decode(del, &p); !ok {
			return "", nil, res
		}
		return itoa(p.ID), func(ctx context.Context, storeID int64) Result {
			if err := d.orders.SoftDelete(ctx, storeID, p.ID); err != nil {
				return d.persistenceFailure(del, err)
			}
			return okResult()
		}, Result{}
	}

	return "", nil, Result{Status: http.StatusNotFound, Body: problem("Unknown topic")}
}

// decode unmarshals and validates the body. Malformed payloads are a client
// problem, surfaced as 400 — redelivery of the same bytes cannot succeed.
func (d *Dispatcher) decode(del Delivery, target any) (Result, bool) {
	if err := json.Unmarshal(del.Body, target); err != nil {
		d.logger.Warn("malformed webhook payload",
			slog.String("topic", del.Topic),
			slog.Any("error", err))
		return Result{Status: http.StatusBadRequest, Body: problem("Malformed payload")}, false
	}
	if err := d.validate.Struct(target); err != nil {
		d.logger.Warn("invalid webhook payload",
			slog.String("topic", del.Topic),
			slog.Any("error", err))
		return Result{Status: http.StatusBadRequest, Body: problem("Invalid payload")}, false
	}
	return Result{}, true
}

func (d *Dispatcher) persistenceFailure(del Delivery, err error) Result {
	d.logger.Error("webhook apply failed",
		slog.String("topic", del.Topic),
		slog.String("domain", del.Domain),
		slog.Any("error", err))
	return Result{Status: http.StatusInternalServerError, Body: problem("Persistence failure")}
}

// domainFor prefers the domain header and falls back to the payload's
// embedded shop domain fields.
func (d *Dispatcher) domainFor(del Delivery) string {
	if del.Domain != "" {
		return del.Domain
	}
	var peek domainPeek
	if err := json.Unmarshal(del.Body, &peek); err != nil {
		return ""
	}
	if peek.MyshopifyDomain != "" {
		return peek.MyshopifyDomain
	}
	return peek.Domain
}

func okResult() Result {
	return Result{Status: http.StatusOK, Body: map[string]any{"status": "ok"}}
}

func problem(title string) map[string]any {
	return map[string]any{"error": title}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
