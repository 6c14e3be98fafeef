package webhooks

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/shoplytics/shoplytics/internal/platform/httpx"
)

// Shopify webhook headers.
const (
	HeaderShopDomain = "X-Shopify-Shop-Domain"
	HeaderHmac       = "X-Shopify-Hmac-Sha256"
	HeaderWebhookID  = "X-Shopify-Webhook-Id"
)

const maxBodyBytes = 1 << 20

// Handler adapts the Dispatcher to HTTP.
type Handler struct {
	logger     *slog.Logger
	dispatcher *Dispatcher
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, dispatcher *Dispatcher) *Handler {
	return &Handler{logger: logger, dispatcher: dispatcher}
}

// MountRoutes attaches one POST route per topic. Rate limiting keys on the
// shop domain header: a single misbehaving store cannot starve the rest.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(httprate.Limit(600, time.Minute, httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
		return r.Header.Get(HeaderShopDomain), nil
	})))

	r.Post("/customers/create", h.topic(TopicCustomersCreate))
	r.Post("/customers/update", h.topic(TopicCustomersUpdate))
	r.Post("/customers/delete", h.topic(TopicCustomersDelete))
	r.Post("/products/create", h.topic(TopicProductsCreate))
	r.Post("/products/update", h.topic(TopicProductsUpdate))
	r.Post("/orders/create", h.topic(TopicOrdersCreate))
	r.Post("/orders/updated", h.topic(TopicOrdersUpdated))
	r.Post("/orders/delete", h.topic(TopicOrdersDelete))
}

func (h *Handler) topic(topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			h.logger.Warn("read webhook body", slog.String("topic", topic), slog.Any("error", err))
			httpx.Problem(w, http.StatusBadRequest, "Malformed payload", "body unreadable")
			return
		}

		res := h.dispatcher.Dispatch(r.Context(), Delivery{
			Topic:      topic,
			Domain:     r.Header.Get(HeaderShopDomain),
			DeliveryID: r.Header.Get(HeaderWebhookID),
			Signature:  r.Header.Get(HeaderHmac),
			Body:       body,
		})
		httpx.JSON(w, res.Status, res.Body)
	}
}
