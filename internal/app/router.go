package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/shoplytics/shoplytics/internal/shopify"
	"github.com/shoplytics/shoplytics/internal/stores"
	"github.com/shoplytics/shoplytics/internal/webhooks"
	"github.com/shoplytics/shoplytics/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	WebhookHandler *webhooks.Handler
	OAuthHandler   *shopify.OAuthHandler
	StoreHandler   *stores.Handler
	JobHandler     *jobs.Handler
}

// NewRouter constructs the chi.Router with Shoplytics defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/webhooks", params.WebhookHandler.MountRoutes)

	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(60, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		if params.OAuthHandler != nil {
			r.Route("/integrations/shopify", params.OAuthHandler.MountRoutes)
		}
		if params.StoreHandler != nil {
			r.Route("/stores", params.StoreHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
