package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/tally/internal/auth"
	"github.com/MrJamesThe3rd/tally/internal/http/category"
	"github.com/MrJamesThe3rd/tally/internal/http/customer"
	"github.com/MrJamesThe3rd/tally/internal/http/export"
	"github.com/MrJamesThe3rd/tally/internal/http/importcsv"
	"github.com/MrJamesThe3rd/tally/internal/http/invoice"
	"github.com/MrJamesThe3rd/tally/internal/http/matching"
	"github.com/MrJamesThe3rd/tally/internal/http/middleware"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/http/settings"
	"github.com/MrJamesThe3rd/tally/internal/http/transaction"
	"github.com/MrJamesThe3rd/tally/internal/http/user"
	"github.com/MrJamesThe3rd/tally/internal/idempotency"
	"github.com/MrJamesThe3rd/tally/internal/metrics"
)

type Handlers struct {
	Invoices     *invoice.Handler
	Transactions *transaction.Handler
	Categories   *category.Handler
	Customers    *customer.Handler
	Users        *user.Handler
	Settings     *settings.Handler
	Rules        *matching.Handler
	Import       *importcsv.Handler
	Export       *export.Handler
}

// Options configures the cross-cutting middleware. Nil fields disable the
// corresponding feature.
type Options struct {
	AllowedOrigins []string
	Timeout        time.Duration
	Issuer         *auth.Issuer
	RateLimiter    *middleware.RateLimiter
	Idempotency    *idempotency.Service
	Metrics        *metrics.Metrics
	Health         func(ctx context.Context) error
}

func New(h Handlers, opts Options) http.Handler {
	router := chi.NewRouter()

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.IdempotencyHeader},
		ExposedHeaders: []string{"Idempotent-Replayed", "Retry-After"},
		MaxAge:         300,
	}))
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)

	if opts.Metrics != nil {
		router.Use(opts.Metrics.Instrument)
		router.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if opts.Health != nil {
			if err := opts.Health(r.Context()); err != nil {
				render.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}

		render.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Route("/api/v1", func(r chi.Router) {
		if opts.RateLimiter != nil {
			r.Use(opts.RateLimiter.Handler)
		}

		if opts.Timeout > 0 {
			r.Use(chimiddleware.Timeout(opts.Timeout))
		}

		r.Route("/auth", h.Users.AuthRoutes)

		r.Group(func(r chi.Router) {
			if opts.Issuer != nil {
				r.Use(middleware.Authenticate(opts.Issuer))
			}

			if opts.Idempotency != nil {
				r.Use(middleware.Idempotent(opts.Idempotency))
			}

			r.Route("/invoices", h.Invoices.Routes)
			r.Route("/payments", h.Invoices.PaymentRoutes)

			r.Route("/transactions", func(r chi.Router) {
				r.Use(chimiddleware.AllowContentType("application/json"))
				h.Transactions.Routes(r)
			})

			r.Route("/categories", h.Categories.Routes)
			r.Route("/customers", h.Customers.Routes)
			r.Route("/users", h.Users.Routes)
			r.Route("/settings", h.Settings.Routes)
			r.Route("/rules", h.Rules.Routes)
			r.Route("/import", h.Import.Routes)

			r.Route("/export", func(r chi.Router) {
				r.Use(chimiddleware.AllowContentType("application/json"))
				h.Export.Routes(r)
			})
		})
	})

	return router
}
