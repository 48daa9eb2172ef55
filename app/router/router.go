package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/2eliot/Inefablestore/app/controller"
	"github.com/2eliot/Inefablestore/metrics"
)

// Controllers groups the HTTP handlers. Store and Order are nil when the store backend is
// remote; only the checkout binding is served then.
type Controllers struct {
	Store    *controller.StoreController
	Order    *controller.OrderController
	Checkout *controller.CheckoutController
}

// Options tune the router middleware
type Options struct {
	RequestTimeout time.Duration
	Metrics        *metrics.ServerMetrics
	MetricsHandler http.Handler
}

// pingHandler handles GET /ping
func pingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// NewRouter builds the application routes
func NewRouter(controllers *Controllers, opts Options) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}

	r.Get("/ping", pingHandler)
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	if controllers.Store != nil {
		r.Route("/store", func(r chi.Router) {
			r.Get("/package/{gid}/items", controllers.Store.GetItems)
			r.Get("/items/{id}/icon", controllers.Store.GetItemIcon)
			r.Get("/rate", controllers.Store.GetRate)
			r.Get("/payments", controllers.Store.GetPayments)
			r.Get("/special/validate", controllers.Store.ValidateSpecialCode)
		})
	}

	if controllers.Order != nil {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.Order.CreateOrder)
			r.Get("/reference/{reference}/exists", controllers.Order.ReferenceExists)
		})
	}

	if controllers.Checkout != nil {
		r.Route("/checkout/{gid}", func(r chi.Router) {
			r.Get("/", controllers.Checkout.GetCheckout)
			r.Get("/link", controllers.Checkout.GetLink)
			r.Put("/selection", controllers.Checkout.UpdateSelection)
			r.Post("/discount", controllers.Checkout.ApplyDiscount)
			r.Post("/reference", controllers.Checkout.EditReference)
			r.Post("/confirm", controllers.Checkout.Confirm)
		})
	}

	return r
}
