package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/storefront-kit/checkout/internal/httpx/middlewares"
)

// NewRouter wires the checkout routes and wraps the whole router in otelhttp
// so every request gets a server span.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachRequestMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/checkout", handler.Checkout)
	r.Get("/checkout/{id}", handler.GetCheckout)
	r.Get("/checkout/{id}/history", handler.GetCheckoutHistory)

	return otelhttp.NewHandler(r, "checkout-api")
}
