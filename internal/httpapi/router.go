package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the storefront's cart API.
func NewRouter(cart *CartHandler, checkout *CheckoutHandler, mergeH *MergeHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Compress(5))
	r.Use(MockAuthMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", cart.GetCart)
		r.Delete("/", cart.ClearCart)
		r.Post("/items", cart.AddItem)
		r.Put("/items/{product_id}", cart.UpdateQuantity)
		r.Delete("/items/{product_id}", cart.RemoveItem)
		r.Post("/validate", cart.Validate)
		r.Post("/validate/apply", cart.ApplyValidation)
		r.Post("/merge", mergeH.MergeOnSignIn)
	})

	r.Route("/checkout", func(r chi.Router) {
		r.Get("/shipping-methods", checkout.ShippingMethods)
		r.Post("/quote", checkout.Quote)
	})

	return r
}
