package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the public routes. Only /api/v1/checkout and the per-user
// routes require a bearer token.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()

	r.Use(h.LoggingMiddleware)
	r.Use(h.RecoveryMiddleware)

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/credits/packages", h.ListPackages).Methods(http.MethodGet)
	api.HandleFunc("/webhooks/stripe", h.HandleStripeWebhook).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(h.RequireAuth)
	authed.HandleFunc("/checkout", h.CreateCheckout).Methods(http.MethodPost)
	authed.HandleFunc("/users/{userID}/credits", h.GetBalance).Methods(http.MethodGet)
	authed.HandleFunc("/users/{userID}/credits/transactions", h.ListTransactions).Methods(http.MethodGet)

	return r
}
