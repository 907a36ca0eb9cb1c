package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/halvard/fehu/internal/auth"
)

// NewRouter creates a chi router with all API routes mounted.
// Reads are public; mutations require a session; delete and the audit log
// additionally require the admin role. authEnabled=false turns the whole
// gate off for local development. sseHandler, if non-nil, is mounted at
// GET /events.
func NewRouter(h *Handler, sessions *auth.SessionStore, authEnabled bool, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(SessionMiddleware(sessions, authEnabled))

	// Session management.
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)

	// Public read-only catalog access.
	r.Get("/products", h.ListProducts)
	r.Get("/products/search", h.SearchProducts)
	r.Get("/products/{id}", h.GetProduct)

	// Authenticated mutations.
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth)
		r.Post("/products", h.CreateProduct)
		r.Put("/products/{id}", h.UpdateProduct)

		// Admin only.
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(auth.RoleAdmin))
			r.Delete("/products/{id}", h.DeleteProduct)
			r.Get("/audit", h.Audit)
		})
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
