package reset

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers password reset routes.
func (h *Handler) RegisterRoutes(r chi.Router, start, verify func(http.Handler) http.Handler) {
	r.Route("/v1/admin/password/reset", func(r chi.Router) {
		r.With(start).Post("/", h.Start)
		r.With(verify).Post("/{sessionID}/verify", h.Verify)
		r.With(verify).Post("/{sessionID}/complete", h.Complete)
	})
}
