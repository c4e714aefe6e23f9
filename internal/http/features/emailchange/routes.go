package emailchange

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers email change routes. authn must identify the
// administrator for every route.
func (h *Handler) RegisterRoutes(r chi.Router, authn, start, verify func(http.Handler) http.Handler) {
	r.Route("/v1/admin/me/email", func(r chi.Router) {
		r.Use(authn)
		r.With(start).Post("/", h.Start)
		r.With(verify).Post("/{sessionID}/verify-current", h.VerifyCurrent)
		r.With(verify).Post("/{sessionID}/verify-new", h.VerifyNew)
	})
}
