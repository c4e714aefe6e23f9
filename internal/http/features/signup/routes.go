package signup

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers signup routes. start, decision and verify are the
// rate limiters for the corresponding endpoint groups.
func (h *Handler) RegisterRoutes(r chi.Router, start, decision, verify func(http.Handler) http.Handler) {
	r.Route("/v1/admin/signup", func(r chi.Router) {
		r.With(start).Post("/", h.Start)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.With(decision).Get("/decision", h.ConfirmDecision)
			r.With(decision).Post("/decision", h.Decide)
			r.With(verify).Post("/verify", h.Verify)
			r.With(verify).Post("/complete", h.Complete)
		})
	})
}
