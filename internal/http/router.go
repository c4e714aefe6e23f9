package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/tendant/admin-verify/internal/config"
	"github.com/tendant/admin-verify/internal/http/features/emailchange"
	"github.com/tendant/admin-verify/internal/http/features/reset"
	"github.com/tendant/admin-verify/internal/http/features/signup"
	"github.com/tendant/admin-verify/internal/http/middleware"
	"github.com/tendant/admin-verify/internal/httputil"
	"github.com/tendant/admin-verify/pkg/auth"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger               *slog.Logger
	SignupService        *auth.SignupService
	PasswordResetService *auth.PasswordResetService
	EmailChangeService   *auth.EmailChangeService
	TokenVerifier        *auth.TokenVerifier
	RateLimitConfig      config.RateLimitConfig
	SecurityHeaders      config.SecurityHeadersConfig
	Validation           config.ValidationConfig
	// TrustProxy enables X-Forwarded-For / X-Real-IP handling. Rate limits
	// key on the client address, so only enable it behind a trusted proxy.
	TrustProxy bool
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.Validation.MaxRequestBodySize))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.Error(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Create rate limiters for different endpoint types
	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)
	start := rateLimiters[middleware.LimitStart]
	verify := rateLimiters[middleware.LimitVerify]
	decision := rateLimiters[middleware.LimitDecision]

	if cfg.SignupService != nil {
		signup.NewHandler(cfg.Logger, cfg.SignupService).RegisterRoutes(r, start, decision, verify)
	}

	if cfg.PasswordResetService != nil {
		reset.NewHandler(cfg.Logger, cfg.PasswordResetService).RegisterRoutes(r, start, verify)
	}

	if cfg.EmailChangeService != nil && cfg.TokenVerifier != nil {
		emailchange.NewHandler(cfg.Logger, cfg.EmailChangeService).
			RegisterRoutes(r, middleware.Auth(cfg.TokenVerifier), start, verify)
	}

	return r
}
