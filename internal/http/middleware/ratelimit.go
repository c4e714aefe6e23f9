package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/tendant/admin-verify/internal/config"
	"github.com/tendant/admin-verify/internal/httputil"
)

// Rate limiter groups.
const (
	LimitStart    = "start"
	LimitVerify   = "verify"
	LimitDecision = "decision"
)

// RateLimitConfig holds rate limiting configuration for a specific endpoint type.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Logger   *slog.Logger
}

// RateLimit creates an IP-based rate limiter middleware with logging.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Requests <= 0 || cfg.Window <= 0 {
		return NoRateLimit()
	}
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("rate limit exceeded",
					"ip", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
				)
			}
			httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded. please try again later")
		}),
	)
}

// NoRateLimit returns a no-op middleware when rate limiting is disabled.
func NoRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

// CreateRateLimiters creates rate limiting middleware functions based on configuration.
// Flow starts send mail, verify endpoints accept guesses, and decision links
// are followed by approvers.
func CreateRateLimiters(cfg config.RateLimitConfig, logger *slog.Logger) map[string]func(http.Handler) http.Handler {
	if !cfg.Enabled {
		noOp := NoRateLimit()
		return map[string]func(http.Handler) http.Handler{
			LimitStart:    noOp,
			LimitVerify:   noOp,
			LimitDecision: noOp,
		}
	}

	return map[string]func(http.Handler) http.Handler{
		LimitStart: RateLimit(RateLimitConfig{
			Requests: cfg.StartRequestsPerWindow,
			Window:   time.Duration(cfg.StartWindowMinutes) * time.Minute,
			Logger:   logger,
		}),
		LimitVerify: RateLimit(RateLimitConfig{
			Requests: cfg.VerifyRequestsPerWindow,
			Window:   time.Duration(cfg.VerifyWindowMinutes) * time.Minute,
			Logger:   logger,
		}),
		LimitDecision: RateLimit(RateLimitConfig{
			Requests: cfg.DecisionRequestsPerWindow,
			Window:   time.Duration(cfg.DecisionWindowMinutes) * time.Minute,
			Logger:   logger,
		}),
	}
}
