// Package idm provides administrator verification flows as a library:
// signup with human approval, password reset and email change.
//
// Setup:
//
//  1. Run migrations from migrations/ folder using your preferred tool
//  2. Create an IDM instance and mount its handler
//
// Basic usage:
//
//	db, _ := sql.Open("postgres", "postgres://localhost/myapp?sslmode=disable")
//
//	admins, err := idm.New(idm.Config{
//	    DB:            db,
//	    JWTSecret:     "your-secret-key-at-least-32-chars",
//	    ApproverEmail: "security@example.com",
//	    Roles:         []string{"operator", "auditor"},
//	    AppBaseURL:    "https://admin.example.com",
//	    Sender:        mySMTPSender,
//	})
//	if err != nil {
//	    log.Fatal(err) // Will fail if migrations haven't been run
//	}
//
//	r := chi.NewRouter()
//	r.Mount("/", admins.Handler())
//	http.ListenAndServe(":8080", r)
//
// With sessions in Redis:
//
//	admins, err := idm.New(idm.Config{
//	    DB:    db,
//	    Redis: redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    ...
//	})
package idm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/admin-verify/internal/config"
	apphttp "github.com/tendant/admin-verify/internal/http"
	"github.com/tendant/admin-verify/internal/http/middleware"
	"github.com/tendant/admin-verify/internal/notification"
	"github.com/tendant/admin-verify/pkg/auth"
	"github.com/tendant/admin-verify/pkg/repository"
)

// Sender delivers a rendered HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Config holds the configuration for the IDM library.
type Config struct {
	// DB is the database connection holding administrator accounts (required).
	DB *sql.DB

	// Redis, when set, holds verification sessions instead of DB.
	Redis redis.UniversalClient

	// RedisPrefix namespaces session keys (default: "avs").
	RedisPrefix string

	// JWTSecret verifies access tokens for email change (required, min 32 chars).
	JWTSecret string

	// JWTIssuer is the expected issuer claim (default: "simple-idm").
	JWTIssuer string

	// ApproverEmail receives signup approval requests (required).
	ApproverEmail string

	// Roles an approver may assign (default: ["admin"]).
	Roles []string

	// AppBaseURL is the public URL approval links point at (required).
	AppBaseURL string

	// AppName prefixes email subjects.
	AppName string

	// Sender delivers email. Defaults to logging messages, which is only
	// suitable for development.
	Sender Sender

	CodeTTL              time.Duration // default: 10 minutes
	VerificationTokenTTL time.Duration // default: 15 minutes
	ApprovalTTL          time.Duration // default: 72 hours

	// SessionMaxAge bounds how long a session key lives in Redis. It must
	// cover ApprovalTTL plus the code and token lifetimes (default: the
	// larger of that sum and 96 hours).
	SessionMaxAge time.Duration

	// MaxCodeAttempts bounds wrong code submissions (default: 5, negative disables).
	MaxCodeAttempts int

	// PasswordMinLength is the minimum new password length (default: 8).
	PasswordMinLength int

	// Logger is the structured logger (default: JSON to stdout).
	Logger *slog.Logger
}

// IDM is an administrator verification instance.
type IDM struct {
	config        Config
	signup        *auth.SignupService
	passwordReset *auth.PasswordResetService
	emailChange   *auth.EmailChangeService
	verifier      *auth.TokenVerifier
}

// New creates a new IDM instance with the given configuration.
// Returns an error if required database tables don't exist.
// Run migrations first - see migrations/ folder for SQL files.
func New(cfg Config) (*IDM, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := validateSchema(cfg.DB, cfg.Redis == nil); err != nil {
		return nil, err
	}

	var sessions auth.SessionStore
	if cfg.Redis != nil {
		sessions = repository.NewRedisSessionStore(cfg.Redis, repository.RedisSessionStoreConfig{
			Prefix: cfg.RedisPrefix,
			MaxAge: cfg.SessionMaxAge,
		})
	} else {
		sessions = repository.NewVerificationSessionsRepository(cfg.DB)
	}

	maxAttempts := cfg.MaxCodeAttempts
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	flowCfg := auth.FlowConfig{
		CodeTTL:              cfg.CodeTTL,
		VerificationTokenTTL: cfg.VerificationTokenTTL,
		ApprovalTTL:          cfg.ApprovalTTL,
		MaxCodeAttempts:      maxAttempts,
		ApproverEmail:        cfg.ApproverEmail,
		Roles:                cfg.Roles,
		AppBaseURL:           cfg.AppBaseURL,
	}
	deps := auth.FlowDeps{
		Sessions: sessions,
		Admins:   repository.NewAdminsRepository(cfg.DB),
		Notifier: notification.NewMailer(cfg.Sender, cfg.AppName),
		Policy:   auth.NewPasswordPolicy(config.PasswordPolicyConfig{MinLength: cfg.PasswordMinLength}),
		Logger:   cfg.Logger,
	}

	return &IDM{
		config:        cfg,
		signup:        auth.NewSignupService(flowCfg, deps),
		passwordReset: auth.NewPasswordResetService(flowCfg, deps),
		emailChange:   auth.NewEmailChangeService(flowCfg, deps),
		verifier: auth.NewTokenVerifier(auth.TokenConfig{
			JWTSecret: []byte(cfg.JWTSecret),
			Issuer:    cfg.JWTIssuer,
		}),
	}, nil
}

// Handler returns an http.Handler serving every verification route.
//
// Routes:
//
//	POST /v1/admin/signup                                  - Request an administrator account
//	GET  /v1/admin/signup/{id}/decision                    - Approver confirmation page
//	POST /v1/admin/signup/{id}/decision                    - Approve or reject
//	POST /v1/admin/signup/{id}/verify                      - Verify the mailed code
//	POST /v1/admin/signup/{id}/complete                    - Set a password, create the account
//	POST /v1/admin/password/reset                          - Request a reset code
//	POST /v1/admin/password/reset/{id}/verify              - Verify the reset code
//	POST /v1/admin/password/reset/{id}/complete            - Set the new password
//	POST /v1/admin/me/email                                - Start an email change (protected)
//	POST /v1/admin/me/email/{id}/verify-current            - Verify the current address (protected)
//	POST /v1/admin/me/email/{id}/verify-new                - Verify the new address (protected)
//	GET  /health                                           - Health check
func (i *IDM) Handler() http.Handler {
	return apphttp.NewRouter(apphttp.RouterConfig{
		Logger:               i.config.Logger,
		SignupService:        i.signup,
		PasswordResetService: i.passwordReset,
		EmailChangeService:   i.emailChange,
		TokenVerifier:        i.verifier,
		SecurityHeaders: config.SecurityHeadersConfig{
			Enabled:            true,
			FrameOptions:       "DENY",
			ContentTypeOptions: "nosniff",
			ReferrerPolicy:     "no-referrer",
		},
		Validation: config.ValidationConfig{MaxRequestBodySize: 64 * 1024},
	})
}

// SignupService returns the signup service for advanced usage.
func (i *IDM) SignupService() *auth.SignupService {
	return i.signup
}

// PasswordResetService returns the password reset service for advanced usage.
func (i *IDM) PasswordResetService() *auth.PasswordResetService {
	return i.passwordReset
}

// EmailChangeService returns the email change service for advanced usage.
func (i *IDM) EmailChangeService() *auth.EmailChangeService {
	return i.emailChange
}

// AuthMiddleware returns middleware that validates JWT access tokens.
// Use this to protect your own routes:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(admins.AuthMiddleware())
//	    r.Get("/protected", handler)
//	})
func (i *IDM) AuthMiddleware() func(http.Handler) http.Handler {
	return middleware.Auth(i.verifier)
}

// GetAccountIDFromContext extracts the administrator ID from a context.
// Use after AuthMiddleware.
func GetAccountIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	return middleware.GetAccountID(ctx)
}

func validateConfig(cfg *Config) error {
	if cfg.DB == nil {
		return errors.New("idm: DB is required")
	}
	if cfg.JWTSecret == "" {
		return errors.New("idm: JWTSecret is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return errors.New("idm: JWTSecret must be at least 32 characters")
	}
	if cfg.ApproverEmail == "" {
		return errors.New("idm: ApproverEmail is required")
	}
	if err := auth.ValidateEmail(cfg.ApproverEmail, false, false); err != nil {
		return fmt.Errorf("idm: ApproverEmail: %w", err)
	}
	if cfg.AppBaseURL == "" {
		return errors.New("idm: AppBaseURL is required")
	}
	if u, err := url.Parse(cfg.AppBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("idm: AppBaseURL must be an absolute URL")
	}
	if window := sessionWindow(cfg); cfg.SessionMaxAge != 0 && cfg.SessionMaxAge < window {
		return fmt.Errorf("idm: SessionMaxAge %s is shorter than the %s a signup may take", cfg.SessionMaxAge, window)
	}
	return nil
}

// sessionWindow is the longest a session may legitimately stay open:
// awaiting approval, then a code, then a verification token.
func sessionWindow(cfg *Config) time.Duration {
	orDefault := func(d, def time.Duration) time.Duration {
		if d == 0 {
			return def
		}
		return d
	}
	return orDefault(cfg.ApprovalTTL, auth.DefaultApprovalTTL) +
		orDefault(cfg.CodeTTL, auth.DefaultCodeTTL) +
		orDefault(cfg.VerificationTokenTTL, auth.DefaultVerificationTokenTTL)
}

func applyDefaults(cfg *Config) {
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "simple-idm"
	}
	if len(cfg.Roles) == 0 {
		cfg.Roles = []string{"admin"}
	}
	if cfg.SessionMaxAge == 0 {
		cfg.SessionMaxAge = max(sessionWindow(cfg), repository.DefaultSessionMaxAge)
	}
	if cfg.MaxCodeAttempts == 0 {
		cfg.MaxCodeAttempts = auth.DefaultMaxCodeAttempts
	}
	if cfg.PasswordMinLength == 0 {
		cfg.PasswordMinLength = 8
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	if cfg.Sender == nil {
		cfg.Sender = notification.NewLogSender(cfg.Logger)
	}
}

// validateSchema checks that required database tables exist.
func validateSchema(db *sql.DB, withSessions bool) error {
	requiredTables := []string{"admins"}
	if withSessions {
		requiredTables = append(requiredTables, "verification_sessions")
	}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = $1
	`

	for _, table := range requiredTables {
		var name string
		err := db.QueryRow(query, table).Scan(&name)
		if err == sql.ErrNoRows {
			return fmt.Errorf("idm: missing table '%s' - run migrations first (see migrations/ folder)", table)
		}
		if err != nil {
			return fmt.Errorf("idm: failed to check schema: %w", err)
		}
	}

	return nil
}
