package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/admin-verify/internal/config"
	httpserver "github.com/tendant/admin-verify/internal/http"
	"github.com/tendant/admin-verify/internal/notification"
	"github.com/tendant/admin-verify/pkg/auth"
	"github.com/tendant/admin-verify/pkg/repository"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx))
}

func run(ctx context.Context) int {
	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		return 1
	}

	stores, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open stores", "error", err, "session_store", cfg.SessionStore)
		return 1
	}
	defer stores.close()

	// Outbound mail
	var sender notification.Sender
	if cfg.HasSMTP() {
		sender = notification.NewSMTPSender(notification.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		})
		logger.Info("smtp delivery enabled", "host", cfg.SMTPHost)
	} else {
		sender = notification.NewLogSender(logger)
		logger.Warn("SMTP not configured, emails are written to the log")
	}

	// Initialize services
	flowCfg := auth.FlowConfig{
		CodeTTL:               cfg.Verification.CodeTTL,
		VerificationTokenTTL:  cfg.Verification.TokenTTL,
		ApprovalTTL:           cfg.Verification.ApprovalTTL,
		MaxCodeAttempts:       cfg.Verification.MaxCodeAttempts,
		ApproverEmail:         cfg.Verification.ApproverEmail,
		Roles:                 cfg.Verification.Roles,
		AppBaseURL:            cfg.AppBaseURL,
		StrictEmailValidation: cfg.Validation.StrictEmailValidation,
		BlockDisposableEmail:  cfg.Validation.BlockDisposableEmail,
	}
	deps := auth.FlowDeps{
		Sessions: stores.sessions,
		Admins:   stores.admins,
		Notifier: notification.NewMailer(sender, cfg.AppName),
		Policy:   auth.NewPasswordPolicy(cfg.PasswordPolicy),
		Logger:   logger,
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:               logger,
		SignupService:        auth.NewSignupService(flowCfg, deps),
		PasswordResetService: auth.NewPasswordResetService(flowCfg, deps),
		EmailChangeService:   auth.NewEmailChangeService(flowCfg, deps),
		TokenVerifier: auth.NewTokenVerifier(auth.TokenConfig{
			JWTSecret: []byte(cfg.JWTSecret),
			Issuer:    cfg.JWTIssuer,
		}),
		RateLimitConfig: cfg.RateLimit,
		SecurityHeaders: cfg.SecurityHeaders,
		Validation:      cfg.Validation,
		TrustProxy:      cfg.TrustProxy,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", "addr", addr, "session_store", cfg.SessionStore)
		return server.ListenAndServe()
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down server")

		// Graceful shutdown with timeout
		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		return 1
	}

	logger.Info("server stopped")
	return 0
}

type stores struct {
	sessions auth.SessionStore
	admins   auth.AdminStore
	closers  []func() error
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores connects the configured session backend. Accounts live in
// PostgreSQL except with the memory backend, which keeps everything in
// process and is meant for local development.
func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	s := &stores{}

	if !cfg.NeedsDatabase() {
		logger.Warn("using in-memory stores, data is lost on restart")
		s.sessions = repository.NewMemorySessionStore(time.Now)
		s.admins = repository.NewMemoryAdminStore()
		return s, nil
	}

	db, err := repository.NewDB(ctx, repository.DBConfig{
		URL:             cfg.DatabaseURL(),
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s.closers = append(s.closers, db.Close)
	s.admins = repository.NewAdminsRepository(db)
	logger.Info("connected to database")

	switch cfg.SessionStore {
	case config.StoreRedis:
		client, err := openRedis(ctx, cfg)
		if err != nil {
			s.close()
			return nil, err
		}
		s.closers = append(s.closers, client.Close)
		s.sessions = repository.NewRedisSessionStore(client, repository.RedisSessionStoreConfig{
			Prefix: cfg.RedisPrefix,
			MaxAge: cfg.Verification.SessionMaxAge,
		})
		logger.Info("connected to redis", "addr", cfg.RedisAddr)
	default:
		s.sessions = repository.NewVerificationSessionsRepository(db)
	}

	return s, nil
}

func openRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}
