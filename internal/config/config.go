package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Session store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr      string
	ServerPort      int
	ShutdownTimeout time.Duration
	TrustProxy      bool

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// SessionStore selects where verification sessions live.
	SessionStore string

	// JWT access tokens issued by the login service
	JWTSecret string
	JWTIssuer string

	// SMTP
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	AppName    string
	AppBaseURL string

	Verification    VerificationConfig
	PasswordPolicy  PasswordPolicyConfig
	RateLimit       RateLimitConfig
	SecurityHeaders SecurityHeadersConfig
	Validation      ValidationConfig
}

// VerificationConfig holds verification flow settings.
type VerificationConfig struct {
	CodeTTL         time.Duration
	TokenTTL        time.Duration
	ApprovalTTL     time.Duration
	SessionMaxAge   time.Duration
	MaxCodeAttempts int
	ApproverEmail   string
	Roles           []string
}

// PasswordPolicyConfig holds password complexity requirements.
type PasswordPolicyConfig struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// RateLimitConfig holds per-IP rate limits for unauthenticated endpoints.
type RateLimitConfig struct {
	Enabled bool

	StartRequestsPerWindow int
	StartWindowMinutes     int

	VerifyRequestsPerWindow int
	VerifyWindowMinutes     int

	DecisionRequestsPerWindow int
	DecisionWindowMinutes     int
}

// SecurityHeadersConfig holds HTTP security header values.
type SecurityHeadersConfig struct {
	Enabled            bool
	CSP                string
	HSTSMaxAge         int
	FrameOptions       string
	ContentTypeOptions string
	ReferrerPolicy     string
	PermissionsPolicy  string
}

// ValidationConfig holds input validation settings.
type ValidationConfig struct {
	StrictEmailValidation bool
	BlockDisposableEmail  bool
	MaxRequestBodySize    int64
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr:      getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort:      getEnvInt("SERVER_PORT", 8080),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		TrustProxy:      getEnvBool("TRUST_PROXY", false),

		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 25432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "admin_verify"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPrefix:   getEnv("REDIS_PREFIX", "avs"),

		SessionStore: strings.ToLower(getEnv("SESSION_STORE", StorePostgres)),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "simple-idm"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPFromName: getEnv("SMTP_FROM_NAME", ""),

		AppName:    getEnv("APP_NAME", "Admin"),
		AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:8080"),

		Verification: VerificationConfig{
			CodeTTL:         getEnvDuration("VERIFICATION_CODE_TTL", 10*time.Minute),
			TokenTTL:        getEnvDuration("VERIFICATION_TOKEN_TTL", 15*time.Minute),
			ApprovalTTL:     getEnvDuration("APPROVAL_TTL", 72*time.Hour),
			SessionMaxAge:   getEnvDuration("VERIFICATION_SESSION_MAX_AGE", 96*time.Hour),
			MaxCodeAttempts: getEnvInt("VERIFICATION_MAX_ATTEMPTS", 5),
			ApproverEmail:   getEnv("APPROVER_EMAIL", ""),
			Roles:           getEnvList("ADMIN_ROLES", []string{"admin"}),
		},

		PasswordPolicy: PasswordPolicyConfig{
			MinLength:        getEnvInt("PASSWORD_MIN_LENGTH", 8),
			RequireUppercase: getEnvBool("PASSWORD_REQUIRE_UPPERCASE", false),
			RequireLowercase: getEnvBool("PASSWORD_REQUIRE_LOWERCASE", false),
			RequireNumber:    getEnvBool("PASSWORD_REQUIRE_NUMBER", false),
			RequireSpecial:   getEnvBool("PASSWORD_REQUIRE_SPECIAL", false),
		},

		RateLimit: RateLimitConfig{
			Enabled:                   getEnvBool("RATE_LIMIT_ENABLED", true),
			StartRequestsPerWindow:    getEnvInt("RATE_LIMIT_START_REQUESTS", 5),
			StartWindowMinutes:        getEnvInt("RATE_LIMIT_START_WINDOW_MINUTES", 15),
			VerifyRequestsPerWindow:   getEnvInt("RATE_LIMIT_VERIFY_REQUESTS", 10),
			VerifyWindowMinutes:       getEnvInt("RATE_LIMIT_VERIFY_WINDOW_MINUTES", 5),
			DecisionRequestsPerWindow: getEnvInt("RATE_LIMIT_DECISION_REQUESTS", 20),
			DecisionWindowMinutes:     getEnvInt("RATE_LIMIT_DECISION_WINDOW_MINUTES", 15),
		},

		SecurityHeaders: SecurityHeadersConfig{
			Enabled:            getEnvBool("SECURITY_HEADERS_ENABLED", true),
			CSP:                getEnv("SECURITY_CSP", "default-src 'none'; frame-ancestors 'none'"),
			HSTSMaxAge:         getEnvInt("SECURITY_HSTS_MAX_AGE", 31536000),
			FrameOptions:       getEnv("SECURITY_FRAME_OPTIONS", "DENY"),
			ContentTypeOptions: getEnv("SECURITY_CONTENT_TYPE_OPTIONS", "nosniff"),
			ReferrerPolicy:     getEnv("SECURITY_REFERRER_POLICY", "no-referrer"),
			PermissionsPolicy:  getEnv("SECURITY_PERMISSIONS_POLICY", "geolocation=(), microphone=(), camera=()"),
		},

		Validation: ValidationConfig{
			StrictEmailValidation: getEnvBool("STRICT_EMAIL_VALIDATION", false),
			BlockDisposableEmail:  getEnvBool("BLOCK_DISPOSABLE_EMAIL", false),
			MaxRequestBodySize:    int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 64*1024)),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Verification.ApproverEmail == "" {
		errs = append(errs, errors.New("APPROVER_EMAIL is required"))
	}
	if len(c.Verification.Roles) == 0 {
		errs = append(errs, errors.New("ADMIN_ROLES must list at least one role"))
	}
	if _, err := url.ParseRequestURI(c.AppBaseURL); err != nil {
		errs = append(errs, fmt.Errorf("APP_BASE_URL is invalid: %w", err))
	}
	v := c.Verification
	if window := v.ApprovalTTL + v.CodeTTL + v.TokenTTL; v.SessionMaxAge < window {
		errs = append(errs, fmt.Errorf("VERIFICATION_SESSION_MAX_AGE (%s) must cover APPROVAL_TTL plus code and token lifetimes (%s)", v.SessionMaxAge, window))
	}
	switch c.SessionStore {
	case StoreMemory, StorePostgres, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("SESSION_STORE must be one of memory, postgres, redis; got %q", c.SessionStore))
	}
	return errors.Join(errs...)
}

// DatabaseURL returns the PostgreSQL connection string.
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

// NeedsDatabase reports whether PostgreSQL must be reachable.
// Accounts always live in PostgreSQL unless sessions are kept in memory.
func (c *Config) NeedsDatabase() bool {
	return c.SessionStore != StoreMemory
}

// HasSMTP returns true if outbound mail is configured.
func (c *Config) HasSMTP() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList reads a comma-separated list. Empty items are dropped.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
