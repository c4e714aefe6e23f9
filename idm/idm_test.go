package idm

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/tendant/admin-verify/pkg/auth"
	"github.com/tendant/admin-verify/pkg/repository"
)

func TestValidateConfig(t *testing.T) {
	db := &sql.DB{}
	valid := func() Config {
		return Config{
			DB:            db,
			JWTSecret:     strings.Repeat("k", 32),
			ApproverEmail: "approver@example.com",
			AppBaseURL:    "https://admin.example.com",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing db", func(c *Config) { c.DB = nil }, "DB is required"},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, "JWTSecret is required"},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "at least 32"},
		{"missing approver", func(c *Config) { c.ApproverEmail = "" }, "ApproverEmail is required"},
		{"bad approver", func(c *Config) { c.ApproverEmail = "security" }, "ApproverEmail"},
		{"missing base url", func(c *Config) { c.AppBaseURL = "" }, "AppBaseURL is required"},
		{"relative base url", func(c *Config) { c.AppBaseURL = "/admin" }, "absolute URL"},
		{"max age below default window", func(c *Config) { c.SessionMaxAge = time.Hour }, "SessionMaxAge"},
		{"max age below custom approval", func(c *Config) {
			c.ApprovalTTL = 200 * time.Hour
			c.SessionMaxAge = repository.DefaultSessionMaxAge
		}, "SessionMaxAge"},
		{"max age covering window", func(c *Config) {
			c.ApprovalTTL = time.Hour
			c.CodeTTL = time.Minute
			c.VerificationTokenTTL = time.Minute
			c.SessionMaxAge = 2 * time.Hour
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := validateConfig(&cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("validateConfig() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("validateConfig() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{MaxCodeAttempts: -1}
	applyDefaults(&cfg)

	if cfg.JWTIssuer != "simple-idm" {
		t.Errorf("JWTIssuer = %q", cfg.JWTIssuer)
	}
	if len(cfg.Roles) != 1 || cfg.Roles[0] != "admin" {
		t.Errorf("Roles = %v", cfg.Roles)
	}
	if cfg.MaxCodeAttempts != -1 {
		t.Errorf("MaxCodeAttempts = %d, negative values must be kept", cfg.MaxCodeAttempts)
	}
	if cfg.PasswordMinLength != 8 {
		t.Errorf("PasswordMinLength = %d", cfg.PasswordMinLength)
	}
	if cfg.Logger == nil || cfg.Sender == nil {
		t.Error("Logger and Sender should default")
	}

	cfg = Config{}
	applyDefaults(&cfg)
	if cfg.MaxCodeAttempts != auth.DefaultMaxCodeAttempts {
		t.Errorf("MaxCodeAttempts = %d, want %d", cfg.MaxCodeAttempts, auth.DefaultMaxCodeAttempts)
	}
	if cfg.SessionMaxAge != repository.DefaultSessionMaxAge {
		t.Errorf("SessionMaxAge = %s, want %s", cfg.SessionMaxAge, repository.DefaultSessionMaxAge)
	}

	cfg = Config{ApprovalTTL: 7 * 24 * time.Hour}
	applyDefaults(&cfg)
	if want := 7*24*time.Hour + auth.DefaultCodeTTL + auth.DefaultVerificationTokenTTL; cfg.SessionMaxAge != want {
		t.Errorf("SessionMaxAge = %s, want %s", cfg.SessionMaxAge, want)
	}
}
