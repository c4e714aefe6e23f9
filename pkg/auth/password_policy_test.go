package auth

import (
	"strings"
	"testing"

	"github.com/tendant/admin-verify/internal/config"
)

func TestPasswordPolicy_ValidatePassword(t *testing.T) {
	strong := PasswordPolicy{
		MinLength:        12,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumber:    true,
		RequireSpecial:   true,
	}

	tests := []struct {
		name     string
		policy   PasswordPolicy
		password string
		wantErr  bool
	}{
		{"no requirements", PasswordPolicy{}, "a", false},
		{"min length - valid", PasswordPolicy{MinLength: 8}, "12345678", false},
		{"min length - too short", PasswordPolicy{MinLength: 8}, "1234567", true},
		{"max length exceeded", PasswordPolicy{}, strings.Repeat("x", maxPasswordLength+1), true},
		{"uppercase - missing", PasswordPolicy{RequireUppercase: true}, "password", true},
		{"lowercase - missing", PasswordPolicy{RequireLowercase: true}, "PASSWORD", true},
		{"number - missing", PasswordPolicy{RequireNumber: true}, "Password", true},
		{"special - missing", PasswordPolicy{RequireSpecial: true}, "Password123", true},
		{"special - space does not count", PasswordPolicy{RequireSpecial: true}, "Pass word", true},
		{"all requirements - valid", strong, "StrongPass123!", false},
		{"all requirements - missing special", strong, "StrongPass123", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewPasswordPolicy(t *testing.T) {
	policy := NewPasswordPolicy(config.PasswordPolicyConfig{
		MinLength:      10,
		RequireNumber:  true,
		RequireSpecial: true,
	})

	if policy.MinLength != 10 {
		t.Errorf("MinLength = %d, want 10", policy.MinLength)
	}
	if policy.RequireUppercase || policy.RequireLowercase {
		t.Error("case requirements should be off")
	}
	if !policy.RequireNumber || !policy.RequireSpecial {
		t.Error("number and special requirements should be on")
	}
}

func TestPasswordPolicy_GetRequirements(t *testing.T) {
	tests := []struct {
		name   string
		policy PasswordPolicy
		want   string
	}{
		{"no requirements", PasswordPolicy{}, "No password requirements"},
		{"min length only", PasswordPolicy{MinLength: 8}, "Password must contain at least 8 characters"},
		{
			"all requirements",
			PasswordPolicy{MinLength: 12, RequireUppercase: true, RequireLowercase: true, RequireNumber: true, RequireSpecial: true},
			"Password must contain at least 12 characters, one uppercase letter, one lowercase letter, one number, one special character",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.GetRequirements(); got != tt.want {
				t.Errorf("GetRequirements() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPasswordPolicy_HasRequirements(t *testing.T) {
	if (&PasswordPolicy{}).HasRequirements() {
		t.Error("empty policy should have no requirements")
	}
	if !(&PasswordPolicy{RequireUppercase: true}).HasRequirements() {
		t.Error("uppercase policy should have requirements")
	}
}
