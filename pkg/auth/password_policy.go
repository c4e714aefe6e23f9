package auth

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/tendant/admin-verify/internal/config"
)

// maxPasswordLength caps input handed to the hasher.
const maxPasswordLength = 128

// PasswordPolicy defines password complexity requirements for administrator accounts.
type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// NewPasswordPolicy creates a PasswordPolicy from config.
func NewPasswordPolicy(cfg config.PasswordPolicyConfig) *PasswordPolicy {
	return &PasswordPolicy{
		MinLength:        cfg.MinLength,
		RequireUppercase: cfg.RequireUppercase,
		RequireLowercase: cfg.RequireLowercase,
		RequireNumber:    cfg.RequireNumber,
		RequireSpecial:   cfg.RequireSpecial,
	}
}

type passwordRule struct {
	enabled     bool
	description string
	check       func(rune) bool
}

func (p *PasswordPolicy) rules() []passwordRule {
	return []passwordRule{
		{p.RequireUppercase, "one uppercase letter", unicode.IsUpper},
		{p.RequireLowercase, "one lowercase letter", unicode.IsLower},
		{p.RequireNumber, "one number", unicode.IsDigit},
		{p.RequireSpecial, "one special character", isSpecial},
	}
}

// ValidatePassword checks if a password meets the policy requirements.
func (p *PasswordPolicy) ValidatePassword(password string) error {
	if p.MinLength > 0 && len(password) < p.MinLength {
		return fmt.Errorf("password must be at least %d characters long", p.MinLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("password must be at most %d characters long", maxPasswordLength)
	}

	for _, rule := range p.rules() {
		if rule.enabled && !strings.ContainsFunc(password, rule.check) {
			return fmt.Errorf("password must contain at least %s", rule.description)
		}
	}
	return nil
}

// GetRequirements returns a human-readable description of the policy.
func (p *PasswordPolicy) GetRequirements() string {
	if !p.HasRequirements() {
		return "No password requirements"
	}

	var requirements []string
	if p.MinLength > 0 {
		requirements = append(requirements, fmt.Sprintf("at least %d characters", p.MinLength))
	}
	for _, rule := range p.rules() {
		if rule.enabled {
			requirements = append(requirements, rule.description)
		}
	}

	return "Password must contain " + strings.Join(requirements, ", ")
}

// HasRequirements returns true if the policy has any requirements.
func (p *PasswordPolicy) HasRequirements() bool {
	return p.MinLength > 0 || p.RequireUppercase || p.RequireLowercase || p.RequireNumber || p.RequireSpecial
}

func isSpecial(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r)
}
