package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestTokenVerifier_RoundTrip(t *testing.T) {
	v := NewTokenVerifier(TokenConfig{JWTSecret: []byte("test-secret"), Issuer: "admin-verify"})
	id := uuid.New()

	token, err := v.IssueAccessToken(id, "ada@example.com", "operator", time.Minute)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	claims, err := v.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if claims.Email != "ada@example.com" || claims.Role != "operator" {
		t.Errorf("claims = %+v", claims)
	}

	_, got, err := v.Authenticate(token)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if got != id {
		t.Errorf("Authenticate() id = %s, want %s", got, id)
	}
}

func TestTokenVerifier_Rejects(t *testing.T) {
	v := NewTokenVerifier(TokenConfig{JWTSecret: []byte("test-secret"), Issuer: "admin-verify"})
	id := uuid.New()

	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			Issuer:    "admin-verify",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte("test-secret"))
	otherKey, _ := NewTokenVerifier(TokenConfig{JWTSecret: []byte("other"), Issuer: "admin-verify"}).IssueAccessToken(id, "", "", time.Minute)
	otherIssuer, _ := NewTokenVerifier(TokenConfig{JWTSecret: []byte("test-secret"), Issuer: "elsewhere"}).IssueAccessToken(id, "", "", time.Minute)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: id.String(), Issuer: "admin-verify"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	badSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			Issuer:    "admin-verify",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte("test-secret"))

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"expired", expired},
		{"wrong key", otherKey},
		{"wrong issuer", otherIssuer},
		{"alg none", unsigned},
		{"bad subject", badSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := v.Authenticate(tt.token); !errors.Is(err, ErrInvalidAccessToken) {
				t.Errorf("Authenticate() error = %v, want ErrInvalidAccessToken", err)
			}
		})
	}
}
