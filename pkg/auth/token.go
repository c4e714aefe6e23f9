package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidAccessToken is returned for malformed, expired or forged access tokens.
var ErrInvalidAccessToken = errors.New("invalid access token")

// DefaultAccessTokenTTL is used by IssueAccessToken when no TTL is given.
const DefaultAccessTokenTTL = 15 * time.Minute

// TokenConfig holds access token configuration.
type TokenConfig struct {
	JWTSecret []byte
	Issuer    string
}

// AccessTokenClaims represents the claims in an administrator access token.
// Tokens are issued by the login service; this package only verifies them
// to identify the principal behind authenticated verification flows.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// TokenVerifier validates HS256 access tokens.
type TokenVerifier struct {
	config TokenConfig
}

// NewTokenVerifier creates a new token verifier.
func NewTokenVerifier(config TokenConfig) *TokenVerifier {
	return &TokenVerifier{config: config}
}

// ValidateAccessToken validates an access token and returns the claims.
func (v *TokenVerifier) ValidateAccessToken(tokenString string) (*AccessTokenClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidAccessToken
		}
		return v.config.JWTSecret, nil
	}, opts...)
	if err != nil {
		return nil, ErrInvalidAccessToken
	}

	claims, ok := token.Claims.(*AccessTokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidAccessToken
	}

	return claims, nil
}

// Authenticate validates an access token and returns its claims together
// with the administrator ID carried in the subject.
func (v *TokenVerifier) Authenticate(tokenString string) (*AccessTokenClaims, uuid.UUID, error) {
	claims, err := v.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, uuid.Nil, err
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, uuid.Nil, ErrInvalidAccessToken
	}
	return claims, id, nil
}

// IssueAccessToken signs an access token for the given administrator.
// The login service shares the secret; the verifier's own tests and tooling use this too.
func (v *TokenVerifier) IssueAccessToken(accountID uuid.UUID, email, role string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	now := time.Now()
	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    v.config.Issuer,
			ID:        uuid.NewString(),
		},
		Email: email,
		Role:  role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.config.JWTSecret)
}
