package httputil

import (
	"net/http"
	"strings"
)

// AccessTokenCookie is the cookie the login service sets for web clients.
const AccessTokenCookie = "access_token"

// AccessToken extracts a bearer token from the Authorization header,
// falling back to the access token cookie for web clients.
func AccessToken(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] != "" {
			return strings.TrimSpace(parts[1]), true
		}
		return "", false
	}

	cookie, err := r.Cookie(AccessTokenCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
