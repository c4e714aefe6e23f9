package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusConflict, "email already in use")

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "email already in use" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		limit      int64
		wantOK     bool
		wantStatus int
	}{
		{"valid", `{"email":"ada@example.com"}`, 1024, true, http.StatusOK},
		{"empty body", ``, 1024, false, http.StatusBadRequest},
		{"malformed", `{"email":`, 1024, false, http.StatusBadRequest},
		{"unknown field", `{"email":"ada@example.com","admin":true}`, 1024, false, http.StatusBadRequest},
		{"too large", `{"email":"` + strings.Repeat("a", 200) + `"}`, 64, false, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			r.Body = http.MaxBytesReader(w, r.Body, tt.limit)

			var req struct {
				Email string `json:"email"`
			}
			ok := DecodeJSON(w, r, &req)
			if ok != tt.wantOK {
				t.Fatalf("DecodeJSON() = %v, want %v", ok, tt.wantOK)
			}
			if !ok && w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestAccessToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		cookie string
		want   string
		wantOK bool
	}{
		{"bearer header", "Bearer abc.def", "", "abc.def", true},
		{"lowercase scheme", "bearer abc.def", "", "abc.def", true},
		{"cookie fallback", "", "cookie.token", "cookie.token", true},
		{"header wins", "Bearer header.token", "cookie.token", "header.token", true},
		{"basic auth", "Basic dXNlcjpwYXNz", "", "", false},
		{"empty bearer", "Bearer ", "", "", false},
		{"nothing", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: tt.cookie})
			}

			got, ok := AccessToken(r)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("AccessToken() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
