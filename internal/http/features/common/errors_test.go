package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/tendant/admin-verify/pkg/domain"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantMsg    string
	}{
		{domain.ErrSessionNotFound, http.StatusNotFound, "session not found"},
		{domain.ErrAccountNotFound, http.StatusNotFound, "session not found"},
		{domain.ErrInvalidState, http.StatusConflict, "operation not valid in current state"},
		{domain.ErrSessionStale, http.StatusConflict, "operation not valid in current state"},
		{domain.ErrExpired, http.StatusGone, "expired, restart the flow"},
		{domain.ErrCodeMismatch, http.StatusBadRequest, "invalid code"},
		{domain.ErrTokenMismatch, http.StatusBadRequest, "token mismatch"},
		{domain.ErrTooManyAttempts, http.StatusTooManyRequests, domain.ErrTooManyAttempts.Error()},
		{domain.ErrInvalidRole, http.StatusBadRequest, "unrecognized role"},
		{fmt.Errorf("%w: too short", domain.ErrWeakPassword), http.StatusBadRequest, "password does not meet requirements: too short"},
		{domain.ErrConflict, http.StatusConflict, "email already in use"},
		{fmt.Errorf("%w: relay down", domain.ErrDeliveryFailed), http.StatusBadGateway, "failed to deliver notification"},
		{errors.New("connection refused"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, msg := Status(tt.err)
			if status != tt.wantStatus || msg != tt.wantMsg {
				t.Errorf("Status() = %d %q, want %d %q", status, msg, tt.wantStatus, tt.wantMsg)
			}
		})
	}
}
