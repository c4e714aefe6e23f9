// Package common holds helpers shared by the verification flow handlers.
package common

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tendant/admin-verify/internal/httputil"
	"github.com/tendant/admin-verify/pkg/domain"
)

// SessionIDParam is the route parameter naming a verification session.
const SessionIDParam = "sessionID"

// Status maps a flow error to an HTTP status and client-facing message.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, domain.ErrSessionNotFound.Error()
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrSessionStale):
		return http.StatusConflict, domain.ErrInvalidState.Error()
	case errors.Is(err, domain.ErrExpired):
		return http.StatusGone, domain.ErrExpired.Error()
	case errors.Is(err, domain.ErrCodeMismatch):
		return http.StatusBadRequest, domain.ErrCodeMismatch.Error()
	case errors.Is(err, domain.ErrTokenMismatch):
		return http.StatusBadRequest, domain.ErrTokenMismatch.Error()
	case errors.Is(err, domain.ErrTooManyAttempts):
		return http.StatusTooManyRequests, domain.ErrTooManyAttempts.Error()
	case errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrInvalidDecision),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrWeakPassword),
		errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, domain.ErrConflict.Error()
	case errors.Is(err, domain.ErrDeliveryFailed):
		return http.StatusBadGateway, domain.ErrDeliveryFailed.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// WriteError writes the response for a flow error. Unexpected errors and
// delivery failures are logged with the operation name.
func WriteError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	status, msg := Status(err)
	if status >= http.StatusInternalServerError {
		logger.Error("verification request failed", "op", op, "error", err)
	}
	httputil.Error(w, status, msg)
}

// SessionID parses the session route parameter. Malformed IDs are reported
// as unknown sessions.
func SessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, SessionIDParam))
	if err != nil {
		httputil.Error(w, http.StatusNotFound, domain.ErrSessionNotFound.Error())
		return uuid.Nil, false
	}
	return id, true
}

// Required reports a missing request field.
func Required(w http.ResponseWriter, field string) {
	httputil.Error(w, http.StatusBadRequest, field+" is required")
}
