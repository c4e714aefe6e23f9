package reset

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/tendant/admin-verify/internal/http/features/common"
	"github.com/tendant/admin-verify/internal/httputil"
	"github.com/tendant/admin-verify/pkg/auth"
	"github.com/tendant/admin-verify/pkg/domain"
)

// Handler handles password reset endpoints.
type Handler struct {
	logger  *slog.Logger
	service *auth.PasswordResetService
}

// NewHandler creates a new password reset handler.
func NewHandler(logger *slog.Logger, service *auth.PasswordResetService) *Handler {
	return &Handler{logger: logger, service: service}
}

// StartRequest names the account whose password should be reset.
type StartRequest struct {
	Email string `json:"email"`
}

// VerifyRequest carries the mailed reset code.
type VerifyRequest struct {
	Code string `json:"code"`
}

// CompleteRequest sets the new password.
type CompleteRequest struct {
	VerificationToken string `json:"verification_token"`
	NewPassword       string `json:"new_password"`
}

// StartResponse is returned for every reset request.
type StartResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// VerifyResponse carries the token for the completion step.
type VerifyResponse struct {
	SessionID         string `json:"session_id"`
	VerificationToken string `json:"verification_token"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

const startMessage = "If an administrator account exists for this email, a reset code has been sent"

// Start handles a password reset request.
// POST /v1/admin/password/reset
//
// The response does not reveal whether the account exists. Failures are
// logged and answered like a success.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		common.Required(w, "email")
		return
	}

	id, err := h.service.StartPasswordReset(r.Context(), req.Email)
	if err != nil {
		h.logger.Error("failed to start password reset", "error", err)
		id = uuid.New()
	}

	httputil.JSON(w, http.StatusAccepted, StartResponse{
		SessionID: id.String(),
		Message:   startMessage,
	})
}

// sessionErrors are the failures a session handed out for an unknown email
// could never produce. They are reported like a wrong secret.
var sessionErrors = []error{
	domain.ErrSessionNotFound,
	domain.ErrAccountNotFound,
	domain.ErrExpired,
	domain.ErrTooManyAttempts,
	domain.ErrInvalidState,
	domain.ErrSessionStale,
}

// conceal replaces session lifecycle errors with generic, so that a session
// ID returned for an unknown email answers exactly like a real one.
func conceal(err, generic error) error {
	for _, target := range sessionErrors {
		if errors.Is(err, target) {
			return generic
		}
	}
	return err
}

// Verify checks a reset code.
// POST /v1/admin/password/reset/{sessionID}/verify
//
// Missing, expired and locked sessions are all reported as a wrong code.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	id, ok := common.SessionID(w, r)
	if !ok {
		return
	}
	var req VerifyRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" {
		common.Required(w, "code")
		return
	}

	token, err := h.service.VerifyPasswordResetCode(r.Context(), id, req.Code)
	if err != nil {
		common.WriteError(w, h.logger, "verify reset code", conceal(err, domain.ErrCodeMismatch))
		return
	}

	httputil.JSON(w, http.StatusOK, VerifyResponse{
		SessionID:         id.String(),
		VerificationToken: token,
	})
}

// Complete sets the new password.
// POST /v1/admin/password/reset/{sessionID}/complete
//
// Session lifecycle failures are reported as a token mismatch.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := common.SessionID(w, r)
	if !ok {
		return
	}
	var req CompleteRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if req.VerificationToken == "" {
		common.Required(w, "verification_token")
		return
	}
	if req.NewPassword == "" {
		common.Required(w, "new_password")
		return
	}

	if err := h.service.CompletePasswordReset(r.Context(), id, req.VerificationToken, req.NewPassword); err != nil {
		common.WriteError(w, h.logger, "complete password reset", conceal(err, domain.ErrTokenMismatch))
		return
	}

	httputil.JSON(w, http.StatusOK, MessageResponse{
		Message: "Password has been reset successfully",
	})
}
