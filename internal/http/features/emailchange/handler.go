package emailchange

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/tendant/admin-verify/internal/http/features/common"
	"github.com/tendant/admin-verify/internal/http/middleware"
	"github.com/tendant/admin-verify/internal/httputil"
	"github.com/tendant/admin-verify/pkg/auth"
	"github.com/tendant/admin-verify/pkg/domain"
)

// Handler handles email change endpoints for the signed-in administrator.
type Handler struct {
	logger  *slog.Logger
	service *auth.EmailChangeService
}

// NewHandler creates a new email change handler.
func NewHandler(logger *slog.Logger, service *auth.EmailChangeService) *Handler {
	return &Handler{logger: logger, service: service}
}

// StartRequest names the address to switch to.
type StartRequest struct {
	NewEmail string `json:"new_email"`
}

// VerifyRequest carries a mailed code.
type VerifyRequest struct {
	Code string `json:"code"`
}

// SessionResponse reports the state of an email change session.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// Start begins an email change.
// POST /v1/admin/me/email
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	var req StartRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if req.NewEmail == "" {
		common.Required(w, "new_email")
		return
	}

	id, err := h.service.StartEmailChange(r.Context(), accountID, req.NewEmail)
	if err != nil {
		common.WriteError(w, h.logger, "start email change", err)
		return
	}

	httputil.JSON(w, http.StatusAccepted, SessionResponse{
		SessionID: id.String(),
		Status:    string(domain.StatusCurrentOTPPending),
	})
}

// VerifyCurrent checks the code sent to the current address.
// POST /v1/admin/me/email/{sessionID}/verify-current
func (h *Handler) VerifyCurrent(w http.ResponseWriter, r *http.Request) {
	accountID, id, code, ok := h.verifyInput(w, r)
	if !ok {
		return
	}

	if err := h.service.VerifyCurrentEmail(r.Context(), accountID, id, code); err != nil {
		common.WriteError(w, h.logger, "verify current email", err)
		return
	}

	httputil.JSON(w, http.StatusOK, SessionResponse{
		SessionID: id.String(),
		Status:    string(domain.StatusNewOTPPending),
	})
}

// VerifyNew checks the code sent to the new address and switches the email.
// POST /v1/admin/me/email/{sessionID}/verify-new
func (h *Handler) VerifyNew(w http.ResponseWriter, r *http.Request) {
	accountID, id, code, ok := h.verifyInput(w, r)
	if !ok {
		return
	}

	if err := h.service.VerifyNewEmail(r.Context(), accountID, id, code); err != nil {
		common.WriteError(w, h.logger, "verify new email", err)
		return
	}

	httputil.JSON(w, http.StatusOK, MessageResponse{
		Message: "Email address updated",
	})
}

func (h *Handler) verifyInput(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, string, bool) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, "", false
	}
	id, ok := common.SessionID(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, "", false
	}
	var req VerifyRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return uuid.Nil, uuid.Nil, "", false
	}
	if req.Code == "" {
		common.Required(w, "code")
		return uuid.Nil, uuid.Nil, "", false
	}
	return accountID, id, req.Code, true
}

func requireAccount(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.GetAccountID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
	}
	return id, ok
}
