package signup

import (
	"log/slog"
	"net/http"

	"github.com/tendant/admin-verify/internal/http/features/common"
	"github.com/tendant/admin-verify/internal/httputil"
	"github.com/tendant/admin-verify/pkg/auth"
	"github.com/tendant/admin-verify/pkg/domain"
)

// Handler handles administrator signup endpoints.
type Handler struct {
	logger  *slog.Logger
	service *auth.SignupService
}

// NewHandler creates a new signup handler.
func NewHandler(logger *slog.Logger, service *auth.SignupService) *Handler {
	return &Handler{logger: logger, service: service}
}

// StartRequest is a candidate's request for an administrator account.
type StartRequest struct {
	Name     string            `json:"name"`
	Email    string            `json:"email"`
	Phone    string            `json:"phone,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// DecisionRequest carries an approver's decision.
type DecisionRequest struct {
	Token    string `json:"token"`
	Decision string `json:"decision"`
	Role     string `json:"role,omitempty"`
}

// VerifyRequest carries the code mailed to the candidate.
type VerifyRequest struct {
	Code string `json:"code"`
}

// CompleteRequest sets the password of the new account.
type CompleteRequest struct {
	VerificationToken string `json:"verification_token"`
	Password          string `json:"password"`
}

// SessionResponse reports the state of a signup session.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// VerifyResponse carries the token for the completion step.
type VerifyResponse struct {
	SessionID         string `json:"session_id"`
	VerificationToken string `json:"verification_token"`
}

// AdminResponse describes the created administrator.
type AdminResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Start handles a signup request.
// POST /v1/admin/signup
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		common.Required(w, "email")
		return
	}
	if req.Name == "" {
		common.Required(w, "name")
		return
	}

	id, err := h.service.StartSignup(r.Context(), auth.SignupRequest{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Metadata: req.Metadata,
	})
	if err != nil {
		common.WriteError(w, h.logger, "start signup", err)
		return
	}

	httputil.JSON(w, http.StatusAccepted, SessionResponse{
		SessionID: id.String(),
		Status:    string(domain.StatusApprovalPending),
	})
}

// Decide applies an approver's decision submitted as JSON.
// POST /v1/admin/signup/{sessionID}/decision
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	if isForm(r) {
		h.decideForm(w, r)
		return
	}

	id, ok := common.SessionID(w, r)
	if !ok {
		return
	}
	var req DecisionRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		common.Required(w, "token")
		return
	}

	decision := auth.Decision(req.Decision)
	if err := h.service.DecideSignup(r.Context(), id, req.Token, decision, req.Role); err != nil {
		common.WriteError(w, h.logger, "decide signup", err)
		return
	}

	httputil.JSON(w, http.StatusOK, SessionResponse{
		SessionID: id.String(),
		Status:    string(statusAfter(decision)),
	})
}

// Verify checks the candidate's code.
// POST /v1/admin/signup/{sessionID}/verify
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

	token, err := h.service.VerifySignupCode(r.Context(), id, req.Code)
	if err != nil {
		common.WriteError(w, h.logger, "verify signup code", err)
		return
	}

	httputil.JSON(w, http.StatusOK, VerifyResponse{
		SessionID:         id.String(),
		VerificationToken: token,
	})
}

// Complete creates the administrator account.
// POST /v1/admin/signup/{sessionID}/complete
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
	if req.Password == "" {
		common.Required(w, "password")
		return
	}

	admin, err := h.service.CompleteSignup(r.Context(), id, req.VerificationToken, req.Password)
	if err != nil {
		common.WriteError(w, h.logger, "complete signup", err)
		return
	}

	httputil.JSON(w, http.StatusCreated, AdminResponse{
		ID:    admin.ID.String(),
		Email: admin.Email,
		Name:  admin.Name,
		Role:  admin.Role,
	})
}

func statusAfter(decision auth.Decision) domain.SessionStatus {
	if decision == auth.DecisionReject {
		return domain.StatusRejected
	}
	return domain.StatusOTPPending
}
