package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/tendant/admin-verify/pkg/domain"
)

// Decision is an approver's answer to a signup request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// SignupRequest is the candidate profile submitted to start a signup.
type SignupRequest struct {
	Name     string
	Email    string
	Phone    string
	Metadata map[string]string
}

// SignupService drives administrator signup through human approval:
// APPROVAL_PENDING -> OTP_PENDING -> OTP_VERIFIED -> account created.
// REJECTED is reachable only from APPROVAL_PENDING.
type SignupService struct {
	flow
}

// NewSignupService creates a new signup service.
func NewSignupService(config FlowConfig, deps FlowDeps) *SignupService {
	if config.ApprovalTTL == 0 {
		config.ApprovalTTL = DefaultApprovalTTL
	}
	return &SignupService{flow: newFlow(config, deps)}
}

// StartSignup records a candidate and asks the approver for a decision.
// The session is removed again if the approval request cannot be delivered.
func (s *SignupService) StartSignup(ctx context.Context, req SignupRequest) (uuid.UUID, error) {
	email, err := s.normalizeEmail(req.Email)
	if err != nil {
		return uuid.Nil, err
	}

	name := SanitizeName(req.Name)
	if err := ValidateStringLength("name", name, 1, 200); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	phone := SanitizeName(req.Phone)
	if err := ValidateStringLength("phone", phone, 0, 32); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	exists, err := s.admins.ExistsByEmail(ctx, email)
	if err != nil {
		return uuid.Nil, err
	}
	if exists {
		return uuid.Nil, domain.ErrConflict
	}

	approvalToken, err := GenerateOpaqueToken(DefaultTokenBytes)
	if err != nil {
		return uuid.Nil, err
	}

	metadata := SanitizeMetadata(req.Metadata)
	session := s.newSession(domain.FlowSignup, email, domain.StatusApprovalPending)
	session.Payload = domain.SessionPayload{
		Name:              name,
		Phone:             phone,
		Metadata:          metadata,
		ApprovalTokenHash: HashToken(approvalToken),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create session: %w", err)
	}

	candidate := domain.Candidate{Name: name, Email: email, Phone: phone, Metadata: metadata}
	links := s.approvalLinks(session.ID, approvalToken)
	if err := s.notifier.SendApprovalRequest(ctx, s.config.ApproverEmail, candidate, links); err != nil {
		s.discard(ctx, session, "approval request not delivered")
		return uuid.Nil, fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}

	s.logger.Info("signup awaiting approval", "session_id", session.ID)
	return session.ID, nil
}

// DecideSignup applies the approver's decision. Approval assigns a role and
// sends a one-time code to the candidate; rejection is final.
func (s *SignupService) DecideSignup(ctx context.Context, id uuid.UUID, approvalToken string, decision Decision, role string) error {
	session, err := s.load(ctx, id, domain.FlowSignup)
	if err != nil {
		return err
	}
	if !TokenMatches(approvalToken, session.Payload.ApprovalTokenHash) {
		return domain.ErrTokenMismatch
	}
	if err := requireStatus(session, domain.StatusApprovalPending); err != nil {
		return err
	}
	if s.config.ApprovalTTL > 0 && s.now().Sub(session.CreatedAt) >= s.config.ApprovalTTL {
		s.discard(ctx, session, "approval window elapsed")
		return domain.ErrExpired
	}

	switch decision {
	case DecisionReject:
		if err := s.transition(ctx, session, domain.StatusRejected); err != nil {
			return err
		}
		s.logger.Info("signup rejected", "session_id", session.ID)
		return nil
	case DecisionApprove:
		return s.approve(ctx, session, role)
	default:
		return domain.ErrInvalidDecision
	}
}

func (s *SignupService) approve(ctx context.Context, session *domain.VerificationSession, role string) error {
	if !s.validRole(role) {
		return domain.ErrInvalidRole
	}

	session.Payload.Role = role
	code, err := s.issueCode(session)
	if err != nil {
		return err
	}
	if err := s.transition(ctx, session, domain.StatusOTPPending); err != nil {
		return err
	}

	if err := s.sendCode(ctx, session.Email, domain.FlowSignup, code); err != nil {
		session.ClearCode()
		session.Payload.Role = ""
		if rerr := s.transition(ctx, session, domain.StatusApprovalPending); rerr != nil {
			s.logger.Error("failed to revert signup approval", "error", rerr, "session_id", session.ID)
		}
		return err
	}

	s.logger.Info("signup approved", "session_id", session.ID, "role", role)
	return nil
}

// VerifySignupCode checks the candidate's code and returns the verification
// token required by CompleteSignup.
func (s *SignupService) VerifySignupCode(ctx context.Context, id uuid.UUID, code string) (string, error) {
	session, err := s.load(ctx, id, domain.FlowSignup)
	if err != nil {
		return "", err
	}
	if err := requireStatus(session, domain.StatusOTPPending); err != nil {
		return "", err
	}
	if err := s.checkCode(ctx, session, code); err != nil {
		return "", err
	}

	token, err := s.issueToken(session)
	if err != nil {
		return "", err
	}
	if err := s.transition(ctx, session, domain.StatusOTPVerified); err != nil {
		return "", err
	}
	return token, nil
}

// CompleteSignup creates the administrator account and removes the session.
func (s *SignupService) CompleteSignup(ctx context.Context, id uuid.UUID, token, password string) (*domain.Admin, error) {
	session, err := s.load(ctx, id, domain.FlowSignup)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(session, domain.StatusOTPVerified); err != nil {
		return nil, err
	}
	if err := s.checkToken(ctx, session, token); err != nil {
		return nil, err
	}
	if err := s.validatePassword(password); err != nil {
		return nil, err
	}

	// An account may have been created for this address since the flow started.
	exists, err := s.admins.ExistsByEmail(ctx, session.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		s.discard(ctx, session, "email taken before completion")
		return nil, domain.ErrConflict
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var metadata json.RawMessage
	if len(session.Payload.Metadata) > 0 {
		metadata, err = json.Marshal(session.Payload.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	now := s.now()
	admin := &domain.Admin{
		ID:            uuid.New(),
		Email:         session.Email,
		Name:          session.Payload.Name,
		Phone:         session.Payload.Phone,
		Role:          session.Payload.Role,
		PasswordHash:  hash,
		EmailVerified: true,
		Metadata:      metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.discard(ctx, session, "email taken before completion")
		}
		return nil, err
	}

	s.discard(ctx, session, "signup completed")
	s.logger.Info("administrator created", "admin_id", admin.ID, "role", admin.Role)
	return admin, nil
}

func (s *SignupService) validRole(role string) bool {
	for _, r := range s.config.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// approvalLinks builds one approve link per role and a single reject link.
func (s *SignupService) approvalLinks(id uuid.UUID, approvalToken string) []domain.ApprovalLink {
	base := fmt.Sprintf("%s/v1/admin/signup/%s/decision", strings.TrimRight(s.config.AppBaseURL, "/"), id)

	links := make([]domain.ApprovalLink, 0, len(s.config.Roles)+1)
	for _, role := range s.config.Roles {
		q := url.Values{}
		q.Set("token", approvalToken)
		q.Set("decision", string(DecisionApprove))
		q.Set("role", role)
		links = append(links, domain.ApprovalLink{
			Label: "Approve as " + role,
			URL:   base + "?" + q.Encode(),
		})
	}

	q := url.Values{}
	q.Set("token", approvalToken)
	q.Set("decision", string(DecisionReject))
	links = append(links, domain.ApprovalLink{
		Label: "Reject",
		URL:   base + "?" + q.Encode(),
	})
	return links
}
