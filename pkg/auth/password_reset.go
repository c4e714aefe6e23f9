package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tendant/admin-verify/pkg/domain"
)

// PasswordResetService drives OTP_PENDING -> OTP_VERIFIED -> password updated.
type PasswordResetService struct {
	flow
}

// NewPasswordResetService creates a new password reset service.
func NewPasswordResetService(config FlowConfig, deps FlowDeps) *PasswordResetService {
	return &PasswordResetService{flow: newFlow(config, deps)}
}

// StartPasswordReset sends a code when an account exists for email.
//
// The returned session ID looks the same whether or not an account exists:
// for unknown addresses it is a random ID with no stored session and no
// email is sent. Callers must respond identically in both cases.
// Delivery failures are still reported so they can be logged.
func (s *PasswordResetService) StartPasswordReset(ctx context.Context, email string) (uuid.UUID, error) {
	decoy := uuid.New()

	normalized, err := s.normalizeEmail(email)
	if err != nil {
		return decoy, nil
	}

	admin, err := s.admins.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return decoy, nil
		}
		return uuid.Nil, err
	}

	session := s.newSession(domain.FlowPasswordReset, admin.Email, domain.StatusOTPPending)
	accountID := admin.ID
	session.AccountID = &accountID

	code, err := s.issueCode(session)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := s.sendCode(ctx, admin.Email, domain.FlowPasswordReset, code); err != nil {
		s.discard(ctx, session, "reset code not delivered")
		return uuid.Nil, err
	}

	s.logger.Info("password reset code sent", "session_id", session.ID, "admin_id", admin.ID)
	return session.ID, nil
}

// VerifyPasswordResetCode checks a reset code and returns the verification
// token required by CompletePasswordReset.
func (s *PasswordResetService) VerifyPasswordResetCode(ctx context.Context, id uuid.UUID, code string) (string, error) {
	session, err := s.load(ctx, id, domain.FlowPasswordReset)
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

// CompletePasswordReset sets the new password and removes the session.
func (s *PasswordResetService) CompletePasswordReset(ctx context.Context, id uuid.UUID, token, newPassword string) error {
	session, err := s.load(ctx, id, domain.FlowPasswordReset)
	if err != nil {
		return err
	}
	if err := requireStatus(session, domain.StatusOTPVerified); err != nil {
		return err
	}
	if err := s.checkToken(ctx, session, token); err != nil {
		return err
	}
	if err := s.validatePassword(newPassword); err != nil {
		return err
	}
	if session.AccountID == nil {
		s.discard(ctx, session, "session without account")
		return domain.ErrAccountNotFound
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.admins.UpdatePassword(ctx, *session.AccountID, hash); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			s.discard(ctx, session, "account removed before completion")
		}
		return err
	}

	s.discard(ctx, session, "password reset completed")
	s.logger.Info("password reset successful", "admin_id", *session.AccountID)
	return nil
}
