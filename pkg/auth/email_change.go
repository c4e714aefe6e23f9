package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tendant/admin-verify/pkg/domain"
)

// EmailChangeService moves an authenticated administrator to a new address:
// CURRENT_OTP_PENDING -> NEW_OTP_PENDING -> email updated.
// Every step is scoped to sessions owned by the calling account.
type EmailChangeService struct {
	flow
}

// NewEmailChangeService creates a new email change service.
func NewEmailChangeService(config FlowConfig, deps FlowDeps) *EmailChangeService {
	return &EmailChangeService{flow: newFlow(config, deps)}
}

// StartEmailChange sends a code to the account's current address.
func (s *EmailChangeService) StartEmailChange(ctx context.Context, accountID uuid.UUID, newEmail string) (uuid.UUID, error) {
	admin, err := s.admins.GetByID(ctx, accountID)
	if err != nil {
		return uuid.Nil, err
	}

	normalized, err := s.normalizeEmail(newEmail)
	if err != nil {
		return uuid.Nil, err
	}
	if normalized == NormalizeEmail(admin.Email) {
		return uuid.Nil, domain.ErrConflict
	}

	exists, err := s.admins.ExistsByEmail(ctx, normalized)
	if err != nil {
		return uuid.Nil, err
	}
	if exists {
		return uuid.Nil, domain.ErrConflict
	}

	session := s.newSession(domain.FlowEmailChange, admin.Email, domain.StatusCurrentOTPPending)
	session.AccountID = &admin.ID
	session.Payload.NewEmail = normalized

	code, err := s.issueCode(session)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := s.sendCode(ctx, admin.Email, domain.FlowEmailChange, code); err != nil {
		s.discard(ctx, session, "current email code not delivered")
		return uuid.Nil, err
	}

	s.logger.Info("email change started", "session_id", session.ID, "admin_id", admin.ID)
	return session.ID, nil
}

// VerifyCurrentEmail checks the code sent to the current address and sends a
// second code to the new address.
//
// If the second code cannot be delivered the session stays in
// CURRENT_OTP_PENDING with no outstanding code; the caller has to start over.
func (s *EmailChangeService) VerifyCurrentEmail(ctx context.Context, accountID, id uuid.UUID, code string) error {
	session, err := s.loadOwned(ctx, id, domain.FlowEmailChange, accountID)
	if err != nil {
		return err
	}
	if err := requireStatus(session, domain.StatusCurrentOTPPending); err != nil {
		return err
	}
	if err := s.checkCode(ctx, session, code); err != nil {
		return err
	}

	newCode, err := s.issueCode(session)
	if err != nil {
		return err
	}
	if err := s.transition(ctx, session, domain.StatusNewOTPPending); err != nil {
		return err
	}

	if err := s.sendCode(ctx, session.Payload.NewEmail, domain.FlowEmailChange, newCode); err != nil {
		session.ClearCode()
		if rerr := s.transition(ctx, session, domain.StatusCurrentOTPPending); rerr != nil {
			s.logger.Error("failed to revert email change", "error", rerr, "session_id", session.ID)
		}
		return err
	}

	s.logger.Info("current email verified", "session_id", session.ID)
	return nil
}

// VerifyNewEmail checks the code sent to the new address and moves the
// account to it.
func (s *EmailChangeService) VerifyNewEmail(ctx context.Context, accountID, id uuid.UUID, code string) error {
	session, err := s.loadOwned(ctx, id, domain.FlowEmailChange, accountID)
	if err != nil {
		return err
	}
	if err := requireStatus(session, domain.StatusNewOTPPending); err != nil {
		return err
	}
	if err := s.checkCode(ctx, session, code); err != nil {
		return err
	}

	newEmail := session.Payload.NewEmail
	exists, err := s.admins.ExistsByEmail(ctx, newEmail)
	if err != nil {
		return err
	}
	if exists {
		s.discard(ctx, session, "new email taken before completion")
		return domain.ErrConflict
	}

	if err := s.admins.UpdateEmail(ctx, accountID, newEmail); err != nil {
		if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrAccountNotFound) {
			s.discard(ctx, session, "email update rejected")
		}
		return err
	}

	s.discard(ctx, session, "email change completed")
	s.logger.Info("email changed", "admin_id", accountID)
	return nil
}
