package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/admin-verify/pkg/domain"
)

// Default flow timings.
const (
	DefaultCodeTTL              = 10 * time.Minute
	DefaultVerificationTokenTTL = 15 * time.Minute
	DefaultApprovalTTL          = 72 * time.Hour
	DefaultMaxCodeAttempts      = 5
)

// SessionStore persists verification sessions.
type SessionStore interface {
	// Create inserts the session after deleting any active session for the
	// same (flow, email) pair, and for the same (flow, account) when the
	// session is bound to an account.
	Create(ctx context.Context, session *domain.VerificationSession) error
	// Get returns domain.ErrSessionNotFound or domain.ErrSessionExpired.
	Get(ctx context.Context, id uuid.UUID) (*domain.VerificationSession, error)
	// FindActive returns domain.ErrSessionNotFound for missing or expired sessions.
	FindActive(ctx context.Context, flow domain.FlowType, email string) (*domain.VerificationSession, error)
	// Update writes the session if its Version still matches the stored one
	// and increments Version. A lost race yields domain.ErrSessionStale.
	Update(ctx context.Context, session *domain.VerificationSession) error
	// RecordAttempt atomically increments the attempt counter of the session
	// if otpHash is still its outstanding code, and returns the new count.
	// The version is left alone. A replaced, consumed or missing code yields
	// domain.ErrSessionStale.
	RecordAttempt(ctx context.Context, id uuid.UUID, otpHash string) (int, error)
	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
}

// AdminStore is the long-lived administrator account table.
type AdminStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Admin, error)
	GetByEmail(ctx context.Context, email string) (*domain.Admin, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, admin *domain.Admin) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateEmail(ctx context.Context, id uuid.UUID, email string) error
}

// Notifier delivers one-time codes and approval requests out of band.
type Notifier interface {
	SendApprovalRequest(ctx context.Context, to string, candidate domain.Candidate, links []domain.ApprovalLink) error
	SendCode(ctx context.Context, to string, flow domain.FlowType, code string, ttl time.Duration) error
}

// FlowConfig holds settings shared by all verification flows.
type FlowConfig struct {
	CodeTTL              time.Duration
	VerificationTokenTTL time.Duration
	ApprovalTTL          time.Duration
	// MaxCodeAttempts bounds failed code submissions per issued code; 0 disables the limit.
	MaxCodeAttempts int

	ApproverEmail string
	Roles         []string
	AppBaseURL    string

	StrictEmailValidation bool
	BlockDisposableEmail  bool
}

// FlowDeps are the collaborators of a flow service.
type FlowDeps struct {
	Sessions SessionStore
	Admins   AdminStore
	Notifier Notifier
	Hasher   Hasher
	Policy   *PasswordPolicy
	Logger   *slog.Logger
	Now      func() time.Time
}

// flow implements the steps shared by the signup, reset and email change services.
type flow struct {
	config   FlowConfig
	sessions SessionStore
	admins   AdminStore
	notifier Notifier
	hasher   Hasher
	policy   *PasswordPolicy
	logger   *slog.Logger
	now      func() time.Time
}

func newFlow(config FlowConfig, deps FlowDeps) flow {
	if config.CodeTTL == 0 {
		config.CodeTTL = DefaultCodeTTL
	}
	if config.VerificationTokenTTL == 0 {
		config.VerificationTokenTTL = DefaultVerificationTokenTTL
	}
	if deps.Hasher == nil {
		deps.Hasher = NewArgon2Hasher(DefaultArgon2Params)
	}
	if deps.Policy == nil {
		deps.Policy = &PasswordPolicy{MinLength: 8}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return flow{
		config:   config,
		sessions: deps.Sessions,
		admins:   deps.Admins,
		notifier: deps.Notifier,
		hasher:   deps.Hasher,
		policy:   deps.Policy,
		logger:   deps.Logger,
		now:      deps.Now,
	}
}

// load fetches a session of the given flow type. Expired sessions have
// already been deleted by the store.
func (f *flow) load(ctx context.Context, id uuid.UUID, flowType domain.FlowType) (*domain.VerificationSession, error) {
	session, err := f.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			return nil, domain.ErrExpired
		}
		return nil, err
	}
	if session.FlowType != flowType {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// loadOwned is load scoped to sessions bound to accountID.
func (f *flow) loadOwned(ctx context.Context, id uuid.UUID, flowType domain.FlowType, accountID uuid.UUID) (*domain.VerificationSession, error) {
	session, err := f.load(ctx, id, flowType)
	if err != nil {
		return nil, err
	}
	if !session.OwnedBy(accountID) {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func requireStatus(session *domain.VerificationSession, status domain.SessionStatus) error {
	if session.Status != status {
		return domain.ErrInvalidState
	}
	return nil
}

func (f *flow) newSession(flowType domain.FlowType, email string, status domain.SessionStatus) *domain.VerificationSession {
	now := f.now()
	return &domain.VerificationSession{
		ID:        uuid.New(),
		FlowType:  flowType,
		Email:     email,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// issueCode generates a code and stores its hash on the session.
// The plaintext is returned only for delivery.
func (f *flow) issueCode(session *domain.VerificationSession) (string, error) {
	code, err := GenerateNumericCode()
	if err != nil {
		return "", err
	}
	hash, err := f.hasher.Hash(code)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}
	session.SetCode(hash, f.now().Add(f.config.CodeTTL))
	return code, nil
}

// checkCode validates a submitted code against the session's outstanding code.
// With a limit configured, each submission is counted in the store before the
// hash is compared, so concurrent guesses cannot exceed the limit.
func (f *flow) checkCode(ctx context.Context, session *domain.VerificationSession, code string) error {
	if session.OTPHash == nil || session.OTPExpiresAt == nil {
		return domain.ErrInvalidState
	}
	if !f.now().Before(*session.OTPExpiresAt) {
		f.discard(ctx, session, "code expired")
		return domain.ErrExpired
	}

	limit := f.config.MaxCodeAttempts
	if limit > 0 {
		attempts, err := f.sessions.RecordAttempt(ctx, session.ID, *session.OTPHash)
		if errors.Is(err, domain.ErrSessionStale) {
			return domain.ErrInvalidState
		}
		if err != nil {
			return err
		}
		session.FailedAttempts = attempts
		if attempts > limit {
			return domain.ErrTooManyAttempts
		}
	}

	if f.hasher.Verify(code, *session.OTPHash) {
		return nil
	}
	if limit > 0 && session.FailedAttempts >= limit {
		f.discard(ctx, session, "too many failed attempts")
		return domain.ErrTooManyAttempts
	}
	return domain.ErrCodeMismatch
}

// issueToken generates a verification token and consumes the code.
func (f *flow) issueToken(session *domain.VerificationSession) (string, error) {
	token, err := GenerateOpaqueToken(DefaultTokenBytes)
	if err != nil {
		return "", err
	}
	session.SetToken(HashToken(token), f.now().Add(f.config.VerificationTokenTTL))
	return token, nil
}

// checkToken validates a verification token presented for the final step.
func (f *flow) checkToken(ctx context.Context, session *domain.VerificationSession, token string) error {
	if session.VerificationTokenHash == nil || session.TokenExpiresAt == nil {
		return domain.ErrInvalidState
	}
	if !f.now().Before(*session.TokenExpiresAt) {
		f.discard(ctx, session, "verification token expired")
		return domain.ErrExpired
	}
	if !TokenMatches(token, *session.VerificationTokenHash) {
		return domain.ErrTokenMismatch
	}
	return nil
}

// transition persists the session in a new status.
func (f *flow) transition(ctx context.Context, session *domain.VerificationSession, status domain.SessionStatus) error {
	if !session.FlowType.AllowsStatus(status) {
		return fmt.Errorf("%w: %s is not a %s status", domain.ErrInvalidState, status, session.FlowType)
	}
	session.Status = status
	session.UpdatedAt = f.now()
	return f.sessions.Update(ctx, session)
}

// discard deletes the session. Failures are logged; the session is inert
// and will be superseded or reaped on its next read.
func (f *flow) discard(ctx context.Context, session *domain.VerificationSession, reason string) {
	if err := f.sessions.Delete(ctx, session.ID); err != nil {
		f.logger.Error("failed to delete verification session",
			"error", err,
			"session_id", session.ID,
			"flow", session.FlowType,
			"reason", reason,
		)
		return
	}
	f.logger.Info("verification session closed",
		"session_id", session.ID,
		"flow", session.FlowType,
		"reason", reason,
	)
}

func (f *flow) sendCode(ctx context.Context, to string, flowType domain.FlowType, code string) error {
	if err := f.notifier.SendCode(ctx, to, flowType, code, f.config.CodeTTL); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}
	return nil
}

// normalizeEmail validates and normalizes an address supplied by a caller.
func (f *flow) normalizeEmail(email string) (string, error) {
	if err := ValidateEmail(email, f.config.StrictEmailValidation, f.config.BlockDisposableEmail); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidEmail, err)
	}
	return NormalizeEmail(email), nil
}

func (f *flow) validatePassword(password string) error {
	if err := f.policy.ValidatePassword(password); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrWeakPassword, err)
	}
	return nil
}
