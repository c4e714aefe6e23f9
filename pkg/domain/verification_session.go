package domain

import (
	"time"

	"github.com/google/uuid"
)

// FlowType identifies which state machine owns a verification session.
type FlowType string

const (
	FlowSignup        FlowType = "SIGNUP"
	FlowPasswordReset FlowType = "PASSWORD_RESET"
	FlowEmailChange   FlowType = "EMAIL_CHANGE"
)

// Valid reports whether f is a known flow type.
func (f FlowType) Valid() bool {
	switch f {
	case FlowSignup, FlowPasswordReset, FlowEmailChange:
		return true
	}
	return false
}

// SessionStatus is the stage a verification session is in.
// The legal values depend on the session's FlowType.
type SessionStatus string

const (
	StatusApprovalPending   SessionStatus = "APPROVAL_PENDING"
	StatusOTPPending        SessionStatus = "OTP_PENDING"
	StatusOTPVerified       SessionStatus = "OTP_VERIFIED"
	StatusRejected          SessionStatus = "REJECTED"
	StatusCurrentOTPPending SessionStatus = "CURRENT_OTP_PENDING"
	StatusNewOTPPending     SessionStatus = "NEW_OTP_PENDING"
)

var flowStatuses = map[FlowType][]SessionStatus{
	FlowSignup:        {StatusApprovalPending, StatusOTPPending, StatusOTPVerified, StatusRejected},
	FlowPasswordReset: {StatusOTPPending, StatusOTPVerified},
	FlowEmailChange:   {StatusCurrentOTPPending, StatusNewOTPPending},
}

// AllowsStatus reports whether status belongs to the vocabulary of flow f.
func (f FlowType) AllowsStatus(status SessionStatus) bool {
	for _, s := range flowStatuses[f] {
		if s == status {
			return true
		}
	}
	return false
}

// Terminal reports whether the status can only be followed by deletion.
func (s SessionStatus) Terminal() bool {
	return s == StatusRejected
}

// SessionPayload is the flow-specific attribute bag carried across stages.
// It is persisted as JSON.
type SessionPayload struct {
	// Signup candidate profile
	Name     string            `json:"name,omitempty"`
	Phone    string            `json:"phone,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`

	// Signup approval
	ApprovalTokenHash string `json:"approval_token_hash,omitempty"`
	Role              string `json:"role,omitempty"`

	// Email change
	NewEmail string `json:"new_email,omitempty"`
}

// VerificationSession is the durable record of one in-progress flow.
type VerificationSession struct {
	ID        uuid.UUID
	FlowType  FlowType
	Email     string
	AccountID *uuid.UUID

	OTPHash      *string
	OTPExpiresAt *time.Time

	VerificationTokenHash *string
	TokenExpiresAt        *time.Time

	FailedAttempts int
	Status         SessionStatus
	Payload        SessionPayload
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsExpired reports whether an outstanding code or verification token
// has passed its validity window at the given instant.
func (s *VerificationSession) IsExpired(now time.Time) bool {
	if s.OTPExpiresAt != nil && !now.Before(*s.OTPExpiresAt) {
		return true
	}
	if s.TokenExpiresAt != nil && !now.Before(*s.TokenExpiresAt) {
		return true
	}
	return false
}

// SetCode records the hash of a freshly issued code. Any verification
// token from an earlier code is invalidated.
func (s *VerificationSession) SetCode(hash string, expiresAt time.Time) {
	s.OTPHash = &hash
	s.OTPExpiresAt = &expiresAt
	s.FailedAttempts = 0
	s.ClearToken()
}

// ClearCode drops the outstanding code.
func (s *VerificationSession) ClearCode() {
	s.OTPHash = nil
	s.OTPExpiresAt = nil
	s.FailedAttempts = 0
}

// SetToken records the digest of a verification token and consumes the code.
func (s *VerificationSession) SetToken(digest string, expiresAt time.Time) {
	s.ClearCode()
	s.VerificationTokenHash = &digest
	s.TokenExpiresAt = &expiresAt
}

// ClearToken drops the verification token.
func (s *VerificationSession) ClearToken() {
	s.VerificationTokenHash = nil
	s.TokenExpiresAt = nil
}

// OwnedBy reports whether the session is bound to the given account.
func (s *VerificationSession) OwnedBy(accountID uuid.UUID) bool {
	return s.AccountID != nil && *s.AccountID == accountID
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (s *VerificationSession) Clone() *VerificationSession {
	c := *s
	if s.AccountID != nil {
		id := *s.AccountID
		c.AccountID = &id
	}
	if s.OTPHash != nil {
		v := *s.OTPHash
		c.OTPHash = &v
	}
	if s.OTPExpiresAt != nil {
		v := *s.OTPExpiresAt
		c.OTPExpiresAt = &v
	}
	if s.VerificationTokenHash != nil {
		v := *s.VerificationTokenHash
		c.VerificationTokenHash = &v
	}
	if s.TokenExpiresAt != nil {
		v := *s.TokenExpiresAt
		c.TokenExpiresAt = &v
	}
	if s.Payload.Metadata != nil {
		c.Payload.Metadata = make(map[string]string, len(s.Payload.Metadata))
		for k, v := range s.Payload.Metadata {
			c.Payload.Metadata[k] = v
		}
	}
	return &c
}

// ApprovalLink is one selectable action in a signup approval message.
type ApprovalLink struct {
	Label string
	URL   string
}

// Candidate is the profile of a person requesting an administrator account.
type Candidate struct {
	Name     string
	Email    string
	Phone    string
	Metadata map[string]string
}
