package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestVerificationSession_IsExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-1 * time.Minute)
	future := now.Add(1 * time.Minute)

	tests := []struct {
		name           string
		otpExpiresAt   *time.Time
		tokenExpiresAt *time.Time
		want           bool
	}{
		{
			name: "no secrets outstanding",
			want: false,
		},
		{
			name:         "code still valid",
			otpExpiresAt: &future,
			want:         false,
		},
		{
			name:         "code expired",
			otpExpiresAt: &past,
			want:         true,
		},
		{
			name:         "code expires exactly now",
			otpExpiresAt: &now,
			want:         true,
		},
		{
			name:           "token expired",
			tokenExpiresAt: &past,
			want:           true,
		},
		{
			name:           "token still valid",
			tokenExpiresAt: &future,
			want:           false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &VerificationSession{
				OTPExpiresAt:   tt.otpExpiresAt,
				TokenExpiresAt: tt.tokenExpiresAt,
			}
			if got := s.IsExpired(now); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerificationSession_CodeAndTokenPairing(t *testing.T) {
	s := &VerificationSession{FailedAttempts: 3}
	expires := time.Now().Add(10 * time.Minute)

	s.SetCode("hash", expires)
	if s.OTPHash == nil || s.OTPExpiresAt == nil {
		t.Fatal("SetCode should set both hash and expiry")
	}
	if s.FailedAttempts != 0 {
		t.Errorf("SetCode should reset failed attempts, got %d", s.FailedAttempts)
	}

	s.SetToken("digest", expires)
	if s.OTPHash != nil || s.OTPExpiresAt != nil {
		t.Error("SetToken should consume the code")
	}
	if s.VerificationTokenHash == nil || s.TokenExpiresAt == nil {
		t.Fatal("SetToken should set both digest and expiry")
	}

	s.SetCode("hash2", expires)
	if s.VerificationTokenHash != nil || s.TokenExpiresAt != nil {
		t.Error("issuing a new code should invalidate the verification token")
	}
}

func TestFlowType_AllowsStatus(t *testing.T) {
	tests := []struct {
		flow   FlowType
		status SessionStatus
		want   bool
	}{
		{FlowSignup, StatusApprovalPending, true},
		{FlowSignup, StatusRejected, true},
		{FlowSignup, StatusCurrentOTPPending, false},
		{FlowPasswordReset, StatusOTPPending, true},
		{FlowPasswordReset, StatusApprovalPending, false},
		{FlowEmailChange, StatusNewOTPPending, true},
		{FlowEmailChange, StatusOTPVerified, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.flow)+"/"+string(tt.status), func(t *testing.T) {
			if got := tt.flow.AllowsStatus(tt.status); got != tt.want {
				t.Errorf("AllowsStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerificationSession_Clone(t *testing.T) {
	accountID := uuid.New()
	hash := "hash"
	s := &VerificationSession{
		ID:        uuid.New(),
		AccountID: &accountID,
		OTPHash:   &hash,
		Payload:   SessionPayload{Metadata: map[string]string{"team": "ops"}},
	}

	c := s.Clone()
	*c.OTPHash = "changed"
	c.Payload.Metadata["team"] = "changed"
	*c.AccountID = uuid.New()

	if *s.OTPHash != "hash" {
		t.Error("clone shares OTPHash with original")
	}
	if s.Payload.Metadata["team"] != "ops" {
		t.Error("clone shares payload metadata with original")
	}
	if *s.AccountID != accountID {
		t.Error("clone shares AccountID with original")
	}
}

func TestVerificationSession_OwnedBy(t *testing.T) {
	owner := uuid.New()
	s := &VerificationSession{AccountID: &owner}

	if !s.OwnedBy(owner) {
		t.Error("OwnedBy(owner) = false, want true")
	}
	if s.OwnedBy(uuid.New()) {
		t.Error("OwnedBy(other) = true, want false")
	}
	if (&VerificationSession{}).OwnedBy(owner) {
		t.Error("session without account should not be owned")
	}
}
