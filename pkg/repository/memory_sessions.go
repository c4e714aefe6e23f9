package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/admin-verify/pkg/domain"
)

// MemorySessionStore keeps verification sessions in process memory.
// It is used for local development and tests; sessions do not survive a restart.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.VerificationSession
	now      func() time.Time
}

// NewMemorySessionStore creates an empty store. A nil clock means time.Now.
func NewMemorySessionStore(now func() time.Time) *MemorySessionStore {
	if now == nil {
		now = time.Now
	}
	return &MemorySessionStore{
		sessions: make(map[uuid.UUID]*domain.VerificationSession),
		now:      now,
	}
}

// Create stores a copy of session after removing any session it supersedes.
func (s *MemorySessionStore) Create(ctx context.Context, session *domain.VerificationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.sessions {
		if existing.FlowType != session.FlowType {
			continue
		}
		if existing.Email == session.Email || (session.AccountID != nil && existing.OwnedBy(*session.AccountID)) {
			delete(s.sessions, id)
		}
	}

	s.sessions[session.ID] = session.Clone()
	return nil
}

// Get returns a copy of the session.
func (s *MemorySessionStore) Get(ctx context.Context, id uuid.UUID) (*domain.VerificationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if session.IsExpired(s.now()) {
		delete(s.sessions, id)
		return nil, domain.ErrSessionExpired
	}
	return session.Clone(), nil
}

// FindActive returns the non-terminal session for flow and email.
func (s *MemorySessionStore) FindActive(ctx context.Context, flow domain.FlowType, email string) (*domain.VerificationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, session := range s.sessions {
		if session.FlowType != flow || session.Email != email || session.Status.Terminal() {
			continue
		}
		if session.IsExpired(s.now()) {
			delete(s.sessions, id)
			return nil, domain.ErrSessionNotFound
		}
		return session.Clone(), nil
	}
	return nil, domain.ErrSessionNotFound
}

// Update replaces the stored session when the versions match.
func (s *MemorySessionStore) Update(ctx context.Context, session *domain.VerificationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[session.ID]
	if !ok || current.Version != session.Version {
		return domain.ErrSessionStale
	}

	session.Version++
	s.sessions[session.ID] = session.Clone()
	return nil
}

// RecordAttempt increments the attempt counter of the session's current code.
func (s *MemorySessionStore) RecordAttempt(ctx context.Context, id uuid.UUID, otpHash string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[id]
	if !ok || current.OTPHash == nil || *current.OTPHash != otpHash {
		return 0, domain.ErrSessionStale
	}
	current.FailedAttempts++
	return current.FailedAttempts, nil
}

// Delete removes the session.
func (s *MemorySessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Len returns the number of stored sessions.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}
