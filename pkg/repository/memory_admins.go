package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/admin-verify/pkg/domain"
)

// MemoryAdminStore keeps administrator accounts in process memory.
type MemoryAdminStore struct {
	mu     sync.RWMutex
	admins map[uuid.UUID]domain.Admin
}

// NewMemoryAdminStore creates an empty store.
func NewMemoryAdminStore() *MemoryAdminStore {
	return &MemoryAdminStore{admins: make(map[uuid.UUID]domain.Admin)}
}

// Create adds an administrator. Emails are unique.
func (s *MemoryAdminStore) Create(ctx context.Context, admin *domain.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.admins[admin.ID]; ok {
		return domain.ErrConflict
	}
	if s.findByEmail(admin.Email) != nil {
		return domain.ErrConflict
	}
	s.admins[admin.ID] = *admin
	return nil
}

// GetByID retrieves an administrator by ID.
func (s *MemoryAdminStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	admin, ok := s.admins[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &admin, nil
}

// GetByEmail retrieves an administrator by email.
func (s *MemoryAdminStore) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	admin := s.findByEmail(email)
	if admin == nil {
		return nil, domain.ErrAccountNotFound
	}
	c := *admin
	return &c, nil
}

// ExistsByEmail checks whether an administrator uses email.
func (s *MemoryAdminStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.findByEmail(email) != nil, nil
}

// UpdatePassword replaces an administrator's password hash.
func (s *MemoryAdminStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	admin, ok := s.admins[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	admin.PasswordHash = passwordHash
	admin.UpdatedAt = time.Now()
	s.admins[id] = admin
	return nil
}

// UpdateEmail moves an administrator to a new, verified address.
func (s *MemoryAdminStore) UpdateEmail(ctx context.Context, id uuid.UUID, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	admin, ok := s.admins[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if other := s.findByEmail(email); other != nil && other.ID != id {
		return domain.ErrConflict
	}
	admin.Email = email
	admin.EmailVerified = true
	admin.UpdatedAt = time.Now()
	s.admins[id] = admin
	return nil
}

// Delete removes an administrator.
func (s *MemoryAdminStore) Delete(ctx context.Context, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.admins, id)
}

func (s *MemoryAdminStore) findByEmail(email string) *domain.Admin {
	for _, admin := range s.admins {
		if admin.Email == email {
			return &admin
		}
	}
	return nil
}
