package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Admin represents a long-lived administrator account.
type Admin struct {
	ID            uuid.UUID
	Email         string
	Name          string
	Phone         string
	Role          string
	PasswordHash  string
	EmailVerified bool
	Metadata      json.RawMessage
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
